package types

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Kind identifies the variant held by a Value.
type Kind int

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a cell value stored in a record. The set of variants is closed:
// Null, Bool, Number, String, List and Object. Every variant serializes to
// JSON and BSON and decodes back to an equal value.
type Value interface {
	// Kind reports which variant the value holds.
	Kind() Kind

	// Equal reports whether other holds the same variant and the same
	// content. Numbers compare numerically, so 1 equals 1.0.
	Equal(other Value) bool

	json.Marshaler

	isValue()
}

// Null is the absent value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// String is a text value.
type String string

// Number is an exact decimal number.
type Number struct {
	dec decimal.Decimal
}

// List is an ordered sequence of values.
type List []Value

// Object is a nested mapping from key to value.
type Object map[string]Value

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (String) isValue() {}
func (Number) isValue() {}
func (List) isValue()   {}
func (Object) isValue() {}

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (String) Kind() Kind { return KindString }
func (Number) Kind() Kind { return KindNumber }
func (List) Kind() Kind   { return KindList }
func (Object) Kind() Kind { return KindObject }

// Int returns a Number holding i.
func Int(i int64) Number {
	return Number{dec: decimal.NewFromInt(i)}
}

// MaxExponent bounds the decimal exponent of a stored number in both
// directions. Comparing or printing a number costs time proportional to its
// exponent, so larger literals are rejected.
const MaxExponent = 6144

// Float returns a Number holding f. f must be finite; Float panics on NaN
// and infinities. ValueOf reports them as ErrUnsupportedValue instead.
func Float(f float64) Number {
	return Number{dec: decimal.NewFromFloat(f)}
}

// Decimal returns a Number holding d.
func Decimal(d decimal.Decimal) Number {
	return Number{dec: d}
}

// ParseNumber parses a decimal literal such as "42", "-1.5" or "6.02e23".
// Literals whose exponent exceeds MaxExponent fail with ErrUnsupportedValue.
func ParseNumber(s string) (Number, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Number{}, fmt.Errorf("%w: number %q", ErrUnsupportedValue, s)
	}
	if err := checkDecimal(d); err != nil {
		return Number{}, err
	}
	return Number{dec: d}, nil
}

func checkDecimal(d decimal.Decimal) error {
	if e := d.Exponent(); e > MaxExponent || e < -MaxExponent {
		return fmt.Errorf("%w: number exponent %d outside ±%d", ErrUnsupportedValue, e, MaxExponent)
	}
	return nil
}

func checkString(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: string %q is not valid UTF-8", ErrUnsupportedValue, s)
	}
	return nil
}

// CheckValue reports whether v can be stored and read back unchanged.
// Strings and object keys must be valid UTF-8 and numbers must stay within
// MaxExponent. Failures wrap ErrUnsupportedValue.
func CheckValue(v Value) error {
	switch t := v.(type) {
	case nil, Null, Bool:
		return nil
	case String:
		return checkString(string(t))
	case Number:
		return checkDecimal(t.dec)
	case List:
		for _, item := range t {
			if err := CheckValue(item); err != nil {
				return err
			}
		}
		return nil
	case Object:
		for k, item := range t {
			if err := checkString(k); err != nil {
				return err
			}
			if err := CheckValue(item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// Decimal returns the number as a decimal.
func (n Number) Decimal() decimal.Decimal { return n.dec }

// String returns the canonical decimal text of the number.
func (n Number) String() string { return n.dec.String() }

func (Null) Equal(other Value) bool {
	_, ok := other.(Null)
	return ok
}

func (b Bool) Equal(other Value) bool {
	o, ok := other.(Bool)
	return ok && o == b
}

func (s String) Equal(other Value) bool {
	o, ok := other.(String)
	return ok && o == s
}

func (n Number) Equal(other Value) bool {
	o, ok := other.(Number)
	return ok && o.dec.Equal(n.dec)
}

func (l List) Equal(other Value) bool {
	o, ok := other.(List)
	if !ok || len(o) != len(l) {
		return false
	}
	for i := range l {
		if !valuesEqual(l[i], o[i]) {
			return false
		}
	}
	return true
}

func (m Object) Equal(other Value) bool {
	o, ok := other.(Object)
	if !ok || len(o) != len(m) {
		return false
	}
	for k, v := range m {
		ov, present := o[k]
		if !present || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

// valuesEqual compares two values, treating a nil Value as Null.
func valuesEqual(a, b Value) bool {
	return normalize(a).Equal(normalize(b))
}

func normalize(v Value) Value {
	if v == nil {
		return Null{}
	}
	return v
}

func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func (b Bool) MarshalJSON() ([]byte, error) { return json.Marshal(bool(b)) }

// MarshalJSON fails on invalid UTF-8 rather than replacing it.
func (s String) MarshalJSON() ([]byte, error) {
	if err := checkString(string(s)); err != nil {
		return nil, err
	}
	return json.Marshal(string(s))
}

func (n Number) MarshalJSON() ([]byte, error) {
	if err := checkDecimal(n.dec); err != nil {
		return nil, err
	}
	return []byte(n.dec.String()), nil
}

func (l List) MarshalJSON() ([]byte, error) {
	items := make([]Value, len(l))
	for i, v := range l {
		items[i] = normalize(v)
	}
	return json.Marshal(items)
}

func (m Object) MarshalJSON() ([]byte, error) {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		if err := checkString(k); err != nil {
			return nil, err
		}
		out[k] = normalize(v)
	}
	return json.Marshal(out)
}

// Keys returns the object keys in sorted order.
func (m Object) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CloneValue returns a deep copy of v. Scalars are immutable and returned
// as is; lists and objects are copied recursively.
func CloneValue(v Value) Value {
	switch t := v.(type) {
	case nil:
		return Null{}
	case List:
		out := make(List, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	case Object:
		out := make(Object, len(t))
		for k, item := range t {
			out[k] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}

// ValueOf converts a native Go value to a Value. It accepts nil, bool,
// string, the integer and float types, json.Number, decimal.Decimal,
// []any, map[string]any and existing Values. Anything else fails with
// ErrUnsupportedValue, as do NaN, infinities, invalid UTF-8 and values
// rejected by CheckValue.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null{}, nil
	case Value:
		if err := CheckValue(t); err != nil {
			return nil, err
		}
		return CloneValue(t), nil
	case bool:
		return Bool(t), nil
	case string:
		if err := checkString(t); err != nil {
			return nil, err
		}
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Decimal(decimal.NewFromUint64(uint64(t))), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Decimal(decimal.NewFromUint64(t)), nil
	case float32:
		if err := checkFloat(float64(t)); err != nil {
			return nil, err
		}
		return Decimal(decimal.NewFromFloat32(t)), nil
	case float64:
		if err := checkFloat(t); err != nil {
			return nil, err
		}
		return Float(t), nil
	case json.Number:
		return ParseNumber(t.String())
	case decimal.Decimal:
		if err := checkDecimal(t); err != nil {
			return nil, err
		}
		return Decimal(t), nil
	case []any:
		out := make(List, len(t))
		for i, item := range t {
			v, err := ValueOf(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		out := make(Object, len(t))
		for k, item := range t {
			if err := checkString(k); err != nil {
				return nil, err
			}
			v, err := ValueOf(item)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, x)
	}
}

func checkFloat(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %v has no decimal form", ErrUnsupportedValue, f)
	}
	return nil
}
