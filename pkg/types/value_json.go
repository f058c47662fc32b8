package types

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// errInvalidJSON is wrapped by the JSON parsing helpers below.
var errInvalidJSON = errors.New("invalid JSON")

// ParseValue parses a JSON document into a Value. Number literals keep
// their exact decimal text.
func ParseValue(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return nil, errInvalidJSON
	}
	return ValueFromJSON(gjson.ParseBytes(data))
}

// ValueFromJSON converts a parsed gjson result into a Value. Object
// members are visited in document order.
func ValueFromJSON(r gjson.Result) (Value, error) {
	switch r.Type {
	case gjson.Null:
		return Null{}, nil
	case gjson.False:
		return Bool(false), nil
	case gjson.True:
		return Bool(true), nil
	case gjson.Number:
		return ParseNumber(r.Raw)
	case gjson.String:
		return String(r.Str), nil
	case gjson.JSON:
		if r.IsArray() {
			out := List{}
			var err error
			r.ForEach(func(_, item gjson.Result) bool {
				var v Value
				v, err = ValueFromJSON(item)
				if err != nil {
					return false
				}
				out = append(out, v)
				return true
			})
			return out, err
		}
		if r.IsObject() {
			out := Object{}
			var err error
			r.ForEach(func(key, item gjson.Result) bool {
				var v Value
				v, err = ValueFromJSON(item)
				if err != nil {
					return false
				}
				out[key.Str] = v
				return true
			})
			return out, err
		}
	}
	return nil, fmt.Errorf("%w: unexpected token %q", errInvalidJSON, r.Raw)
}

// RecordFromJSON converts a parsed JSON object into a Record.
func RecordFromJSON(r gjson.Result) (Record, error) {
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: record must be an object", errInvalidJSON)
	}
	v, err := ValueFromJSON(r)
	if err != nil {
		return nil, err
	}
	return Record(v.(Object)), nil
}

// ParseRecord parses a JSON object such as {"id":1,"name":"Alice"}.
func ParseRecord(data []byte) (Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, errInvalidJSON
	}
	return RecordFromJSON(gjson.ParseBytes(data))
}

// UnmarshalJSON implements json.Unmarshaler for Record.
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := ParseRecord(data)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}
