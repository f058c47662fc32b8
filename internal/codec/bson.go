package codec

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// BSON encodes snapshots as one BSON document. Numbers are stored as
// Decimal128 so they round-trip exactly; documents are written with
// ordered bson.D values and read back element by element from bson.Raw,
// which keeps table order.
type BSON struct{}

// Name implements Codec.
func (BSON) Name() string { return types.CodecBSON }

// Check implements Codec. On top of types.CheckValue, numbers must fit
// Decimal128 and object keys must not contain NUL.
func (BSON) Check(v types.Value) error {
	if err := types.CheckValue(v); err != nil {
		return err
	}
	_, err := toBSON(v)
	return err
}

// Encode implements Codec.
func (BSON) Encode(s *types.Snapshot) ([]byte, error) {
	tables := bson.D{}
	for _, t := range s.Tables {
		cols := make(bson.A, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c
		}
		tables = append(tables, bson.E{Key: t.Name, Value: bson.D{{Key: "columns", Value: cols}}})
	}

	doc := bson.D{{Key: types.MetaKey, Value: bson.D{{Key: "tables", Value: tables}}}}
	for _, t := range s.Tables {
		rows := make(bson.A, len(t.Rows))
		for i, r := range t.Rows {
			if err := types.CheckValue(types.Object(r)); err != nil {
				return nil, fmt.Errorf("encoding table %q: %w", t.Name, err)
			}
			d, err := toBSONDoc(types.Object(r))
			if err != nil {
				return nil, fmt.Errorf("encoding table %q: %w", t.Name, err)
			}
			rows[i] = d
		}
		doc = append(doc, bson.E{Key: t.Name, Value: rows})
	}

	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal bson: %w", err)
	}
	return data, nil
}

func toBSONDoc(o types.Object) (bson.D, error) {
	d := make(bson.D, 0, len(o))
	for _, k := range o.Keys() {
		if strings.IndexByte(k, 0) >= 0 {
			return nil, fmt.Errorf("%w: key %q contains NUL", types.ErrUnsupportedValue, k)
		}
		v, err := toBSON(o[k])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		d = append(d, bson.E{Key: k, Value: v})
	}
	return d, nil
}

func toBSON(v types.Value) (any, error) {
	switch t := v.(type) {
	case nil, types.Null:
		return nil, nil
	case types.Bool:
		return bool(t), nil
	case types.String:
		return string(t), nil
	case types.Number:
		d, err := primitive.ParseDecimal128(t.String())
		if err != nil {
			return nil, fmt.Errorf("%w: number %s out of Decimal128 range", types.ErrUnsupportedValue, t.String())
		}
		return d, nil
	case types.List:
		a := make(bson.A, len(t))
		for i, item := range t {
			x, err := toBSON(item)
			if err != nil {
				return nil, err
			}
			a[i] = x
		}
		return a, nil
	case types.Object:
		return toBSONDoc(t)
	default:
		return nil, fmt.Errorf("%w: %T", types.ErrUnsupportedValue, v)
	}
}

// Decode implements Codec.
func (BSON) Decode(data []byte) (*types.Snapshot, error) {
	raw := bson.Raw(data)
	if err := raw.Validate(); err != nil {
		return nil, deserializeErr("not a valid BSON document: %v", err)
	}
	elems, err := raw.Elements()
	if err != nil {
		return nil, deserializeErr("%v", err)
	}

	var (
		schemas []tableSchema
		rows    = make(map[string][]types.Record)
		sawMeta bool
	)
	for _, e := range elems {
		name, val := e.Key(), e.Value()
		if name == types.MetaKey {
			if sawMeta {
				return nil, deserializeErr("duplicate %q entry", types.MetaKey)
			}
			sawMeta = true
			if schemas, err = decodeBSONMeta(val); err != nil {
				return nil, err
			}
			continue
		}
		if _, dup := rows[name]; dup {
			return nil, deserializeErr("duplicate rows for table %q", name)
		}
		if rows[name], err = decodeBSONRows(name, val); err != nil {
			return nil, err
		}
	}
	if !sawMeta {
		return nil, deserializeErr("missing %q entry", types.MetaKey)
	}
	return assemble(schemas, rows)
}

func decodeBSONMeta(meta bson.RawValue) ([]tableSchema, error) {
	if meta.Type != bson.TypeEmbeddedDocument {
		return nil, deserializeErr("%q is not a document", types.MetaKey)
	}
	tables, err := meta.Document().LookupErr("tables")
	if err != nil || tables.Type != bson.TypeEmbeddedDocument {
		return nil, deserializeErr("%q has no tables document", types.MetaKey)
	}
	defs, err := tables.Document().Elements()
	if err != nil {
		return nil, deserializeErr("%v", err)
	}

	schemas := make([]tableSchema, 0, len(defs))
	for _, def := range defs {
		name := def.Key()
		if def.Value().Type != bson.TypeEmbeddedDocument {
			return nil, deserializeErr("table %q has no columns list", name)
		}
		cols, err := def.Value().Document().LookupErr("columns")
		if err != nil || cols.Type != bson.TypeArray {
			return nil, deserializeErr("table %q has no columns list", name)
		}
		items, err := arrayValues(cols)
		if err != nil {
			return nil, err
		}
		ts := tableSchema{name: name, columns: make([]string, 0, len(items))}
		for _, item := range items {
			if item.Type != bson.TypeString {
				return nil, deserializeErr("table %q has a non-string column", name)
			}
			ts.columns = append(ts.columns, item.StringValue())
		}
		schemas = append(schemas, ts)
	}
	return schemas, nil
}

func decodeBSONRows(table string, val bson.RawValue) ([]types.Record, error) {
	if val.Type != bson.TypeArray {
		return nil, deserializeErr("rows of table %q are not a list", table)
	}
	items, err := arrayValues(val)
	if err != nil {
		return nil, err
	}
	out := make([]types.Record, 0, len(items))
	for _, item := range items {
		if item.Type != bson.TypeEmbeddedDocument {
			return nil, deserializeErr("table %q has a row that is not a document", table)
		}
		v, err := fromBSON(item)
		if err != nil {
			return nil, deserializeErr("table %q: %v", table, err)
		}
		out = append(out, types.Record(v.(types.Object)))
	}
	return out, nil
}

// arrayValues returns the elements of a BSON array. Arrays are encoded as
// documents keyed "0", "1", ... so the raw bytes parse as a document.
func arrayValues(val bson.RawValue) ([]bson.RawValue, error) {
	elems, err := bson.Raw(val.Value).Elements()
	if err != nil {
		return nil, deserializeErr("%v", err)
	}
	out := make([]bson.RawValue, len(elems))
	for i, e := range elems {
		out[i] = e.Value()
	}
	return out, nil
}

func fromBSON(rv bson.RawValue) (types.Value, error) {
	switch rv.Type {
	case bson.TypeNull, bson.TypeUndefined:
		return types.Null{}, nil
	case bson.TypeBoolean:
		return types.Bool(rv.Boolean()), nil
	case bson.TypeString:
		return types.String(rv.StringValue()), nil
	case bson.TypeInt32:
		return types.Int(int64(rv.Int32())), nil
	case bson.TypeInt64:
		return types.Int(rv.Int64()), nil
	case bson.TypeDouble:
		return types.Float(rv.Double()), nil
	case bson.TypeDecimal128:
		return types.ParseNumber(rv.Decimal128().String())
	case bson.TypeArray:
		items, err := arrayValues(rv)
		if err != nil {
			return nil, err
		}
		out := make(types.List, len(items))
		for i, item := range items {
			if out[i], err = fromBSON(item); err != nil {
				return nil, err
			}
		}
		return out, nil
	case bson.TypeEmbeddedDocument:
		elems, err := rv.Document().Elements()
		if err != nil {
			return nil, err
		}
		out := make(types.Object, len(elems))
		for _, e := range elems {
			v, err := fromBSON(e.Value())
			if err != nil {
				return nil, err
			}
			out[e.Key()] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: bson type %s", types.ErrUnsupportedValue, rv.Type)
	}
}
