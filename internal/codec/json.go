package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// JSON is the default codec. Decoding goes through gjson so that object
// members are read in document order and numbers keep their exact text.
type JSON struct{}

// Name implements Codec.
func (JSON) Name() string { return types.CodecJSON }

// Check implements Codec.
func (JSON) Check(v types.Value) error { return types.CheckValue(v) }

// Encode implements Codec.
func (JSON) Encode(s *types.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"` + types.MetaKey + `":{"tables":{`)
	for i, t := range s.Tables {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, t.Name); err != nil {
			return nil, err
		}
		buf.WriteString(`:{"columns":`)
		if err := writeJSON(&buf, t.Columns); err != nil {
			return nil, err
		}
		buf.WriteByte('}')
	}
	buf.WriteString(`}}`)

	for _, t := range s.Tables {
		buf.WriteByte(',')
		if err := writeJSON(&buf, t.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		rows := t.Rows
		if rows == nil {
			rows = []types.Record{}
		}
		if err := writeJSON(&buf, rows); err != nil {
			return nil, fmt.Errorf("encoding table %q: %w", t.Name, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

// Decode implements Codec.
func (JSON) Decode(data []byte) (*types.Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, deserializeErr("not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, deserializeErr("top level is not an object")
	}

	var (
		schemas []tableSchema
		rows    = make(map[string][]types.Record)
		sawMeta bool
		err     error
	)
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.Str
		if name == types.MetaKey {
			if sawMeta {
				err = deserializeErr("duplicate %q entry", types.MetaKey)
				return false
			}
			sawMeta = true
			schemas, err = decodeJSONMeta(value)
			return err == nil
		}
		if _, dup := rows[name]; dup {
			err = deserializeErr("duplicate rows for table %q", name)
			return false
		}
		rows[name], err = decodeJSONRows(name, value)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	if !sawMeta {
		return nil, deserializeErr("missing %q entry", types.MetaKey)
	}
	return assemble(schemas, rows)
}

func decodeJSONMeta(meta gjson.Result) ([]tableSchema, error) {
	if !meta.IsObject() {
		return nil, deserializeErr("%q is not an object", types.MetaKey)
	}
	tables := meta.Get("tables")
	if !tables.IsObject() {
		return nil, deserializeErr("%q has no tables object", types.MetaKey)
	}

	schemas := []tableSchema{}
	var err error
	tables.ForEach(func(key, def gjson.Result) bool {
		cols := def.Get("columns")
		if !def.IsObject() || !cols.IsArray() {
			err = deserializeErr("table %q has no columns list", key.Str)
			return false
		}
		ts := tableSchema{name: key.Str, columns: []string{}}
		cols.ForEach(func(_, col gjson.Result) bool {
			if col.Type != gjson.String {
				err = deserializeErr("table %q has a non-string column %s", key.Str, col.Raw)
				return false
			}
			ts.columns = append(ts.columns, col.Str)
			return true
		})
		schemas = append(schemas, ts)
		return err == nil
	})
	return schemas, err
}

func decodeJSONRows(table string, value gjson.Result) ([]types.Record, error) {
	if !value.IsArray() {
		return nil, deserializeErr("rows of table %q are not a list", table)
	}
	out := []types.Record{}
	var err error
	value.ForEach(func(_, item gjson.Result) bool {
		var rec types.Record
		rec, err = types.RecordFromJSON(item)
		if err != nil {
			err = deserializeErr("table %q: %v", table, err)
			return false
		}
		out = append(out, rec)
		return true
	})
	return out, err
}
