// Package codec maps snapshots to and from bytes. Both codecs produce the
// same logical document:
//
//	{"_meta": {"tables": {"<name>": {"columns": [...]}}}, "<name>": [{...}]}
//
// with tables in definition order. Decoding validates the structure and
// wraps every failure in types.ErrDeserialize.
package codec

import (
	"fmt"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// Codec serializes whole snapshots.
type Codec interface {
	// Name returns the codec's configuration name.
	Name() string

	// Encode serializes s.
	Encode(s *types.Snapshot) ([]byte, error)

	// Decode parses data into a validated snapshot.
	Decode(data []byte) (*types.Snapshot, error)

	// Check fails with types.ErrUnsupportedValue when Encode could not
	// carry v.
	Check(v types.Value) error
}

// ForName returns the codec registered under name.
func ForName(name string) (Codec, error) {
	switch name {
	case types.CodecJSON, "":
		return JSON{}, nil
	case types.CodecBSON:
		return BSON{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrCodecUnknown, name)
	}
}

// deserializeErr wraps a decoding failure in types.ErrDeserialize.
func deserializeErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrDeserialize, fmt.Sprintf(format, args...))
}

// assemble builds and validates a snapshot from decoded parts. schemas
// holds tables in document order and rows maps table name to records. Rows
// for a table missing from schemas are rejected.
func assemble(schemas []tableSchema, rows map[string][]types.Record) (*types.Snapshot, error) {
	s := types.NewSnapshot()
	for _, ts := range schemas {
		if _, dup := s.Table(ts.name); dup {
			return nil, deserializeErr("duplicate table %q", ts.name)
		}
		if err := types.ValidateSchema(ts.name, ts.columns); err != nil {
			return nil, deserializeErr("%v", err)
		}
		t := s.AddTable(ts.name, ts.columns)
		if r, ok := rows[ts.name]; ok {
			t.Rows = r
			delete(rows, ts.name)
		}
	}
	for name := range rows {
		return nil, deserializeErr("rows for unregistered table %q", name)
	}
	return s, nil
}

type tableSchema struct {
	name    string
	columns []string
}
