package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

func sampleSnapshot() *types.Snapshot {
	s := types.NewSnapshot()
	users := s.AddTable("users", []string{"id", "name", "email"})
	users.Rows = append(users.Rows,
		types.MustRecord(map[string]any{"id": 1, "name": "Alice", "email": "alice@example.com"}),
		types.MustRecord(map[string]any{"id": 2, "name": "Bob", "email": nil}),
	)
	notes := s.AddTable("notes", []string{"body", "tags", "extra"})
	notes.Rows = append(notes.Rows, types.Record{
		"body":  types.String("ünïcode ✓"),
		"tags":  types.List{types.String("a"), types.Bool(false), types.Float(0.5)},
		"extra": types.Object{"n": types.List{types.Int(1), types.Null{}}},
	})
	s.AddTable("zeta", []string{"x"})
	s.AddTable("alpha", []string{"y"})
	return s
}

func allCodecs() []Codec {
	return []Codec{JSON{}, BSON{}}
}

func TestRoundTrip(t *testing.T) {
	for _, c := range allCodecs() {
		t.Run(c.Name(), func(t *testing.T) {
			want := sampleSnapshot()
			data, err := c.Encode(want)
			require.NoError(t, err)

			got, err := c.Decode(data)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "snapshot changed across round trip")
			assert.Equal(t, []string{"users", "notes", "zeta", "alpha"}, got.TableNames(), "definition order kept")
		})
	}
}

func TestRoundTripEmpty(t *testing.T) {
	for _, c := range allCodecs() {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Encode(types.NewSnapshot())
			require.NoError(t, err)
			got, err := c.Decode(data)
			require.NoError(t, err)
			assert.Empty(t, got.Tables)
		})
	}
}

func TestRoundTripExactNumbers(t *testing.T) {
	for _, c := range allCodecs() {
		t.Run(c.Name(), func(t *testing.T) {
			n, err := types.ParseNumber("9007199254740993.25")
			require.NoError(t, err)
			s := types.NewSnapshot()
			tbl := s.AddTable("n", []string{"v"})
			tbl.Rows = append(tbl.Rows, types.Record{"v": n})

			data, err := c.Encode(s)
			require.NoError(t, err)
			got, err := c.Decode(data)
			require.NoError(t, err)

			gt, _ := got.Table("n")
			assert.Equal(t, "9007199254740993.25", gt.Rows[0]["v"].(types.Number).String())
		})
	}
}

func TestJSONLayout(t *testing.T) {
	s := types.NewSnapshot()
	tbl := s.AddTable("users", []string{"id", "name"})
	tbl.Rows = append(tbl.Rows, types.MustRecord(map[string]any{"id": 1, "name": "Alice"}))

	data, err := JSON{}.Encode(s)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"_meta":{"tables":{"users":{"columns":["id","name"]}}},"users":[{"id":1,"name":"Alice"}]}`,
		string(data))
}

func TestJSONDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"_meta":`},
		{"not an object", `[1,2]`},
		{"missing meta", `{"users":[]}`},
		{"meta without tables", `{"_meta":{}}`},
		{"columns not a list", `{"_meta":{"tables":{"t":{"columns":"a"}}},"t":[]}`},
		{"non-string column", `{"_meta":{"tables":{"t":{"columns":[1]}}},"t":[]}`},
		{"empty columns", `{"_meta":{"tables":{"t":{"columns":[]}}},"t":[]}`},
		{"reserved table name", `{"_meta":{"tables":{"_meta":{"columns":["a"]}}}}`},
		{"rows not a list", `{"_meta":{"tables":{"t":{"columns":["a"]}}},"t":{}}`},
		{"row not an object", `{"_meta":{"tables":{"t":{"columns":["a"]}}},"t":[1]}`},
		{"rows for unknown table", `{"_meta":{"tables":{}},"t":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JSON{}.Decode([]byte(tt.data))
			assert.ErrorIs(t, err, types.ErrDeserialize)
		})
	}
}

func TestJSONDecodeMissingRowsIsEmpty(t *testing.T) {
	got, err := JSON{}.Decode([]byte(`{"_meta":{"tables":{"t":{"columns":["a"]}}}}`))
	require.NoError(t, err)
	tbl, ok := got.Table("t")
	require.True(t, ok)
	assert.Empty(t, tbl.Rows)
}

func TestBSONDecodeErrors(t *testing.T) {
	marshal := func(d bson.D) []byte {
		data, err := bson.Marshal(d)
		require.NoError(t, err)
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("not bson")},
		{"missing meta", marshal(bson.D{{Key: "t", Value: bson.A{}}})},
		{"meta not a document", marshal(bson.D{{Key: "_meta", Value: "x"}})},
		{"rows not a list", marshal(bson.D{
			{Key: "_meta", Value: bson.D{{Key: "tables", Value: bson.D{{Key: "t", Value: bson.D{{Key: "columns", Value: bson.A{"a"}}}}}}}},
			{Key: "t", Value: "x"},
		})},
		{"non-string column", marshal(bson.D{
			{Key: "_meta", Value: bson.D{{Key: "tables", Value: bson.D{{Key: "t", Value: bson.D{{Key: "columns", Value: bson.A{1}}}}}}}},
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BSON{}.Decode(tt.data)
			assert.ErrorIs(t, err, types.ErrDeserialize)
		})
	}
}

func TestBSONDecodesNativeNumbers(t *testing.T) {
	data, err := bson.Marshal(bson.D{
		{Key: "_meta", Value: bson.D{{Key: "tables", Value: bson.D{{Key: "t", Value: bson.D{{Key: "columns", Value: bson.A{"i", "f"}}}}}}}},
		{Key: "t", Value: bson.A{bson.D{{Key: "i", Value: int32(7)}, {Key: "f", Value: 1.5}}}},
	})
	require.NoError(t, err)

	got, err := BSON{}.Decode(data)
	require.NoError(t, err)
	tbl, _ := got.Table("t")
	assert.True(t, tbl.Rows[0].Equal(types.MustRecord(map[string]any{"i": 7, "f": 1.5})))
}

func TestCheck(t *testing.T) {
	outOfRange, err := types.ParseNumber("1234567890123456789012345678901234e6120")
	require.NoError(t, err)
	longDigits, err := types.ParseNumber("0.12345678901234567890123456789012345678")
	require.NoError(t, err)

	tests := []struct {
		name   string
		v      types.Value
		jsonOK bool
		bsonOK bool
	}{
		{"plain record values", types.Object{"a": types.List{types.Int(1), types.String("x")}}, true, true},
		{"beyond Decimal128 range", outOfRange, true, false},
		{"more than 34 digits", longDigits, true, false},
		{"NUL in nested key", types.Object{"a\x00": types.Null{}}, true, false},
		{"invalid UTF-8", types.List{types.String("\xff")}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, c := range []struct {
				codec Codec
				ok    bool
			}{{JSON{}, tt.jsonOK}, {BSON{}, tt.bsonOK}} {
				err := c.codec.Check(tt.v)
				if c.ok {
					assert.NoError(t, err, c.codec.Name())
					continue
				}
				assert.ErrorIs(t, err, types.ErrUnsupportedValue, c.codec.Name())

				s := types.NewSnapshot()
				s.AddTable("t", []string{"v"}).Rows = []types.Record{{"v": tt.v}}
				_, err = c.codec.Encode(s)
				assert.Error(t, err, "Check and Encode must agree for %s", c.codec.Name())
			}
		})
	}
}

func TestForName(t *testing.T) {
	c, err := ForName("")
	require.NoError(t, err)
	assert.Equal(t, types.CodecJSON, c.Name())

	c, err = ForName(types.CodecBSON)
	require.NoError(t, err)
	assert.Equal(t, types.CodecBSON, c.Name())

	_, err = ForName("xml")
	assert.ErrorIs(t, err, types.ErrCodecUnknown)
}
