package types

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null equals null", Null{}, Null{}, true},
		{"null differs from false", Null{}, Bool(false), false},
		{"int equals float with same value", Int(1), Float(1.0), true},
		{"different numbers", Int(1), Int(2), false},
		{"number differs from string", Int(1), String("1"), false},
		{"strings", String("Alice"), String("Alice"), true},
		{"lists compare element-wise", List{Int(1), String("a")}, List{Int(1), String("a")}, true},
		{"list order matters", List{Int(1), Int(2)}, List{Int(2), Int(1)}, false},
		{"objects ignore key order", Object{"a": Int(1), "b": Bool(true)}, Object{"b": Bool(true), "a": Int(1)}, true},
		{"object missing key", Object{"a": Int(1)}, Object{"b": Int(1)}, false},
		{"nil element treated as null", List{nil}, List{Null{}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestValueOf(t *testing.T) {
	t.Run("converts natives", func(t *testing.T) {
		v, err := ValueOf(map[string]any{
			"n":    nil,
			"b":    true,
			"s":    "x",
			"i":    42,
			"u":    uint64(18446744073709551615),
			"f":    2.5,
			"jn":   json.Number("7"),
			"d":    decimal.RequireFromString("0.1"),
			"list": []any{1, "two"},
		})
		require.NoError(t, err)

		want := Object{
			"n":    Null{},
			"b":    Bool(true),
			"s":    String("x"),
			"i":    Int(42),
			"u":    Decimal(decimal.RequireFromString("18446744073709551615")),
			"f":    Float(2.5),
			"jn":   Int(7),
			"d":    Decimal(decimal.RequireFromString("0.1")),
			"list": List{Int(1), String("two")},
		}
		assert.True(t, want.Equal(v), "got %v", v)
	})

	t.Run("rejects unsupported types", func(t *testing.T) {
		_, err := ValueOf(struct{}{})
		assert.ErrorIs(t, err, ErrUnsupportedValue)

		_, err = ValueOf([]any{make(chan int)})
		assert.ErrorIs(t, err, ErrUnsupportedValue)
	})

	t.Run("rejects values with no stored form", func(t *testing.T) {
		for _, x := range []any{
			math.NaN(),
			math.Inf(1),
			math.Inf(-1),
			float32(math.Inf(1)),
			[]any{1, math.NaN()},
			"\xff",
			map[string]any{"\xff": 1},
			json.Number("1e50000000"),
			decimal.New(1, MaxExponent+1),
			String("\xc3\x28"),
		} {
			_, err := ValueOf(x)
			assert.ErrorIs(t, err, ErrUnsupportedValue, "%#v", x)
		}

		_, err := NewRecord(map[string]any{"a": math.Inf(1)})
		assert.ErrorIs(t, err, ErrUnsupportedValue)
		_, err = NewFilter(map[string]any{"a": math.NaN()})
		assert.ErrorIs(t, err, ErrUnsupportedValue)
	})
}

func TestParseNumberExponentBound(t *testing.T) {
	tests := []struct {
		text    string
		wantErr bool
	}{
		{"1e6144", false},
		{"1e-6144", false},
		{"6.02e23", false},
		{"1e6145", true},
		{"1e-6145", true},
		{"1e50000000", true},
		{"-1E-50000000", true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := ParseNumber(tt.text)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedValue)
				return
			}
			require.NoError(t, err)
		})
	}

	t.Run("largest numbers stay cheap", func(t *testing.T) {
		big, err := ParseNumber("1e6144")
		require.NoError(t, err)
		small, err := ParseNumber("1e-6144")
		require.NoError(t, err)

		start := time.Now()
		assert.False(t, big.Equal(small))
		data, err := big.MarshalJSON()
		require.NoError(t, err)
		assert.Less(t, len(data), 7000)
		assert.Less(t, time.Since(start), time.Second)
	})

	_, err := ParseValue([]byte(`{"a":1e50000000}`))
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestMarshalJSONRejectsInvalidUTF8(t *testing.T) {
	_, err := json.Marshal(List{String("\xff")})
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	_, err = json.Marshal(Object{"\xff": Int(1)})
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	data, err := json.Marshal(String("ünïcode ✓"))
	require.NoError(t, err)
	assert.Equal(t, `"ünïcode ✓"`, string(data))
}

func TestCheckValue(t *testing.T) {
	assert.NoError(t, CheckValue(Object{"k": List{Int(1), String("ok"), Null{}, nil}}))
	assert.ErrorIs(t, CheckValue(String("\xff")), ErrUnsupportedValue)
	assert.ErrorIs(t, CheckValue(Object{"\xff": Null{}}), ErrUnsupportedValue)
	assert.ErrorIs(t, CheckValue(List{Decimal(decimal.New(1, -MaxExponent-1))}), ErrUnsupportedValue)
}

func TestValueJSON(t *testing.T) {
	t.Run("marshal", func(t *testing.T) {
		rec := Record{
			"id":   Int(1),
			"name": String("Alice"),
			"tags": List{String("a"), Null{}},
			"meta": Object{"ok": Bool(true)},
		}
		data, err := json.Marshal(rec)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":1,"name":"Alice","tags":["a",null],"meta":{"ok":true}}`, string(data))
	})

	t.Run("parse keeps exact numbers", func(t *testing.T) {
		v, err := ParseValue([]byte(`12345678901234567890.000000001`))
		require.NoError(t, err)
		n, ok := v.(Number)
		require.True(t, ok)
		assert.Equal(t, "12345678901234567890.000000001", n.String())
	})

	t.Run("parse record", func(t *testing.T) {
		rec, err := ParseRecord([]byte(`{"id":1,"name":"Bob","nested":{"x":[1,2]},"none":null}`))
		require.NoError(t, err)
		want := MustRecord(map[string]any{
			"id":     1,
			"name":   "Bob",
			"nested": map[string]any{"x": []any{1, 2}},
			"none":   nil,
		})
		assert.True(t, want.Equal(rec), "got %v", rec)
	})

	t.Run("parse record rejects non-objects", func(t *testing.T) {
		_, err := ParseRecord([]byte(`[1,2]`))
		assert.Error(t, err)
		_, err = ParseRecord([]byte(`{"a":`))
		assert.Error(t, err)
	})

	t.Run("unmarshal record", func(t *testing.T) {
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(`{"a":true}`), &rec))
		assert.True(t, rec.Equal(Record{"a": Bool(true)}))
	})
}

func TestCloneValueIsDeep(t *testing.T) {
	orig := Object{"list": List{Int(1)}}
	cp := CloneValue(orig).(Object)
	cp["list"].(List)[0] = Int(99)
	assert.True(t, orig["list"].(List)[0].Equal(Int(1)))
}
