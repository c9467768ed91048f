package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_IsEmpty(t *testing.T) {
	assert.True(t, Absent().IsEmpty())
	assert.True(t, Str("").IsEmpty())
	assert.False(t, Str(" ").IsEmpty())
	assert.False(t, Num(0).IsEmpty())
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "", Absent().String())
	assert.Equal(t, "abc", Str("abc").String())
	assert.Equal(t, "2014", Num(2014).String())
	assert.Equal(t, "1.5", Num(1.5).String())
	assert.Equal(t, "NaN", Num(math.NaN()).String())
}

func TestValue_UnmarshalJSON(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.True(t, v.IsAbsent())

	require.NoError(t, json.Unmarshal([]byte(`"x"`), &v))
	assert.Equal(t, KindString, v.Kind())

	require.NoError(t, json.Unmarshal([]byte(`12.5`), &v))
	n, ok := v.Number()
	require.True(t, ok)
	assert.Equal(t, 12.5, n)

	require.NoError(t, json.Unmarshal([]byte(`true`), &v))
	assert.Equal(t, "true", v.String())

	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
}

func TestValue_MarshalNonFinite(t *testing.T) {
	b, err := json.Marshal(Num(math.Inf(1)))
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestRawRecord_JSONPreservesOrder(t *testing.T) {
	input := `{"zeta":"1","alpha":2,"mid":null}`
	var rec RawRecord
	require.NoError(t, json.Unmarshal([]byte(input), &rec))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, rec.Keys())

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestRawRecord_UnmarshalRejectsNested(t *testing.T) {
	var rec RawRecord
	assert.Error(t, json.Unmarshal([]byte(`{"a":[1,2]}`), &rec))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &rec))
}

func TestNewRawRecord_PadsAndTruncates(t *testing.T) {
	rec := NewRawRecord([]string{"a", "b", "c"}, []string{"1", "2"})
	require.Equal(t, 3, rec.Len())
	v, ok := rec.Get("c")
	assert.True(t, ok)
	assert.True(t, v.IsAbsent())

	rec = NewRawRecord([]string{"a"}, []string{"1", "2", "3"})
	assert.Equal(t, 1, rec.Len())
}

func TestRawRecord_SetAndBlank(t *testing.T) {
	rec := RecordOf("a", "", "b", nil)
	assert.True(t, rec.IsBlank())

	rec.Set("a", Str("x"))
	assert.False(t, rec.IsBlank())
	v, _ := rec.Get("a")
	assert.Equal(t, "x", v.String())
	assert.Equal(t, 2, rec.Len())

	rec.Set("c", Num(3))
	assert.Equal(t, []string{"a", "b", "c"}, rec.Keys())
}
