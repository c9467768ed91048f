package model

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
)

// ValueKind discriminates the Value tagged union.
type ValueKind uint8

const (
	KindAbsent ValueKind = iota
	KindString
	KindNumber
)

// Value is a single cell of a raw record: absent, a string, or a number.
// The zero Value is absent.
type Value struct {
	kind ValueKind
	str  string
	num  float64
}

// Absent returns the absent Value.
func Absent() Value { return Value{} }

// Str wraps a string cell.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Num wraps a numeric cell.
func Num(f float64) Value { return Value{kind: KindNumber, num: f} }

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsAbsent reports whether v carries no value at all.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// IsEmpty reports whether v is absent or the empty string.
func (v Value) IsEmpty() bool {
	return v.kind == KindAbsent || (v.kind == KindString && v.str == "")
}

// Number returns the numeric payload and whether v is a number.
func (v Value) Number() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// String stringifies v. Absent values stringify to "". Numbers use the
// shortest representation that round-trips.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalJSON encodes absent as null, strings as strings and finite numbers
// as numbers. Non-finite numbers have no JSON form and encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, strings, numbers and booleans. Booleans are
// kept as their string form; objects and arrays are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "value: decode")
	}
	switch t := raw.(type) {
	case nil:
		*v = Absent()
	case string:
		*v = Str(t)
	case float64:
		*v = Num(t)
	case bool:
		*v = Str(strconv.FormatBool(t))
	default:
		return eris.Errorf("value: unsupported JSON type %T", raw)
	}
	return nil
}
