package model

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Field is one key/value cell of a raw record.
type Field struct {
	Key   string
	Value Value
}

// RawRecord is a source row with arbitrary keys, kept in source column order.
type RawRecord struct {
	Fields []Field
}

// NewRawRecord builds a record from parallel header and cell slices. Cells
// beyond the header are dropped; missing trailing cells are absent.
func NewRawRecord(header []string, cells []string) RawRecord {
	rec := RawRecord{Fields: make([]Field, len(header))}
	for i, h := range header {
		v := Absent()
		if i < len(cells) {
			v = Str(cells[i])
		}
		rec.Fields[i] = Field{Key: h, Value: v}
	}
	return rec
}

// RecordOf is a convenience constructor taking alternating key/value pairs.
// Values may be string, float64, int, nil or Value.
func RecordOf(pairs ...any) RawRecord {
	var rec RawRecord
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		rec.Set(key, ValueOf(pairs[i+1]))
	}
	return rec
}

// ValueOf converts a Go scalar into a Value.
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return Absent()
	case Value:
		return t
	case string:
		return Str(t)
	case float64:
		return Num(t)
	case float32:
		return Num(float64(t))
	case int:
		return Num(float64(t))
	case int64:
		return Num(float64(t))
	case bool:
		if t {
			return Str("true")
		}
		return Str("false")
	default:
		return Absent()
	}
}

// Len returns the number of fields.
func (r RawRecord) Len() int { return len(r.Fields) }

// Get returns the value stored under the exact key.
func (r RawRecord) Get(key string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Absent(), false
}

// Set replaces the value under key, or appends a new field.
func (r *RawRecord) Set(key string, v Value) {
	for i := range r.Fields {
		if r.Fields[i].Key == key {
			r.Fields[i].Value = v
			return
		}
	}
	r.Fields = append(r.Fields, Field{Key: key, Value: v})
}

// Keys returns the keys in source order.
func (r RawRecord) Keys() []string {
	keys := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		keys[i] = f.Key
	}
	return keys
}

// IsBlank reports whether every field is empty.
func (r RawRecord) IsBlank() bool {
	for _, f := range r.Fields {
		if !f.Value.IsEmpty() {
			return false
		}
	}
	return true
}

// MarshalJSON writes the record as a JSON object, keys in source order.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, eris.Wrap(err, "record: marshal key")
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object, keeping key order. Nested objects
// and arrays are rejected.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "record: read opening token")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.Errorf("record: expected object, got %v", tok)
	}

	r.Fields = r.Fields[:0]
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "record: read key")
		}
		key, ok := kt.(string)
		if !ok {
			return eris.Errorf("record: expected string key, got %v", kt)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return eris.Wrapf(err, "record: read value for %q", key)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return eris.Wrapf(err, "record: field %q", key)
		}
		r.Fields = append(r.Fields, Field{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "record: read closing token")
	}
	return nil
}
