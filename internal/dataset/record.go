package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Field is one name/value pair of a Record.
type Field struct {
	Key   string
	Value any
}

// Record is a schema-less source record. Fields keep the order they had in the source document;
// a repeated key keeps its first position and its last value.
//
// Values are string, json.Number, bool, nil, map[string]any or []any.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord builds a record from fields in order.
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Set adds a field or replaces the value of an existing one in place.
func (r *Record) Set(key string, value any) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Has reports whether every key is present.
func (r Record) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := r.index[k]; !ok {
			return false
		}
	}
	return true
}

// Fields returns the fields in source order. The slice must not be modified.
func (r Record) Fields() []Field {
	return r.fields
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

var errNotObject = errors.New("record is not a JSON object")

// UnmarshalJSON decodes a JSON object preserving key order. Numbers are kept as json.Number.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}

	*r = Record{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		r.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
