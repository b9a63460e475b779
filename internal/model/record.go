package model

import (
	"encoding/json"
	"time"
)

// Record is the generic shape of a single document in a remote or local
// collection. Both stores speak JSON, so the coordinator moves records
// around untyped and callers decode into domain structs where they need
// field access.
type Record map[string]any

// ID returns the record's "id" field, or "" when absent.
func (r Record) ID() string {
	return r.String("id")
}

// String returns the named field as a string, or "" when absent or not a string.
func (r Record) String(key string) string {
	v, ok := r[key].(string)
	if !ok {
		return ""
	}
	return v
}

// Time parses the named field as an RFC 3339 timestamp.
func (r Record) Time(key string) (time.Time, bool) {
	s := r.String(key)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ToRecord converts any JSON-taggable struct into a Record.
func ToRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// DecodeRecord converts a Record into the concrete type T.
func DecodeRecord[T any](r Record) (T, error) {
	var out T
	data, err := json.Marshal(r)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

// DecodeRecords converts a slice of records into concrete values, skipping none.
func DecodeRecords[T any](rs []Record) ([]T, error) {
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		v, err := DecodeRecord[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
