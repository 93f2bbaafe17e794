package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

// FieldCount is the number of numeric fields carried by a channel feed entry.
const FieldCount = 4

// Reading is one feed entry as returned by the upstream channel API.
// A Reading is never mutated after it has been decoded.
type Reading struct {
	CreatedAt string
	EntryID   int64
	Fields    [FieldCount]*float64
}

type wireReading struct {
	CreatedAt string      `json:"created_at"`
	EntryID   int64       `json:"entry_id,omitempty"`
	Field1    *fieldValue `json:"field1"`
	Field2    *fieldValue `json:"field2"`
	Field3    *fieldValue `json:"field3"`
	Field4    *fieldValue `json:"field4"`
}

// fieldValue accepts a JSON number, a numeric string or null. Strings that are
// not numbers decode to NaN so that validation can count them as invalid.
type fieldValue struct {
	v *float64
}

func (f *fieldValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		f.v = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			f.v = nil
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			n = math.NaN()
		}
		f.v = &n
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("field value %s: %w", string(b), err)
	}
	f.v = &n
	return nil
}

func (f *fieldValue) ptr() *float64 {
	if f == nil {
		return nil
	}
	return f.v
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Reading) UnmarshalJSON(b []byte) error {
	var w wireReading
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Reading{
		CreatedAt: w.CreatedAt,
		EntryID:   w.EntryID,
		Fields:    [FieldCount]*float64{w.Field1.ptr(), w.Field2.ptr(), w.Field3.ptr(), w.Field4.ptr()},
	}
	return nil
}

// MarshalJSON writes the reading back in the upstream wire shape, with
// numbers instead of strings.
func (r Reading) MarshalJSON() ([]byte, error) {
	out := map[string]any{"created_at": r.CreatedAt}
	if r.EntryID != 0 {
		out["entry_id"] = r.EntryID
	}
	for i, v := range r.Fields {
		key := FieldName(i)
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			out[key] = nil
			continue
		}
		out[key] = *v
	}
	return json.Marshal(out)
}

// Time parses CreatedAt as an ISO 8601 timestamp.
func (r Reading) Time() (time.Time, error) {
	if strings.TrimSpace(r.CreatedAt) == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}
	t, err := iso8601.ParseString(r.CreatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", r.CreatedAt, err)
	}
	return t, nil
}

// Field returns the value for a field key such as "field2".
func (r Reading) Field(key string) (*float64, bool) {
	i, ok := FieldIndex(key)
	if !ok {
		return nil, false
	}
	return r.Fields[i], true
}

// HasAnyField reports whether at least one field carries a value.
func (r Reading) HasAnyField() bool {
	for _, v := range r.Fields {
		if v != nil {
			return true
		}
	}
	return false
}

// FieldName returns the wire key for a zero-based field index.
func FieldName(i int) string {
	return "field" + strconv.Itoa(i+1)
}

// FieldIndex maps "field1".."field4" to a zero-based index.
func FieldIndex(key string) (int, bool) {
	n, ok := strings.CutPrefix(key, "field")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(n)
	if err != nil || i < 1 || i > FieldCount {
		return 0, false
	}
	return i - 1, true
}

// Float is a helper for building readings in code and tests.
func Float(v float64) *float64 {
	return &v
}
