// Package validate checks upstream payload shape and flags per-sensor
// outliers against a rolling history of accepted values.
//
// Staleness is deliberately absent here: a well-formed but old reading is
// valid, and the freshness tracker decides what its age means.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"feedwatch/internal/types"
)

// ErrMissingTimestamp is reported when a payload has no created_at.
var ErrMissingTimestamp = errors.New("missing created_at")

// ValidationError describes a malformed payload. It is never retried.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid payload: %s: %v", e.Reason, e.Err)
	}
	return "invalid payload: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ValidatePayload decodes raw into a Reading. Anything other than a JSON
// object is rejected, as is an object without created_at.
func ValidatePayload(raw json.RawMessage) (types.Reading, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return types.Reading{}, &ValidationError{Reason: "not a JSON object"}
	}

	var r types.Reading
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return types.Reading{}, &ValidationError{Reason: "decode", Err: err}
	}
	if strings.TrimSpace(r.CreatedAt) == "" {
		return types.Reading{}, &ValidationError{Reason: "created_at", Err: ErrMissingTimestamp}
	}
	return r, nil
}
