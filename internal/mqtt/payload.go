package mqtt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"feedwatch/internal/types"
)

// ParsePayload turns a real-time message into a Reading. Two shapes are
// accepted: a URL-encoded "field1=v&field2=v" body, where malformed or
// non-numeric pairs are skipped, and a JSON feed entry. Readings without a
// timestamp are stamped with receivedAt. ok is false when no field carried a
// value.
func ParsePayload(payload []byte, receivedAt time.Time) (r types.Reading, ok bool, err error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return types.Reading{}, false, fmt.Errorf("decode json payload: %w", err)
		}
	} else {
		r = parseFormPayload(string(trimmed))
	}

	if strings.TrimSpace(r.CreatedAt) == "" {
		r.CreatedAt = receivedAt.UTC().Format(time.RFC3339)
	}
	return r, r.HasAnyField(), nil
}

func parseFormPayload(s string) types.Reading {
	var r types.Reading
	for _, pair := range strings.Split(s, "&") {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" || value == "" {
			continue
		}
		key, err := url.QueryUnescape(key)
		if err != nil {
			continue
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			continue
		}

		switch key {
		case "created_at":
			r.CreatedAt = value
			continue
		case "entry_id":
			if id, err := strconv.ParseInt(value, 10, 64); err == nil {
				r.EntryID = id
			}
			continue
		}

		i, isField := types.FieldIndex(key)
		if !isField {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		r.Fields[i] = types.Float(v)
	}
	return r
}
