package types

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestReading_UnmarshalJSON(t *testing.T) {
	body := `{"created_at":"2024-01-01T00:00:00Z","entry_id":42,"field1":"22.5","field2":61,"field3":null,"field4":"n/a"}`

	var r Reading
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.CreatedAt != "2024-01-01T00:00:00Z" {
		t.Errorf("CreatedAt = %q", r.CreatedAt)
	}
	if r.EntryID != 42 {
		t.Errorf("EntryID = %d, want 42", r.EntryID)
	}
	if r.Fields[0] == nil || *r.Fields[0] != 22.5 {
		t.Errorf("field1 = %v, want 22.5", r.Fields[0])
	}
	if r.Fields[1] == nil || *r.Fields[1] != 61 {
		t.Errorf("field2 = %v, want 61", r.Fields[1])
	}
	if r.Fields[2] != nil {
		t.Errorf("field3 = %v, want nil", *r.Fields[2])
	}
	if r.Fields[3] == nil || !math.IsNaN(*r.Fields[3]) {
		t.Errorf("field4 = %v, want NaN", r.Fields[3])
	}
}

func TestReading_UnmarshalJSON_MissingFields(t *testing.T) {
	var r Reading
	if err := json.Unmarshal([]byte(`{"created_at":"2024-01-01T00:00:00Z"}`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.HasAnyField() {
		t.Errorf("HasAnyField() = true, want false")
	}
}

func TestReading_MarshalJSON_RoundTripsNumbers(t *testing.T) {
	r := Reading{CreatedAt: "2024-01-01T00:00:00Z", Fields: [FieldCount]*float64{Float(22.5), nil, Float(1013), Float(math.NaN())}}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["field1"] != 22.5 {
		t.Errorf("field1 = %v, want 22.5", got["field1"])
	}
	if got["field2"] != nil || got["field4"] != nil {
		t.Errorf("field2/field4 = %v/%v, want null", got["field2"], got["field4"])
	}
}

func TestReading_Time(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{name: "utc", in: "2024-01-01T00:00:00Z", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "offset", in: "2024-01-01T02:00:00+02:00", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "empty", in: "", wantErr: true},
		{name: "garbage", in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reading{CreatedAt: tt.in}.Time()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Time() error = nil, want non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Time() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Time() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFieldIndex(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{in: "field1", want: 0, wantOK: true},
		{in: "field4", want: 3, wantOK: true},
		{in: "field5", wantOK: false},
		{in: "field0", wantOK: false},
		{in: "temperature", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := FieldIndex(tt.in)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("FieldIndex(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestConnectionState_Label(t *testing.T) {
	if got := StateStale.Label(); got != "Stale Data" {
		t.Errorf("Label() = %q, want %q", got, "Stale Data")
	}
	if got := ConnectionState("bogus").Label(); got != "Disconnected" {
		t.Errorf("Label() = %q, want %q", got, "Disconnected")
	}
}
