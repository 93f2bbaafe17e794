package config

import (
	"strings"
	"testing"
)

func TestParseSensors_Valid(t *testing.T) {
	body := `
sensors:
  - key: temperature
    field: field1
    name: Temperature
    unit: "°C"
    color: "#f59e0b"
    min: 15
    max: 35
  - field: field4
    name: Water Level
    unit: cm
    min: 0
    max: 100
`
	got, err := ParseSensors("sensors.yaml", []byte(body))
	if err != nil {
		t.Fatalf("ParseSensors: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Key != "temperature" || got[0].Unit != "°C" || got[0].Max != 35 {
		t.Errorf("first sensor = %+v", got[0])
	}
	if got[1].Key != "waterLevel" {
		t.Errorf("derived key = %q, want waterLevel", got[1].Key)
	}
	if got[1].Color != defaultSensorColor {
		t.Errorf("default color = %q, want %q", got[1].Color, defaultSensorColor)
	}
}

func TestParseSensors_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown field key",
			body:    "sensors:\n  - field: field9\n    name: X\n    min: 0\n    max: 1\n",
			wantErr: "schema",
		},
		{
			name:    "missing name",
			body:    "sensors:\n  - field: field1\n    min: 0\n    max: 1\n",
			wantErr: "schema",
		},
		{
			name:    "bad color",
			body:    "sensors:\n  - field: field1\n    name: X\n    color: red\n    min: 0\n    max: 1\n",
			wantErr: "schema",
		},
		{
			name:    "unexpected attribute",
			body:    "sensors:\n  - field: field1\n    name: X\n    min: 0\n    max: 1\n    scale: 3\n",
			wantErr: "schema",
		},
		{
			name:    "min above max",
			body:    "sensors:\n  - field: field1\n    name: X\n    min: 5\n    max: 1\n",
			wantErr: "must be below",
		},
		{
			name:    "duplicate field",
			body:    "sensors:\n  - field: field1\n    name: A\n    min: 0\n    max: 1\n  - field: field1\n    name: B\n    min: 0\n    max: 1\n",
			wantErr: "already mapped",
		},
		{
			name:    "empty list",
			body:    "sensors: []\n",
			wantErr: "at least one",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSensors("sensors.yaml", []byte(tt.body))
			if err == nil {
				t.Fatalf("ParseSensors error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}
