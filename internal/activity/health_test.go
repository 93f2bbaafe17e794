package activity

import (
	"math"
	"testing"
)

func TestGrade(t *testing.T) {
	// Range 15..35, so the warning bands are [15, 17) and (33, 35].
	tests := []struct {
		value float64
		want  Health
	}{
		{value: 25, want: HealthNormal},
		{value: 17, want: HealthNormal},
		{value: 33, want: HealthNormal},
		{value: 16.9, want: HealthWarning},
		{value: 33.1, want: HealthWarning},
		{value: 15, want: HealthWarning},
		{value: 35, want: HealthWarning},
		{value: 14.9, want: HealthCritical},
		{value: 40, want: HealthCritical},
		{value: math.NaN(), want: HealthUnknown},
		{value: math.Inf(1), want: HealthUnknown},
	}
	for _, tt := range tests {
		if got := Grade(tt.value, 15, 35); got != tt.want {
			t.Errorf("Grade(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestTrendOf(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Trend
	}{
		{name: "empty", values: nil, want: TrendStable},
		{name: "single", values: []float64{3}, want: TrendStable},
		{name: "rising", values: []float64{1, 2, 2, 3}, want: TrendIncreasing},
		{name: "flat", values: []float64{4, 4, 4}, want: TrendIncreasing},
		{name: "falling", values: []float64{5, 4, 4, 1}, want: TrendDecreasing},
		{name: "mixed", values: []float64{1, 3, 2}, want: TrendFluctuating},
		{name: "only last five count", values: []float64{9, 1, 2, 3, 4, 5}, want: TrendIncreasing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrendOf(tt.values); got != tt.want {
				t.Errorf("TrendOf(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}
