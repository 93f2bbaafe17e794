package activity

import "math"

// Health grades a sensor value against its configured range.
type Health string

const (
	HealthUnknown  Health = "unknown"
	HealthNormal   Health = "normal"
	HealthWarning  Health = "warning"
	HealthCritical Health = "critical"
)

// warningBand is the share of the range, inside each bound, that grades as a
// warning.
const warningBand = 0.1

// Grade is critical outside [lo, hi], warning within 10% of the range from
// either bound and normal otherwise. Non-finite values are unknown.
func Grade(value, lo, hi float64) Health {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return HealthUnknown
	}
	if value < lo || value > hi {
		return HealthCritical
	}
	margin := (hi - lo) * warningBand
	if value < lo+margin || value > hi-margin {
		return HealthWarning
	}
	return HealthNormal
}

// Trend describes the direction of the most recent values of one sensor.
type Trend string

const (
	TrendStable      Trend = "stable"
	TrendIncreasing  Trend = "increasing"
	TrendDecreasing  Trend = "decreasing"
	TrendFluctuating Trend = "fluctuating"
)

const trendWindow = 5

// TrendOf classifies the last five values. Fewer than two values are stable;
// a flat run counts as increasing.
func TrendOf(values []float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}
	if len(values) > trendWindow {
		values = values[len(values)-trendWindow:]
	}
	increasing, decreasing := true, true
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			increasing = false
		}
		if values[i] > values[i-1] {
			decreasing = false
		}
	}
	switch {
	case increasing:
		return TrendIncreasing
	case decreasing:
		return TrendDecreasing
	default:
		return TrendFluctuating
	}
}
