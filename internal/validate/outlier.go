package validate

import (
	"math"
	"sync"
)

const (
	// DefaultHistoryCap bounds the per-sensor rolling history.
	DefaultHistoryCap = 100

	// minOutlierSamples is the cold-start floor below which nothing is an outlier.
	minOutlierSamples = 10

	outlierSigmas = 3
)

// History is a bounded FIFO of accepted values for one sensor.
type History struct {
	values []float64
	cap    int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &History{cap: capacity}
}

// Push appends v, evicting the oldest value once the history is full.
func (h *History) Push(v float64) {
	h.values = append(h.values, v)
	if len(h.values) > h.cap {
		h.values = h.values[len(h.values)-h.cap:]
	}
}

func (h *History) Len() int { return len(h.values) }

// Values returns a copy, oldest first.
func (h *History) Values() []float64 {
	out := make([]float64, len(h.values))
	copy(out, h.values)
	return out
}

// IsOutlier reports whether value lies more than three population standard
// deviations from the mean of history. With fewer than ten samples it is
// always false.
func IsOutlier(history []float64, value float64) bool {
	if len(history) < minOutlierSamples {
		return false
	}

	n := float64(len(history))
	var sum float64
	for _, v := range history {
		sum += v
	}
	mean := sum / n

	var sq float64
	for _, v := range history {
		d := v - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / n)

	return math.Abs(value-mean) > outlierSigmas*stddev
}

// SensorResult is the outcome of checking one sensor value.
type SensorResult struct {
	Key     string
	Valid   bool
	Outlier bool
	Value   float64
}

// Validator keeps one History per sensor key. It is safe for concurrent use.
type Validator struct {
	mu         sync.Mutex
	historyCap int
	histories  map[string]*History
}

func NewValidator(historyCap int) *Validator {
	return &Validator{
		historyCap: historyCap,
		histories:  make(map[string]*History),
	}
}

// CheckSensor classifies raw for the sensor named key. Missing and non-finite
// values are invalid. Valid values are tested against the existing history
// and then appended to it; outliers are flagged but still recorded.
func (v *Validator) CheckSensor(key string, raw *float64) SensorResult {
	res := SensorResult{Key: key}
	if raw == nil || math.IsNaN(*raw) || math.IsInf(*raw, 0) {
		return res
	}
	res.Valid = true
	res.Value = *raw

	v.mu.Lock()
	defer v.mu.Unlock()

	h, ok := v.histories[key]
	if !ok {
		h = NewHistory(v.historyCap)
		v.histories[key] = h
	}
	res.Outlier = IsOutlier(h.values, res.Value)
	h.Push(res.Value)
	return res
}

// History returns a copy of the values recorded for key.
func (v *Validator) History(key string) []float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	h, ok := v.histories[key]
	if !ok {
		return nil
	}
	return h.Values()
}
