package activity

import (
	"sort"
	"sync"
)

// SensorQuality is the quality report for one sensor.
type SensorQuality struct {
	Valid             int     `json:"valid"`
	Invalid           int     `json:"invalid"`
	Outliers          int     `json:"outliers"`
	QualityPercentage float64 `json:"qualityPercentage"`
}

type counters struct {
	valid, invalid, outliers int
}

// Quality accumulates valid, invalid and outlier counts per sensor for the
// lifetime of the process.
type Quality struct {
	mu      sync.Mutex
	sensors map[string]*counters
}

// NewQuality pre-registers keys so they appear in reports before any data.
func NewQuality(keys ...string) *Quality {
	q := &Quality{sensors: make(map[string]*counters, len(keys))}
	for _, k := range keys {
		q.sensors[k] = &counters{}
	}
	return q
}

// Record counts one checked value.
func (q *Quality) Record(key string, valid, outlier bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	c, ok := q.sensors[key]
	if !ok {
		c = &counters{}
		q.sensors[key] = c
	}
	if !valid {
		c.invalid++
		return
	}
	c.valid++
	if outlier {
		c.outliers++
	}
}

// Report computes valid/(valid+invalid) per sensor as a percentage rounded to
// one decimal. Sensors with no data report 0.
func (q *Quality) Report() map[string]SensorQuality {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]SensorQuality, len(q.sensors))
	for k, c := range q.sensors {
		sq := SensorQuality{Valid: c.valid, Invalid: c.invalid, Outliers: c.outliers}
		if total := c.valid + c.invalid; total > 0 {
			sq.QualityPercentage = round(float64(c.valid)/float64(total)*100, 1)
		}
		out[k] = sq
	}
	return out
}

// Keys lists the tracked sensors in sorted order.
func (q *Quality) Keys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	keys := make([]string, 0, len(q.sensors))
	for k := range q.sensors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
