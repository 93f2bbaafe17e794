package monitor

import (
	"math"
	"time"

	"feedwatch/internal/activity"
	"feedwatch/internal/types"
)

// SensorView is one sensor's latest polled value with its grade and trend.
type SensorView struct {
	Key    string          `json:"key"`
	Name   string          `json:"name"`
	Unit   string          `json:"unit"`
	Value  *float64        `json:"value"`
	Health activity.Health `json:"health"`
	Trend  activity.Trend  `json:"trend"`
}

// Snapshot is a consistent read-only view for presentation layers.
type Snapshot struct {
	Status          types.ConnectionState             `json:"status"`
	StatusLabel     string                            `json:"statusLabel"`
	Reading         *types.Reading                    `json:"reading,omitempty"`
	LastUpdate      *time.Time                        `json:"lastUpdate,omitempty"`
	Freshness       types.FreshnessRecord             `json:"freshness"`
	DataPointsToday int                               `json:"dataPointsToday"`
	Sensors         []SensorView                      `json:"sensors"`
	Device          activity.DeviceHealthSnapshot     `json:"device"`
	Activity        []types.ActivityEntry             `json:"activity"`
	Stats           activity.StatsSnapshot            `json:"stats"`
	Quality         map[string]activity.SensorQuality `json:"quality"`
}

func (m *Monitor) Snapshot() Snapshot {
	state := m.machine.State()
	s := Snapshot{
		Status:      state,
		StatusLabel: state.Label(),
		Freshness:   m.tracker.Record(),
		Device:      m.DeviceHealth(),
		Activity:    m.activity.Entries(),
		Stats:       m.stats.Snapshot(),
		Quality:     m.quality.Report(),
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest != nil {
		r := *m.latest
		s.Reading = &r
	}
	if !m.lastUpdate.IsZero() {
		t := m.lastUpdate
		s.LastUpdate = &t
	}
	s.DataPointsToday = m.dataPointsToday
	s.Sensors = m.sensorViewsLocked()
	return s
}

// sensorViewsLocked grades the latest reading; m.mu must be held.
func (m *Monitor) sensorViewsLocked() []SensorView {
	views := make([]SensorView, len(m.sensors))
	for i, sc := range m.sensors {
		v := SensorView{
			Key:    sc.Key,
			Name:   sc.Name,
			Unit:   sc.Unit,
			Health: activity.HealthUnknown,
			Trend:  activity.TrendOf(m.validator.History(sc.Key)),
		}
		if m.latest != nil {
			if raw, _ := m.latest.Field(sc.Field); raw != nil && !math.IsNaN(*raw) && !math.IsInf(*raw, 0) {
				val := *raw
				v.Value = &val
				v.Health = activity.Grade(val, sc.Min, sc.Max)
			}
		}
		views[i] = v
	}
	return views
}
