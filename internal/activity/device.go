package activity

import (
	"fmt"
	"sync"
	"time"
)

// DataSource is where the most recent data came from.
type DataSource string

const (
	SourceNone DataSource = "none"
	SourceREST DataSource = "rest"
	SourceMQTT DataSource = "mqtt"
)

// DataAgeWarningAfter is how old the last data point may get before the
// device health carries a warning.
const DataAgeWarningAfter = 10 * time.Minute

// DeviceHealthSnapshot is a point-in-time copy of DeviceHealth.
type DeviceHealthSnapshot struct {
	DataSource     DataSource `json:"dataSource"`
	MQTTConnected  bool       `json:"mqttConnected"`
	MQTTMessages   int        `json:"mqttMessages"`
	ConnectedSince *time.Time `json:"connectedSince,omitempty"`
	UptimeSeconds  int64      `json:"uptimeSeconds"`
	LastDataAt     *time.Time `json:"lastDataAt,omitempty"`
	DataAgeSeconds int64      `json:"dataAgeSeconds"`
	Warning        string     `json:"warning,omitempty"`
}

// DeviceHealth tracks which transport is delivering data and how recent it
// is. MQTT, once it has delivered data, stays the reported source until it
// disconnects.
type DeviceHealth struct {
	mu            sync.Mutex
	source        DataSource
	mqttConnected bool
	mqttMessages  int
	connectedAt   time.Time
	lastDataAt    time.Time
}

func NewDeviceHealth() *DeviceHealth {
	return &DeviceHealth{source: SourceNone}
}

func (d *DeviceHealth) RecordMQTTConnected(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mqttConnected = true
	d.markConnectedLocked(now)
	d.source = SourceMQTT
}

func (d *DeviceHealth) RecordMQTTDisconnected() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mqttConnected = false
	if d.source == SourceMQTT {
		d.source = SourceNone
	}
}

// RecordMQTTMessage counts every message seen on the topic, with or without
// usable fields.
func (d *DeviceHealth) RecordMQTTMessage() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mqttMessages++
}

// RecordMQTTData marks a real-time reading received at now.
func (d *DeviceHealth) RecordMQTTData(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.markConnectedLocked(now)
	d.source = SourceMQTT
	d.lastDataAt = now
}

// RecordREST marks a polled reading created at dataAt.
func (d *DeviceHealth) RecordREST(now, dataAt time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.markConnectedLocked(now)
	if d.source != SourceMQTT {
		d.source = SourceREST
	}
	d.lastDataAt = dataAt
}

func (d *DeviceHealth) markConnectedLocked(now time.Time) {
	if d.connectedAt.IsZero() {
		d.connectedAt = now
	}
}

func (d *DeviceHealth) Snapshot(now time.Time) DeviceHealthSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := DeviceHealthSnapshot{
		DataSource:    d.source,
		MQTTConnected: d.mqttConnected,
		MQTTMessages:  d.mqttMessages,
	}
	if !d.connectedAt.IsZero() {
		t := d.connectedAt
		s.ConnectedSince = &t
		s.UptimeSeconds = int64(now.Sub(d.connectedAt) / time.Second)
	}
	if !d.lastDataAt.IsZero() {
		t := d.lastDataAt
		s.LastDataAt = &t
		age := now.Sub(d.lastDataAt)
		s.DataAgeSeconds = int64(age / time.Second)
		if age > DataAgeWarningAfter {
			s.Warning = fmt.Sprintf("No data for %d minutes - check that the device is powered on", int64(age/time.Minute))
		}
	}
	return s
}
