package activity

import (
	"testing"
	"time"
)

func TestDeviceHealth_Sources(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDeviceHealth()

	s := d.Snapshot(t0)
	if s.DataSource != SourceNone || s.ConnectedSince != nil || s.LastDataAt != nil {
		t.Fatalf("initial snapshot = %+v", s)
	}

	d.RecordREST(t0, t0.Add(-time.Minute))
	if got := d.Snapshot(t0).DataSource; got != SourceREST {
		t.Fatalf("after REST source = %q, want rest", got)
	}

	d.RecordMQTTConnected(t0.Add(time.Minute))
	d.RecordMQTTMessage()
	d.RecordMQTTMessage()
	d.RecordMQTTData(t0.Add(2 * time.Minute))
	d.RecordREST(t0.Add(3*time.Minute), t0.Add(3*time.Minute))

	s = d.Snapshot(t0.Add(time.Hour + 30*time.Second))
	if s.DataSource != SourceMQTT {
		t.Errorf("source = %q, want mqtt to win over rest", s.DataSource)
	}
	if !s.MQTTConnected || s.MQTTMessages != 2 {
		t.Errorf("mqtt connected=%v messages=%d, want true/2", s.MQTTConnected, s.MQTTMessages)
	}
	if s.ConnectedSince == nil || !s.ConnectedSince.Equal(t0) {
		t.Errorf("ConnectedSince = %v, want first connect %v", s.ConnectedSince, t0)
	}
	if s.UptimeSeconds != 3630 {
		t.Errorf("UptimeSeconds = %d, want 3630", s.UptimeSeconds)
	}

	d.RecordMQTTDisconnected()
	if got := d.Snapshot(t0).DataSource; got != SourceNone {
		t.Errorf("after disconnect source = %q, want none", got)
	}
}

func TestDeviceHealth_DataAgeWarning(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDeviceHealth()
	d.RecordREST(t0, t0)

	if s := d.Snapshot(t0.Add(10 * time.Minute)); s.Warning != "" {
		t.Errorf("warning at exactly 10m = %q, want none", s.Warning)
	}

	s := d.Snapshot(t0.Add(12*time.Minute + 30*time.Second))
	if s.DataAgeSeconds != 750 {
		t.Errorf("DataAgeSeconds = %d, want 750", s.DataAgeSeconds)
	}
	want := "No data for 12 minutes - check that the device is powered on"
	if s.Warning != want {
		t.Errorf("Warning = %q, want %q", s.Warning, want)
	}
}
