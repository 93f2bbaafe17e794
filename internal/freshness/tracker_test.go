package freshness

import (
	"testing"
	"time"

	"feedwatch/internal/types"
)

const interval = 15 * time.Minute

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func reading(createdAt string) types.Reading {
	return types.Reading{CreatedAt: createdAt, Fields: [types.FieldCount]*float64{types.Float(22.5)}}
}

func TestNewTracker_Thresholds(t *testing.T) {
	tr := NewTracker(interval)
	if tr.HardOfflineAfter() != 18*time.Minute {
		t.Errorf("HardOfflineAfter() = %v, want 18m", tr.HardOfflineAfter())
	}
	if tr.FreezeAfter() != 30*time.Minute {
		t.Errorf("FreezeAfter() = %v, want 30m", tr.FreezeAfter())
	}
}

func TestObserve_AdvancingTimestampsAreFresh(t *testing.T) {
	tr := NewTracker(interval)
	base := mustTime(t, "2024-01-01T00:00:00Z")

	for i := 0; i < 6; i++ {
		created := base.Add(time.Duration(i) * interval)
		now := created.Add(time.Minute)
		v := tr.Observe(reading(created.Format(time.RFC3339)), now)
		if v.Kind != Fresh {
			t.Fatalf("poll %d: Kind = %v, want fresh", i, v.Kind)
		}
		if v.Age != time.Minute {
			t.Errorf("poll %d: Age = %v, want 1m", i, v.Age)
		}
	}
}

func TestObserve_HardOfflineEvenWhenTimestampChanged(t *testing.T) {
	tr := NewTracker(interval)
	now := mustTime(t, "2024-01-01T12:00:00Z")

	if v := tr.Observe(reading("2024-01-01T11:55:00Z"), now); v.Kind != Fresh {
		t.Fatalf("first Kind = %v, want fresh", v.Kind)
	}
	before := tr.Record()

	now = now.Add(25 * time.Minute)
	v := tr.Observe(reading("2024-01-01T12:06:00Z"), now)
	if v.Kind != HardOffline {
		t.Fatalf("Kind = %v, want hard_offline", v.Kind)
	}
	if v.Age != 19*time.Minute {
		t.Errorf("Age = %v, want 19m", v.Age)
	}
	if tr.Record() != before {
		t.Errorf("record changed on hard offline: %+v -> %+v", before, tr.Record())
	}
}

func TestObserve_FrozenFeed(t *testing.T) {
	// The device clock runs ahead, so the unchanged reading never ages past
	// the hard-offline threshold and only the freeze check can catch it.
	tr := NewTracker(interval)
	createdAt := "2024-01-01T00:00:00Z"
	first := mustTime(t, createdAt).Add(-20 * time.Minute)

	if v := tr.Observe(reading(createdAt), first); v.Kind != Fresh {
		t.Fatalf("first Kind = %v, want fresh", v.Kind)
	}
	if v := tr.Observe(reading(createdAt), first.Add(15*time.Minute)); v.Kind != Fresh {
		t.Fatalf("second Kind = %v, want fresh", v.Kind)
	}

	second := first.Add(31 * time.Minute)
	v := tr.Observe(reading(createdAt), second)
	if v.Kind != Frozen {
		t.Fatalf("Kind = %v, want frozen", v.Kind)
	}
	if v.FrozenFor != 31*time.Minute {
		t.Errorf("FrozenFor = %v, want 31m", v.FrozenFor)
	}

	rec := tr.Record()
	if !rec.LastTimestampChangeAt.Equal(first) {
		t.Errorf("LastTimestampChangeAt = %v, want %v", rec.LastTimestampChangeAt, first)
	}
	if !rec.LastSeenAt.Equal(second) {
		t.Errorf("LastSeenAt = %v, want %v", rec.LastSeenAt, second)
	}
}

func TestObserve_NewTimestampClearsFreeze(t *testing.T) {
	tr := NewTracker(interval)
	start := mustTime(t, "2024-01-01T00:00:00Z").Add(-20 * time.Minute)

	tr.Observe(reading("2024-01-01T00:00:00Z"), start)
	if v := tr.Observe(reading("2024-01-01T00:00:00Z"), start.Add(31*time.Minute)); v.Kind != Frozen {
		t.Fatalf("Kind = %v, want frozen", v.Kind)
	}
	if v := tr.Observe(reading("2024-01-01T00:10:00Z"), start.Add(32*time.Minute)); v.Kind != Fresh {
		t.Fatalf("Kind after new timestamp = %v, want fresh", v.Kind)
	}
}

func TestObserve_UnparseableTimestamp(t *testing.T) {
	tr := NewTracker(interval)
	now := mustTime(t, "2024-01-01T00:00:00Z")

	for _, createdAt := range []string{"not-a-date", "", "0001-01-01T00:00:00Z"} {
		v := tr.Observe(reading(createdAt), now)
		if v.Kind != HardOffline {
			t.Errorf("Observe(%q) Kind = %v, want hard_offline", createdAt, v.Kind)
		}
		if v.Err == nil {
			t.Errorf("Observe(%q) Err = nil", createdAt)
		}
	}
	if rec := tr.Record(); rec != (types.FreshnessRecord{}) {
		t.Errorf("record touched: %+v", rec)
	}
}

func TestStale(t *testing.T) {
	now := mustTime(t, "2024-01-01T00:21:00Z")
	tests := []struct {
		name         string
		lastAccepted time.Time
		want         bool
	}{
		{name: "never accepted", lastAccepted: time.Time{}, want: false},
		{name: "21 minutes", lastAccepted: now.Add(-21 * time.Minute), want: true},
		{name: "exactly threshold", lastAccepted: now.Add(-20 * time.Minute), want: false},
		{name: "recent", lastAccepted: now.Add(-time.Minute), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stale(tt.lastAccepted, now, 20*time.Minute); got != tt.want {
				t.Errorf("Stale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	if Frozen.String() != "frozen" || Kind(9).String() != "kind(9)" {
		t.Errorf("unexpected String() output")
	}
}
