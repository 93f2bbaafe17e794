// Package freshness separates a powered-off device (old readings) from a
// stuck one (a timestamp that stops advancing while requests still succeed).
package freshness

import (
	"fmt"
	"math"
	"sync"
	"time"

	"feedwatch/internal/types"
)

type Kind int

const (
	Fresh Kind = iota
	HardOffline
	Frozen
)

func (k Kind) String() string {
	switch k {
	case Fresh:
		return "fresh"
	case HardOffline:
		return "hard_offline"
	case Frozen:
		return "frozen"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Verdict is the result of observing one reading.
type Verdict struct {
	Kind Kind

	// Age is now minus the reading's created_at. Zero when the timestamp
	// could not be parsed.
	Age time.Duration

	// FrozenFor is how long the upstream timestamp has been unchanged.
	FrozenFor time.Duration

	// Err is set when the timestamp could not be interpreted.
	Err error
}

// Tracker holds the freshness record for one feed. It is safe for
// concurrent use.
type Tracker struct {
	hardOfflineAfter time.Duration
	freezeAfter      time.Duration

	mu     sync.Mutex
	record types.FreshnessRecord
}

// NewTracker derives both thresholds from the feed's update interval:
// hard offline above 1.2x, frozen above 2x.
func NewTracker(updateInterval time.Duration) *Tracker {
	return &Tracker{
		hardOfflineAfter: updateInterval * 12 / 10,
		freezeAfter:      updateInterval * 2,
	}
}

func (t *Tracker) HardOfflineAfter() time.Duration { return t.hardOfflineAfter }
func (t *Tracker) FreezeAfter() time.Duration      { return t.freezeAfter }

// Observe classifies r as seen at now. The age check runs first and leaves
// the record untouched; otherwise the record is updated before the freeze
// comparison so that repeated polls of one timestamp accumulate.
func (t *Tracker) Observe(r types.Reading, now time.Time) Verdict {
	created, err := r.Time()
	if err != nil {
		return Verdict{Kind: HardOffline, Err: err}
	}

	age := now.Sub(created)
	if saturated(age) {
		return Verdict{Kind: HardOffline, Age: age, Err: fmt.Errorf("reading age out of range")}
	}
	if age > t.hardOfflineAfter {
		return Verdict{Kind: HardOffline, Age: age}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.record.LastFeedTimestamp != r.CreatedAt {
		t.record.LastFeedTimestamp = r.CreatedAt
		t.record.LastTimestampChangeAt = now
	}
	t.record.LastSeenAt = now

	frozenFor := now.Sub(t.record.LastTimestampChangeAt)
	if frozenFor > t.freezeAfter {
		return Verdict{Kind: Frozen, Age: age, FrozenFor: frozenFor}
	}
	return Verdict{Kind: Fresh, Age: age, FrozenFor: frozenFor}
}

// Record returns a copy of the current freshness record.
func (t *Tracker) Record() types.FreshnessRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record
}

// Stale reports whether more than threshold has passed since lastAccepted.
// A zero lastAccepted is never stale.
func Stale(lastAccepted, now time.Time, threshold time.Duration) bool {
	if lastAccepted.IsZero() {
		return false
	}
	age := now.Sub(lastAccepted)
	if saturated(age) {
		return true
	}
	return age > threshold
}

// saturated reports a time.Sub result clamped at the int64 range, which is
// how Go surfaces an age too large to represent.
func saturated(d time.Duration) bool {
	return d == time.Duration(math.MaxInt64) || d == time.Duration(math.MinInt64)
}
