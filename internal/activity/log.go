// Package activity keeps the recent-activity log, request statistics and
// per-sensor data quality counters. Every type here is safe for concurrent
// use.
package activity

import (
	"sync"

	"feedwatch/internal/clock"
	"feedwatch/internal/events"
	"feedwatch/internal/types"
)

// MaxEntries bounds the activity log.
const MaxEntries = 10

// Log is a bounded, most-recent-first activity log.
type Log struct {
	clock    clock.Clock
	observer events.Observer

	mu      sync.Mutex
	entries []types.ActivityEntry
}

func NewLog(clk clock.Clock, observer events.Observer) *Log {
	return &Log{
		clock:    clock.OrReal(clk),
		observer: events.OrNop(observer),
	}
}

// Add prepends an entry stamped with the current time, drops anything past
// MaxEntries and notifies the observer.
func (l *Log) Add(text string, kind types.ActivityKind) types.ActivityEntry {
	if kind == "" {
		kind = types.ActivityInfo
	}
	e := types.ActivityEntry{Time: l.clock.Now(), Text: text, Kind: kind}

	l.mu.Lock()
	l.entries = append([]types.ActivityEntry{e}, l.entries...)
	if len(l.entries) > MaxEntries {
		l.entries = l.entries[:MaxEntries]
	}
	l.mu.Unlock()

	l.observer.OnActivityLogged(e)
	return e
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []types.ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.ActivityEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
