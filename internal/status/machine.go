// Package status derives the connection state shown to users from fetch
// outcomes, freshness verdicts and a time-driven watchdog.
package status

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"feedwatch/internal/events"
	"feedwatch/internal/freshness"
	"feedwatch/internal/logging"
	"feedwatch/internal/types"
)

// ActivityLogger records user-visible activity lines.
type ActivityLogger interface {
	Add(text string, kind types.ActivityKind) types.ActivityEntry
}

// legal lists the allowed targets for each state. Moving to disconnected is
// always allowed and is not repeated here.
var legal = map[types.ConnectionState][]types.ConnectionState{
	types.StateDisconnected: {types.StateConnecting, types.StateStale},
	types.StateConnecting:   {types.StateConnected, types.StateError, types.StateStale},
	types.StateConnected:    {types.StateConnecting, types.StateStale, types.StateError},
	types.StateStale:        {types.StateConnecting, types.StateConnected, types.StateError},
	types.StateError:        {types.StateConnecting, types.StateConnected},
}

// Allowed reports whether from -> to is a legal transition.
func Allowed(from, to types.ConnectionState) bool {
	if to == types.StateDisconnected {
		return true
	}
	for _, s := range legal[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IllegalTransitionError is returned by Set for a transition outside the table.
type IllegalTransitionError struct {
	From, To types.ConnectionState
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// Outcome is what one fetch cycle produced. Exactly the first failing stage
// is set; Verdict is only meaningful when FetchErr and ValidationErr are nil.
type Outcome struct {
	FetchErr      error
	ValidationErr error
	Verdict       freshness.Verdict
}

// Machine owns the single live ConnectionState.
type Machine struct {
	observer events.Observer
	activity ActivityLogger
	logger   *slog.Logger

	mu    sync.Mutex
	state types.ConnectionState
}

// New returns a Machine in the disconnected state.
func New(activity ActivityLogger, observer events.Observer, logger *slog.Logger) *Machine {
	return &Machine{
		observer: events.OrNop(observer),
		activity: activity,
		logger:   logging.OrDefault(logger),
		state:    types.StateDisconnected,
	}
}

func (m *Machine) State() types.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Set moves to state to. A no-op move emits nothing; an illegal one leaves
// the state unchanged and returns *IllegalTransitionError.
func (m *Machine) Set(to types.ConnectionState, reason string) error {
	m.mu.Lock()
	from := m.state
	if from == to {
		m.mu.Unlock()
		return nil
	}
	if !Allowed(from, to) {
		m.mu.Unlock()
		return &IllegalTransitionError{From: from, To: to}
	}
	m.state = to
	m.mu.Unlock()

	m.logger.Debug("status transition", "from", from, "to", to, "reason", reason)
	m.observer.OnStatusChanged(from, to)
	return nil
}

// ApplyCycle maps a cycle outcome to a state, checking in order: fetch
// failure, invalid payload, hard offline, frozen feed. Anything else is
// connected.
func (m *Machine) ApplyCycle(o Outcome) types.ConnectionState {
	var (
		to     types.ConnectionState
		reason string
		text   string
		kind   types.ActivityKind
	)

	switch {
	case o.FetchErr != nil:
		to, reason = types.StateError, "fetch failed"
		text, kind = "⚠️ API Error: "+o.FetchErr.Error(), types.ActivityError
	case o.ValidationErr != nil:
		to, reason = types.StateDisconnected, "invalid payload"
		text, kind = "Invalid data received: "+o.ValidationErr.Error(), types.ActivityError
	case o.Verdict.Kind == freshness.HardOffline:
		to, reason = types.StateDisconnected, "hard offline"
		text, kind = offlineText(o.Verdict), types.ActivityWarning
	case o.Verdict.Kind == freshness.Frozen:
		to, reason = types.StateDisconnected, "frozen feed"
		text, kind = "Device offline: no new entries detected", types.ActivityWarning
	default:
		to, reason = types.StateConnected, "fresh reading"
	}

	if err := m.Set(to, reason); err != nil {
		m.logger.Warn("status transition rejected", "error", err)
	}
	if text != "" && m.activity != nil {
		m.activity.Add(text, kind)
	}
	return m.State()
}

func offlineText(v freshness.Verdict) string {
	if v.Err != nil {
		return "Device offline: last data timestamp unreadable"
	}
	minutes := math.Floor(v.Age.Minutes())
	return fmt.Sprintf("Device offline: last data %d minutes old", int64(minutes))
}

// Watchdog downgrades connected or connecting to stale once more than
// threshold has passed since lastAccepted. It never touches error or
// disconnected, and does nothing before the first accepted reading. It
// reports whether it changed the state.
func (m *Machine) Watchdog(now, lastAccepted time.Time, threshold time.Duration) bool {
	if !freshness.Stale(lastAccepted, now, threshold) {
		return false
	}

	m.mu.Lock()
	from := m.state
	if from != types.StateConnected && from != types.StateConnecting {
		m.mu.Unlock()
		return false
	}
	m.state = types.StateStale
	m.mu.Unlock()

	m.logger.Debug("status transition", "from", from, "to", types.StateStale, "reason", "watchdog")
	m.observer.OnStatusChanged(from, types.StateStale)
	if m.activity != nil {
		m.activity.Add("No new data detected (stale)", types.ActivityWarning)
	}
	return true
}
