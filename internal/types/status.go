package types

import "time"

// ConnectionState is the user-facing health of the upstream feed.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateStale        ConnectionState = "stale"
	StateError        ConnectionState = "error"
)

// Label is the badge text shown for a state.
func (s ConnectionState) Label() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateStale:
		return "Stale Data"
	case StateConnecting:
		return "Connecting..."
	case StateError:
		return "Connection Error"
	default:
		return "Disconnected"
	}
}

// ActivityKind classifies an activity log entry.
type ActivityKind string

const (
	ActivityInfo    ActivityKind = "info"
	ActivityWarning ActivityKind = "warning"
	ActivityError   ActivityKind = "error"
)

// ActivityEntry is one line of the recent-activity log.
type ActivityEntry struct {
	Time time.Time    `json:"time"`
	Text string       `json:"text"`
	Kind ActivityKind `json:"kind"`
}

// FreshnessRecord tracks how the upstream timestamp has moved over time.
// LastTimestampChangeAt only moves when LastFeedTimestamp changes value;
// LastSeenAt moves on every observed reading.
type FreshnessRecord struct {
	LastFeedTimestamp     string    `json:"lastFeedTimestamp"`
	LastTimestampChangeAt time.Time `json:"lastTimestampChangeAt"`
	LastSeenAt            time.Time `json:"lastSeenAt"`
}
