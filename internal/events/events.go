// Package events is the boundary between the monitor and whatever presents
// its output.
package events

import "feedwatch/internal/types"

// Observer receives accepted readings, status transitions and activity
// entries. Implementations must not block.
type Observer interface {
	OnReadingAccepted(r types.Reading)
	OnStatusChanged(from, to types.ConnectionState)
	OnActivityLogged(e types.ActivityEntry)
}

// Nop discards every event.
type Nop struct{}

func (Nop) OnReadingAccepted(types.Reading)                              {}
func (Nop) OnStatusChanged(types.ConnectionState, types.ConnectionState) {}
func (Nop) OnActivityLogged(types.ActivityEntry)                         {}

// OrNop returns o, or Nop when o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop{}
	}
	return o
}

// Multi fans every event out to each observer in order.
type Multi []Observer

func (m Multi) OnReadingAccepted(r types.Reading) {
	for _, o := range m {
		o.OnReadingAccepted(r)
	}
}

func (m Multi) OnStatusChanged(from, to types.ConnectionState) {
	for _, o := range m {
		o.OnStatusChanged(from, to)
	}
}

func (m Multi) OnActivityLogged(e types.ActivityEntry) {
	for _, o := range m {
		o.OnActivityLogged(e)
	}
}
