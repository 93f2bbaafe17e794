package events

import (
	"log/slog"

	"feedwatch/internal/logging"
	"feedwatch/internal/types"
)

// SlogObserver writes every event to a structured logger.
type SlogObserver struct {
	Logger *slog.Logger
}

func (s SlogObserver) OnReadingAccepted(r types.Reading) {
	attrs := []any{"created_at", r.CreatedAt, "entry_id", r.EntryID}
	for i, v := range r.Fields {
		if v != nil {
			attrs = append(attrs, types.FieldName(i), *v)
		}
	}
	logging.OrDefault(s.Logger).Info("reading accepted", attrs...)
}

func (s SlogObserver) OnStatusChanged(from, to types.ConnectionState) {
	logging.OrDefault(s.Logger).Info("status changed", "from", from, "to", to)
}

func (s SlogObserver) OnActivityLogged(e types.ActivityEntry) {
	l := logging.OrDefault(s.Logger)
	switch e.Kind {
	case types.ActivityError:
		l.Error("activity", "text", e.Text)
	case types.ActivityWarning:
		l.Warn("activity", "text", e.Text)
	default:
		l.Info("activity", "text", e.Text)
	}
}
