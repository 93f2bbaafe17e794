package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"feedwatch/internal/activity"
	"feedwatch/internal/monitor"
	"feedwatch/internal/types"
)

// Monitor is the read and refresh surface the API exposes.
type Monitor interface {
	Snapshot() monitor.Snapshot
	Latest() (types.Reading, bool)
	Activity() []types.ActivityEntry
	Stats() activity.StatsSnapshot
	Quality() map[string]activity.SensorQuality
	Sensors() []types.SensorConfig
	Refresh(ctx context.Context) error
}

type monitorHandlers struct {
	monitor Monitor
	logger  *slog.Logger
}

func (h *monitorHandlers) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("GET /api/reading", h.handleReading)
	mux.HandleFunc("GET /api/activity", h.handleActivity)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	mux.HandleFunc("GET /api/quality", h.handleQuality)
	mux.HandleFunc("GET /api/sensors", h.handleSensors)
	mux.HandleFunc("POST /api/refresh", h.handleRefresh)
}

func (h *monitorHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Snapshot())
}

func (h *monitorHandlers) handleReading(w http.ResponseWriter, r *http.Request) {
	reading, ok := h.monitor.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no reading accepted yet")
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (h *monitorHandlers) handleActivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Activity())
}

func (h *monitorHandlers) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Stats())
}

func (h *monitorHandlers) handleQuality(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Quality())
}

func (h *monitorHandlers) handleSensors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Sensors())
}

// handleRefresh runs a cycle detached from the request, so a client that
// hangs up does not abort it; the fetch client's timeouts still bound it.
// Upstream failures are already reflected in the status, so they map to 502
// alongside the message.
func (h *monitorHandlers) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := h.monitor.Refresh(context.WithoutCancel(r.Context()))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.monitor.Snapshot())
	case errors.Is(err, monitor.ErrCycleInProgress):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Warn("manual refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
