package httpapi

import (
	"log/slog"
	"net/http"

	"feedwatch/internal/logging"
)

func NewMux(store Pinger, m Monitor, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, store)
	h := &monitorHandlers{monitor: m, logger: logging.OrDefault(logger)}
	h.registerRoutes(mux)
	return mux
}
