package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"feedwatch/internal/logging"
)

func NewServer(addr string, mux *http.ServeMux, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           requestLogger(logging.OrDefault(logger).With("component", "http"), mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
