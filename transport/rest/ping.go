package rest

import (
	"context"
	"log/slog"
	"net/http"
)

type healthChecker interface {
	Ping(ctx context.Context) error
}

type PingHandler struct {
	logger *slog.Logger
	health healthChecker
}

func NewPingHandler(logger *slog.Logger, health healthChecker) *PingHandler {
	return &PingHandler{
		logger: logger.With("component", "rest"),
		health: health,
	}
}

// Ping answers "pong" while the room registry is reachable.
func (that *PingHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if err := that.health.Ping(r.Context()); err != nil {
		that.logger.Warn("room registry unreachable", "method", "Ping", "error", err)
		http.Error(w, "room registry unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		that.logger.Debug("failed to write pong", "error", err)
	}
}
