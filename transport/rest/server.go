package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// NewRouter registers the HTTP routes of the relay.
func NewRouter(logger *slog.Logger, rooms roomFinder, health healthChecker) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", NewPingHandler(logger, health).Ping)
	mux.HandleFunc("GET /rooms/{id}", NewRoomHandler(logger, rooms).GetRoom)

	return mux
}

// Start - starts the HTTP server and stops it when ctx is done.
func Start(ctx context.Context, logger *slog.Logger, port string, rooms roomFinder, health healthChecker) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(logger, rooms, health),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
