package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

type roomFinder interface {
	GetByID(ctx context.Context, id string) (*entity.Room, error)
}

type RoomHandler struct {
	logger *slog.Logger
	rooms  roomFinder
}

func NewRoomHandler(logger *slog.Logger, rooms roomFinder) *RoomHandler {
	return &RoomHandler{
		logger: logger.With("component", "rest"),
		rooms:  rooms,
	}
}

// GetRoom reports whether a room exists and already has a guest, so a client
// can check an id before joining.
func (that *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "GetRoom")

	id := r.PathValue("id")

	room, err := that.rooms.GetByID(r.Context(), id)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	if err != nil {
		log.Error("failed to get room", "roomID", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		return
	}

	writeJSON(w, http.StatusOK, room)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
