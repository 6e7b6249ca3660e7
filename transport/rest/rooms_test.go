package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

var errRedisDown = errors.New("redis down")

type mockRoomFinder struct {
	mock.Mock
}

func (that *mockRoomFinder) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	args := that.Called(ctx, id)
	room, _ := args.Get(0).(*entity.Room)
	return room, args.Error(1)
}

type healthFunc func(ctx context.Context) error

func (that healthFunc) Ping(ctx context.Context) error { return that(ctx) }

func healthy(context.Context) error { return nil }

func newRouter(rooms roomFinder) http.Handler {
	return NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), rooms, healthFunc(healthy))
}

func TestPing(t *testing.T) {
	t.Run("Given a reachable registry, When pinged, Then it pongs", func(t *testing.T) {
		recorder := httptest.NewRecorder()

		newRouter(&mockRoomFinder{}).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "pong", recorder.Body.String())
	})

	t.Run("Given redis is down, When pinged, Then the service is unavailable", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		router := NewRouter(logger, &mockRoomFinder{}, healthFunc(func(context.Context) error { return errRedisDown }))

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	})
}

func TestRoomHandler_GetRoom(t *testing.T) {
	t.Run("Given a stored room, When it is requested, Then it is returned", func(t *testing.T) {
		// Given: a room with a guest
		rooms := &mockRoomFinder{}
		room := &entity.Room{
			ID:             "04217",
			HostPeerID:     "04217",
			GuestConnected: true,
			CreatedAt:      time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC),
		}
		rooms.On("GetByID", mock.Anything, "04217").Return(room, nil).Once()

		// When: the room is requested
		recorder := httptest.NewRecorder()
		newRouter(rooms).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/rooms/04217", nil))

		// Then: it comes back as JSON
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

		var body entity.Room
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Equal(t, *room, body)
		rooms.AssertExpectations(t)
	})

	t.Run("Given no room, When it is requested, Then it is not found", func(t *testing.T) {
		rooms := &mockRoomFinder{}
		rooms.On("GetByID", mock.Anything, "1").Return(nil, apperror.ErrRoomNotFound).Once()

		recorder := httptest.NewRecorder()
		newRouter(rooms).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/rooms/1", nil))

		assert.Equal(t, http.StatusNotFound, recorder.Code)
		assert.JSONEq(t, `{"error":"room not found"}`, recorder.Body.String())
	})

	t.Run("Given a broken registry, When a room is requested, Then the error is hidden", func(t *testing.T) {
		rooms := &mockRoomFinder{}
		rooms.On("GetByID", mock.Anything, "1").Return(nil, errRedisDown).Once()

		recorder := httptest.NewRecorder()
		newRouter(rooms).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/rooms/1", nil))

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		assert.NotContains(t, recorder.Body.String(), "redis")
	})

	t.Run("Given a POST, When it hits the room route, Then the method is refused", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		newRouter(&mockRoomFinder{}).ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/rooms/1", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
	})
}
