package online

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/internal/service"
	"github.com/rocketscienceinc/tictactoe-peer/internal/tictactoe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []entity.Event
}

func (that *recorder) Notify(event entity.Event) {
	that.events = append(that.events, event)
}

func (that *recorder) statuses() []string {
	var messages []string
	for _, event := range that.events {
		if event.Kind == entity.EventStatus {
			messages = append(messages, event.Message)
		}
	}
	return messages
}

func (that *recorder) lastStatus() entity.Event {
	for i := len(that.events) - 1; i >= 0; i-- {
		if that.events[i].Kind == entity.EventStatus {
			return that.events[i]
		}
	}
	return entity.Event{}
}

type noScheduler struct{}

func (noScheduler) Schedule(time.Duration, func()) func() { return func() {} }

type player struct {
	game    *tictactoe.GameController
	session *Session
	events  *recorder
}

func newPlayer(t *testing.T, provider Provider, loop *queueLoop) *player {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := &recorder{}

	game := tictactoe.NewGameController(logger, service.NewBotService(), noScheduler{}, events, tictactoe.Options{})
	session := NewSession(logger, provider, game, events, loop)
	game.AttachPeer(session)
	require.NoError(t, game.SetMode(entity.ModeOnline))

	return &player{game: game, session: session, events: events}
}

// connectPair returns a connected host and guest.
func connectPair(t *testing.T) (*player, *player, *fakeNetwork, *queueLoop) {
	t.Helper()

	ctx := context.Background()
	network := newFakeNetwork()
	loop := &queueLoop{}

	host := newPlayer(t, network, loop)
	guest := newPlayer(t, network, loop)

	require.NoError(t, host.session.CreateRoom(ctx))
	loop.drain()

	roomID, err := host.session.RoomID()
	require.NoError(t, err)

	require.NoError(t, guest.session.JoinRoom(ctx, roomID))
	loop.drain()

	require.True(t, host.session.IsConnected())
	require.True(t, guest.session.IsConnected())

	return host, guest, network, loop
}

func TestSession_CreateRoom(t *testing.T) {
	t.Run("Given a provider, When a room is created, Then the host gets the room id and role X", func(t *testing.T) {
		loop := &queueLoop{}
		host := newPlayer(t, newFakeNetwork(), loop)

		require.NoError(t, host.session.CreateRoom(context.Background()))
		assert.Equal(t, entity.Connecting, host.session.Snapshot().ConnectionState)
		assert.Equal(t, msgCreatingRoom, host.events.lastStatus().Message)

		loop.drain()

		snapshot := host.session.Snapshot()
		assert.Equal(t, entity.OnlineSession{
			Role:            entity.PlayerX,
			IsHost:          true,
			RoomID:          "1001",
			ConnectionState: entity.Connecting,
		}, snapshot)
		assert.Equal(t, msgShareRoom, host.events.lastStatus().Message)
		assert.Equal(t, entity.StatusSuccess, host.events.lastStatus().Level)
	})

	t.Run("Given no provider, When a room is created, Then the environment is unavailable", func(t *testing.T) {
		host := newPlayer(t, nil, &queueLoop{})

		err := host.session.CreateRoom(context.Background())
		require.ErrorIs(t, err, apperror.ErrEnvironmentUnavailable)
		assert.Equal(t, entity.Disconnected, host.session.Snapshot().ConnectionState)
	})

	t.Run("Given the provider fails, When a room is created, Then the session is disconnected", func(t *testing.T) {
		network := newFakeNetwork()
		network.newPeerErr = errors.New("relay unreachable")
		host := newPlayer(t, network, &queueLoop{})

		err := host.session.CreateRoom(context.Background())
		require.ErrorIs(t, err, apperror.ErrConnection)
		assert.Equal(t, entity.OnlineSession{ConnectionState: entity.Disconnected}, host.session.Snapshot())
		assert.Equal(t, entity.StatusError, host.events.lastStatus().Level)
	})
}

func TestSession_RoomID(t *testing.T) {
	t.Run("Given no room, When the id is requested, Then there is no room", func(t *testing.T) {
		host := newPlayer(t, newFakeNetwork(), &queueLoop{})

		_, err := host.session.RoomID()
		require.ErrorIs(t, err, apperror.ErrNoRoom)
		assert.Equal(t, msgCreateRoomFirst, host.events.lastStatus().Message)
	})

	t.Run("Given a guest, When the id is requested, Then there is no room", func(t *testing.T) {
		_, guest, _, _ := connectPair(t)

		_, err := guest.session.RoomID()
		require.ErrorIs(t, err, apperror.ErrNoRoom)
	})
}

func TestSession_JoinRoom(t *testing.T) {
	t.Run("Given a blank room id, When joining, Then the id is required", func(t *testing.T) {
		guest := newPlayer(t, newFakeNetwork(), &queueLoop{})

		err := guest.session.JoinRoom(context.Background(), "   ")
		require.ErrorIs(t, err, apperror.ErrRoomIDRequired)
		assert.Equal(t, entity.Disconnected, guest.session.Snapshot().ConnectionState)
	})

	t.Run("Given no provider, When joining, Then the environment is unavailable", func(t *testing.T) {
		guest := newPlayer(t, nil, &queueLoop{})

		err := guest.session.JoinRoom(context.Background(), "1001")
		require.ErrorIs(t, err, apperror.ErrEnvironmentUnavailable)
	})

	t.Run("Given an unknown room, When joining, Then the guest ends disconnected", func(t *testing.T) {
		loop := &queueLoop{}
		guest := newPlayer(t, newFakeNetwork(), loop)

		require.NoError(t, guest.session.JoinRoom(context.Background(), " 4242 "))
		assert.Equal(t, entity.Connecting, guest.session.Snapshot().ConnectionState)
		assert.Equal(t, entity.PlayerO, guest.session.Role())

		loop.drain()

		assert.Equal(t, entity.OnlineSession{ConnectionState: entity.Disconnected}, guest.session.Snapshot())
		assert.Equal(t, "could not connect to peer 4242", guest.events.lastStatus().Message)
		assert.Equal(t, entity.StatusError, guest.events.lastStatus().Level)
	})

	t.Run("Given a host, When the guest joins, Then both sides are connected with fixed roles", func(t *testing.T) {
		host, guest, _, _ := connectPair(t)

		assert.Equal(t, entity.PlayerX, host.session.Role())
		assert.Equal(t, entity.PlayerO, guest.session.Role())
		assert.False(t, guest.session.Snapshot().IsHost)
		assert.Contains(t, host.events.statuses(), msgConnected)
		assert.Contains(t, guest.events.statuses(), msgConnected)
	})
}

func TestSession_Sync(t *testing.T) {
	t.Run("Given a guest mid-round, When the host connects, Then the guest board clears and scores stay", func(t *testing.T) {
		ctx := context.Background()
		network := newFakeNetwork()
		loop := &queueLoop{}

		host := newPlayer(t, network, loop)
		guest := newPlayer(t, network, loop)
		require.NoError(t, guest.game.ApplyRemoteMove(4, entity.PlayerX))
		scoresBefore := guest.game.Scores()

		require.NoError(t, host.session.CreateRoom(ctx))
		loop.drain()
		roomID, err := host.session.RoomID()
		require.NoError(t, err)

		require.NoError(t, guest.session.JoinRoom(ctx, roomID))
		loop.drain()

		assert.Equal(t, entity.Board{}, guest.game.State().Board)
		assert.True(t, guest.game.State().Board.IsEmpty())
		assert.Equal(t, scoresBefore, guest.game.Scores())
		assert.Equal(t, entity.PlayerX, guest.game.State().Turn)
	})

	t.Run("Given a connected pair, When the host moves, Then the guest sees the move and its turn", func(t *testing.T) {
		host, guest, _, loop := connectPair(t)

		require.NoError(t, host.game.SelectCell(4))
		loop.drain()

		assert.Equal(t, entity.PlayerX, guest.game.State().Board[4])
		assert.Equal(t, entity.PlayerO, guest.game.State().Turn)
		assert.Equal(t, msgYourTurn, guest.events.lastStatus().Message)

		require.NoError(t, guest.game.SelectCell(0))
		loop.drain()

		assert.Equal(t, host.game.State(), guest.game.State())
	})

	t.Run("Given X to move, When the guest selects a cell, Then it is rejected and nothing is sent", func(t *testing.T) {
		host, guest, _, loop := connectPair(t)
		boardBefore := guest.game.State().Board
		guestConn := guest.session.conn.(*fakeConn)
		sentBefore := len(guestConn.sent)

		err := guest.game.SelectCell(0)
		loop.drain()

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		require.ErrorIs(t, err, apperror.ErrInvalidMove)
		assert.Equal(t, boardBefore, guest.game.State().Board)
		assert.Len(t, guestConn.sent, sentBefore)
		assert.True(t, host.game.State().Board.IsEmpty())
	})

	t.Run("Given a connected pair, When the guest resets everything, Then the host scores clear too", func(t *testing.T) {
		host, guest, _, loop := connectPair(t)

		for _, cell := range []int{0, 3, 1, 4, 2} {
			if cell == 3 || cell == 4 {
				require.NoError(t, guest.game.SelectCell(cell))
			} else {
				require.NoError(t, host.game.SelectCell(cell))
			}
			loop.drain()
		}
		require.Equal(t, uint(1), host.game.Scores().WinsX)
		require.Equal(t, uint(1), guest.game.Scores().WinsX)

		guest.game.Reset(false)
		loop.drain()

		assert.Equal(t, entity.Scoreboard{}, host.game.Scores())
		assert.Equal(t, entity.Scoreboard{}, guest.game.Scores())
		assert.True(t, host.game.State().Board.IsEmpty())
	})

	t.Run("Given junk on the wire, When it arrives, Then it is ignored", func(t *testing.T) {
		_, guest, _, loop := connectPair(t)
		guestConn := guest.session.conn.(*fakeConn)

		guestConn.inject([]byte(`{"type":"chat"}`))
		guestConn.inject([]byte(`{"type":"move","index":12,"player":"X"}`))
		guestConn.inject([]byte(`not json`))
		loop.drain()

		assert.True(t, guest.game.State().Board.IsEmpty())
		assert.True(t, guest.session.IsConnected())
	})

	t.Run("Given a move on an occupied cell, When it arrives, Then the board is unchanged", func(t *testing.T) {
		host, guest, _, loop := connectPair(t)
		require.NoError(t, host.game.SelectCell(4))
		loop.drain()

		guest.session.conn.(*fakeConn).inject([]byte(`{"type":"move","index":4,"player":"O"}`))
		loop.drain()

		assert.Equal(t, entity.PlayerX, guest.game.State().Board[4])
		assert.Equal(t, entity.PlayerO, guest.game.State().Turn)
	})
}

func TestSession_Connections(t *testing.T) {
	t.Run("Given a connected host, When a second guest joins, Then it is turned away", func(t *testing.T) {
		host, guest, network, loop := connectPair(t)
		intruder := newPlayer(t, network, loop)

		roomID, err := host.session.RoomID()
		require.NoError(t, err)

		require.NoError(t, intruder.session.JoinRoom(context.Background(), roomID))
		loop.drain()

		assert.True(t, host.session.IsConnected())
		assert.True(t, guest.session.IsConnected())
		assert.False(t, intruder.session.IsConnected())
		assert.Equal(t, msgConnectionClosed, intruder.events.lastStatus().Message)
	})

	t.Run("Given a connected pair, When the guest closes, Then the host is disconnected and keeps its board", func(t *testing.T) {
		host, guest, _, loop := connectPair(t)
		require.NoError(t, host.game.SelectCell(4))
		loop.drain()

		guest.session.Teardown()
		loop.drain()

		assert.Equal(t, entity.OnlineSession{ConnectionState: entity.Disconnected}, host.session.Snapshot())
		assert.Equal(t, msgConnectionClosed, host.events.lastStatus().Message)
		assert.Equal(t, entity.PlayerX, host.game.State().Board[4])

		err := host.game.SelectCell(0)
		require.ErrorIs(t, err, apperror.ErrNotConnected)
	})

	t.Run("Given a connected pair, When the host leaves online mode, Then the guest is disconnected", func(t *testing.T) {
		host, guest, network, loop := connectPair(t)

		require.NoError(t, host.game.SetMode(entity.ModeLocal))
		loop.drain()

		assert.False(t, host.session.IsConnected())
		assert.False(t, guest.session.IsConnected())
		assert.NotContains(t, network.peers, "1001")
		assert.Equal(t, msgConnectionClosed, guest.events.lastStatus().Message)
	})

	t.Run("Given a host, When it creates a new room, Then the old peer's events are ignored", func(t *testing.T) {
		loop := &queueLoop{}
		network := newFakeNetwork()
		host := newPlayer(t, network, loop)

		require.NoError(t, host.session.CreateRoom(context.Background()))
		require.NoError(t, host.session.CreateRoom(context.Background()))
		loop.drain()

		assert.Equal(t, "1002", host.session.Snapshot().RoomID)
		assert.NotContains(t, network.peers, "1001")
	})

	t.Run("Given a disconnected session, When broadcasting, Then nothing happens", func(t *testing.T) {
		host := newPlayer(t, newFakeNetwork(), &queueLoop{})

		assert.NotPanics(t, func() {
			host.session.BroadcastMove(0, entity.PlayerX)
			host.session.BroadcastReset(true)
		})
	})
}
