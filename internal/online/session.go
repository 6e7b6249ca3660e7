package online

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

const (
	msgCreatingRoom     = "Creating room…"
	msgShareRoom        = "Share the room ID with your friend."
	msgConnecting       = "Connecting…"
	msgConnected        = "Connected! X starts first."
	msgYourTurn         = "Your turn!"
	msgConnectionClosed = "Connection closed. Recreate or rejoin."
	msgNotConnected     = "Not connected"
	msgEnterRoomID      = "Enter your friend's room ID first."
	msgCreateRoomFirst  = "Create a room first to get an ID."
	msgNoProvider       = "Peer connection provider failed to load."
	msgCreateFailed     = "Unable to create room."
	msgJoinFailed       = "Unable to connect."
	msgConnectionFailed = "Connection failed."
)

type gameController interface {
	ApplyRemoteMove(cell int, player entity.Mark) error
	ResetRound(keepScores bool)
}

type Notifier interface {
	Notify(event entity.Event)
}

type poster interface {
	Post(task func())
}

// Session is the local side of a peer game: it owns the peer, the single
// bound connection and the role, and keeps the game in sync with the friend.
// Like the game controller, it must only be used from the event loop.
type Session struct {
	logger   *slog.Logger
	provider Provider
	game     gameController
	notifier Notifier
	loop     poster

	generation int
	cancel     context.CancelFunc
	ctx        context.Context

	peer    Peer
	conn    Conn
	pending Conn

	role   entity.Mark
	isHost bool
	roomID string
	target string
	state  entity.ConnectionState
}

func NewSession(logger *slog.Logger, provider Provider, game gameController, notifier Notifier, loop poster) *Session {
	return &Session{
		logger:   logger.With("component", "online"),
		provider: provider,
		game:     game,
		notifier: notifier,
		loop:     loop,
		state:    entity.Disconnected,
	}
}

// CreateRoom starts hosting. The room id is reported once the provider
// assigns it.
func (that *Session) CreateRoom(ctx context.Context) error {
	if that.provider == nil {
		that.status(msgNoProvider, entity.StatusError)
		return apperror.ErrEnvironmentUnavailable
	}

	that.Teardown()
	that.status(msgCreatingRoom, entity.StatusInfo)

	that.isHost = true
	that.role = entity.HostRole
	that.state = entity.Connecting

	if err := that.startPeer(ctx); err != nil {
		that.fail(err, msgCreateFailed)
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

// JoinRoom connects to the host registered as roomID.
func (that *Session) JoinRoom(ctx context.Context, roomID string) error {
	if that.provider == nil {
		that.status(msgNoProvider, entity.StatusError)
		return apperror.ErrEnvironmentUnavailable
	}

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		that.status(msgEnterRoomID, entity.StatusError)
		return apperror.ErrRoomIDRequired
	}

	that.Teardown()
	that.status(msgConnecting, entity.StatusInfo)

	that.isHost = false
	that.role = entity.GuestRole
	that.target = roomID
	that.state = entity.Connecting

	if err := that.startPeer(ctx); err != nil {
		that.fail(err, msgJoinFailed)
		return fmt.Errorf("failed to join room %s: %w", roomID, err)
	}

	return nil
}

// RoomID returns the id a friend needs to join this host.
func (that *Session) RoomID() (string, error) {
	if that.roomID == "" {
		that.status(msgCreateRoomFirst, entity.StatusError)
		return "", apperror.ErrNoRoom
	}

	return that.roomID, nil
}

// Teardown closes the connection and the peer and clears the session.
func (that *Session) Teardown() {
	that.clear()
	that.status(msgNotConnected, entity.StatusInfo)
}

func (that *Session) Role() entity.Mark {
	return that.role
}

func (that *Session) IsConnected() bool {
	return that.state == entity.Connected && that.conn != nil
}

func (that *Session) Snapshot() entity.OnlineSession {
	return entity.OnlineSession{
		Role:            that.role,
		IsHost:          that.isHost,
		RoomID:          that.roomID,
		ConnectionState: that.state,
	}
}

func (that *Session) BroadcastMove(cell int, player entity.Mark) {
	that.send(MoveMessage{Index: cell, Player: player})
}

func (that *Session) BroadcastReset(keepScores bool) {
	that.send(ResetMessage{KeepScores: keepScores})
}

func (that *Session) startPeer(ctx context.Context) error {
	that.generation++
	that.ctx, that.cancel = context.WithCancel(context.WithoutCancel(ctx))

	peer, err := that.provider.NewPeer(that.ctx, "", loopEvents{session: that, generation: that.generation})
	if err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrConnection, err) //nolint: errorlint // provider error is detail only
	}

	that.peer = peer

	return nil
}

func (that *Session) send(msg Message) {
	log := that.logger.With("method", "send", "type", msg.Type())

	if !that.IsConnected() {
		log.Debug("no connection, message dropped")
		return
	}

	data, err := Encode(msg)
	if err != nil {
		log.Error("failed to encode message", "error", err)
		return
	}

	if err = that.conn.Send(data); err != nil {
		log.Error("failed to send message", "error", err)
		that.status(msgConnectionFailed, entity.StatusError)
	}
}

func (that *Session) onPeerReady(id string) {
	log := that.logger.With("method", "onPeerReady", "peerID", id)

	if that.isHost {
		that.roomID = id
		log.Info("room created")
		that.status(msgShareRoom, entity.StatusSuccess)
		return
	}

	conn, err := that.peer.Connect(that.ctx, that.target)
	if err != nil {
		log.Error("failed to connect", "room", that.target, "error", err)
		that.fail(err, msgConnectionFailed)
		return
	}

	that.pending = conn
}

func (that *Session) onPeerError(err error) {
	that.logger.Error("peer error", "error", err)

	fallback := msgJoinFailed
	if that.isHost {
		fallback = msgCreateFailed
	}

	that.fail(err, fallback)
}

func (that *Session) onIncomingConnection(conn Conn) {
	log := that.logger.With("method", "onIncomingConnection")

	if !that.isHost || that.conn != nil {
		log.Warn("connection rejected, a friend is already connected")
		if err := conn.Close(); err != nil {
			log.Error("failed to close rejected connection", "error", err)
		}
		return
	}

	that.bind(conn)
}

func (that *Session) onConnOpen(conn Conn) {
	if conn != that.pending {
		return
	}

	that.pending = nil
	that.bind(conn)
}

func (that *Session) bind(conn Conn) {
	that.conn = conn
	that.state = entity.Connected

	that.logger.Info("connected", "host", that.isHost, "role", that.role)
	that.status(msgConnected, entity.StatusSuccess)

	// a new guest starts from a clean board
	if that.isHost {
		that.game.ResetRound(true)
		that.send(ResetMessage{KeepScores: true})
	}
}

func (that *Session) onConnData(conn Conn, data []byte) {
	log := that.logger.With("method", "onConnData")

	if conn != that.conn {
		log.Debug("data from unbound connection ignored")
		return
	}

	msg, err := Decode(data)
	if err != nil {
		log.Warn("ignoring message", "error", err)
		return
	}

	switch typed := msg.(type) {
	case MoveMessage:
		if err = that.game.ApplyRemoteMove(typed.Index, typed.Player); err != nil {
			log.Warn("remote move not applied", "index", typed.Index, "player", typed.Player, "error", err)
			return
		}
		that.status(msgYourTurn, entity.StatusSuccess)
	case ResetMessage:
		that.game.ResetRound(typed.KeepScores)
	}
}

func (that *Session) onConnClosed(conn Conn) {
	if conn != that.conn && conn != that.pending {
		return
	}

	that.logger.Info("connection closed")
	that.clear()
	that.status(msgConnectionClosed, entity.StatusError)
}

func (that *Session) onConnError(conn Conn, err error) {
	if conn != that.conn && conn != that.pending {
		return
	}

	that.logger.Error("connection error", "error", err)
	that.fail(err, msgConnectionFailed)
}

// fail reports a connection error and returns to Disconnected.
func (that *Session) fail(err error, fallback string) {
	that.clear()

	message := fallback
	if err != nil && !errors.Is(err, apperror.ErrConnection) && err.Error() != "" {
		message = err.Error()
	}

	that.status(message, entity.StatusError)
}

func (that *Session) clear() {
	log := that.logger.With("method", "clear")

	that.generation++

	for _, conn := range []Conn{that.conn, that.pending} {
		if conn == nil {
			continue
		}
		if err := conn.Close(); err != nil {
			log.Debug("failed to close connection", "error", err)
		}
	}

	if that.peer != nil {
		if err := that.peer.Destroy(); err != nil {
			log.Debug("failed to destroy peer", "error", err)
		}
	}

	if that.cancel != nil {
		that.cancel()
	}

	that.cancel = nil
	that.ctx = nil
	that.peer = nil
	that.conn = nil
	that.pending = nil
	that.role = entity.EmptyCell
	that.isHost = false
	that.roomID = ""
	that.target = ""
	that.state = entity.Disconnected
}

func (that *Session) status(message string, level entity.StatusLevel) {
	if that.notifier == nil {
		return
	}
	that.notifier.Notify(entity.Event{Kind: entity.EventStatus, Message: message, Level: level})
}

// loopEvents moves provider events onto the loop and drops those of a peer
// that has since been replaced.
type loopEvents struct {
	session    *Session
	generation int
}

func (that loopEvents) post(task func()) {
	that.session.loop.Post(func() {
		if that.session.generation != that.generation {
			return
		}
		task()
	})
}

func (that loopEvents) PeerReady(id string) {
	that.post(func() { that.session.onPeerReady(id) })
}

func (that loopEvents) PeerError(err error) {
	that.post(func() { that.session.onPeerError(err) })
}

func (that loopEvents) IncomingConnection(conn Conn) {
	that.post(func() { that.session.onIncomingConnection(conn) })
}

func (that loopEvents) ConnOpen(conn Conn) {
	that.post(func() { that.session.onConnOpen(conn) })
}

func (that loopEvents) ConnData(conn Conn, data []byte) {
	that.post(func() { that.session.onConnData(conn, data) })
}

func (that loopEvents) ConnClosed(conn Conn) {
	that.post(func() { that.session.onConnClosed(conn) })
}

func (that loopEvents) ConnError(conn Conn, err error) {
	that.post(func() { that.session.onConnError(conn, err) })
}
