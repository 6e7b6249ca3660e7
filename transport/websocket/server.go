package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	relay "github.com/rocketscienceinc/tictactoe-peer/internal/transport/websocket"
)

const (
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

type roomRepo interface {
	Create(ctx context.Context, room *entity.Room) error
	Update(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	DeleteByID(ctx context.Context, id string) error
}

type handler func(ctx context.Context, peer *client, payload relay.Payload) error

// Server relays links between peers. Every peer gets a short room id that
// other peers connect to, and data on a link is forwarded verbatim.
type Server struct {
	logger   *slog.Logger
	rooms    roomRepo
	upgrader websocket.Upgrader

	mutex sync.RWMutex
	peers map[string]*client
	links map[string]*link

	handlers map[string]handler
}

func New(logger *slog.Logger, rooms roomRepo) *Server {
	server := &Server{
		logger: logger.With("component", "relay"),
		rooms:  rooms,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},

		peers: make(map[string]*client),
		links: make(map[string]*link),
	}

	server.handlers = map[string]handler{
		relay.ActionPeerOpen:    server.handlePeerOpen,
		relay.ActionPeerConnect: server.handlePeerConnect,
		relay.ActionConnData:    server.handleConnData,
		relay.ActionConnClose:   server.handleConnClose,
	}

	return server
}

// Handler serves the relay socket on /ws.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveSocket(ctx, w, r)
	})

	return mux
}

// Start - starts the relay server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(ctx),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down relay", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) serveSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveSocket")

	socket, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	peer := &client{socket: socket}
	defer func() {
		that.handleDisconnect(ctx, peer)

		if err = socket.Close(); err != nil {
			log.Debug("failed to close socket", "error", err)
		}
	}()

	log.Debug("relay connection established", "remote", req.RemoteAddr)

	if err = that.handleMessages(ctx, peer); err != nil {
		log.Debug("relay connection finished", "error", err)
	}
}

func (that *Server) handleMessages(ctx context.Context, peer *client) error {
	log := that.logger.With("method", "handleMessages")

	for {
		_, data, err := peer.socket.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		var message relay.Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			continue
		}

		handle, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			that.sendError(peer, "", "unknown action "+message.Action)
			continue
		}

		payload, err := message.DecodePayload()
		if err != nil {
			log.Warn("failed to decode payload", "action", message.Action, "error", err)
			that.sendError(peer, "", "malformed payload")
			continue
		}

		if err = handle(ctx, peer, payload); err != nil {
			log.Warn("error processing message", "action", message.Action, "error", err)
			that.sendError(peer, payload.ConnID, err.Error())
		}
	}
}

func (that *Server) sendError(peer *client, connID, message string) {
	if err := peer.send(relay.ActionError, relay.Payload{ConnID: connID, Error: message}); err != nil {
		that.logger.Debug("failed to send error", "error", err)
	}
}

// client is one socket connected to the relay.
type client struct {
	socket     *websocket.Conn
	writeMutex sync.Mutex

	// id is set once by peer:open
	id string
}

func (that *client) send(action string, payload relay.Payload) error {
	message, err := relay.NewMessage(action, payload)
	if err != nil {
		return err
	}

	that.writeMutex.Lock()
	defer that.writeMutex.Unlock()

	if err = that.socket.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err = that.socket.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// link joins the peer that dialed (guest) to the one it dialed (host).
type link struct {
	id    string
	guest *client
	host  *client
}

func (that *link) other(peer *client) (*client, bool) {
	switch peer {
	case that.guest:
		return that.host, true
	case that.host:
		return that.guest, true
	default:
		return nil, false
	}
}
