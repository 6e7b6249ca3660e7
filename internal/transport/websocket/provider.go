package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/online"
	"github.com/rocketscienceinc/tictactoe-peer/internal/pkg"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// Provider opens peers on the relay server at url.
type Provider struct {
	logger *slog.Logger
	url    string
	dialer *websocket.Dialer
}

func NewProvider(logger *slog.Logger, url string) *Provider {
	return &Provider{
		logger: logger.With("component", "relay-client"),
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

func (that *Provider) NewPeer(ctx context.Context, id string, events online.Events) (online.Peer, error) {
	log := that.logger.With("method", "NewPeer")

	socket, _, err := that.dialer.DialContext(ctx, that.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrPeerUnavailable, err) //nolint: errorlint // dial error is detail only
	}

	relayPeer := &peer{
		logger: that.logger,
		socket: socket,
		events: events,
		links:  make(map[string]*link),
	}

	go relayPeer.readLoop()

	if err = relayPeer.write(ActionPeerOpen, Payload{PeerID: id}); err != nil {
		relayPeer.close()
		return nil, err
	}

	log.Debug("peer opened", "url", that.url)

	return relayPeer, nil
}

var errDuplicateLink = errors.New("connection is already linked")

type peer struct {
	logger *slog.Logger
	socket *websocket.Conn
	events online.Events

	writeMutex sync.Mutex

	mutex     sync.Mutex
	links     map[string]*link
	destroyed bool
}

func (that *peer) Connect(_ context.Context, roomID string) (online.Conn, error) {
	relayLink, ok := that.addLink(pkg.GenerateConnID())
	if !ok {
		return nil, fmt.Errorf("%w: connection id collision", apperror.ErrPeerUnavailable)
	}

	if err := that.write(ActionPeerConnect, Payload{RoomID: roomID, ConnID: relayLink.id}); err != nil {
		that.removeLink(relayLink.id)
		return nil, err
	}

	return relayLink, nil
}

// Destroy closes the relay socket. No events are reported afterwards.
func (that *peer) Destroy() error {
	that.mutex.Lock()
	if that.destroyed {
		that.mutex.Unlock()
		return nil
	}
	that.destroyed = true
	that.links = make(map[string]*link)
	that.mutex.Unlock()

	that.writeMutex.Lock()
	_ = that.socket.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout),
	)
	that.writeMutex.Unlock()

	return that.close()
}

func (that *peer) close() error {
	if err := that.socket.Close(); err != nil {
		return fmt.Errorf("failed to close relay socket: %w", err)
	}

	return nil
}

func (that *peer) write(action string, payload Payload) error {
	message, err := NewMessage(action, payload)
	if err != nil {
		return err
	}

	that.writeMutex.Lock()
	defer that.writeMutex.Unlock()

	if err = that.socket.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrConnectionClosed, err) //nolint: errorlint // socket error is detail only
	}

	if err = that.socket.WriteJSON(message); err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrConnectionClosed, err) //nolint: errorlint // socket error is detail only
	}

	return nil
}

func (that *peer) readLoop() {
	log := that.logger.With("method", "readLoop")

	for {
		_, data, err := that.socket.ReadMessage()
		if err != nil {
			that.lost(err)
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Warn("failed to unmarshal relay message", "error", err)
			continue
		}

		if that.isDestroyed() {
			return
		}

		if err = that.handle(message); err != nil {
			log.Warn("failed to handle relay message", "action", message.Action, "error", err)
		}
	}
}

func (that *peer) handle(message Message) error {
	payload, err := message.DecodePayload()
	if err != nil {
		return err
	}

	switch message.Action {
	case ActionPeerReady:
		that.events.PeerReady(payload.PeerID)
	case ActionConnIncoming:
		relayLink, ok := that.addLink(payload.ConnID)
		if !ok {
			return fmt.Errorf("%w: %s", errDuplicateLink, payload.ConnID)
		}
		that.events.IncomingConnection(relayLink)
	case ActionConnOpen:
		if relayLink, ok := that.getLink(payload.ConnID); ok {
			that.events.ConnOpen(relayLink)
		}
	case ActionConnData:
		if relayLink, ok := that.getLink(payload.ConnID); ok {
			that.events.ConnData(relayLink, []byte(payload.Data))
		}
	case ActionConnClose:
		if relayLink, ok := that.removeLink(payload.ConnID); ok {
			that.events.ConnClosed(relayLink)
		}
	case ActionError:
		relayErr := fmt.Errorf("%w: %s", apperror.ErrPeerUnavailable, payload.Error)
		if relayLink, ok := that.removeLink(payload.ConnID); ok {
			that.events.ConnError(relayLink, errors.New(payload.Error))
			return nil
		}
		that.events.PeerError(relayErr)
	default:
		return fmt.Errorf("unknown action %q", message.Action)
	}

	return nil
}

// lost reports a relay socket that went away without Destroy.
func (that *peer) lost(err error) {
	that.mutex.Lock()
	if that.destroyed {
		that.mutex.Unlock()
		return
	}
	that.destroyed = true
	links := that.links
	that.links = make(map[string]*link)
	that.mutex.Unlock()

	that.logger.Warn("relay connection lost", "error", err)

	for _, relayLink := range links {
		that.events.ConnClosed(relayLink)
	}

	that.events.PeerError(fmt.Errorf("%w: %v", apperror.ErrConnectionClosed, err)) //nolint: errorlint // socket error is detail only
}

func (that *peer) isDestroyed() bool {
	that.mutex.Lock()
	defer that.mutex.Unlock()
	return that.destroyed
}

// addLink registers id unless it is already linked.
func (that *peer) addLink(id string) (*link, bool) {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	if _, taken := that.links[id]; taken {
		return nil, false
	}

	relayLink := &link{peer: that, id: id}
	that.links[id] = relayLink

	return relayLink, true
}

func (that *peer) getLink(id string) (*link, bool) {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	relayLink, ok := that.links[id]
	return relayLink, ok
}

func (that *peer) removeLink(id string) (*link, bool) {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	relayLink, ok := that.links[id]
	if ok {
		delete(that.links, id)
	}
	return relayLink, ok
}

// link is one relayed connection to another peer.
type link struct {
	peer *peer
	id   string
}

func (that *link) Send(data []byte) error {
	if _, ok := that.peer.getLink(that.id); !ok {
		return apperror.ErrConnectionClosed
	}

	return that.peer.write(ActionConnData, Payload{ConnID: that.id, Data: string(data)})
}

// Close tells the other end the link is gone. Closing twice is a no-op.
func (that *link) Close() error {
	if _, ok := that.peer.removeLink(that.id); !ok {
		return nil
	}

	if that.peer.isDestroyed() {
		return nil
	}

	return that.peer.write(ActionConnClose, Payload{ConnID: that.id})
}
