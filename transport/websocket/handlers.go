package websocket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/internal/pkg"
	relay "github.com/rocketscienceinc/tictactoe-peer/internal/transport/websocket"
)

const maxRoomIDAttempts = 5

var (
	errPeerAlreadyOpen = errors.New("peer is already open")
	errPeerNotOpen     = errors.New("peer is not open")
	errUnknownLink     = errors.New("unknown connection")
	errConnIDRequired  = errors.New("conn_id is required")
	errConnIDInUse     = errors.New("conn_id is already in use")
)

func (that *Server) handlePeerOpen(ctx context.Context, peer *client, payload relay.Payload) error {
	log := that.logger.With("method", "handlePeerOpen")

	if that.peerID(peer) != "" {
		return errPeerAlreadyOpen
	}

	room, err := that.registerRoom(ctx, payload.PeerID)
	if err != nil {
		return err
	}

	that.mutex.Lock()
	peer.id = room.ID
	that.peers[room.ID] = peer
	that.mutex.Unlock()

	log.Info("peer opened", "peerID", room.ID)

	return peer.send(relay.ActionPeerReady, relay.Payload{PeerID: room.ID})
}

// registerRoom claims the requested id, or a generated one.
func (that *Server) registerRoom(ctx context.Context, requested string) (*entity.Room, error) {
	for attempt := 0; attempt < maxRoomIDAttempts; attempt++ {
		id := requested
		if id == "" {
			generated, err := pkg.GenerateRoomID()
			if err != nil {
				return nil, err
			}
			id = generated
		}

		room := &entity.Room{ID: id, HostPeerID: id, CreatedAt: time.Now().UTC()}

		err := that.rooms.Create(ctx, room)
		if err == nil {
			return room, nil
		}

		if !errors.Is(err, apperror.ErrRoomExists) || requested != "" {
			return nil, fmt.Errorf("failed to register room %s: %w", id, err)
		}
	}

	return nil, fmt.Errorf("failed to register room: %w", apperror.ErrRoomExists)
}

func (that *Server) handlePeerConnect(ctx context.Context, peer *client, payload relay.Payload) error {
	log := that.logger.With("method", "handlePeerConnect", "roomID", payload.RoomID)

	if payload.ConnID == "" {
		return errConnIDRequired
	}

	that.mutex.Lock()
	if peer.id == "" {
		that.mutex.Unlock()
		return errPeerNotOpen
	}

	host, ok := that.peers[payload.RoomID]
	if !ok || host == peer {
		that.mutex.Unlock()
		return fmt.Errorf("could not connect to peer %s", payload.RoomID)
	}

	if _, taken := that.links[payload.ConnID]; taken {
		that.mutex.Unlock()
		return errConnIDInUse
	}

	relayLink := &link{id: payload.ConnID, guest: peer, host: host}
	that.links[relayLink.id] = relayLink
	that.mutex.Unlock()

	// The guest hears conn:open before the host can send anything on the link.
	if err := peer.send(relay.ActionConnOpen, relay.Payload{ConnID: relayLink.id, PeerID: host.id}); err != nil {
		that.dropLink(relayLink.id)
		return fmt.Errorf("failed to confirm connection: %w", err)
	}

	if err := host.send(relay.ActionConnIncoming, relay.Payload{ConnID: relayLink.id, PeerID: peer.id}); err != nil {
		that.dropLink(relayLink.id)
		return fmt.Errorf("could not reach peer %s: %w", payload.RoomID, err)
	}

	that.syncRoom(ctx, payload.RoomID)
	log.Info("peers linked", "connID", relayLink.id)

	return nil
}

func (that *Server) handleConnData(_ context.Context, peer *client, payload relay.Payload) error {
	other, err := that.linkedPeer(peer, payload.ConnID)
	if err != nil {
		return err
	}

	return other.send(relay.ActionConnData, relay.Payload{ConnID: payload.ConnID, Data: payload.Data})
}

func (that *Server) handleConnClose(ctx context.Context, peer *client, payload relay.Payload) error {
	other, err := that.linkedPeer(peer, payload.ConnID)
	if err != nil {
		// already closed from the other side
		return nil //nolint: nilerr // closing twice is fine
	}

	if relayLink, ok := that.dropLink(payload.ConnID); ok {
		that.syncRoom(ctx, relayLink.host.id)
	}

	if err = other.send(relay.ActionConnClose, relay.Payload{ConnID: payload.ConnID}); err != nil {
		that.logger.Debug("failed to relay close", "connID", payload.ConnID, "error", err)
	}

	return nil
}

// handleDisconnect closes every link of a departing peer and frees its room.
func (that *Server) handleDisconnect(ctx context.Context, peer *client) {
	log := that.logger.With("method", "handleDisconnect")

	that.mutex.Lock()
	peerID := peer.id
	if peerID != "" && that.peers[peerID] == peer {
		delete(that.peers, peerID)
	}

	var orphans []*link
	for id, relayLink := range that.links {
		if relayLink.guest == peer || relayLink.host == peer {
			orphans = append(orphans, relayLink)
			delete(that.links, id)
		}
	}
	that.mutex.Unlock()

	for _, relayLink := range orphans {
		other, _ := relayLink.other(peer)
		if err := other.send(relay.ActionConnClose, relay.Payload{ConnID: relayLink.id}); err != nil {
			log.Debug("failed to relay close", "connID", relayLink.id, "error", err)
		}

		if relayLink.guest == peer {
			that.syncRoom(ctx, relayLink.host.id)
		}
	}

	if peerID == "" {
		return
	}

	if err := that.rooms.DeleteByID(context.WithoutCancel(ctx), peerID); err != nil {
		log.Error("failed to delete room", "roomID", peerID, "error", err)
	}

	log.Info("peer disconnected", "peerID", peerID, "links", len(orphans))
}

func (that *Server) peerID(peer *client) string {
	that.mutex.RLock()
	defer that.mutex.RUnlock()
	return peer.id
}

func (that *Server) linkedPeer(peer *client, connID string) (*client, error) {
	that.mutex.RLock()
	defer that.mutex.RUnlock()

	relayLink, ok := that.links[connID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownLink, connID)
	}

	other, ok := relayLink.other(peer)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownLink, connID)
	}

	return other, nil
}

func (that *Server) dropLink(connID string) (*link, bool) {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	relayLink, ok := that.links[connID]
	delete(that.links, connID)

	return relayLink, ok
}

// syncRoom records in the registry whether a guest is linked to roomID.
func (that *Server) syncRoom(ctx context.Context, roomID string) {
	log := that.logger.With("method", "syncRoom", "roomID", roomID)

	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		log.Debug("room not updated", "error", err)
		return
	}

	room.GuestConnected = that.hasGuest(roomID)
	if err = that.rooms.Update(ctx, room); err != nil {
		log.Error("failed to update room", "error", err)
	}
}

func (that *Server) hasGuest(roomID string) bool {
	that.mutex.RLock()
	defer that.mutex.RUnlock()

	for _, relayLink := range that.links {
		if relayLink.host.id == roomID {
			return true
		}
	}

	return false
}
