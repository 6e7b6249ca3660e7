package entity

import "time"

// Room is a hosted game waiting for, or bound to, a guest on the relay.
type Room struct {
	ID             string    `json:"id"`
	HostPeerID     string    `json:"host_peer_id"`
	GuestConnected bool      `json:"guest_connected"`
	CreatedAt      time.Time `json:"created_at"`
}
