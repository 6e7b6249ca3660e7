package websocket

import (
	"encoding/json"
	"fmt"
)

// Relay actions.
const (
	ActionPeerOpen     = "peer:open"
	ActionPeerReady    = "peer:ready"
	ActionPeerConnect  = "peer:connect"
	ActionConnIncoming = "conn:incoming"
	ActionConnOpen     = "conn:open"
	ActionConnData     = "conn:data"
	ActionConnClose    = "conn:close"
	ActionError        = "error"
)

// Message represents a relay frame with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	PeerID string `json:"peer_id,omitempty"`
	RoomID string `json:"room_id,omitempty"`
	ConnID string `json:"conn_id,omitempty"`
	Data   string `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func NewMessage(action string, payload Payload) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return Message{Action: action, Payload: raw}, nil
}

func (that Message) DecodePayload() (Payload, error) {
	var payload Payload
	if len(that.Payload) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(that.Payload, &payload); err != nil {
		return Payload{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payload, nil
}
