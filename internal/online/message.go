package online

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

type MessageType string

const (
	MessageMove  MessageType = "move"
	MessageReset MessageType = "reset"
)

// Message is one of MoveMessage or ResetMessage.
type Message interface {
	Type() MessageType
}

// MoveMessage carries a move the sender has already accepted.
type MoveMessage struct {
	Index  int         `json:"index"`
	Player entity.Mark `json:"player"`
}

func (MoveMessage) Type() MessageType { return MessageMove }

// ResetMessage asks the receiver to start a new round.
type ResetMessage struct {
	KeepScores bool `json:"keepScores"`
}

func (ResetMessage) Type() MessageType { return MessageReset }

type moveWire struct {
	Type MessageType `json:"type"`
	MoveMessage
}

type resetWire struct {
	Type MessageType `json:"type"`
	ResetMessage
}

// Encode writes msg as a flat JSON object with a "type" field.
func Encode(msg Message) ([]byte, error) {
	var wire interface{}

	switch typed := msg.(type) {
	case MoveMessage:
		wire = moveWire{Type: MessageMove, MoveMessage: typed}
	case ResetMessage:
		wire = resetWire{Type: MessageReset, ResetMessage: typed}
	default:
		return nil, fmt.Errorf("%w: %T", apperror.ErrUnknownMessage, msg)
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return data, nil
}

type moveContents struct {
	Index  *int    `mapstructure:"index"`
	Player *string `mapstructure:"player"`
}

type resetContents struct {
	KeepScores *bool `mapstructure:"keepScores"`
}

// Decode parses a wire message. Unknown or malformed messages return an
// error wrapping apperror.ErrProtocolViolation.
func Decode(data []byte) (Message, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw map[string]interface{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrMalformedMessage, err) //nolint: errorlint // json error is detail only
	}

	msgType, _ := raw["type"].(string)

	switch MessageType(msgType) {
	case MessageMove:
		return decodeMove(raw)
	case MessageReset:
		return decodeReset(raw)
	default:
		return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownMessage, msgType)
	}
}

func decodeMove(raw map[string]interface{}) (Message, error) {
	var contents moveContents
	if err := decodeContents(raw, &contents); err != nil {
		return nil, err
	}

	if contents.Index == nil || contents.Player == nil {
		return nil, fmt.Errorf("%w: move needs index and player", apperror.ErrMalformedMessage)
	}

	if *contents.Index < 0 || *contents.Index >= entity.BoardSize {
		return nil, fmt.Errorf("%w: index %d", apperror.ErrMalformedMessage, *contents.Index)
	}

	player := entity.Mark(*contents.Player)
	if !player.IsPlayer() {
		return nil, fmt.Errorf("%w: player %q", apperror.ErrMalformedMessage, *contents.Player)
	}

	return MoveMessage{Index: *contents.Index, Player: player}, nil
}

func decodeReset(raw map[string]interface{}) (Message, error) {
	var contents resetContents
	if err := decodeContents(raw, &contents); err != nil {
		return nil, err
	}

	// a reset without the flag keeps scores
	keepScores := true
	if contents.KeepScores != nil {
		keepScores = *contents.KeepScores
	}

	return ResetMessage{KeepScores: keepScores}, nil
}

func decodeContents(raw map[string]interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: target,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err = decoder.Decode(raw); err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrMalformedMessage, err) //nolint: errorlint // decoder error is detail only
	}

	return nil
}
