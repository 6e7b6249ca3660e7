package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMove            = errors.New("invalid move")
	ErrConnection             = errors.New("connection error")
	ErrProtocolViolation      = errors.New("protocol violation")
	ErrEnvironmentUnavailable = errors.New("peer connection provider is not available")
)

// move rejections.
var (
	ErrGameFinished = fmt.Errorf("%w: round is already finished", ErrInvalidMove)
	ErrInvalidCell  = fmt.Errorf("%w: invalid cell index", ErrInvalidMove)
	ErrCellOccupied = fmt.Errorf("%w: cell is already occupied", ErrInvalidMove)
	ErrNotYourTurn  = fmt.Errorf("%w: it's not your turn", ErrInvalidMove)
	ErrNotConnected = fmt.Errorf("%w: not connected to a friend", ErrInvalidMove)
)

// peer link failures.
var (
	ErrPeerUnavailable  = fmt.Errorf("%w: room is not available", ErrConnection)
	ErrConnectionClosed = fmt.Errorf("%w: connection closed", ErrConnection)
)

// wire message failures.
var (
	ErrUnknownMessage   = fmt.Errorf("%w: unknown message type", ErrProtocolViolation)
	ErrMalformedMessage = fmt.Errorf("%w: malformed message", ErrProtocolViolation)
)

var (
	ErrRoomIDRequired   = errors.New("room id is required")
	ErrNoRoom           = errors.New("no room created yet")
	ErrUnknownMode      = errors.New("unknown game mode")
	ErrNoAvailableMoves = errors.New("no available moves")
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomExists       = errors.New("room already exists")
)
