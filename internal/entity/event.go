package entity

type EventKind string

const (
	EventMoved     EventKind = "moved"
	EventRoundOver EventKind = "round_over"
	EventReset     EventKind = "reset"
	EventTurn      EventKind = "turn"
	EventRejected  EventKind = "rejected"
	EventStatus    EventKind = "status"
)

type StatusLevel string

const (
	StatusInfo    StatusLevel = "info"
	StatusSuccess StatusLevel = "success"
	StatusError   StatusLevel = "error"
)

// Event is what the engine reports to the user interface.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind    EventKind
	Cell    int
	Player  Mark
	Result  RoundResult
	Scores  Scoreboard
	State   GameState
	Message string
	Level   StatusLevel
	Err     error
}
