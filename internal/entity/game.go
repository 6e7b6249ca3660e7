package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
)

// Mark is the content of a cell and, for X and O, the identity of a player.
type Mark string

const (
	EmptyCell Mark = ""
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
)

const BoardSize = 9

var ErrInvalidPlayer = fmt.Errorf("%w: invalid player mark", apperror.ErrInvalidMove)

// WinCombos lists the winning lines: rows, then columns, then the two diagonals.
// Evaluation order follows this order.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// IsPlayer reports whether the mark is X or O.
func (that Mark) IsPlayer() bool {
	return that == PlayerX || that == PlayerO
}

// Opponent returns the other player. EmptyCell has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return EmptyCell
	}
}

func (that Mark) String() string {
	if that == EmptyCell {
		return "-"
	}
	return string(that)
}

// Board is a 3x3 grid stored row-major.
type Board [BoardSize]Mark

// ApplyMove returns a copy of the board with player placed at cell.
func (that Board) ApplyMove(cell int, player Mark) (Board, error) {
	if err := that.Place(cell, player); err != nil {
		return that, err
	}
	return that, nil
}

// Place puts player at cell in place.
func (that *Board) Place(cell int, player Mark) error {
	if cell < 0 || cell >= len(that) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if !player.IsPlayer() {
		return fmt.Errorf("%w: %q", ErrInvalidPlayer, string(player))
	}

	if that[cell] != EmptyCell {
		return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, cell)
	}

	that[cell] = player

	return nil
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}
	return true
}

func (that Board) IsEmpty() bool {
	return that == Board{}
}

// EmptyCells returns free cell indices in increasing order.
func (that Board) EmptyCells() []int {
	cells := make([]int, 0, len(that))
	for i, cell := range that {
		if cell == EmptyCell {
			cells = append(cells, i)
		}
	}
	return cells
}

// Winner returns the mark owning the first complete line, or EmptyCell.
func (that Board) Winner() Mark {
	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}
	return EmptyCell
}

// Evaluate determines the round result for the board.
func (that Board) Evaluate() RoundResult {
	if winner := that.Winner(); winner != EmptyCell {
		return RoundResult{Outcome: OutcomeWin, Winner: winner}
	}

	// the round continues until all the cells are taken
	if that.IsFull() {
		return RoundResult{Outcome: OutcomeDraw}
	}

	return RoundResult{Outcome: OutcomeOngoing}
}

type Outcome int

const (
	OutcomeOngoing Outcome = iota
	OutcomeWin
	OutcomeDraw
)

func (that Outcome) String() string {
	switch that {
	case OutcomeWin:
		return "win"
	case OutcomeDraw:
		return "draw"
	default:
		return "ongoing"
	}
}

// RoundResult is Ongoing, Win(Winner) or Draw.
type RoundResult struct {
	Outcome Outcome
	Winner  Mark
}

func (that RoundResult) IsOver() bool {
	return that.Outcome != OutcomeOngoing
}

// Mode selects who plays O and whether moves travel over a peer link.
type Mode string

const (
	ModeLocal    Mode = "pvp"
	ModeComputer Mode = "cpu"
	ModeOnline   Mode = "online"
)

func ParseMode(value string) (Mode, error) {
	switch mode := Mode(value); mode {
	case ModeLocal, ModeComputer, ModeOnline:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", apperror.ErrUnknownMode, value)
	}
}

// GameState is a snapshot of one game session.
type GameState struct {
	Board  Board
	Turn   Mark
	Active bool
	Mode   Mode
}

func NewGameState(mode Mode) GameState {
	return GameState{
		Turn:   PlayerX,
		Active: true,
		Mode:   mode,
	}
}
