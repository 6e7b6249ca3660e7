package service

import (
	"fmt"
	"math"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

const (
	// BotMark is the side the computer plays.
	BotMark = entity.PlayerO

	winScore = 10
)

type BotService interface {
	FindBestMove(board entity.Board) (int, error)
}

type botService struct{}

func NewBotService() BotService {
	return &botService{}
}

// FindBestMove searches the full game tree and returns the free cell with the
// highest minimax value for O. Ties go to the lowest index.
func (that *botService) FindBestMove(board entity.Board) (int, error) {
	if board.Evaluate().IsOver() {
		return 0, fmt.Errorf("%w: round is already decided", apperror.ErrNoAvailableMoves)
	}

	bestScore := math.MinInt
	move := -1

	for _, cell := range board.EmptyCells() {
		board[cell] = BotMark
		score := minimax(&board, 0, false)
		board[cell] = entity.EmptyCell

		if score > bestScore {
			bestScore = score
			move = cell
		}
	}

	return move, nil
}

// minimax scores the board from O's point of view: faster wins and slower
// losses score higher.
func minimax(board *entity.Board, depth int, isMax bool) int {
	switch board.Winner() {
	case entity.PlayerO:
		return winScore - depth
	case entity.PlayerX:
		return depth - winScore
	}

	if board.IsFull() {
		return 0
	}

	if isMax {
		best := math.MinInt
		for i := range board {
			if board[i] != entity.EmptyCell {
				continue
			}
			board[i] = entity.PlayerO
			best = max(best, minimax(board, depth+1, false))
			board[i] = entity.EmptyCell
		}
		return best
	}

	best := math.MaxInt
	for i := range board {
		if board[i] != entity.EmptyCell {
			continue
		}
		board[i] = entity.PlayerX
		best = min(best, minimax(board, depth+1, true))
		board[i] = entity.EmptyCell
	}
	return best
}
