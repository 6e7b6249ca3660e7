package tictactoe

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

const (
	computerMark = entity.PlayerO

	DefaultComputerDelay = 450 * time.Millisecond

	msgWaitForTurn = "Wait for your turn..."
	msgOnlineHint  = "Create or join a room to play online."
)

type botService interface {
	FindBestMove(board entity.Board) (int, error)
}

// Scheduler defers a task. The returned function cancels it.
type Scheduler interface {
	Schedule(delay time.Duration, task func()) (cancel func())
}

type Notifier interface {
	Notify(event entity.Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(event entity.Event)

func (that NotifierFunc) Notify(event entity.Event) {
	that(event)
}

// Peer is the network side of an online game.
type Peer interface {
	Role() entity.Mark
	IsConnected() bool
	BroadcastMove(cell int, player entity.Mark)
	BroadcastReset(keepScores bool)
	Teardown()
}

type Options struct {
	ComputerDelay time.Duration
	PlayerXName   string
	PlayerOName   string
}

// GameController owns the board, turn, mode and scores of one session.
// It is not safe for concurrent use: all calls must come from one loop.
type GameController struct {
	logger *slog.Logger

	state  entity.GameState
	scores entity.Scoreboard

	bot       botService
	scheduler Scheduler
	notifier  Notifier
	peer      Peer

	opts            Options
	cancelComputing func()
}

func NewGameController(logger *slog.Logger, bot botService, scheduler Scheduler, notifier Notifier, opts Options) *GameController {
	if opts.ComputerDelay <= 0 {
		opts.ComputerDelay = DefaultComputerDelay
	}

	if notifier == nil {
		notifier = NotifierFunc(func(entity.Event) {})
	}

	return &GameController{
		logger:    logger.With("component", "game"),
		state:     entity.NewGameState(entity.ModeLocal),
		bot:       bot,
		scheduler: scheduler,
		notifier:  notifier,
		opts:      opts,
	}
}

// AttachPeer connects the controller to the online session.
func (that *GameController) AttachPeer(peer Peer) {
	that.peer = peer
}

func (that *GameController) State() entity.GameState {
	return that.state
}

func (that *GameController) Scores() entity.Scoreboard {
	return that.scores
}

func (that *GameController) SetPlayerNames(nameX, nameO string) {
	that.opts.PlayerXName = nameX
	that.opts.PlayerOName = nameO
	that.announceTurn()
}

// SelectCell plays the current turn at cell on behalf of the local user.
func (that *GameController) SelectCell(cell int) error {
	log := that.logger.With("method", "SelectCell", "cell", cell)

	if err := that.validateLocalMove(cell); err != nil {
		log.Debug("move rejected", "error", err)
		that.reject(err)
		return err
	}

	player := that.state.Turn
	if err := that.accept(cell, player, true); err != nil {
		that.reject(err)
		return fmt.Errorf("failed to make move: %w", err)
	}

	if that.state.Mode == entity.ModeOnline && that.peer != nil {
		that.peer.BroadcastMove(cell, player)
	}

	return nil
}

// ApplyRemoteMove applies a move received from the peer. The message is the
// authority on whose turn it was, so turn ownership is not checked.
func (that *GameController) ApplyRemoteMove(cell int, player entity.Mark) error {
	if !that.state.Active {
		return apperror.ErrGameFinished
	}

	if err := that.accept(cell, player, false); err != nil {
		return fmt.Errorf("failed to apply remote move: %w", err)
	}

	return nil
}

// Reset starts a new round. Online, the reset is sent to the peer.
func (that *GameController) Reset(keepScores bool) {
	that.reset(keepScores, that.state.Mode == entity.ModeOnline)
}

// ResetRound starts a new round without notifying the peer.
func (that *GameController) ResetRound(keepScores bool) {
	that.reset(keepScores, false)
}

// SetMode switches the mode. Leaving online mode tears the session down;
// scores are kept.
func (that *GameController) SetMode(mode entity.Mode) error {
	if _, err := entity.ParseMode(string(mode)); err != nil {
		return err
	}

	previous := that.state.Mode
	that.state.Mode = mode

	if previous == entity.ModeOnline && mode != entity.ModeOnline && that.peer != nil {
		that.peer.Teardown()
	}

	that.logger.Info("mode changed", "from", previous, "to", mode)

	if mode == entity.ModeOnline {
		that.notifier.Notify(entity.Event{Kind: entity.EventStatus, Message: msgOnlineHint, Level: entity.StatusInfo})
	}

	that.reset(true, false)

	return nil
}

// DisplayName returns how a player is shown in turn and result messages.
func (that *GameController) DisplayName(mark entity.Mark) string {
	if that.state.Mode == entity.ModeOnline {
		if that.peer != nil && that.peer.Role() == mark {
			return "You"
		}
		return "Friend"
	}

	if mark == entity.PlayerX {
		return nameOr(that.opts.PlayerXName, "Player X")
	}

	if that.state.Mode == entity.ModeComputer {
		return "Computer"
	}

	return nameOr(that.opts.PlayerOName, "Player O")
}

func (that *GameController) validateLocalMove(cell int) error {
	if !that.state.Active {
		return apperror.ErrGameFinished
	}

	if cell < 0 || cell >= entity.BoardSize {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that.state.Board[cell] != entity.EmptyCell {
		return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, cell)
	}

	switch that.state.Mode {
	case entity.ModeOnline:
		if that.peer == nil || !that.peer.IsConnected() {
			return apperror.ErrNotConnected
		}
		if that.peer.Role() != that.state.Turn {
			return apperror.ErrNotYourTurn
		}
	case entity.ModeComputer:
		// the computer's move is pending
		if that.state.Turn == computerMark {
			return apperror.ErrNotYourTurn
		}
	case entity.ModeLocal:
	}

	return nil
}

// accept is the shared path of local, remote and computer moves.
func (that *GameController) accept(cell int, player entity.Mark, triggerComputer bool) error {
	if err := that.state.Board.Place(cell, player); err != nil {
		return err
	}

	that.notifier.Notify(entity.Event{Kind: entity.EventMoved, Cell: cell, Player: player, State: that.state})

	if result := that.state.Board.Evaluate(); result.IsOver() {
		that.finish(result)
		return nil
	}

	that.state.Turn = player.Opponent()
	that.announceTurn()

	if triggerComputer && that.state.Mode == entity.ModeComputer && that.state.Turn == computerMark {
		that.scheduleComputerMove()
	}

	return nil
}

func (that *GameController) finish(result entity.RoundResult) {
	that.state.Active = false
	that.scores.Record(result)

	message := "It's a draw!"
	if result.Outcome == entity.OutcomeWin {
		message = that.DisplayName(result.Winner) + " wins!"
	}

	that.logger.Info("round finished", "outcome", result.Outcome, "winner", result.Winner)

	that.notifier.Notify(entity.Event{
		Kind:    entity.EventRoundOver,
		Result:  result,
		Scores:  that.scores,
		State:   that.state,
		Message: message,
	})
	that.announceTurn()
}

func (that *GameController) reset(keepScores, broadcast bool) {
	that.cancelComputerMove()

	mode := that.state.Mode
	that.state = entity.NewGameState(mode)

	if !keepScores {
		that.scores.Reset()
	}

	that.notifier.Notify(entity.Event{Kind: entity.EventReset, State: that.state, Scores: that.scores})
	that.announceTurn()

	if broadcast && that.peer != nil {
		that.peer.BroadcastReset(keepScores)
	}
}

func (that *GameController) scheduleComputerMove() {
	that.cancelComputerMove()
	that.cancelComputing = that.scheduler.Schedule(that.opts.ComputerDelay, that.computerMove)
}

func (that *GameController) cancelComputerMove() {
	if that.cancelComputing != nil {
		that.cancelComputing()
		that.cancelComputing = nil
	}
}

func (that *GameController) computerMove() {
	log := that.logger.With("method", "computerMove")
	that.cancelComputing = nil

	if !that.state.Active || that.state.Mode != entity.ModeComputer || that.state.Turn != computerMark {
		log.Debug("computer move skipped")
		return
	}

	cell, err := that.bot.FindBestMove(that.state.Board)
	if err != nil {
		log.Error("failed to find computer move", "error", err)
		return
	}

	if err = that.accept(cell, computerMark, false); err != nil {
		log.Error("failed to apply computer move", "cell", cell, "error", err)
	}
}

func (that *GameController) announceTurn() {
	message := "Round finished"
	if that.state.Active {
		message = fmt.Sprintf("%s's turn (%s)", that.DisplayName(that.state.Turn), that.state.Turn)
	}

	that.notifier.Notify(entity.Event{Kind: entity.EventTurn, State: that.state, Message: message})
}

func (that *GameController) reject(err error) {
	event := entity.Event{Kind: entity.EventRejected, Err: err, Message: err.Error()}
	if that.state.Mode == entity.ModeOnline && errors.Is(err, apperror.ErrNotYourTurn) {
		event.Message = msgWaitForTurn
	}

	that.notifier.Notify(event)
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
