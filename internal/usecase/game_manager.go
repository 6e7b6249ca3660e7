package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/internal/online"
	"github.com/rocketscienceinc/tictactoe-peer/internal/service"
	"github.com/rocketscienceinc/tictactoe-peer/internal/tictactoe"
)

// Snapshot is a consistent view of one session taken on the loop.
type Snapshot struct {
	State  entity.GameState
	Scores entity.Scoreboard
	Online entity.OnlineSession
}

type loop interface {
	Run(ctx context.Context)
	Post(task func())
	Do(ctx context.Context, task func() error) error
}

// GameManager runs the user-facing actions of one game session. Every action
// is executed on a single event loop together with timer and network events.
type GameManager struct {
	logger  *slog.Logger
	loop    loop
	game    *tictactoe.GameController
	session *online.Session
}

// NewGameManager builds a session. provider may be nil, in which case online
// play reports the environment as unavailable.
func NewGameManager(logger *slog.Logger, provider online.Provider, notifier tictactoe.Notifier, opts tictactoe.Options) *GameManager {
	dispatcher := service.NewDispatcher(logger)

	game := tictactoe.NewGameController(logger, service.NewBotService(), service.NewTimerScheduler(dispatcher), notifier, opts)
	session := online.NewSession(logger, provider, game, notifier, dispatcher)
	game.AttachPeer(session)

	return &GameManager{
		logger:  logger.With("component", "usecase"),
		loop:    dispatcher,
		game:    game,
		session: session,
	}
}

// Run processes actions and events until ctx is canceled. It tears the online
// session down on the way out.
func (that *GameManager) Run(ctx context.Context) {
	that.loop.Run(ctx)
	that.session.Teardown()
}

func (that *GameManager) SelectCell(ctx context.Context, cell int) error {
	return that.loop.Do(ctx, func() error {
		return that.game.SelectCell(cell)
	})
}

func (that *GameManager) ChangeMode(ctx context.Context, name string) error {
	mode, err := entity.ParseMode(name)
	if err != nil {
		return fmt.Errorf("failed to change mode: %w", err)
	}

	return that.loop.Do(ctx, func() error {
		return that.game.SetMode(mode)
	})
}

// Reset starts a new round; full also clears the scoreboard.
func (that *GameManager) Reset(ctx context.Context, full bool) error {
	return that.loop.Do(ctx, func() error {
		that.game.Reset(!full)
		return nil
	})
}

// CreateRoom switches to online play if needed and starts hosting.
func (that *GameManager) CreateRoom(ctx context.Context) error {
	return that.loop.Do(ctx, func() error {
		if err := that.enterOnline(); err != nil {
			return err
		}
		return that.session.CreateRoom(ctx)
	})
}

// JoinRoom switches to online play if needed and joins roomID.
func (that *GameManager) JoinRoom(ctx context.Context, roomID string) error {
	return that.loop.Do(ctx, func() error {
		if err := that.enterOnline(); err != nil {
			return err
		}
		return that.session.JoinRoom(ctx, roomID)
	})
}

// Leave tears the online session down without leaving online mode.
func (that *GameManager) Leave(ctx context.Context) error {
	return that.loop.Do(ctx, func() error {
		that.session.Teardown()
		return nil
	})
}

func (that *GameManager) RoomID(ctx context.Context) (string, error) {
	var roomID string

	err := that.loop.Do(ctx, func() error {
		var err error
		roomID, err = that.session.RoomID()
		return err
	})

	return roomID, err
}

func (that *GameManager) SetPlayerNames(ctx context.Context, nameX, nameO string) error {
	return that.loop.Do(ctx, func() error {
		that.game.SetPlayerNames(nameX, nameO)
		return nil
	})
}

func (that *GameManager) Snapshot(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot

	err := that.loop.Do(ctx, func() error {
		snapshot = Snapshot{
			State:  that.game.State(),
			Scores: that.game.Scores(),
			Online: that.session.Snapshot(),
		}
		return nil
	})

	return snapshot, err
}

// DisplayName resolves a mark to the name shown for it in the current mode.
func (that *GameManager) DisplayName(ctx context.Context, mark entity.Mark) (string, error) {
	var name string

	err := that.loop.Do(ctx, func() error {
		name = that.game.DisplayName(mark)
		return nil
	})

	return name, err
}

func (that *GameManager) enterOnline() error {
	if that.game.State().Mode == entity.ModeOnline {
		return nil
	}

	that.logger.Debug("switching to online mode", "method", "enterOnline")

	return that.game.SetMode(entity.ModeOnline)
}
