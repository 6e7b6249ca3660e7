package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

var (
	errQuit      = errors.New("quit")
	errModeUsage = errors.New("usage: mode pvp|cpu|online")
)

const helpText = `commands:
  1-9            play a cell
  mode <m>       pvp, cpu or online
  reset [all]    new round; "all" also clears scores
  create         host an online room
  join <id>      join a friend's room
  room           show the room id to share
  leave          close the online session
  help           show this help
  quit           exit`

type gameManager interface {
	SelectCell(ctx context.Context, cell int) error
	ChangeMode(ctx context.Context, name string) error
	Reset(ctx context.Context, full bool) error
	CreateRoom(ctx context.Context) error
	JoinRoom(ctx context.Context, roomID string) error
	RoomID(ctx context.Context) (string, error)
	Leave(ctx context.Context) error
}

type printer interface {
	Println(args ...interface{})
}

type repl struct {
	manager gameManager
	out     printer
}

// Run reads commands until quit, EOF or ctx is done.
func (that *repl) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		err := that.execute(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}

		// rejected moves and status errors are already shown by the renderer
		if err != nil && !shownByRenderer(err) {
			that.out.Println("error:", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	return nil
}

func (that *repl) execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	command, args := strings.ToLower(fields[0]), fields[1:]

	if cell, err := strconv.Atoi(command); err == nil {
		return that.manager.SelectCell(ctx, cell-1)
	}

	switch command {
	case "mode":
		if len(args) != 1 {
			return errModeUsage
		}
		return that.manager.ChangeMode(ctx, args[0])
	case "reset":
		full := len(args) > 0 && args[0] == "all"
		return that.manager.Reset(ctx, full)
	case "create":
		return that.manager.CreateRoom(ctx)
	case "join":
		roomID := ""
		if len(args) > 0 {
			roomID = args[0]
		}
		return that.manager.JoinRoom(ctx, roomID)
	case "room":
		roomID, err := that.manager.RoomID(ctx)
		if err != nil {
			return err
		}
		that.out.Println("Room ID:", roomID)
		return nil
	case "leave":
		return that.manager.Leave(ctx)
	case "help", "?":
		that.out.Println(helpText)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, type help", command)
	}
}

func shownByRenderer(err error) bool {
	return errors.Is(err, apperror.ErrInvalidMove) ||
		errors.Is(err, apperror.ErrConnection) ||
		errors.Is(err, apperror.ErrEnvironmentUnavailable) ||
		errors.Is(err, apperror.ErrRoomIDRequired) ||
		errors.Is(err, apperror.ErrNoRoom)
}

// modeNames lists the accepted mode names for flag help.
var modeNames = strings.Join([]string{string(entity.ModeLocal), string(entity.ModeComputer), string(entity.ModeOnline)}, ", ")
