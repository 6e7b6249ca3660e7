package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

// renderer prints game events to a terminal. Events arrive from the game
// loop while the prompt is read on another goroutine.
type renderer struct {
	mutex sync.Mutex
	out   io.Writer
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

func (that *renderer) Notify(event entity.Event) {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	switch event.Kind {
	case entity.EventMoved, entity.EventReset:
		that.board(event.State.Board)
	case entity.EventRoundOver:
		that.board(event.State.Board)
		fmt.Fprintf(that.out, "%s  (X %d : O %d, draws %d)\n",
			event.Message, event.Scores.WinsX, event.Scores.WinsO, event.Scores.Draws)
	case entity.EventTurn:
		fmt.Fprintln(that.out, event.Message)
	case entity.EventRejected:
		fmt.Fprintf(that.out, "! %s\n", event.Message)
	case entity.EventStatus:
		fmt.Fprintf(that.out, "[%s] %s\n", event.Level, event.Message)
	}
}

func (that *renderer) Println(args ...interface{}) {
	that.mutex.Lock()
	defer that.mutex.Unlock()
	fmt.Fprintln(that.out, args...)
}

func (that *renderer) board(board entity.Board) {
	var sb strings.Builder

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			cell := row*3 + col
			mark := board[cell].String()
			if board[cell] == entity.EmptyCell {
				mark = fmt.Sprint(cell + 1)
			}

			sb.WriteString(" " + mark + " ")
			if col < 2 {
				sb.WriteString("|")
			}
		}
		sb.WriteString("\n")
		if row < 2 {
			sb.WriteString("---+---+---\n")
		}
	}

	fmt.Fprint(that.out, sb.String())
}
