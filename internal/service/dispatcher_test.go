package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTask = errors.New("task failed")

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	loop := NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go loop.Run(ctx)
	t.Cleanup(cancel)

	return loop
}

func TestDispatcher_Do(t *testing.T) {
	t.Run("Runs tasks in order and returns their result", func(t *testing.T) {
		// Given: a running loop
		loop := newTestDispatcher(t)
		ctx := context.Background()

		var order []int

		// When: tasks are posted and one is awaited
		loop.Post(func() { order = append(order, 1) })
		loop.Post(func() { order = append(order, 2) })
		err := loop.Do(ctx, func() error {
			order = append(order, 3)
			return errTask
		})

		// Then: the tasks ran in posting order
		require.ErrorIs(t, err, errTask)
		assert.Equal(t, []int{1, 2, 3}, order)
	})

	t.Run("Survives a panicking task", func(t *testing.T) {
		loop := newTestDispatcher(t)
		ctx := context.Background()

		loop.Post(func() { panic("boom") })
		err := loop.Do(ctx, func() error { return nil })

		require.NoError(t, err)
	})

	t.Run("Returns ErrDispatcherStopped after shutdown", func(t *testing.T) {
		// Given: a loop that was stopped
		ctx, cancel := context.WithCancel(context.Background())
		loop := NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
		stopped := make(chan struct{})
		go func() {
			loop.Run(ctx)
			close(stopped)
		}()
		cancel()
		<-stopped

		// When: a task is submitted
		err := loop.Do(context.Background(), func() error { return nil })

		// Then: it is refused
		require.ErrorIs(t, err, ErrDispatcherStopped)
	})
}

func TestTimerScheduler_Schedule(t *testing.T) {
	t.Run("Runs the task on the loop after the delay", func(t *testing.T) {
		loop := newTestDispatcher(t)
		scheduler := NewTimerScheduler(loop)
		fired := make(chan struct{})

		scheduler.Schedule(5*time.Millisecond, func() { close(fired) })

		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("scheduled task did not run")
		}
	})

	t.Run("Canceled task never runs", func(t *testing.T) {
		// Given: a task scheduled with a short delay
		loop := newTestDispatcher(t)
		scheduler := NewTimerScheduler(loop)
		ctx := context.Background()
		ran := false

		var cancel func()
		require.NoError(t, loop.Do(ctx, func() error {
			cancel = scheduler.Schedule(20*time.Millisecond, func() { ran = true })
			return nil
		}))

		// When: it is canceled from the loop before it fires
		require.NoError(t, loop.Do(ctx, func() error {
			cancel()
			return nil
		}))
		time.Sleep(50 * time.Millisecond)

		// Then: it did not run
		var got bool
		require.NoError(t, loop.Do(ctx, func() error {
			got = ran
			return nil
		}))
		assert.False(t, got)
	})
}
