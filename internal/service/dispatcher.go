package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var ErrDispatcherStopped = errors.New("dispatcher is stopped")

const dispatchQueueSize = 64

// Dispatcher runs posted tasks one at a time on a single goroutine. Game
// state is only touched from inside tasks, so it needs no locking.
type Dispatcher struct {
	logger *slog.Logger
	tasks  chan func()
	done   chan struct{}
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger.With("component", "dispatcher"),
		tasks:  make(chan func(), dispatchQueueSize),
		done:   make(chan struct{}),
	}
}

// Run processes tasks until ctx is canceled.
func (that *Dispatcher) Run(ctx context.Context) {
	defer close(that.done)

	for {
		select {
		case <-ctx.Done():
			that.logger.Debug("dispatcher stopped", "reason", ctx.Err())
			return
		case task := <-that.tasks:
			that.run(task)
		}
	}
}

// Post queues a task. It drops the task if the loop has stopped.
func (that *Dispatcher) Post(task func()) {
	select {
	case that.tasks <- task:
	case <-that.done:
		that.logger.Debug("task dropped, dispatcher is stopped")
	}
}

// Do runs task on the loop and waits for its result.
func (that *Dispatcher) Do(ctx context.Context, task func() error) error {
	result := make(chan error, 1)

	select {
	case that.tasks <- func() { result <- task() }:
	case <-that.done:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return fmt.Errorf("failed to queue task: %w", ctx.Err())
	}

	select {
	case err := <-result:
		return err
	case <-that.done:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for task: %w", ctx.Err())
	}
}

func (that *Dispatcher) run(task func()) {
	defer func() {
		if err := recover(); err != nil {
			that.logger.Error("recovered from panic in task", "error", err)
		}
	}()

	task()
}
