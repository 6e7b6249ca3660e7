package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/rocketscienceinc/tictactoe-peer/internal/config"
	"github.com/rocketscienceinc/tictactoe-peer/internal/tictactoe"
	relay "github.com/rocketscienceinc/tictactoe-peer/internal/transport/websocket"
	"github.com/rocketscienceinc/tictactoe-peer/internal/usecase"
)

func main() {
	app := cli.NewApp()
	app.Name = "tictactoe"
	app.Usage = "play tic-tac-toe locally, against the computer or with a friend"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Value: "client.yml", Usage: "client config file, optional"},
		cli.StringFlag{Name: "mode", Usage: "start mode: " + modeNames},
		cli.StringFlag{Name: "relay-url", Usage: "relay websocket url"},
		cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	conf, err := config.LoadClient(c.String("config"))
	if err != nil {
		return err
	}

	applyFlags(c, conf)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLevel(conf.LogLevel)}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := newRenderer(os.Stdout)
	manager := usecase.NewGameManager(logger, relay.NewProvider(logger, conf.RelayURL), out, tictactoe.Options{
		ComputerDelay: conf.ComputerDelay,
		PlayerXName:   conf.PlayerXName,
		PlayerOName:   conf.PlayerOName,
	})

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		manager.Run(ctx)
	}()

	defer func() {
		cancel()
		<-stopped
	}()

	if err = manager.ChangeMode(ctx, conf.Mode); err != nil {
		return fmt.Errorf("failed to start in mode %q: %w", conf.Mode, err)
	}

	out.Println(helpText)

	// stdin blocks, so a signal must not wait for the next line
	done := make(chan error, 1)
	go func() {
		done <- (&repl{manager: manager, out: out}).Run(ctx, os.Stdin)
	}()

	select {
	case err = <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}

func applyFlags(c *cli.Context, conf *config.Client) {
	if mode := c.String("mode"); mode != "" {
		conf.Mode = mode
	}

	if url := c.String("relay-url"); url != "" {
		conf.RelayURL = url
	}

	if level := c.String("log-level"); level != "" {
		conf.LogLevel = level
	}
}
