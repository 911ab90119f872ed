package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/liars-dice/internal/client"
	"github.com/DoyleJ11/liars-dice/internal/config"
	"github.com/DoyleJ11/liars-dice/internal/logging"
	"github.com/DoyleJ11/liars-dice/internal/projector"
	"github.com/DoyleJ11/liars-dice/internal/tui"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.ParseClient(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := logging.NewFile(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("client stopped", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Client, log *zap.Logger) error {
	conn, err := net.DialTimeout("tcp", cfg.ServerAddr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.ServerAddr, err)
	}

	term, err := tui.Open()
	if err != nil {
		conn.Close()
		return err
	}
	defer term.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-term.Quit():
			cancel()
		case <-ctx.Done():
		}
	}()

	proj, join := projector.New(cfg.Name, projector.WithStrictRaise(cfg.StrictRaise))
	err = client.New(conn, proj, join, term, cfg.Frame, log).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
