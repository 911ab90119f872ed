package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/liars-dice/internal/config"
	"github.com/DoyleJ11/liars-dice/internal/dice"
	"github.com/DoyleJ11/liars-dice/internal/engine"
	"github.com/DoyleJ11/liars-dice/internal/httpapi"
	"github.com/DoyleJ11/liars-dice/internal/hub"
	"github.com/DoyleJ11/liars-dice/internal/ledger"
	"github.com/DoyleJ11/liars-dice/internal/lobby"
	"github.com/DoyleJ11/liars-dice/internal/logging"
	"github.com/DoyleJ11/liars-dice/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.ParseServer(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Server, log *zap.Logger) error {
	seed := cfg.Seed
	if seed == 0 {
		var err error
		if seed, err = dice.NewSeed(); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	g, ctx := errgroup.WithContext(ctx)

	var recorder ledger.Recorder = ledger.Nop{}
	if cfg.LedgerDSN != "" {
		db, err := ledger.Open(cfg.LedgerDSN, log)
		if err != nil {
			return err
		}
		store := ledger.NewStore(db, log)
		recorder = store
		g.Go(func() error { return store.Run(ctx) })
	}

	lb := lobby.NewLobby(ctx, engine.NewEmptyState(engine.Rules{StrictRaise: cfg.StrictRaise}),
		lobby.WithTick(cfg.Tick),
		lobby.WithLogger(log),
		lobby.WithRoller(dice.NewRoller(seed)),
		lobby.WithRecorder(recorder),
		lobby.WithMetrics(m),
	)
	h := hub.NewHub(ctx, lb, log, cfg.OutboxSize)

	ln, err := net.Listen("tcp", cfg.TCPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.TCPAddr, err)
	}
	log.Info("listening",
		zap.String("tcp", ln.Addr().String()),
		zap.String("http", cfg.HTTPAddr),
		zap.Duration("tick", cfg.Tick),
		zap.Int64("seed", seed),
		zap.Bool("strict_raise", cfg.StrictRaise),
	)
	g.Go(func() error { return h.Serve(ln) })

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(h, lb, reg, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		lb.Send(context.Background(), lobby.Shutdown{})
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
