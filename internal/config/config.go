// Package config reads settings from the environment, an optional .env
// file, and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Server holds server command configuration.
type Server struct {
	TCPAddr     string        `env:"LIARS_TCP_ADDR" envDefault:":7777"`
	HTTPAddr    string        `env:"LIARS_HTTP_ADDR" envDefault:":8080"`
	Tick        time.Duration `env:"LIARS_TICK" envDefault:"1s"`
	Seed        int64         `env:"LIARS_SEED"` // 0 draws a fresh seed
	StrictRaise bool          `env:"LIARS_STRICT_RAISE" envDefault:"true"`
	LedgerDSN   string        `env:"LIARS_LEDGER_DSN"` // empty disables the ledger
	LogLevel    string        `env:"LIARS_LOG_LEVEL" envDefault:"info"`
	OutboxSize  int           `env:"LIARS_OUTBOX_SIZE" envDefault:"16"`
}

// Client holds client command configuration.
type Client struct {
	ServerAddr  string        `env:"LIARS_SERVER_ADDR" envDefault:"localhost:7777"`
	Name        string        `env:"LIARS_NAME"`
	Frame       time.Duration `env:"LIARS_FRAME" envDefault:"50ms"`
	StrictRaise bool          `env:"LIARS_STRICT_RAISE" envDefault:"true"`
	LogFile     string        `env:"LIARS_LOG_FILE"`
	LogLevel    string        `env:"LIARS_LOG_LEVEL" envDefault:"info"`
}

// ParseServer parses environment and flags into Server.
func ParseServer(fset *flag.FlagSet, args []string) (Server, error) {
	var cfg Server
	if err := parseEnv(&cfg); err != nil {
		return Server{}, err
	}
	fset.StringVar(&cfg.TCPAddr, "tcp", cfg.TCPAddr, "TCP listen address")
	fset.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP listen address (websocket, status, metrics)")
	fset.DurationVar(&cfg.Tick, "tick", cfg.Tick, "tick period")
	fset.Int64Var(&cfg.Seed, "seed", cfg.Seed, "dice seed (0 = random)")
	fset.BoolVar(&cfg.StrictRaise, "strict-raise", cfg.StrictRaise, "every claim must raise the previous one")
	fset.StringVar(&cfg.LedgerDSN, "ledger-dsn", cfg.LedgerDSN, "postgres DSN for the round ledger")
	fset.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fset.IntVar(&cfg.OutboxSize, "outbox", cfg.OutboxSize, "per-connection outbox size")
	if err := fset.Parse(args); err != nil {
		return Server{}, err
	}
	if cfg.Tick <= 0 {
		return Server{}, fmt.Errorf("tick must be positive, got %s", cfg.Tick)
	}
	if cfg.OutboxSize <= 0 {
		return Server{}, fmt.Errorf("outbox size must be positive, got %d", cfg.OutboxSize)
	}
	return cfg, nil
}

// ParseClient parses environment and flags into Client.
func ParseClient(fset *flag.FlagSet, args []string) (Client, error) {
	var cfg Client
	if err := parseEnv(&cfg); err != nil {
		return Client{}, err
	}
	fset.StringVar(&cfg.ServerAddr, "addr", cfg.ServerAddr, "server TCP address")
	fset.StringVar(&cfg.Name, "name", cfg.Name, "player name")
	fset.DurationVar(&cfg.Frame, "frame", cfg.Frame, "frame period")
	fset.BoolVar(&cfg.StrictRaise, "strict-raise", cfg.StrictRaise, "only offer claims that raise the previous one")
	fset.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file (empty disables logging)")
	fset.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	if err := fset.Parse(args); err != nil {
		return Client{}, err
	}
	if cfg.Name == "" {
		return Client{}, errors.New("a player name is required (-name or LIARS_NAME)")
	}
	if cfg.Frame <= 0 {
		return Client{}, fmt.Errorf("frame must be positive, got %s", cfg.Frame)
	}
	return cfg, nil
}

func parseEnv(target any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
