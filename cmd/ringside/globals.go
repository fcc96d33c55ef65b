package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/ringside/internal/combat"
	"github.com/lox/ringside/internal/config"
	"github.com/lox/ringside/internal/randutil"
	"github.com/lox/ringside/internal/session"
)

// Globals are flags shared by every command.
type Globals struct {
	Config   string `short:"c" default:"ringside.hcl" env:"RINGSIDE_CONFIG" help:"Path to HCL configuration file"`
	LogLevel string `short:"l" env:"RINGSIDE_LOG_LEVEL" help:"Log level (overrides config)"`
}

// MatchFlags override the match block of the config file.
type MatchFlags struct {
	MaxHP       int           `name:"max-hp" env:"RINGSIDE_MAX_HP" help:"Starting health (overrides config)"`
	Cooldown    time.Duration `env:"RINGSIDE_COOLDOWN" help:"Special move cooldown (overrides config)"`
	IdleTimeout time.Duration `env:"RINGSIDE_IDLE_TIMEOUT" help:"Close matches idle this long (overrides config)"`
	Seed        *int64        `env:"RINGSIDE_SEED" help:"Deterministic RNG seed (optional)"`
}

func (f MatchFlags) apply(cfg *config.Config) {
	if f.MaxHP != 0 {
		cfg.MaxHP = f.MaxHP
	}
	if f.Cooldown != 0 {
		cfg.Cooldown = f.Cooldown
	}
	if f.IdleTimeout != 0 {
		cfg.IdleTimeout = f.IdleTimeout
	}
	if f.Seed != nil {
		cfg.Seed = f.Seed
	}
}

// load reads the config file and applies the global overrides. Callers
// apply their own flags and then validate.
func (g *Globals) load() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{ReportTimestamp: true})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// setupSignalHandler creates a context that is cancelled on interrupt signals
func setupSignalHandler(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received signal, shutting down gracefully", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

type stack struct {
	ctrl   *session.Controller
	reaper *session.Reaper
}

// buildStack wires the session core from cfg. onExpire receives matches the
// reaper closes.
func buildStack(cfg *config.Config, clock quartz.Clock, logger *log.Logger, onExpire session.ExpireFunc) (*stack, error) {
	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
		logger.Info("Using deterministic seed", "seed", seed)
	}

	resolver, err := combat.NewResolver(cfg.PlayerTable, cfg.BotTable, cfg.Cooldown, randutil.NewLocked(seed))
	if err != nil {
		return nil, err
	}

	registry := session.NewRegistry()
	reaper := session.NewReaper(registry, clock, cfg.IdleTimeout, logger, onExpire)
	ctrl := session.NewController(registry, resolver, logger,
		session.WithActivityTracker(reaper),
		session.WithMaxHP(cfg.MaxHP))

	return &stack{ctrl: ctrl, reaper: reaper}, nil
}
