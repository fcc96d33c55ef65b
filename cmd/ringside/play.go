package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/ringside/internal/client"
	"github.com/lox/ringside/internal/session"
	"github.com/lox/ringside/internal/tui"
)

// PlayerFlags identify the local player and where logs go while the
// terminal is taken over.
type PlayerFlags struct {
	Name    string `short:"n" env:"RINGSIDE_PLAYER" help:"Player name (defaults to $USER)"`
	LogFile string `env:"RINGSIDE_LOG_FILE" help:"Write logs to this file while playing"`
}

func (f PlayerFlags) player() string {
	if f.Name != "" {
		return f.Name
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "Player"
}

// logger returns a file logger, or a discarding one when no file is set.
// The returned close func is always safe to call.
func (f PlayerFlags) logger(level string) (*log.Logger, func(), error) {
	if f.LogFile == "" {
		return newLogger(io.Discard, level), func() {}, nil
	}
	file, err := os.OpenFile(f.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return newLogger(file, level), func() { _ = file.Close() }, nil
}

func runProgram(ctx context.Context, m *tui.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// PlayCmd connects the terminal client to a server
type PlayCmd struct {
	PlayerFlags

	Server string        `short:"s" default:"http://localhost:8080" env:"RINGSIDE_SERVER" help:"Server URL"`
	Token  string        `env:"RINGSIDE_TOKEN" help:"Signed player token"`
	Wait   time.Duration `default:"0s" help:"Wait up to this long for the server to become healthy"`
}

func (c *PlayCmd) Run(g *Globals) error {
	level := g.LogLevel
	if level == "" {
		level = "info"
	}
	logger, closeLog, err := c.logger(level)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	if c.Wait > 0 {
		waitCtx, waitCancel := context.WithTimeout(ctx, c.Wait)
		err := client.WaitForServer(waitCtx, c.Server)
		waitCancel()
		if err != nil {
			return fmt.Errorf("server not healthy: %w", err)
		}
	}

	conn := client.New(c.Server, logger)
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Auth(c.player(), c.Token); err != nil {
		return err
	}
	return runProgram(ctx, tui.New(tui.NewRemoteDriver(conn), logger))
}

// LocalCmd plays against an in-process match engine
type LocalCmd struct {
	PlayerFlags
	MatchFlags
}

func (c *LocalCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := c.logger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	clock := quartz.NewReal()
	// driver is assigned below, before the program can start a match.
	var driver *tui.LocalDriver
	st, err := buildStack(cfg, clock, logger, func(owner string, v session.View) {
		driver.Expired(owner, v)
	})
	if err != nil {
		return err
	}
	defer st.reaper.Stop()
	driver = tui.NewLocalDriver(st.ctrl, c.player(), clock)

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()
	return runProgram(ctx, tui.New(driver, logger))
}
