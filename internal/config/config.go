// Package config loads ringside.hcl.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/ringside/internal/combat"
	"github.com/lox/ringside/internal/session"
)

// File mirrors the HCL document.
type File struct {
	Server      *ServerBlock `hcl:"server,block"`
	Match       *MatchBlock  `hcl:"match,block"`
	PlayerMoves []MoveBlock  `hcl:"player_move,block"`
	BotMoves    []MoveBlock  `hcl:"bot_move,block"`
}

// ServerBlock contains transport-level settings
type ServerBlock struct {
	Address     string `hcl:"address,optional"`
	LogLevel    string `hcl:"log_level,optional"`
	Admin       string `hcl:"admin,optional"`
	TokenSecret string `hcl:"token_secret,optional"`
	AuthURL     string `hcl:"auth_url,optional"`
}

// MatchBlock contains match rules
type MatchBlock struct {
	MaxHP       int    `hcl:"max_hp,optional"`
	Cooldown    string `hcl:"cooldown,optional"`
	IdleTimeout string `hcl:"idle_timeout,optional"`
	Seed        *int64 `hcl:"seed,optional"`
}

// MoveBlock overrides one row of a move table
type MoveBlock struct {
	Move   string  `hcl:"move,label"`
	Label  string  `hcl:"label,optional"`
	Chance float64 `hcl:"chance"`
	Min    int     `hcl:"min"`
	Max    int     `hcl:"max"`
}

// Config is the resolved configuration.
type Config struct {
	Address     string
	LogLevel    string
	Admin       string
	TokenSecret string
	AuthURL     string

	MaxHP       int
	Cooldown    time.Duration
	IdleTimeout time.Duration
	Seed        *int64

	PlayerTable combat.Table
	BotTable    combat.Table
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Address:     ":8080",
		LogLevel:    "info",
		MaxHP:       session.DefaultMaxHP,
		Cooldown:    combat.DefaultCooldown,
		IdleTimeout: session.DefaultIdleTimeout,
		PlayerTable: combat.DefaultPlayerTable(),
		BotTable:    combat.DefaultBotTable(),
	}
}

// Load reads filename. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var doc File
	diags = gohcl.DecodeBody(file.Body, nil, &doc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	return doc.Resolve()
}

// Resolve applies the document on top of the defaults.
func (f *File) Resolve() (*Config, error) {
	cfg := Default()

	if s := f.Server; s != nil {
		if s.Address != "" {
			cfg.Address = s.Address
		}
		if s.LogLevel != "" {
			cfg.LogLevel = s.LogLevel
		}
		cfg.Admin = s.Admin
		cfg.TokenSecret = s.TokenSecret
		cfg.AuthURL = s.AuthURL
	}

	if m := f.Match; m != nil {
		if m.MaxHP != 0 {
			cfg.MaxHP = m.MaxHP
		}
		if m.Cooldown != "" {
			d, err := time.ParseDuration(m.Cooldown)
			if err != nil {
				return nil, fmt.Errorf("match.cooldown: %w", err)
			}
			cfg.Cooldown = d
		}
		if m.IdleTimeout != "" {
			d, err := time.ParseDuration(m.IdleTimeout)
			if err != nil {
				return nil, fmt.Errorf("match.idle_timeout: %w", err)
			}
			cfg.IdleTimeout = d
		}
		cfg.Seed = m.Seed
	}

	var err error
	if cfg.PlayerTable, err = overlay(cfg.PlayerTable, f.PlayerMoves); err != nil {
		return nil, fmt.Errorf("player_move: %w", err)
	}
	if cfg.BotTable, err = overlay(cfg.BotTable, f.BotMoves); err != nil {
		return nil, fmt.Errorf("bot_move: %w", err)
	}
	return cfg, nil
}

// overlay replaces rows of base by move name and appends new ones.
func overlay(base combat.Table, blocks []MoveBlock) (combat.Table, error) {
	out := append(combat.Table(nil), base...)
	for _, b := range blocks {
		m := combat.Move(b.Move)
		if !m.IsValid() {
			return nil, fmt.Errorf("unknown move %q", b.Move)
		}
		row := combat.Stats{Move: m, Label: b.Label, Chance: b.Chance, Min: b.Min, Max: b.Max}
		if row.Label == "" {
			row.Label = m.String()
		}

		replaced := false
		for i := range out {
			if out[i].Move == m {
				out[i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, row)
		}
	}
	return out, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("server address required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	if c.MaxHP <= 0 {
		return fmt.Errorf("max_hp must be positive")
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive")
	}
	if err := c.PlayerTable.Validate(); err != nil {
		return fmt.Errorf("player moves: %w", err)
	}
	if err := c.BotTable.Validate(); err != nil {
		return fmt.Errorf("bot moves: %w", err)
	}
	if _, ok := c.BotTable.Lookup(combat.Special); ok {
		return fmt.Errorf("bot moves: %s is player-only", combat.Special)
	}
	if c.TokenSecret != "" && c.AuthURL != "" {
		return fmt.Errorf("token_secret and auth_url are mutually exclusive")
	}
	return nil
}
