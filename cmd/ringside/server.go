package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/ringside/internal/auth"
	"github.com/lox/ringside/internal/config"
	"github.com/lox/ringside/internal/server"
	"github.com/lox/ringside/internal/session"
)

// ServerCmd runs the WebSocket server
type ServerCmd struct {
	MatchFlags

	Addr        string `short:"a" env:"RINGSIDE_ADDR" help:"Server address (overrides config)"`
	Admin       string `env:"RINGSIDE_ADMIN" help:"Player allowed to use the admin endpoints (overrides config)"`
	TokenSecret string `env:"RINGSIDE_TOKEN_SECRET" help:"HMAC secret for signed player tokens (overrides config)"`
	AuthURL     string `name:"auth-url" env:"RINGSIDE_AUTH_URL" help:"External token validation endpoint (overrides config)"`
	AuthSecret  string `env:"RINGSIDE_AUTH_SECRET" help:"Shared secret sent to the validation endpoint"`
}

func (c *ServerCmd) resolve(g *Globals) (*config.Config, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	c.apply(cfg)
	if c.Addr != "" {
		cfg.Address = c.Addr
	}
	if c.Admin != "" {
		cfg.Admin = c.Admin
	}
	if c.TokenSecret != "" {
		cfg.TokenSecret = c.TokenSecret
	}
	if c.AuthURL != "" {
		cfg.AuthURL = c.AuthURL
	}
	return cfg, cfg.Validate()
}

func (c *ServerCmd) validator(cfg *config.Config, logger *log.Logger) (auth.Validator, error) {
	switch {
	case cfg.TokenSecret != "":
		v, err := auth.NewJWTValidator(cfg.TokenSecret)
		if err != nil {
			return nil, err
		}
		return v, nil
	case cfg.AuthURL != "":
		return auth.NewHTTPValidator(cfg.AuthURL, c.AuthSecret), nil
	default:
		logger.Warn("No token secret or auth URL configured, accepting any player name")
		return auth.NewNoopValidator(), nil
	}
}

func (c *ServerCmd) Run(g *Globals) error {
	cfg, err := c.resolve(g)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.LogLevel)

	validator, err := c.validator(cfg, logger)
	if err != nil {
		return err
	}

	clock := quartz.NewReal()
	// srv is assigned below; no timer is armed before the first match starts,
	// and matches start only once srv is serving.
	var srv *server.Server
	st, err := buildStack(cfg, clock, logger, func(owner string, v session.View) {
		srv.NotifyExpired(owner, v)
	})
	if err != nil {
		return err
	}
	defer st.reaper.Stop()

	srv = server.NewServer(st.ctrl, logger,
		server.WithValidator(validator),
		server.WithClock(clock),
		server.WithAdmin(cfg.Admin))

	logger.Info("Starting ringside server",
		"address", cfg.Address,
		"max_hp", cfg.MaxHP,
		"cooldown", cfg.Cooldown,
		"idle_timeout", cfg.IdleTimeout)

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()
	return srv.Serve(ctx, cfg.Address)
}
