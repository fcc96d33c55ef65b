package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/lox/ringside/internal/auth"
)

// TokenCmd prints a signed token for a player
type TokenCmd struct {
	Player string        `arg:"" help:"Player the token identifies"`
	Admin  bool          `help:"Grant access to the admin endpoints"`
	TTL    time.Duration `default:"24h" help:"Token lifetime"`
	Secret string        `env:"RINGSIDE_TOKEN_SECRET" help:"HMAC secret (defaults to server.token_secret from the config)"`
}

func (c *TokenCmd) issue(g *Globals) (string, error) {
	secret := c.Secret
	if secret == "" {
		cfg, err := g.load()
		if err != nil {
			return "", err
		}
		secret = cfg.TokenSecret
	}
	if secret == "" {
		return "", errors.New("no token secret: set --secret, RINGSIDE_TOKEN_SECRET or server.token_secret")
	}

	v, err := auth.NewJWTValidator(secret)
	if err != nil {
		return "", err
	}
	return v.Issue(c.Player, c.Admin, c.TTL)
}

func (c *TokenCmd) Run(g *Globals) error {
	token, err := c.issue(g)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
