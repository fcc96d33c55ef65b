package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "ringside"

// Claims is the payload of a ringside identity token.
type Claims struct {
	Admin bool `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator signs and verifies HMAC identity tokens. The subject claim is
// the player name.
type JWTValidator struct {
	secret []byte
	now    func() time.Time
}

// NewJWTValidator returns a validator using secret for HS256.
func NewJWTValidator(secret string) (*JWTValidator, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("token secret must be at least 16 bytes")
	}
	return &JWTValidator{secret: []byte(secret), now: time.Now}, nil
}

// Issue mints a token for player valid for ttl.
func (v *JWTValidator) Issue(player string, admin bool, ttl time.Duration) (string, error) {
	if player == "" {
		return "", fmt.Errorf("player name required")
	}
	now := v.now()
	claims := Claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   player,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Validate implements Validator. A non-empty claimed name must match the
// token subject.
func (v *JWTValidator) Validate(ctx context.Context, claimed, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claimed != "" && claimed != claims.Subject {
		return nil, fmt.Errorf("%w: token is for %q", ErrInvalidToken, claims.Subject)
	}
	return &Identity{Player: claims.Subject, Admin: claims.Admin}, nil
}
