package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTValidatorRoundTrip(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	token, err := v.Issue("alice", false, time.Hour)
	require.NoError(t, err)

	id, err := v.Validate(context.Background(), "alice", token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Player)
	assert.False(t, id.Admin)

	id, err = v.Validate(context.Background(), "", token)
	require.NoError(t, err, "an empty claim takes the subject")
	assert.Equal(t, "alice", id.Player)
}

func TestJWTValidatorRejects(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	t.Run("claim mismatch", func(t *testing.T) {
		token, err := v.Issue("alice", false, time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(context.Background(), "mallory", token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		issued := time.Now().Add(-2 * time.Hour)
		v.now = func() time.Time { return issued }
		token, err := v.Issue("alice", false, time.Hour)
		v.now = time.Now
		require.NoError(t, err)
		_, err = v.Validate(context.Background(), "alice", token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewJWTValidator("ffffffffffffffffffffffffffffffff")
		require.NoError(t, err)
		token, err := other.Issue("alice", true, time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(context.Background(), "alice", token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Validate(context.Background(), "alice", "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
		_, err = v.Validate(context.Background(), "alice", "")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestJWTValidatorAdminClaim(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	token, err := v.Issue("referee", true, time.Minute)
	require.NoError(t, err)
	id, err := v.Validate(context.Background(), "referee", token)
	require.NoError(t, err)
	assert.True(t, id.Admin)

	_, err = NewJWTValidator("short")
	assert.Error(t, err)
}
