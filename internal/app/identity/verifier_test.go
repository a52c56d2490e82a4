package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"clawchat/internal/pkg/auth/jwt"
	"clawchat/internal/pkg/errs"
)

const secret = "verifier-secret"

type fakeBots struct {
	bots  []BotCredential
	err   error
	calls int
}

func (f *fakeBots) FindBotIdentitiesWithKeyHashes(context.Context) ([]BotCredential, error) {
	f.calls++
	return f.bots, f.err
}

func hashKey(t *testing.T, key string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func signToken(t *testing.T, p *jwt.Payload, ttl time.Duration) string {
	t.Helper()
	token, err := jwt.GenerateToken(p, secret, ttl)
	require.NoError(t, err)
	return token
}

func TestVerifier_Authenticate(t *testing.T) {
	ctx := context.Background()
	bots := &fakeBots{bots: []BotCredential{
		{Identity: Identity{ID: "b0", Username: "nokey", Role: RoleBot}},
		{Identity: Identity{ID: "b1", Username: "openclaw", Role: RoleBot}, KeyHash: hashKey(t, "other-key")},
		{Identity: Identity{ID: "b2", Username: "niels"}, KeyHash: hashKey(t, "niels-key")},
	}}
	v := NewVerifier(secret, bots)

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, &jwt.Payload{ID: "u1", Username: "alice", Role: "admin"}, time.Hour)

		id, err := v.Authenticate(ctx, Credential{Token: token})
		require.NoError(t, err)
		require.Equal(t, Identity{ID: "u1", Username: "alice", Role: RoleAdmin}, id)
	})

	t.Run("token without role defaults to user", func(t *testing.T) {
		token := signToken(t, &jwt.Payload{ID: "u2", Username: "bob"}, time.Hour)

		id, err := v.Authenticate(ctx, Credential{Token: token})
		require.NoError(t, err)
		require.Equal(t, RoleUser, id.Role)
	})

	t.Run("expired token is InvalidToken", func(t *testing.T) {
		token := signToken(t, &jwt.Payload{ID: "u1"}, -time.Minute)

		_, err := v.Authenticate(ctx, Credential{Token: token})
		require.True(t, errs.HasCode(err, errs.ErrInvalidToken))
	})

	t.Run("token is checked first", func(t *testing.T) {
		calls := bots.calls

		_, err := v.Authenticate(ctx, Credential{Token: "broken", APIKey: "niels-key"})
		require.True(t, errs.HasCode(err, errs.ErrInvalidToken))
		require.Equal(t, calls, bots.calls)
	})

	t.Run("valid api key yields a bot identity", func(t *testing.T) {
		id, err := v.Authenticate(ctx, Credential{APIKey: "niels-key"})
		require.NoError(t, err)
		require.Equal(t, "b2", id.ID)
		require.True(t, id.IsBot)
		require.Equal(t, RoleBot, id.Role)
	})

	t.Run("unknown api key", func(t *testing.T) {
		_, err := v.Authenticate(ctx, Credential{APIKey: "nope"})
		require.True(t, errs.HasCode(err, errs.ErrInvalidAPIKey))
	})

	t.Run("no credential", func(t *testing.T) {
		_, err := v.Authenticate(ctx, Credential{})
		require.True(t, errs.HasCode(err, errs.ErrNoCredential))
	})
}

func TestVerifier_BackendFailure(t *testing.T) {
	boom := errors.New("connection refused")
	v := NewVerifier(secret, &fakeBots{err: boom})

	_, err := v.VerifyAPIKey(context.Background(), "some-key")
	require.True(t, errs.HasCode(err, errs.ErrAuthBackend))
	require.ErrorIs(t, err, boom)
}

func TestVerifier_NilDirectory(t *testing.T) {
	v := NewVerifier(secret, nil)

	_, err := v.VerifyAPIKey(context.Background(), "some-key")
	require.True(t, errs.HasCode(err, errs.ErrAuthBackend))
}
