package identity

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"clawchat/internal/pkg/auth/jwt"
	"clawchat/internal/pkg/errs"
	"clawchat/internal/pkg/logx"
)

// BotDirectory lists bot accounts with their API key hashes.
type BotDirectory interface {
	FindBotIdentitiesWithKeyHashes(ctx context.Context) ([]BotCredential, error)
}

// Verifier checks session tokens and bot API keys.
type Verifier struct {
	jwtSecret string
	bots      BotDirectory
}

// NewVerifier builds a Verifier that validates HS256 tokens signed with
// jwtSecret and looks bot keys up in bots.
func NewVerifier(jwtSecret string, bots BotDirectory) *Verifier {
	return &Verifier{jwtSecret: jwtSecret, bots: bots}
}

// Authenticate resolves a credential to an identity. The token is tried
// first; an API key is only consulted when no token was presented.
func (v *Verifier) Authenticate(ctx context.Context, cred Credential) (Identity, error) {
	switch {
	case cred.Token != "":
		return v.VerifySessionToken(cred.Token)
	case cred.APIKey != "":
		return v.VerifyAPIKey(ctx, cred.APIKey)
	default:
		return Identity{}, errs.NewError(errs.ErrNoCredential)
	}
}

// VerifySessionToken validates signature and expiry and returns the identity in the claims.
func (v *Verifier) VerifySessionToken(token string) (Identity, error) {
	if token == "" {
		return Identity{}, errs.NewError(errs.ErrNoCredential)
	}

	claims, err := jwt.ParseToken(token, v.jwtSecret)
	if err != nil {
		return Identity{}, errs.Wrap(errs.ErrInvalidToken, err)
	}

	role := Role(claims.Role)
	if role == "" {
		role = RoleUser
	}

	return Identity{
		ID:       claims.ID,
		Username: claims.Username,
		Role:     role,
		IsBot:    claims.IsBot,
	}, nil
}

// VerifyAPIKey compares key against every stored bot key hash.
// Bot accounts are few, so a linear scan is acceptable.
func (v *Verifier) VerifyAPIKey(ctx context.Context, key string) (Identity, error) {
	if key == "" {
		return Identity{}, errs.NewError(errs.ErrNoCredential)
	}
	if v.bots == nil {
		return Identity{}, errs.Wrap(errs.ErrAuthBackend, errors.New("no bot directory configured"))
	}

	bots, err := v.bots.FindBotIdentitiesWithKeyHashes(ctx)
	if err != nil {
		logx.Error(err, "Bot credential lookup failed")
		return Identity{}, errs.Wrap(errs.ErrAuthBackend, err)
	}

	for _, bot := range bots {
		if bot.KeyHash == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Identity{}, errs.Wrap(errs.ErrAuthBackend, err)
		}
		if bcrypt.CompareHashAndPassword([]byte(bot.KeyHash), []byte(key)) == nil {
			found := bot.Identity
			found.IsBot = true
			if found.Role == "" {
				found.Role = RoleBot
			}
			return found, nil
		}
	}

	return Identity{}, errs.NewError(errs.ErrInvalidAPIKey)
}
