package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims carried by a ClawChat session token.
// The token is issued by the REST login flow; the realtime server only verifies it.
type Payload struct {
	// StandardClaims embeds exp, iat and iss, which drive expiry validation.
	jwt.StandardClaims

	// ID is the user id the token was issued to.
	ID string `json:"id"`

	// Username is the display handle of the user at issuance time.
	Username string `json:"username"`

	// Role is one of "user", "admin" or "bot".
	Role string `json:"role"`

	// IsBot marks tokens issued to bot accounts.
	IsBot bool `json:"is_bot"`
}

// Valid runs the standard time-based checks and requires a subject id.
func (p *Payload) Valid() error {
	if err := p.StandardClaims.Valid(); err != nil {
		return err
	}
	if p.ID == "" {
		return jwt.NewValidationError("token has no user id", jwt.ValidationErrorClaimsInvalid)
	}
	return nil
}
