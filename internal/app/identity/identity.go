/*
Package identity turns connection credentials into verified user identities.

A connection presents either a session token or a bot API key. Tokens are
verified locally from their signature and expiry; API keys are compared
against the bcrypt hashes of every bot account.
*/
package identity

// Role is the coarse permission level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleBot   Role = "bot"
)

// Identity is the verified principal behind a connection.
// It is derived from the credential at connect time and never changes afterwards.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	IsBot    bool   `json:"is_bot"`
}

// Public is the projection of an identity that other users may see.
type Public struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Public returns the identity fields safe to broadcast.
func (i Identity) Public() Public {
	return Public{ID: i.ID, Username: i.Username}
}

// Credential is what a connecting client presents. At most one field is
// expected to be set; if both are, the token is checked first.
type Credential struct {
	Token  string
	APIKey string
}

// BotCredential is a bot account together with the stored hash of its API key.
type BotCredential struct {
	Identity
	KeyHash string
}
