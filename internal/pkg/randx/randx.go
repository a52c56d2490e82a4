/*
Package randx generates and validates opaque identifiers.

Connection ids are UUID v4 strings. Channel and thread ids come from the
persistence layer and are only checked for syntactic validity here.
*/
package randx

import (
	"github.com/google/uuid"
)

// MaxIDLength bounds the length of an externally supplied channel or thread id.
const MaxIDLength = 64

// ConnectionID returns a fresh identifier for one transport connection.
func ConnectionID() string {
	return uuid.New().String()
}

// IsValidID reports whether id is a non-empty token of at most MaxIDLength
// characters drawn from [A-Za-z0-9_-]. UUIDs always qualify.
// The id is not checked for existence.
func IsValidID(id string) bool {
	if id == "" || len(id) > MaxIDLength {
		return false
	}

	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '-' || c == '_':
		default:
			return false
		}
	}

	return true
}
