package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"clawchat/internal/app/identity"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store runs the realtime core's queries.
type Store struct {
	db DBTX
}

// NewStore returns a Store backed by db.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

const touchLastSeen = `UPDATE users SET last_seen = NOW() WHERE id = $1`

// TouchLastSeen stamps the user's last_seen column. An unknown user is not an error.
func (s *Store) TouchLastSeen(ctx context.Context, userID string) error {
	if _, err := s.db.Exec(ctx, touchLastSeen, userID); err != nil {
		if IsInvalidText(err) {
			return nil
		}
		return fmt.Errorf("touch last seen: %w", err)
	}
	return nil
}

const findBotCredentials = `
SELECT id::text, username, COALESCE(role, 'bot'), api_key
FROM users
WHERE is_bot = true AND api_key IS NOT NULL`

// FindBotIdentitiesWithKeyHashes lists every bot account that has an API key.
func (s *Store) FindBotIdentitiesWithKeyHashes(ctx context.Context) ([]identity.BotCredential, error) {
	rows, err := s.db.Query(ctx, findBotCredentials)
	if err != nil {
		return nil, fmt.Errorf("query bot credentials: %w", err)
	}
	defer rows.Close()

	var bots []identity.BotCredential
	for rows.Next() {
		var (
			bot  identity.BotCredential
			role string
		)
		if err := rows.Scan(&bot.ID, &bot.Username, &role, &bot.KeyHash); err != nil {
			return nil, fmt.Errorf("scan bot credential: %w", err)
		}
		bot.Role = identity.Role(role)
		bot.IsBot = true
		bots = append(bots, bot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bot credentials: %w", err)
	}

	return bots, nil
}

const messageChannel = `SELECT channel_id::text FROM messages WHERE id = $1`

// MessageChannel returns the channel a message was posted to, or ErrNotFound.
func (s *Store) MessageChannel(ctx context.Context, messageID string) (string, error) {
	var channelID string
	err := s.db.QueryRow(ctx, messageChannel, messageID).Scan(&channelID)
	switch {
	case err == nil:
		return channelID, nil
	case errors.Is(err, pgx.ErrNoRows), IsInvalidText(err):
		return "", fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	default:
		return "", fmt.Errorf("lookup message channel: %w", err)
	}
}

const isChannelMember = `
SELECT EXISTS (
    SELECT 1 FROM channel_members WHERE channel_id = $1 AND user_id = $2
)`

// IsChannelMember reports whether the user belongs to the channel.
func (s *Store) IsChannelMember(ctx context.Context, channelID, userID string) (bool, error) {
	var member bool
	if err := s.db.QueryRow(ctx, isChannelMember, channelID, userID).Scan(&member); err != nil {
		if IsInvalidText(err) {
			return false, nil
		}
		return false, fmt.Errorf("check channel membership: %w", err)
	}
	return member, nil
}
