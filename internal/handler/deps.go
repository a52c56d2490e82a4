package handler

import (
	"context"

	"clawchat/internal/app/identity"
	"clawchat/internal/app/realtime"
	"clawchat/internal/configs"
)

// Authenticator resolves connection credentials. *identity.Verifier implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, cred identity.Credential) (identity.Identity, error)
}

// EventPublisher accepts committed write-path events. *realtime.Broadcaster implements it.
type EventPublisher interface {
	Publish(ctx context.Context, evt realtime.DomainEvent) error
}

// Pinger reports database reachability. *pgxpool.Pool implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type AppDeps struct {
	Hub         *realtime.Hub
	Broadcaster EventPublisher
	Auth        Authenticator
	Config      *configs.AppConfig

	// DB is optional; when set, /health reports its status.
	DB Pinger
}
