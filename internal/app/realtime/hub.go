/*
Package realtime coordinates connected clients: who is online, which rooms
each connection listens to, and how committed domain events reach them.

The Hub owns the presence tracker and the room router and drives every
connection through its lifecycle. The Broadcaster maps write-path actions to
rooms. Client adapts a websocket connection to a Session.
*/
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clawchat/internal/app/identity"
	"clawchat/internal/pkg/errs"
	"clawchat/internal/pkg/logx"
)

const (
	// DefaultSendQueueSize bounds each session's outbound queue.
	DefaultSendQueueSize = 256

	// DefaultLastSeenTimeout bounds a single last-seen update.
	DefaultLastSeenTimeout = 5 * time.Second
)

// LastSeenToucher records the time a user was last connected.
type LastSeenToucher interface {
	TouchLastSeen(ctx context.Context, userID string) error
}

// Options tune a Hub. Zero values select the defaults.
type Options struct {
	SendQueueSize   int
	LastSeenTimeout time.Duration
	Authorizer      RoomAuthorizer
}

// Hub is the registry of live sessions.
type Hub struct {
	presence   *Presence
	router     *Router
	authorizer RoomAuthorizer
	lastSeen   LastSeenToucher

	queueSize       int
	lastSeenTimeout time.Duration

	// mu orders Connect against Shutdown.
	mu     sync.RWMutex
	closed bool

	// tasks tracks detached side effects so Shutdown can wait for them.
	tasks sync.WaitGroup

	logger zerolog.Logger
}

// NewHub builds a Hub. lastSeen may be nil, in which case no last-seen
// updates are made.
func NewHub(lastSeen LastSeenToucher, opts Options) *Hub {
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = DefaultSendQueueSize
	}
	if opts.LastSeenTimeout <= 0 {
		opts.LastSeenTimeout = DefaultLastSeenTimeout
	}
	if opts.Authorizer == nil {
		opts.Authorizer = AllowAll
	}

	return &Hub{
		presence:        NewPresence(),
		router:          NewRouter(),
		authorizer:      opts.Authorizer,
		lastSeen:        lastSeen,
		queueSize:       opts.SendQueueSize,
		lastSeenTimeout: opts.LastSeenTimeout,
		logger:          logx.Component("hub"),
	}
}

func (h *Hub) Presence() *Presence { return h.presence }
func (h *Hub) Router() *Router     { return h.router }

// ConnectionCount returns the number of live sessions.
func (h *Hub) ConnectionCount() int {
	return h.router.ConnectionCount()
}

// Connect creates an authenticated session for who. The first connection of
// a user announces them to everyone else; every new session receives the
// current list of online users.
func (h *Hub) Connect(who identity.Identity) (*Session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil, errs.NewError(errs.ErrSessionClosed)
	}

	s := newSession(h, who, h.queueSize)
	s.setState(StateAuthenticated)

	// The snapshot is queued before the session becomes reachable, and no
	// presence transition can interleave, so every later user_online or
	// user_offline the client sees applies on top of it.
	h.presence.registerWithSnapshot(who.ID, s.id, func(first bool, online []string) {
		if err := s.deliverEvent(OnlineUsers{UserIDs: online}); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to queue online users snapshot.")
		}

		h.router.Attach(s)

		if first {
			h.router.BroadcastAll(UserOnline{UserID: who.ID, Username: who.Username}, s.id)
		}
	})

	h.touchLastSeen(who.ID)

	s.logger.Info().
		Str("username", who.Username).
		Bool("is_bot", who.IsBot).
		Int("connections", h.presence.ConnectionCount(who.ID)).
		Msg("Session connected.")

	return s, nil
}

// Disconnect closes s. Only the first call has an effect.
func (h *Hub) Disconnect(s *Session) {
	s.closeOnce.Do(func() {
		close(s.done)
		h.router.Detach(s.id)

		who := s.identity
		h.presence.deregister(who.ID, s.id, func() {
			h.router.BroadcastAll(UserOffline{UserID: who.ID}, s.id)
		})

		h.touchLastSeen(who.ID)

		s.logger.Info().
			Dur("duration", time.Since(s.connectedAt)).
			Int("dropped_frames", len(s.send)).
			Msg("Session closed.")
	})
}

// touchLastSeen runs the update on a detached context with its own timeout.
// Failures are logged only.
func (h *Hub) touchLastSeen(userID string) {
	if h.lastSeen == nil {
		return
	}

	h.tasks.Add(1)
	go func() {
		defer h.tasks.Done()

		ctx, cancel := context.WithTimeout(context.Background(), h.lastSeenTimeout)
		defer cancel()

		if err := h.lastSeen.TouchLastSeen(ctx, userID); err != nil {
			h.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to update last seen.")
		}
	}()
}

// Shutdown rejects new connections, closes every session and waits for
// pending last-seen updates until ctx is done.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	sessions := h.router.Sessions()
	h.logger.Info().Int("sessions", len(sessions)).Msg("Shutting down hub...")

	for _, s := range sessions {
		s.Close()
	}

	waited := make(chan struct{})
	go func() {
		h.tasks.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		h.logger.Info().Msg("Hub shutdown complete.")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hub shutdown interrupted before pending updates finished: %w", ctx.Err())
	}
}
