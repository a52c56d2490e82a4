package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"clawchat/internal/app/identity"
	"clawchat/internal/pkg/errs"
	"clawchat/internal/pkg/logx"
	"clawchat/internal/pkg/randx"
)

// SessionState is the lifecycle stage of a connection.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateAuthenticated
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one authenticated transport connection.
// The outbound queue is never closed; Done signals the end of delivery.
type Session struct {
	id          string
	identity    identity.Identity
	connectedAt time.Time

	hub *Hub

	// send is the bounded outbound queue drained by the transport writer.
	send chan []byte

	// done is closed exactly once, when the session is closed.
	done      chan struct{}
	closeOnce sync.Once

	// mu guards state and rooms.
	mu    sync.Mutex
	state SessionState
	rooms map[RoomID]struct{}

	logger zerolog.Logger
}

func newSession(hub *Hub, ident identity.Identity, queueSize int) *Session {
	id := randx.ConnectionID()

	return &Session{
		id:          id,
		identity:    ident,
		connectedAt: time.Now(),
		hub:         hub,
		send:        make(chan []byte, queueSize),
		done:        make(chan struct{}),
		state:       StateConnecting,
		rooms:       make(map[RoomID]struct{}),
		logger: logx.Logger().With().
			Str("conn_id", id).
			Str("user_id", ident.ID).
			Logger(),
	}
}

func (s *Session) ID() string                  { return s.id }
func (s *Session) Identity() identity.Identity { return s.identity }
func (s *Session) ConnectedAt() time.Time      { return s.connectedAt }

// Outbound is the queue of encoded frames waiting to be written.
func (s *Session) Outbound() <-chan []byte { return s.send }

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle stage.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Rooms returns the rooms the session currently belongs to.
func (s *Session) Rooms() []RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Keys(s.rooms)
}

// InRoom reports whether the session belongs to room.
func (s *Session) InRoom(room RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[room]
	return ok
}

// JoinRoom subscribes the session to room after asking the hub's authorizer.
// Joining a room twice has no further effect.
func (s *Session) JoinRoom(ctx context.Context, room RoomID) error {
	if err := room.Validate(); err != nil {
		return err
	}
	if s.State() == StateClosed {
		return errs.NewError(errs.ErrSessionClosed)
	}

	if err := s.hub.authorizer.AuthorizeJoin(ctx, s.identity, room); err != nil {
		return err
	}

	return s.hub.router.Join(room, s.id)
}

// LeaveRoom unsubscribes the session from room. Leaving a room the session
// is not in has no effect.
func (s *Session) LeaveRoom(room RoomID) error {
	if err := room.Validate(); err != nil {
		return err
	}
	if s.State() == StateClosed {
		return errs.NewError(errs.ErrSessionClosed)
	}

	return s.hub.router.Leave(room, s.id)
}

// Typing relays a typing indicator to the thread room when threadID is set,
// otherwise to the channel room. The sender never receives its own ping.
func (s *Session) Typing(channelID, threadID string) error {
	if s.State() == StateClosed {
		return errs.NewError(errs.ErrSessionClosed)
	}

	room := ChannelRoom(channelID)
	if threadID != "" {
		room = ThreadRoom(threadID)
	}
	if err := room.Validate(); err != nil {
		return err
	}
	if threadID != "" && !randx.IsValidID(channelID) {
		return errs.NewError(errs.ErrInvalidRoomTarget)
	}

	s.hub.router.Broadcast(room, TypingPing{
		User:      s.identity.Public(),
		ChannelID: channelID,
		ThreadID:  threadID,
	}, s.id)

	return nil
}

// Close ends the session. It is safe to call more than once and from any goroutine.
func (s *Session) Close() {
	s.hub.Disconnect(s)
}

// deliverEvent encodes evt and enqueues it for this session only.
func (s *Session) deliverEvent(evt DomainEvent) error {
	frame, err := EncodeEvent(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.Type(), err)
	}
	return s.deliver(frame)
}

// deliver enqueues an encoded frame without blocking.
func (s *Session) deliver(frame []byte) error {
	select {
	case <-s.done:
		return errs.NewError(errs.ErrSessionClosed)
	default:
	}

	select {
	case s.send <- frame:
		return nil
	default:
		return errs.NewError(errs.ErrDeliveryFailed)
	}
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed {
		s.state = state
	}
}

// addRoom records room in the session and runs link while holding the
// session lock, so a concurrent seal cannot leave a stale membership behind.
// It reports whether the room was newly added.
func (s *Session) addRoom(room RoomID, link func()) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return false, errs.NewError(errs.ErrSessionClosed)
	}
	if _, ok := s.rooms[room]; ok {
		return false, nil
	}

	link()
	s.rooms[room] = struct{}{}
	return true, nil
}

func (s *Session) removeRoom(room RoomID, unlink func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room]; !ok {
		return false
	}

	unlink()
	delete(s.rooms, room)
	return true
}

// seal marks the session closed and hands back the rooms it belonged to.
func (s *Session) seal() []RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateClosed
	rooms := lo.Keys(s.rooms)
	s.rooms = make(map[RoomID]struct{})
	return rooms
}
