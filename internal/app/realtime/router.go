package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"clawchat/internal/pkg/errs"
	"clawchat/internal/pkg/logx"
)

type roomShard struct {
	mu    sync.RWMutex
	rooms map[RoomID]map[string]*Session
}

type connShard struct {
	mu    sync.RWMutex
	conns map[string]*Session
}

// Router maps rooms to the sessions subscribed to them and fans events out.
// Room sets are created on first join and removed when their last member leaves.
type Router struct {
	rooms [shardCount]roomShard
	conns [shardCount]connShard

	logger zerolog.Logger
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	r := &Router{logger: logx.Component("router")}
	for i := range r.rooms {
		r.rooms[i].rooms = make(map[RoomID]map[string]*Session)
		r.conns[i].conns = make(map[string]*Session)
	}
	return r
}

func (r *Router) roomShard(room RoomID) *roomShard {
	return &r.rooms[shardIndex(room.String())]
}

func (r *Router) connShard(connID string) *connShard {
	return &r.conns[shardIndex(connID)]
}

// Attach registers a session so it can join rooms and receive global events.
func (r *Router) Attach(s *Session) {
	cs := r.connShard(s.id)
	cs.mu.Lock()
	cs.conns[s.id] = s
	cs.mu.Unlock()
}

// Detach unregisters a session and removes it from every room it joined.
// Unknown ids are ignored.
func (r *Router) Detach(connID string) {
	cs := r.connShard(connID)
	cs.mu.Lock()
	s, ok := cs.conns[connID]
	delete(cs.conns, connID)
	cs.mu.Unlock()

	if !ok {
		return
	}

	for _, room := range s.seal() {
		r.unlink(room, connID)
	}
}

// Join adds an attached session to room. Joining twice is a no-op.
func (r *Router) Join(room RoomID, connID string) error {
	s := r.session(connID)
	if s == nil {
		return errs.NewError(errs.ErrUnknownConnection)
	}

	added, err := s.addRoom(room, func() { r.link(room, s) })
	if err != nil {
		return err
	}
	if added {
		s.logger.Debug().Str("room", room.String()).Msg("Joined room.")
	}
	return nil
}

// Leave removes a session from room. Leaving a room not joined is a no-op.
func (r *Router) Leave(room RoomID, connID string) error {
	s := r.session(connID)
	if s == nil {
		return errs.NewError(errs.ErrUnknownConnection)
	}

	if s.removeRoom(room, func() { r.unlink(room, connID) }) {
		s.logger.Debug().Str("room", room.String()).Msg("Left room.")
	}
	return nil
}

func (r *Router) link(room RoomID, s *Session) {
	rs := r.roomShard(room)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	members, ok := rs.rooms[room]
	if !ok {
		members = make(map[string]*Session)
		rs.rooms[room] = members
	}
	members[s.id] = s
}

func (r *Router) unlink(room RoomID, connID string) {
	rs := r.roomShard(room)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	members, ok := rs.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(rs.rooms, room)
	}
}

func (r *Router) session(connID string) *Session {
	cs := r.connShard(connID)
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.conns[connID]
}

// Broadcast delivers evt to every member of room except exclude and returns
// the number of sessions that accepted it. A failing recipient is logged and
// does not affect the others.
func (r *Router) Broadcast(room RoomID, evt DomainEvent, exclude string) int {
	rs := r.roomShard(room)
	rs.mu.RLock()
	members := rs.rooms[room]
	if len(members) == 0 {
		rs.mu.RUnlock()
		return 0
	}
	recipients := make([]*Session, 0, len(members))
	for id, s := range members {
		if id != exclude {
			recipients = append(recipients, s)
		}
	}
	rs.mu.RUnlock()

	return r.fanOut(evt, recipients, room.String())
}

// BroadcastAll delivers evt to every attached session except exclude.
func (r *Router) BroadcastAll(evt DomainEvent, exclude string) int {
	recipients := r.Sessions()
	for i, s := range recipients {
		if s.id == exclude {
			recipients = append(recipients[:i], recipients[i+1:]...)
			break
		}
	}

	return r.fanOut(evt, recipients, "*")
}

// BroadcastToConnection delivers evt to a single session.
func (r *Router) BroadcastToConnection(connID string, evt DomainEvent) error {
	s := r.session(connID)
	if s == nil {
		return errs.NewError(errs.ErrUnknownConnection)
	}

	frame, err := EncodeEvent(evt)
	if err != nil {
		return err
	}

	return s.deliver(frame)
}

func (r *Router) fanOut(evt DomainEvent, recipients []*Session, target string) int {
	if len(recipients) == 0 {
		return 0
	}

	frame, err := EncodeEvent(evt)
	if err != nil {
		r.logger.Error().Err(err).Str("event", string(evt.Type())).Msg("Failed to encode event for broadcast.")
		return 0
	}

	delivered := 0
	for _, s := range recipients {
		if err := s.deliver(frame); err != nil {
			s.logger.Warn().
				Err(err).
				Str("event", string(evt.Type())).
				Str("room", target).
				Int("queue_len", len(s.send)).
				Msg("Dropped event for session.")
			continue
		}
		delivered++
	}
	return delivered
}

// Members returns the connection ids subscribed to room.
func (r *Router) Members(room RoomID) []string {
	rs := r.roomShard(room)
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	ids := make([]string, 0, len(rs.rooms[room]))
	for id := range rs.rooms[room] {
		ids = append(ids, id)
	}
	return ids
}

// RoomCount returns the number of rooms with at least one member.
func (r *Router) RoomCount() int {
	n := 0
	for i := range r.rooms {
		rs := &r.rooms[i]
		rs.mu.RLock()
		n += len(rs.rooms)
		rs.mu.RUnlock()
	}
	return n
}

// Sessions returns every attached session.
func (r *Router) Sessions() []*Session {
	var out []*Session
	for i := range r.conns {
		cs := &r.conns[i]
		cs.mu.RLock()
		for _, s := range cs.conns {
			out = append(out, s)
		}
		cs.mu.RUnlock()
	}
	return out
}

// ConnectionCount returns the number of attached sessions.
func (r *Router) ConnectionCount() int {
	n := 0
	for i := range r.conns {
		cs := &r.conns[i]
		cs.mu.RLock()
		n += len(cs.conns)
		cs.mu.RUnlock()
	}
	return n
}
