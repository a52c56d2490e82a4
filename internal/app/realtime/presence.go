package realtime

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

func shardIndex(key string) uint64 {
	return xxhash.Sum64String(key) % shardCount
}

type presenceShard struct {
	mu    sync.Mutex
	users map[string]map[string]struct{}
}

// Presence tracks which users hold at least one open connection.
// Users are spread over shards so that unrelated users do not contend.
type Presence struct {
	shards [shardCount]presenceShard
}

// NewPresence returns an empty tracker.
func NewPresence() *Presence {
	p := &Presence{}
	for i := range p.shards {
		p.shards[i].users = make(map[string]map[string]struct{})
	}
	return p
}

func (p *Presence) shard(userID string) *presenceShard {
	return &p.shards[shardIndex(userID)]
}

// RegisterConnection adds connID to the user's set and reports whether it
// was the user's first connection. Registering the same pair twice is a no-op.
func (p *Presence) RegisterConnection(userID, connID string) bool {
	s := p.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.users[userID]
	if !ok {
		conns = make(map[string]struct{})
		s.users[userID] = conns
	}
	if _, dup := conns[connID]; dup {
		return false
	}

	conns[connID] = struct{}{}
	return len(conns) == 1
}

// DeregisterConnection removes connID and reports whether it was the user's
// last connection. Unknown pairs are ignored.
func (p *Presence) DeregisterConnection(userID, connID string) bool {
	return p.deregister(userID, connID, nil)
}

// registerWithSnapshot registers connID while holding every shard in index
// order and hands fn the registration result together with the online set.
// No other transition can land between the snapshot and anything fn does.
func (p *Presence) registerWithSnapshot(userID, connID string, fn func(first bool, online []string)) bool {
	for i := range p.shards {
		p.shards[i].mu.Lock()
	}
	defer func() {
		for i := len(p.shards) - 1; i >= 0; i-- {
			p.shards[i].mu.Unlock()
		}
	}()

	s := p.shard(userID)
	conns, ok := s.users[userID]
	if !ok {
		conns = make(map[string]struct{})
		s.users[userID] = conns
	}
	_, dup := conns[connID]
	conns[connID] = struct{}{}
	first := !dup && len(conns) == 1

	online := []string{}
	for i := range p.shards {
		for id := range p.shards[i].users {
			online = append(online, id)
		}
	}
	sort.Strings(online)

	fn(first, online)
	return first
}

func (p *Presence) deregister(userID, connID string, onLast func()) bool {
	s := p.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.users[userID]
	if !ok {
		return false
	}
	if _, found := conns[connID]; !found {
		return false
	}

	delete(conns, connID)
	if len(conns) > 0 {
		return false
	}

	delete(s.users, userID)
	if onLast != nil {
		onLast()
	}
	return true
}

// ListOnlineUserIds returns the online users in lexical order.
func (p *Presence) ListOnlineUserIds() []string {
	ids := []string{}
	for i := range p.shards {
		s := &p.shards[i]
		s.mu.Lock()
		for id := range s.users {
			ids = append(ids, id)
		}
		s.mu.Unlock()
	}
	sort.Strings(ids)
	return ids
}

// IsOnline reports whether the user has an open connection.
func (p *Presence) IsOnline(userID string) bool {
	return p.ConnectionCount(userID) > 0
}

// ConnectionCount returns the number of open connections of a user.
func (p *Presence) ConnectionCount(userID string) int {
	s := p.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users[userID])
}
