// Package cache provides the process-local TTL caches backing the lobby
// state and guest context stores. Entries expire on their own; readers fall
// through to recomputation, so nothing here is ever authoritative.
package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/collabware/guest-lobby/pkg/domain"
)

// LobbyStates is a TTL cache of ProjectLobbyState keyed by project id.
type LobbyStates struct {
	lru *expirable.LRU[uuid.UUID, domain.ProjectLobbyState]
}

// NewLobbyStates creates the cache. size bounds the number of projects held
// at once; ttl is how long a computed state stays fresh.
func NewLobbyStates(size int, ttl time.Duration) *LobbyStates {
	return &LobbyStates{
		lru: expirable.NewLRU[uuid.UUID, domain.ProjectLobbyState](size, nil, ttl),
	}
}

func (c *LobbyStates) Get(projectID uuid.UUID) (*domain.ProjectLobbyState, bool) {
	state, ok := c.lru.Get(projectID)
	if !ok {
		return nil, false
	}
	return &state, true
}

func (c *LobbyStates) Set(projectID uuid.UUID, state *domain.ProjectLobbyState) {
	if state == nil {
		return
	}
	c.lru.Add(projectID, *state)
}

func (c *LobbyStates) Delete(projectID uuid.UUID) {
	c.lru.Remove(projectID)
}

// GuestContexts is a TTL cache of ProjectGuestContext keyed by the caller's
// session identifier. A reverse index by guest session id lets session
// teardown evict every caller entry pointing at an ended session.
type GuestContexts struct {
	mu        sync.Mutex
	bySession map[uuid.UUID]string
	lru       *expirable.LRU[string, domain.ProjectGuestContext]
}

// NewGuestContexts creates the cache.
func NewGuestContexts(size int, ttl time.Duration) *GuestContexts {
	c := &GuestContexts{bySession: make(map[uuid.UUID]string)}
	c.lru = expirable.NewLRU[string, domain.ProjectGuestContext](size, c.onEvict, ttl)
	return c
}

// onEvict runs on expiry, capacity eviction and explicit removal. It must
// not touch the LRU itself.
func (c *GuestContexts) onEvict(key string, gc domain.ProjectGuestContext) {
	c.mu.Lock()
	if c.bySession[gc.GuestSessionID] == key {
		delete(c.bySession, gc.GuestSessionID)
	}
	c.mu.Unlock()
}

func (c *GuestContexts) Get(callerSessionID string) (*domain.ProjectGuestContext, bool) {
	gc, ok := c.lru.Get(callerSessionID)
	if !ok {
		return nil, false
	}
	return &gc, true
}

func (c *GuestContexts) Set(callerSessionID string, gc *domain.ProjectGuestContext) {
	if gc == nil {
		return
	}
	prev, rebind := c.lru.Get(callerSessionID)
	c.mu.Lock()
	// Drop the stale reverse entry when the caller rebinds to a new session.
	if rebind && c.bySession[prev.GuestSessionID] == callerSessionID {
		delete(c.bySession, prev.GuestSessionID)
	}
	c.bySession[gc.GuestSessionID] = callerSessionID
	c.mu.Unlock()
	c.lru.Add(callerSessionID, *gc)
}

func (c *GuestContexts) Delete(callerSessionID string) {
	c.lru.Remove(callerSessionID)
}

// DeleteByGuestSession evicts the entry attached to the given guest session,
// if any.
func (c *GuestContexts) DeleteByGuestSession(guestSessionID uuid.UUID) {
	c.mu.Lock()
	key, ok := c.bySession[guestSessionID]
	c.mu.Unlock()
	if ok {
		c.lru.Remove(key)
	}
}
