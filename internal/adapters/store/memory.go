package store

import (
	"context"
	"sync"
	"time"

	"github.com/vardhanngg/vibron-socket/internal/domain"
)

type memoryEntry struct {
	state     *domain.RoomState
	expiresAt time.Time
}

// Memory implements RoomStore on a plain map with lazy expiry. It backs
// tests and the `store: memory` config for single-node runs; semantics
// match the Redis backend, including deep copies on the way in and out so
// callers never alias a stored record.
type Memory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]memoryEntry
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[domain.RoomID]memoryEntry),
		now:   time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, id domain.RoomID) (*domain.RoomState, error) {
	m.mu.RLock()
	e, ok := m.rooms[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a Put may have refreshed it.
		if e, ok = m.rooms[id]; ok && m.now().After(e.expiresAt) {
			delete(m.rooms, id)
			ok = false
		}
		m.mu.Unlock()
		if !ok {
			return nil, domain.ErrRoomNotFound
		}
	}
	return e.state.Clone(), nil
}

func (m *Memory) Put(ctx context.Context, id domain.RoomID, state *domain.RoomState, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[id] = memoryEntry{state: state.Clone(), expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Delete(ctx context.Context, id domain.RoomID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, id)
	return nil
}

func (m *Memory) Keys(ctx context.Context) ([]domain.RoomID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(m.rooms))
	now := m.now()
	for id, e := range m.rooms {
		if now.After(e.expiresAt) {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
