package chats

import (
	"context"
	"sort"
	"sync"
)

// memoryStore is a mutex-guarded in-memory Store used by tests and the
// "memory" database driver in dev mode.
type memoryStore struct {
	mu    sync.RWMutex
	chats map[int64]*Chat
}

// NewMemoryStore constructs an empty in-memory Store implementation.
func NewMemoryStore() Store {
	return &memoryStore{chats: make(map[int64]*Chat)}
}

func (m *memoryStore) Exists(_ context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.chats[id]
	return ok, nil
}

func (m *memoryStore) Get(_ context.Context, id int64) (*Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chats[id]
	if !ok {
		return nil, ErrChatNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *memoryStore) Insert(_ context.Context, c *Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *c
	m.chats[c.ID] = &clone
	return nil
}

func (m *memoryStore) All(_ context.Context) ([]Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Chat, 0, len(m.chats))
	for _, c := range m.chats {
		out = append(out, *c)
	}
	// Deterministic iteration keeps broadcast ordering stable.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) SetLastCommand(_ context.Context, id int64, command string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return ErrChatNotFound
	}
	c.LastCommand = command
	return nil
}

func (m *memoryStore) UpdateSettings(_ context.Context, updated *Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[updated.ID]
	if !ok {
		return ErrChatNotFound
	}
	c.LastCommand = updated.LastCommand
	c.MinAmountUSD = updated.MinAmountUSD
	c.FarmChangeGap = updated.FarmChangeGap
	c.WatchedAddress = updated.WatchedAddress
	c.ImportantEvents = updated.ImportantEvents
	return nil
}

func (m *memoryStore) SetLastFarmPrice(_ context.Context, id int64, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return ErrChatNotFound
	}
	c.LastFarmPrice = price
	return nil
}

func (m *memoryStore) SetLastImportantEventID(_ context.Context, id int64, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return ErrChatNotFound
	}
	c.LastImportantEventID = eventID
	return nil
}
