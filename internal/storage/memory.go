package storage

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Ananth-NQI/farmline-ivr/internal/models"
)

// MemoryStore keeps sessions in process memory. Single instance only.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	clock    clockwork.Clock
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		clock:    clock,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*models.CallSession, error) {
	m.mu.RLock()
	entry, exists := m.sessions[key]
	m.mu.RUnlock()

	if !exists || !m.clock.Now().Before(entry.expiresAt) {
		return nil, ErrSessionNotFound
	}
	return decodeSession(entry.data)
}

func (m *MemoryStore) Set(_ context.Context, key string, session *models.CallSession, ttl time.Duration) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[key] = memoryEntry{
		data:      data,
		expiresAt: m.clock.Now().Add(ttl),
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, key)
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	var removed int64
	for key, entry := range m.sessions {
		if !now.Before(entry.expiresAt) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed, nil
}

// Ping always succeeds for the memory store
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
