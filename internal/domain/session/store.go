package session

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"
)

// DefaultTTL is how long an idle session is kept before it is discarded.
const DefaultTTL = 12 * time.Hour

// Store keeps one State per session id. Implementations must be safe for
// concurrent use across different ids; callers serialize access to a single id.
type Store interface {
	// Load returns a private copy of the state, or ErrSessionNotFound when absent or expired.
	// A successful Load pushes the session's expiry to now+TTL.
	Load(ctx context.Context, id string) (*State, error)
	// Save stores a copy of st and pushes the session's expiry to now+TTL.
	Save(ctx context.Context, id string, st *State) error
	// Delete ends the session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	// Sweep removes expired sessions and reports how many were dropped.
	Sweep(ctx context.Context) (int, error)
}

type memoryEntry struct {
	state     *State
	expiresAt time.Time
}

// MemoryStore is the default process-local Store.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memoryEntry
}

// NewMemoryStore creates an empty store. A non-positive ttl selects DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]memoryEntry),
	}
}

// Load returns a copy of the stored state and extends its expiry.
func (m *MemoryStore) Load(ctx context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := m.now()
	if now.After(entry.expiresAt) {
		delete(m.items, id)
		pslog.Ctx(ctx).Info("session expired", "session", id)
		return nil, ErrSessionNotFound
	}
	entry.expiresAt = now.Add(m.ttl)
	m.items[id] = entry
	return entry.state.Clone(), nil
}

// Save stores a copy of st.
func (m *MemoryStore) Save(_ context.Context, id string, st *State) error {
	m.mu.Lock()
	m.items[id] = memoryEntry{state: st.Clone(), expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

// Delete drops the session if present.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
	return nil
}

// Sweep drops every expired session.
func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	dropped := 0
	for id, entry := range m.items {
		if now.After(entry.expiresAt) {
			delete(m.items, id)
			dropped++
		}
	}
	return dropped, nil
}

// Len reports the number of stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
