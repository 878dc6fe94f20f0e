package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// memoryRepo keeps sessions in process. Used when no Redis is configured.
type memoryRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]memoryEntry
	now     func() time.Time
}

func NewRepoMemory() Repository {
	return newMemoryRepo(time.Now)
}

func newMemoryRepo(now func() time.Time) *memoryRepo {
	return &memoryRepo{entries: make(map[uuid.UUID]memoryEntry), now: now}
}

func (r *memoryRepo) Save(_ context.Context, s *Session, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[s.ID] = memoryEntry{session: *s, expiresAt: r.now().Add(ttl)}
	r.sweep()
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || !r.now().Before(e.expiresAt) {
		delete(r.entries, id)
		return nil, ErrNotFound
	}
	s := e.session
	return &s, nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	if !ok || !r.now().Before(e.expiresAt) {
		return ErrNotFound
	}
	return nil
}

// sweep drops expired entries. Caller holds mu.
func (r *memoryRepo) sweep() {
	now := r.now()
	for id, e := range r.entries {
		if !now.Before(e.expiresAt) {
			delete(r.entries, id)
		}
	}
}
