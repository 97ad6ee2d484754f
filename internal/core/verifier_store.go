package core

import (
	"context"
	"sync"
	"time"
)

// PendingAuthorization is what the verifier store holds between the
// authorization redirect and the callback: the PKCE secret plus the user
// who started the flow, so a callback cannot attach tokens to someone else.
type PendingAuthorization struct {
	CodeVerifier string `json:"code_verifier"`
	UserID       string `json:"user_id"`
}

// VerifierStore keeps code verifiers for the duration of one authorization
// round trip, keyed by the flow's state value.
//
// RetrieveAndClear is destructive: the first call for a key returns the
// stored value and removes it; any later call reports absent. An expired
// entry also reports absent.
type VerifierStore interface {
	Store(ctx context.Context, state string, pending PendingAuthorization) error
	RetrieveAndClear(ctx context.Context, state string) (PendingAuthorization, bool, error)
}

// MemoryVerifierStore is a process-local VerifierStore. Suitable for
// single-instance deployments and tests; multi-instance deployments should
// use the Redis store so a callback can land on any instance.
type MemoryVerifierStore struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	pending   PendingAuthorization
	expiresAt time.Time
}

func NewMemoryVerifierStore(ttl time.Duration) *MemoryVerifierStore {
	return &MemoryVerifierStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryVerifierStore) Store(_ context.Context, state string, pending PendingAuthorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[state] = memoryEntry{
		pending:   pending,
		expiresAt: time.Now().Add(s.ttl),
	}

	// Sweep expired entries while we hold the lock; abandoned flows would
	// otherwise accumulate until restart.
	now := time.Now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	return nil
}

func (s *MemoryVerifierStore) RetrieveAndClear(_ context.Context, state string) (PendingAuthorization, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return PendingAuthorization{}, false, nil
	}
	delete(s.entries, state)

	if time.Now().After(entry.expiresAt) {
		return PendingAuthorization{}, false, nil
	}
	return entry.pending, true, nil
}
