// Package state holds the anti-forgery tokens for in-flight OAuth
// authorization attempts. A token is issued when a user starts the install
// flow, round-trips through Google as the OAuth state parameter, and is
// consumed exactly once when the callback returns it.
package state

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TTL bounds how long an issued token may wait for its callback
	TTL = 10 * time.Minute

	sweepInterval = time.Minute
)

type pending struct {
	createdAt time.Time
}

// Store holds outstanding state tokens. Tokens are keyed by their own
// value: the callback echoes the state parameter back unchanged, so
// Consume is a single atomic existence-check-and-delete on it, with no
// handle indirection to desynchronize.
type Store struct {
	mu     sync.Mutex
	tokens map[string]pending

	ttl time.Duration
	now func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewStore creates a store and starts its expiry sweeper. Call Close to
// stop the sweeper.
func NewStore() *Store {
	return newStore(TTL, time.Now)
}

func newStore(ttl time.Duration, now func() time.Time) *Store {
	s := &Store{
		tokens: make(map[string]pending),
		ttl:    ttl,
		now:    now,
		done:   make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Issue mints a new token unpredictable to an outside observer (a v4
// UUID, 122 bits of entropy) and records it as pending.
func (s *Store) Issue() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = pending{createdAt: s.now()}
	s.mu.Unlock()
	return token
}

// Consume retires token if it is currently pending and not expired.
// Exactly one of any number of concurrent callers for the same token
// observes true; a consumed or expired token never validates again.
func (s *Store) Consume(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.tokens[token]
	if !ok {
		return false
	}
	delete(s.tokens, token)
	return s.now().Sub(p.createdAt) <= s.ttl
}

// Pending returns the number of outstanding tokens.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Close stops the expiry sweeper.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Store) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.expire()
		}
	}
}

func (s *Store) expire() {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	for token, p := range s.tokens {
		if p.createdAt.Before(cutoff) {
			delete(s.tokens, token)
		}
	}
	s.mu.Unlock()
}
