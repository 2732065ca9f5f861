// Package session authenticates the two fixed roles of the service and
// keeps the single live session token each role may hold.
package session

import (
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// TokenLength is the length of issued session tokens.
const TokenLength = 24

// Role identifies who a credential and token belong to.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUploader Role = "uploader"
)

// Store holds the currently valid token per role. Issuing a token replaces
// the previous one, so only the most recent login of a role stays valid.
type Store interface {
	Issue(role Role) (string, error)
	Valid(role Role, token string) bool
	Revoke(role Role)
}

type slot struct {
	token     string
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[Role]slot
	ttl   time.Duration
	clock clockwork.Clock
}

// NewMemoryStore returns an empty store. A ttl of zero keeps tokens valid
// until they are replaced or revoked.
func NewMemoryStore(ttl time.Duration, clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		slots: make(map[Role]slot),
		ttl:   ttl,
		clock: clock,
	}
}

func (s *MemoryStore) Issue(role Role) (string, error) {
	tok, err := gonanoid.New(TokenLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	sl := slot{token: tok}
	if s.ttl > 0 {
		sl.expiresAt = s.clock.Now().Add(s.ttl)
	}

	s.mu.Lock()
	s.slots[role] = sl
	s.mu.Unlock()
	return tok, nil
}

func (s *MemoryStore) Valid(role Role, token string) bool {
	if token == "" {
		return false
	}

	s.mu.RLock()
	sl, ok := s.slots[role]
	s.mu.RUnlock()
	if !ok || sl.token == "" {
		return false
	}
	if !sl.expiresAt.IsZero() && !s.clock.Now().Before(sl.expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sl.token), []byte(token)) == 1
}

func (s *MemoryStore) Revoke(role Role) {
	s.mu.Lock()
	delete(s.slots, role)
	s.mu.Unlock()
}

// TTL returns the configured token lifetime.
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}
