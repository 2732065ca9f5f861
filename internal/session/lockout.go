// lockout.go - Lock a role's login for one client after repeated failures.
package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// lockKey scopes failures to a role and the client that sent them, so a
// stranger cannot lock the real user out from another address.
type lockKey struct {
	role   Role
	client string
}

// loginAttempt tracks failed logins for one role and client.
type loginAttempt struct {
	count       int
	lastAttempt time.Time
	lockedUntil time.Time
}

// Lockout refuses logins for a role from a client once maxAttempts failures
// from that client happen within window, until lockoutDuration has passed.
type Lockout struct {
	mu              sync.Mutex
	attempts        map[lockKey]*loginAttempt
	maxAttempts     int
	lockoutDuration time.Duration
	window          time.Duration
	clock           clockwork.Clock
}

// NewLockout returns a Lockout. maxAttempts <= 0 disables locking.
func NewLockout(maxAttempts int, lockoutDuration, window time.Duration, clock clockwork.Clock) *Lockout {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Lockout{
		attempts:        make(map[lockKey]*loginAttempt),
		maxAttempts:     maxAttempts,
		lockoutDuration: lockoutDuration,
		window:          window,
		clock:           clock,
	}
}

// RecordFailure counts a failed login and reports whether the role is now
// locked for client, and until when.
func (l *Lockout) RecordFailure(role Role, client string) (bool, time.Time) {
	if l == nil || l.maxAttempts <= 0 {
		return false, time.Time{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	key := lockKey{role: role, client: client}
	a, ok := l.attempts[key]
	if !ok {
		a = &loginAttempt{}
		l.attempts[key] = a
	}
	if now.Sub(a.lastAttempt) > l.window {
		a.count = 0
	}
	a.count++
	a.lastAttempt = now

	if a.count >= l.maxAttempts {
		a.lockedUntil = now.Add(l.lockoutDuration)
		a.count = 0
		return true, a.lockedUntil
	}
	return false, time.Time{}
}

// RecordSuccess clears the failure history of role for client.
func (l *Lockout) RecordSuccess(role Role, client string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.attempts, lockKey{role: role, client: client})
	l.mu.Unlock()
}

// Locked reports whether role is currently locked for client and until when.
func (l *Lockout) Locked(role Role, client string) (bool, time.Time) {
	if l == nil || l.maxAttempts <= 0 {
		return false, time.Time{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.attempts[lockKey{role: role, client: client}]
	if !ok || a.lockedUntil.IsZero() {
		return false, time.Time{}
	}
	if l.clock.Now().Before(a.lockedUntil) {
		return true, a.lockedUntil
	}
	return false, time.Time{}
}
