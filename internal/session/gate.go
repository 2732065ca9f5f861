package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when username or password do not match.
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	// ErrUnknownRole is returned for roles without a configured credential.
	ErrUnknownRole = errors.New("session: unknown role")
)

// LockedError is returned while a role's login is locked.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("session: login locked until %s", e.Until.Format(time.RFC3339))
}

// Credential is a username/password pair. Password is either plain text or
// a bcrypt hash.
type Credential struct {
	Username string
	Password string
}

// IsBcryptHash reports whether s looks like a bcrypt hash.
func IsBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func (c Credential) matches(username, password string) bool {
	uOK := hmac.Equal([]byte(username), []byte(c.Username))

	var pOK bool
	if IsBcryptHash(c.Password) {
		pOK = bcrypt.CompareHashAndPassword([]byte(c.Password), []byte(password)) == nil
	} else {
		// Hash both sides so the comparison does not leak the length.
		got := sha256.Sum256([]byte(password))
		want := sha256.Sum256([]byte(c.Password))
		pOK = hmac.Equal(got[:], want[:])
	}
	return uOK && pOK
}

// Gate checks credentials for each role and manages the role's token.
type Gate struct {
	creds   map[Role]Credential
	store   Store
	lockout *Lockout
}

// NewGate returns a Gate. lockout may be nil.
func NewGate(creds map[Role]Credential, store Store, lockout *Lockout) *Gate {
	c := make(map[Role]Credential, len(creds))
	for role, cred := range creds {
		c[role] = cred
	}
	return &Gate{creds: c, store: store, lockout: lockout}
}

// Authenticate checks username and password for role, sent by client. On
// success it issues a new token for the role, which invalidates any token
// issued before.
func (g *Gate) Authenticate(role Role, client, username, password string) (string, error) {
	cred, ok := g.creds[role]
	if !ok || cred.Username == "" || cred.Password == "" {
		return "", ErrUnknownRole
	}
	if locked, until := g.lockout.Locked(role, client); locked {
		return "", &LockedError{Until: until}
	}

	if !cred.matches(username, password) {
		if locked, until := g.lockout.RecordFailure(role, client); locked {
			return "", &LockedError{Until: until}
		}
		return "", ErrInvalidCredentials
	}

	g.lockout.RecordSuccess(role, client)
	return g.store.Issue(role)
}

// Authorize reports whether token is the live token of role.
func (g *Gate) Authorize(role Role, token string) bool {
	return g.store.Valid(role, token)
}

// Logout clears the token of role.
func (g *Gate) Logout(role Role) {
	g.store.Revoke(role)
}
