package session

import (
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{24}$`)

const testClient = "192.0.2.1"

func TestMemoryStore_IssueReplacesPrevious(t *testing.T) {
	s := NewMemoryStore(0, nil)

	first, err := s.Issue(RoleAdmin)
	require.NoError(t, err)
	assert.Regexp(t, tokenPattern, first)
	assert.True(t, s.Valid(RoleAdmin, first))

	second, err := s.Issue(RoleAdmin)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.False(t, s.Valid(RoleAdmin, first))
	assert.True(t, s.Valid(RoleAdmin, second))
}

func TestMemoryStore_RolesAreIndependent(t *testing.T) {
	s := NewMemoryStore(0, nil)

	admin, err := s.Issue(RoleAdmin)
	require.NoError(t, err)
	up, err := s.Issue(RoleUploader)
	require.NoError(t, err)

	assert.False(t, s.Valid(RoleUploader, admin))
	assert.False(t, s.Valid(RoleAdmin, up))

	s.Revoke(RoleUploader)
	assert.False(t, s.Valid(RoleUploader, up))
	assert.True(t, s.Valid(RoleAdmin, admin))
}

func TestMemoryStore_NoTokenIssued(t *testing.T) {
	s := NewMemoryStore(0, nil)
	assert.False(t, s.Valid(RoleAdmin, ""))
	assert.False(t, s.Valid(RoleAdmin, "anything"))
}

func TestMemoryStore_TTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewMemoryStore(time.Hour, clock)

	tok, err := s.Issue(RoleUploader)
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	assert.True(t, s.Valid(RoleUploader, tok))

	clock.Advance(time.Minute)
	assert.False(t, s.Valid(RoleUploader, tok))
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(0, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Issue(RoleAdmin)
		}()
		go func() {
			defer wg.Done()
			_ = s.Valid(RoleAdmin, "x")
		}()
	}
	wg.Wait()
}

func testCreds(t *testing.T) map[Role]Credential {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("upload-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	return map[Role]Credential{
		RoleAdmin:    {Username: "admin", Password: "admin-secret"},
		RoleUploader: {Username: "uploader", Password: string(hash)},
	}
}

func TestGate_Authenticate(t *testing.T) {
	g := NewGate(testCreds(t), NewMemoryStore(0, nil), nil)

	tests := []struct {
		name     string
		role     Role
		user     string
		pass     string
		wantErr  error
		wantAuth bool
	}{
		{name: "admin plain", role: RoleAdmin, user: "admin", pass: "admin-secret", wantAuth: true},
		{name: "uploader bcrypt", role: RoleUploader, user: "uploader", pass: "upload-secret", wantAuth: true},
		{name: "wrong password", role: RoleAdmin, user: "admin", pass: "nope", wantErr: ErrInvalidCredentials},
		{name: "wrong user", role: RoleAdmin, user: "root", pass: "admin-secret", wantErr: ErrInvalidCredentials},
		{name: "cross role", role: RoleAdmin, user: "uploader", pass: "upload-secret", wantErr: ErrInvalidCredentials},
		{name: "case sensitive", role: RoleAdmin, user: "Admin", pass: "admin-secret", wantErr: ErrInvalidCredentials},
		{name: "empty", role: RoleUploader, user: "", pass: "", wantErr: ErrInvalidCredentials},
		{name: "unknown role", role: Role("guest"), user: "x", pass: "y", wantErr: ErrUnknownRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := g.Authenticate(tt.role, testClient, tt.user, tt.pass)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, tok)
				return
			}
			require.NoError(t, err)
			assert.Regexp(t, tokenPattern, tok)
			assert.Equal(t, tt.wantAuth, g.Authorize(tt.role, tok))
		})
	}
}

func TestGate_SecondLoginInvalidatesFirst(t *testing.T) {
	g := NewGate(testCreds(t), NewMemoryStore(0, nil), nil)

	first, err := g.Authenticate(RoleAdmin, testClient, "admin", "admin-secret")
	require.NoError(t, err)
	second, err := g.Authenticate(RoleAdmin, testClient, "admin", "admin-secret")
	require.NoError(t, err)

	assert.False(t, g.Authorize(RoleAdmin, first))
	assert.True(t, g.Authorize(RoleAdmin, second))

	g.Logout(RoleAdmin)
	assert.False(t, g.Authorize(RoleAdmin, second))
}

func TestGate_Lockout(t *testing.T) {
	clock := clockwork.NewFakeClock()
	lock := NewLockout(3, 15*time.Minute, 10*time.Minute, clock)
	g := NewGate(testCreds(t), NewMemoryStore(0, clock), lock)

	for i := 0; i < 2; i++ {
		_, err := g.Authenticate(RoleAdmin, testClient, "admin", "bad")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := g.Authenticate(RoleAdmin, testClient, "admin", "bad")
	var locked *LockedError
	require.True(t, errors.As(err, &locked), "third failure should lock, got %v", err)
	assert.Equal(t, clock.Now().Add(15*time.Minute), locked.Until)

	// Correct password is refused while locked.
	_, err = g.Authenticate(RoleAdmin, testClient, "admin", "admin-secret")
	assert.True(t, errors.As(err, &locked))

	// The other role is unaffected.
	_, err = g.Authenticate(RoleUploader, testClient, "uploader", "upload-secret")
	assert.NoError(t, err)

	clock.Advance(15 * time.Minute)
	tok, err := g.Authenticate(RoleAdmin, testClient, "admin", "admin-secret")
	require.NoError(t, err)
	assert.True(t, g.Authorize(RoleAdmin, tok))
}

func TestGate_LockoutIsPerClient(t *testing.T) {
	clock := clockwork.NewFakeClock()
	lock := NewLockout(3, 15*time.Minute, 10*time.Minute, clock)
	g := NewGate(testCreds(t), NewMemoryStore(0, clock), lock)

	for i := 0; i < 3; i++ {
		_, _ = g.Authenticate(RoleAdmin, "203.0.113.9", "admin", "bad")
	}
	_, err := g.Authenticate(RoleAdmin, "203.0.113.9", "admin", "admin-secret")
	var locked *LockedError
	require.True(t, errors.As(err, &locked))

	tok, err := g.Authenticate(RoleAdmin, testClient, "admin", "admin-secret")
	require.NoError(t, err)
	assert.True(t, g.Authorize(RoleAdmin, tok))
}

func TestLockout_WindowResetsCount(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLockout(2, time.Minute, time.Minute, clock)

	locked, _ := l.RecordFailure(RoleUploader, testClient)
	assert.False(t, locked)

	clock.Advance(2 * time.Minute)
	locked, _ = l.RecordFailure(RoleUploader, testClient)
	assert.False(t, locked, "failure outside window should start a new count")

	locked, _ = l.RecordFailure(RoleUploader, testClient)
	assert.True(t, locked)
}

func TestLockout_Disabled(t *testing.T) {
	l := NewLockout(0, time.Minute, time.Minute, nil)
	for i := 0; i < 10; i++ {
		locked, _ := l.RecordFailure(RoleAdmin, testClient)
		assert.False(t, locked)
	}
	locked, _ := l.Locked(RoleAdmin, testClient)
	assert.False(t, locked)
}

func TestIsBcryptHash(t *testing.T) {
	assert.True(t, IsBcryptHash("$2a$10$abcdefghijklmnopqrstuv"))
	assert.True(t, IsBcryptHash("$2b$12$x"))
	assert.False(t, IsBcryptHash("plain"))
}
