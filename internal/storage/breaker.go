// breaker.go - Circuit breaker in front of a remote Store.
//
// After MaxFailures consecutive backend failures every call fails fast with
// ErrUnavailable until Timeout has passed; then one probe call is let
// through and its outcome closes or reopens the circuit.
package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrUnavailable is returned while the circuit is open.
var ErrUnavailable = errors.New("storage: backend unavailable")

// CircuitState represents the current state of a circuit breaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a BreakerStore.
type BreakerConfig struct {
	MaxFailures int
	Timeout     time.Duration
	Clock       clockwork.Clock
	Logger      *slog.Logger
}

// BreakerStore wraps a Store with a circuit breaker.
type BreakerStore struct {
	next   Store
	clock  clockwork.Clock
	logger *slog.Logger

	maxFailures int
	timeout     time.Duration

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
	probing  bool
	rejected uint64
}

// NewBreakerStore returns next guarded by a breaker. MaxFailures <= 0
// defaults to 5 and Timeout <= 0 to 30s.
func NewBreakerStore(next Store, cfg BreakerConfig) *BreakerStore {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &BreakerStore{
		next:        next,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		maxFailures: cfg.MaxFailures,
		timeout:     cfg.Timeout,
	}
}

// State returns the current circuit state.
func (b *BreakerStore) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Rejected returns how many calls failed fast.
func (b *BreakerStore) Rejected() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejected
}

func (b *BreakerStore) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.clock.Since(b.openedAt) < b.timeout {
			b.rejected++
			return ErrUnavailable
		}
		b.state = StateHalfOpen
		b.probing = true
		b.logger.Info("storage circuit half-open", "timeout", b.timeout)
	case StateHalfOpen:
		if b.probing {
			b.rejected++
			return ErrUnavailable
		}
		b.probing = true
	}
	return nil
}

// after records the outcome of a call. Not-found and invalid-name results
// are answers from a healthy backend, not failures.
func (b *BreakerStore) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidName) ||
		errors.Is(err, context.Canceled) {
		if b.state != StateClosed {
			b.logger.Info("storage circuit closed")
		}
		b.state = StateClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		if b.state != StateOpen {
			b.logger.Warn("storage circuit opened",
				"failures", b.failures, "timeout", b.timeout, "err", err)
		}
		b.state = StateOpen
		b.openedAt = b.clock.Now()
	}
}

func (b *BreakerStore) call(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err)
	return err
}

func (b *BreakerStore) Ensure(ctx context.Context) error {
	return b.call(func() error { return b.next.Ensure(ctx) })
}

func (b *BreakerStore) List(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	err := b.call(func() error {
		var err error
		files, err = b.next.List(ctx)
		return err
	})
	return files, err
}

func (b *BreakerStore) Open(ctx context.Context, name string) (File, FileInfo, error) {
	var (
		f    File
		info FileInfo
	)
	err := b.call(func() error {
		var err error
		f, info, err = b.next.Open(ctx, name)
		return err
	})
	return f, info, err
}

// Put does not count errors from reading r: a client that aborts or
// exceeds the body limit says nothing about the backend.
func (b *BreakerStore) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	if err := b.before(); err != nil {
		return 0, err
	}
	src := &sourceReader{r: r}
	n, err := b.next.Put(ctx, name, src)
	if err != nil && src.err != nil {
		b.after(nil)
	} else {
		b.after(err)
	}
	return n, err
}

type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

func (b *BreakerStore) Remove(ctx context.Context, name string) error {
	return b.call(func() error { return b.next.Remove(ctx, name) })
}
