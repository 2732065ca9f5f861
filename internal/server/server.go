package server

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"file-intake/internal/session"
	"file-intake/internal/storage"
)

type Config struct {
	Addr string // e.g. ":3000"

	Store storage.Store
	Gate  *session.Gate

	// Public holds the static pages. Nil disables them.
	Public fs.FS

	Logger   *slog.Logger
	Registry *prometheus.Registry
	Clock    clockwork.Clock

	MaxUploadBytes int64         // 0 = no limit
	SessionTTL     time.Duration // cookie lifetime; 0 = browser session
	CookieSecure   bool
	LoginRate      int // login attempts per LoginWindow per client IP; 0 = unlimited
	LoginWindow    time.Duration

	Version string
	Commit  string
}

type Server struct {
	httpServer *http.Server
	handler    http.Handler

	store   storage.Store
	gate    *session.Gate
	public  fs.FS
	logger  *slog.Logger
	metrics *Metrics
	clock   clockwork.Clock

	maxUploadBytes int64
	sessionTTL     time.Duration
	cookieSecure   bool
	loginLimiter   *rateLimiter
	version        string
}

func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if cfg.Gate == nil {
		return nil, errors.New("server: gate is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
		cfg.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	s := &Server{
		store:          cfg.Store,
		gate:           cfg.Gate,
		public:         cfg.Public,
		logger:         cfg.Logger,
		metrics:        NewMetrics(cfg.Registry),
		clock:          cfg.Clock,
		maxUploadBytes: cfg.MaxUploadBytes,
		sessionTTL:     cfg.SessionTTL,
		cookieSecure:   cfg.CookieSecure,
		version:        cfg.Version,
	}
	if cfg.LoginRate > 0 {
		s.loginLimiter = newRateLimiter(cfg.LoginRate, cfg.LoginWindow, cfg.Clock)
	}
	s.metrics.info.WithLabelValues(cfg.Version, cfg.Commit).Set(1)
	if err := cfg.Registry.Register(newStorageCollector(cfg.Store, cfg.Logger)); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	s.routes(mux, cfg.Registry)

	// Wrap middleware: requestID -> logging -> security headers -> gzip -> mux
	var handler http.Handler = s.downloadGuard(mux)
	handler = compressionMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("listening", "addr", ln.Addr().String(), "version", s.version)
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.loginLimiter != nil {
		s.loginLimiter.stop()
	}
	return s.httpServer.Shutdown(ctx)
}
