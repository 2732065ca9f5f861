package server

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp   ComponentStatus = "up"
	ComponentStatusDown ComponentStatus = "down"
)

// Health is the /health response body.
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single system component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs float64         `json:"latency_ms"`
	Files     *int            `json:"files,omitempty"`
}

// handleHealth reports liveness plus whether the store can be listed.
// An unreachable store yields 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	storeHealth := s.checkStore(ctx)
	health := Health{
		Status:     HealthStatusHealthy,
		Timestamp:  s.clock.Now().UTC(),
		Version:    s.version,
		Components: map[string]ComponentHealth{"storage": storeHealth},
	}

	status := http.StatusOK
	if storeHealth.Status != ComponentStatusUp {
		health.Status = HealthStatusUnhealthy
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
	return nil
}

func (s *Server) checkStore(ctx context.Context) ComponentHealth {
	start := s.clock.Now()
	files, err := s.store.List(ctx)
	latency := float64(s.clock.Since(start).Microseconds()) / 1000

	if err != nil {
		s.logger.Warn("storage health check failed", "err", err)
		return ComponentHealth{Status: ComponentStatusDown, Message: "storage unavailable", LatencyMs: latency}
	}
	n := len(files)
	return ComponentHealth{Status: ComponentStatusUp, LatencyMs: latency, Files: &n}
}
