package services

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"orlandiv/internal/backend"
	apperrors "orlandiv/pkg/errors"
)

// HealthResult is the body of the health endpoint
type HealthResult struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Backend string `json:"backend"`
	Error   string `json:"error,omitempty"`
}

// HealthService reports whether the site and its backend are reachable
type HealthService struct {
	backend backend.Backend
	name    string
	version string
	driver  string
}

// NewHealthService creates a new health service
func NewHealthService(b backend.Backend, name, version, driver string) *HealthService {
	return &HealthService{backend: b, name: name, version: version, driver: driver}
}

// Check pings the backend with a short deadline
func (s *HealthService) Check(ctx context.Context) *HealthResult {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result := &HealthResult{
		Status:  "healthy",
		Service: s.name,
		Version: s.version,
		Backend: s.driver,
	}
	if err := s.backend.Ping(ctx); err != nil {
		log.Warnf("[HEALTH] backend ping failed: %v", err)
		result.Status = "degraded"
		result.Error = apperrors.MessageOf(err)
	}
	return result
}

// Healthy reports whether r describes a fully working service
func (r *HealthResult) Healthy() bool {
	return r.Status == "healthy"
}
