package infrastructure

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthCheck probes one dependency; a nil error means healthy
type HealthCheck func(ctx context.Context) error

// HealthMonitor periodically runs dependency checks and reports the aggregate on the gRPC
// health service. Each named check is also reported as its own service.
type HealthMonitor struct {
	server   *health.Server
	interval time.Duration
	checks   map[string]HealthCheck
}

// NewHealthMonitor creates a monitor reporting to server
func NewHealthMonitor(server *health.Server, interval time.Duration, checks map[string]HealthCheck) *HealthMonitor {
	return &HealthMonitor{
		server:   server,
		interval: interval,
		checks:   checks,
	}
}

// Start runs the checks immediately and then every interval until ctx is done or the
// returned function is called
func (m *HealthMonitor) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			m.CheckOnce(ctx)
			select {
			case <-ctx.Done():
				return
			case <-stopChan:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(stopChan)
		wg.Wait()
		m.server.Shutdown()
	}
}

// CheckOnce runs every check and updates the reported statuses
func (m *HealthMonitor) CheckOnce(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	for name, check := range m.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := check(checkCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
			log.WithError(err).WithField("check", name).Warn("Health check failed")
		}
		m.server.SetServingStatus(name, status)
	}
	m.server.SetServingStatus("", overall)
}
