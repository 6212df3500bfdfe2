// Package health aggregates component health and serves it over HTTP.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/genflow/internal/infra/storage"
	"github.com/vietddude/genflow/internal/metrics"
)

// Status is the health state of a component or the whole service.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// ComponentHealth reports one dependency's state.
type ComponentHealth struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Check probes one dependency.
type Check func(ctx context.Context) error

// Monitor aggregates health status from registered components.
type Monitor struct {
	mu         sync.Mutex
	checks     map[string]Check
	critical   map[string]bool
	failedRepo storage.FailedGenerationRepository
	lastCheck  time.Time
	lastReport map[string]ComponentHealth
}

// NewMonitor creates a new health monitor.
func NewMonitor(failedRepo storage.FailedGenerationRepository) *Monitor {
	return &Monitor{
		checks:     make(map[string]Check),
		critical:   make(map[string]bool),
		failedRepo: failedRepo,
		lastReport: make(map[string]ComponentHealth),
	}
}

// Register adds a component check. Critical components turn the aggregate
// status critical when failing; others only degrade it.
func (m *Monitor) Register(name string, critical bool, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
	m.critical[name] = critical
}

// CheckHealth probes every registered component. Results are cached for 10s
// to avoid hammering dependencies.
func (m *Monitor) CheckHealth(ctx context.Context) map[string]ComponentHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 10*time.Second && len(m.lastReport) > 0 {
		return m.lastReport
	}

	report := make(map[string]ComponentHealth, len(m.checks))
	now := time.Now()
	for name, check := range m.checks {
		ch := ComponentHealth{Name: name, Status: StatusHealthy, CheckedAt: now}
		if err := check(ctx); err != nil {
			ch.Error = err.Error()
			if m.critical[name] {
				ch.Status = StatusCritical
			} else {
				ch.Status = StatusDegraded
			}
		}
		report[name] = ch
	}

	m.lastCheck = now
	m.lastReport = report
	return report
}

// Start runs background metric updates until the context is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.failedRepo != nil {
				if depth, err := m.failedRepo.Count(ctx); err == nil {
					metrics.FailedGenerationQueueDepth.Set(float64(depth))
				}
			}
		}
	}
}
