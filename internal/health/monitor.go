// Package health runs the periodic ledger availability probe. The monitor's
// snapshot backs the /ledger/health endpoint and feeds the availability gauge,
// so operators can see a degraded ledger before callers start hitting the
// simulated-seal fallback.
package health

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/attestia/docseal/internal/ledger"
)

// Config holds monitor configuration.
type Config struct {
	CheckInterval time.Duration
	FailThreshold int
}

// LedgerProber is the probe surface of the ledger client.
// *ledger.Client satisfies it.
type LedgerProber interface {
	Health(ctx context.Context) (*ledger.HealthStatus, error)
}

// DispatchFunc is an optional callback for dispatching degradation events.
type DispatchFunc func(ctx context.Context, eventType string, payload map[string]string)

// MetricsRecordFunc is an optional callback recording probe results.
type MetricsRecordFunc func(up bool)

// Snapshot is the monitor's last known view of the ledger.
type Snapshot struct {
	Up        bool      `json:"up"`
	Degraded  bool      `json:"degraded"`
	LatencyMs int64     `json:"latency_ms"`
	FailCount int       `json:"fail_count"`
	CheckedAt time.Time `json:"checked_at"`
}

// Monitor periodically probes the remote ledger and tracks consecutive
// failures. Degraded is declared only at FailThreshold so a single dropped
// probe does not flap the status.
type Monitor struct {
	prober LedgerProber
	cfg    Config

	mu        sync.Mutex
	failCount int
	degraded  bool
	last      Snapshot

	onDispatch DispatchFunc
	onMetrics  MetricsRecordFunc
	logger     *zap.Logger
}

// New creates a Monitor.
func New(prober LedgerProber, cfg Config, logger *zap.Logger) *Monitor {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Monitor{
		prober: prober,
		cfg:    cfg,
		logger: logger,
	}
}

// SetDispatch configures the degradation event callback.
func (m *Monitor) SetDispatch(fn DispatchFunc) {
	m.onDispatch = fn
}

// SetMetricsRecord configures the metrics recording callback.
func (m *Monitor) SetMetricsRecord(fn MetricsRecordFunc) {
	m.onMetrics = fn
}

// Start runs the probe loop until quit is signalled.
func (m *Monitor) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CheckInterval-time.Second)
			m.Check(ctx)
			cancel()
		case <-quit:
			return
		}
	}
}

// Check probes the ledger once and updates the snapshot.
func (m *Monitor) Check(ctx context.Context) Snapshot {
	status, err := m.prober.Health(ctx)
	up := err == nil && status != nil && status.Up

	if m.onMetrics != nil {
		m.onMetrics(up)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if up {
		if m.degraded {
			m.logger.Info("ledger recovered", zap.Int("fail_count", m.failCount))
		}
		m.failCount = 0
		m.degraded = false
	} else {
		m.failCount++
		if m.failCount == m.cfg.FailThreshold {
			m.degraded = true
			m.logger.Warn("ledger degraded", zap.Int("fail_count", m.failCount))
			if m.onDispatch != nil {
				m.onDispatch(ctx, "ledger.degraded", map[string]string{
					"fail_count": strconv.Itoa(m.failCount),
					"checked_at": time.Now().UTC().Format(time.RFC3339),
				})
			}
		}
	}

	m.last = Snapshot{
		Up:        up,
		Degraded:  m.degraded,
		FailCount: m.failCount,
		CheckedAt: time.Now().UTC(),
	}
	if status != nil {
		m.last.LatencyMs = status.LatencyMs
	}
	return m.last
}

// Status returns the last recorded snapshot without probing.
func (m *Monitor) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
