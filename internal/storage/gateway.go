// File: internal/storage/gateway.go
package storage

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/log-monitor/internal/metrics"
	"github.com/smartdevs17/log-monitor/internal/models"
	"github.com/smartdevs17/log-monitor/pkg/utils"
)

// Gateway wraps a Store with best-effort semantics. The backing store is
// contacted exactly once, at startup, with a bounded timeout; if that fails
// the gateway stays in degraded mode for the rest of the process lifetime.
// In degraded mode writes are no-ops and queries return empty results.
// Write and query failures never reach the ingestion path.
type Gateway struct {
	store          Store
	logger         *logrus.Logger
	metricsManager *metrics.Manager

	// degraded is set once during Connect and never changes afterwards,
	// so the hot paths read it without synchronization.
	degraded bool
}

// NewGateway creates a persistence gateway over the given store
func NewGateway(store Store) *Gateway {
	return &Gateway{
		store:  store,
		logger: utils.GetLogger(),
	}
}

// SetMetricsManager attaches a metrics manager for database operation metrics
func (g *Gateway) SetMetricsManager(m *metrics.Manager) {
	g.metricsManager = m
}

// Connect attempts the one-time store handshake. A failure is logged once and
// fixes the gateway in degraded mode; there is no background retry.
func (g *Gateway) Connect(ctx context.Context, timeout time.Duration) {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := g.connect(connectCtx); err != nil {
		g.degraded = true
		g.logger.WithError(err).Warn("Store unreachable, running in memory-only mode (records will not be persisted)")
		return
	}

	g.logger.Info("Persistence gateway connected")
}

func (g *Gateway) connect(ctx context.Context) error {
	if err := g.store.Connect(ctx); err != nil {
		return err
	}
	if err := g.store.Migrate(); err != nil {
		g.store.Close()
		return err
	}
	return nil
}

// Degraded reports whether the gateway is in memory-only mode
func (g *Gateway) Degraded() bool {
	return g.degraded
}

// Write persists a record best-effort. Failures are logged and swallowed;
// in degraded mode it is a no-op.
func (g *Gateway) Write(ctx context.Context, record *models.LogRecord) {
	if g.degraded {
		return
	}

	start := time.Now()
	err := g.store.SaveRecord(ctx, record)
	g.recordOperation("insert", start, err)

	if err != nil {
		g.logger.WithError(err).Error("Failed to persist log record")
	}
}

// QueryRecent returns up to limit records newest-first. In degraded mode, or
// on any query failure, it returns an empty slice rather than an error.
func (g *Gateway) QueryRecent(ctx context.Context, limit int) []*models.LogRecord {
	if g.degraded {
		return []*models.LogRecord{}
	}

	start := time.Now()
	records, err := g.store.GetRecent(ctx, limit)
	g.recordOperation("select", start, err)

	if err != nil {
		g.logger.WithError(err).Error("Failed to query log history")
		return []*models.LogRecord{}
	}
	if records == nil {
		records = []*models.LogRecord{}
	}
	return records
}

// Close releases the underlying store
func (g *Gateway) Close() error {
	if g.degraded {
		return nil
	}
	return g.store.Close()
}

// IsHealthy reports gateway health; a degraded gateway is still considered
// operational since ingestion and broadcast do not depend on the store.
func (g *Gateway) IsHealthy() bool {
	if g.degraded {
		return true
	}
	return g.store.Ping() == nil
}

// GetHealth reports the gateway's current mode and store health
func (g *Gateway) GetHealth() *StorageHealth {
	if g.degraded {
		return &StorageHealth{
			StorageType: "memory-only",
			Healthy:     true,
			Details:     map[string]string{"mode": "degraded"},
			LastPing:    time.Now(),
		}
	}
	return g.store.GetHealth()
}

// GetStats returns storage statistics, or nil in degraded mode
func (g *Gateway) GetStats() *StorageStats {
	if g.degraded {
		return &StorageStats{StorageType: "memory-only"}
	}
	stats, err := g.store.GetStorageStats()
	if err != nil {
		g.logger.WithError(err).Error("Failed to get storage stats")
		return &StorageStats{StorageType: "unknown"}
	}
	return stats
}

func (g *Gateway) recordOperation(op string, start time.Time, err error) {
	if g.metricsManager == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	g.metricsManager.GetPrometheusMetrics().RecordDatabaseOperation(op, "logs", status, time.Since(start))
}
