// File: internal/ingest/pipeline.go
package ingest

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/log-monitor/internal/metrics"
	"github.com/smartdevs17/log-monitor/internal/models"
	"github.com/smartdevs17/log-monitor/pkg/utils"
)

// DefaultHistoryLimit is applied when a history query gives no limit
const DefaultHistoryLimit = 50

// Broadcaster fans a frame out to the live subscribers
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Recorder persists records best-effort and serves the history query
type Recorder interface {
	Write(ctx context.Context, record *models.LogRecord)
	QueryRecent(ctx context.Context, limit int) []*models.LogRecord
}

// Pipeline is the single entry point that turns a raw inbound record into a
// stamped LogRecord and dispatches it downstream. Persistence and broadcast
// are fired as two detached tasks whose failures never reach the caller:
// ingestion succeeds if and only if the three fields are present.
type Pipeline struct {
	gateway        Recorder
	hub            Broadcaster
	logger         *logrus.Logger
	metricsManager *metrics.Manager

	writeTimeout time.Duration
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(gateway Recorder, hub Broadcaster) *Pipeline {
	return &Pipeline{
		gateway:      gateway,
		hub:          hub,
		logger:       utils.GetLogger(),
		writeTimeout: 5 * time.Second,
	}
}

// SetMetricsManager attaches a metrics manager for ingestion metrics
func (p *Pipeline) SetMetricsManager(m *metrics.Manager) {
	p.metricsManager = m
}

// Ingest validates the three required fields, stamps the record with the
// current UTC time and returns it immediately. The store write and the
// broadcast run concurrently and are not awaited.
func (p *Pipeline) Ingest(level, message, source string) (*models.LogRecord, error) {
	if level == "" || message == "" || source == "" {
		if p.metricsManager != nil {
			p.metricsManager.GetPrometheusMetrics().RecordValidationFailure()
		}
		return nil, utils.NewAppError(utils.ErrCodeValidation,
			"level, message and source are required")
	}

	record := models.NewLogRecord(level, message, source)

	// The wire frame is built before the store write so the broadcast never
	// carries a store-assigned id.
	frame := record.Frame()

	// The write gets its own copy; the store assigns the id on that copy and
	// the record returned to the caller stays untouched.
	stored := *record
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
		defer cancel()
		p.gateway.Write(ctx, &stored)
	}()

	go p.hub.Broadcast(frame)

	p.logger.WithFields(logrus.Fields{
		"level":  record.Level,
		"source": record.Source,
	}).Debug("Log record ingested")

	if p.metricsManager != nil {
		p.metricsManager.GetPrometheusMetrics().RecordIngested(record.Level, record.Source)
	}

	return record, nil
}

// History returns up to limit persisted records newest-first. It never fails:
// a degraded or erroring store yields an empty slice.
func (p *Pipeline) History(ctx context.Context, limit int) []*models.LogRecord {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return p.gateway.QueryRecent(ctx, limit)
}
