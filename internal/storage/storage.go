// File: internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"github.com/smartdevs17/log-monitor/internal/models"
)

// Store defines the interface for log record storage operations
type Store interface {
	// Connection management
	Connect(ctx context.Context) error
	Close() error
	Ping() error
	Migrate() error

	// Record operations
	SaveRecord(ctx context.Context, record *models.LogRecord) error
	GetRecent(ctx context.Context, limit int) ([]*models.LogRecord, error)
	GetRecords(ctx context.Context, filter models.RecordFilter) ([]*models.LogRecord, error)
	GetRecordCount(ctx context.Context) (int64, error)

	// Statistics and monitoring
	GetStorageStats() (*StorageStats, error)
	GetHealth() *StorageHealth

	// Maintenance operations
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// StorageStats provides storage statistics
type StorageStats struct {
	TotalRecords int64      `json:"total_records"`
	OldestRecord *time.Time `json:"oldest_record,omitempty"`
	LatestRecord *time.Time `json:"latest_record,omitempty"`
	StorageType  string     `json:"storage_type"`
}

// StorageHealth reports the current health of the backing store
type StorageHealth struct {
	StorageType string            `json:"storage_type"`
	Healthy     bool              `json:"healthy"`
	Details     map[string]string `json:"details,omitempty"`
	LastPing    time.Time         `json:"last_ping"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	ConnectTimeout   time.Duration `json:"connect_timeout"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
}
