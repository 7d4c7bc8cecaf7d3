// File: internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/log-monitor/internal/models"
	"github.com/smartdevs17/log-monitor/pkg/utils"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store interface using SQLite
type SQLiteStore struct {
	db         *sql.DB
	config     *StorageConfig
	logger     *logrus.Logger
	migrations []*Migration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(config *StorageConfig) *SQLiteStore {
	return &SQLiteStore{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetSQLiteMigrations(),
	}
}

// Connect establishes database connection
func (s *SQLiteStore) Connect(ctx context.Context) error {
	// Ensure directory exists
	dir := filepath.Dir(s.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create database directory", err.Error())
		}
	}

	db, err := sql.Open("sqlite", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open SQLite database", err.Error())
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err.Error())
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to ping SQLite database", err.Error())
	}

	s.db = db
	s.logger.WithField("path", s.config.ConnectionString).Info("SQLite database connected")

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("SQLite database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *SQLiteStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	for _, migration := range s.migrations {
		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Debug("Applying migration")

		if _, err := s.db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version),
				err.Error())
		}
	}

	return nil
}

// SaveRecord saves a single log record and assigns its store id
func (s *SQLiteStore) SaveRecord(ctx context.Context, record *models.LogRecord) error {
	query := `
		INSERT INTO logs (level, message, source, timestamp)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		record.Level, record.Message, record.Source, record.Timestamp)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save log record", err.Error())
	}

	if id, err := result.LastInsertId(); err == nil {
		record.ID = id
	}

	return nil
}

// GetRecent retrieves up to limit records ordered newest-first
func (s *SQLiteStore) GetRecent(ctx context.Context, limit int) ([]*models.LogRecord, error) {
	query := `
		SELECT id, level, message, source, timestamp
		FROM logs
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query recent records", err.Error())
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetRecords retrieves records based on filter
func (s *SQLiteStore) GetRecords(ctx context.Context, filter models.RecordFilter) ([]*models.LogRecord, error) {
	query := `
		SELECT id, level, message, source, timestamp
		FROM logs WHERE 1=1
	`
	args := []interface{}{}

	if filter.Level != nil {
		query += " AND level = ?"
		args = append(args, strings.ToUpper(*filter.Level))
	}

	if filter.Source != nil {
		query += " AND source = ?"
		args = append(args, *filter.Source)
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query records", err.Error())
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetRecordCount returns the total number of persisted records
func (s *SQLiteStore) GetRecordCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM logs").Scan(&count)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count records", err.Error())
	}
	return count, nil
}

// GetStorageStats returns storage statistics
func (s *SQLiteStore) GetStorageStats() (*StorageStats, error) {
	stats := &StorageStats{StorageType: "sqlite"}

	err := s.db.QueryRow("SELECT COUNT(*) FROM logs").Scan(&stats.TotalRecords)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get storage stats", err.Error())
	}

	if stats.TotalRecords > 0 {
		var oldest, latest time.Time
		err = s.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM logs").Scan(&oldest, &latest)
		if err == nil {
			stats.OldestRecord = &oldest
			stats.LatestRecord = &latest
		}
	}

	return stats, nil
}

// GetHealth reports store health
func (s *SQLiteStore) GetHealth() *StorageHealth {
	return &StorageHealth{
		StorageType: "sqlite",
		Healthy:     s.Ping() == nil,
		Details:     map[string]string{"connection_string": s.config.ConnectionString},
		LastPing:    time.Now(),
	}
}

// Cleanup removes records older than the retention window
func (s *SQLiteStore) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	result, err := s.db.ExecContext(ctx, "DELETE FROM logs WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to cleanup records", err.Error())
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// scanRecords reads log records from a result set
func scanRecords(rows *sql.Rows) ([]*models.LogRecord, error) {
	var records []*models.LogRecord
	for rows.Next() {
		var record models.LogRecord

		err := rows.Scan(&record.ID, &record.Level, &record.Message,
			&record.Source, &record.Timestamp)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan record", err.Error())
		}
		record.Timestamp = record.Timestamp.UTC()

		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read records", err.Error())
	}
	return records, nil
}
