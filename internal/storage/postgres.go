// File: internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/log-monitor/internal/models"
	"github.com/smartdevs17/log-monitor/pkg/utils"
)

// PostgreSQLStore implements Store interface using PostgreSQL
type PostgreSQLStore struct {
	db         *sql.DB
	config     *StorageConfig
	logger     *logrus.Logger
	migrations []*Migration
}

// NewPostgreSQLStore creates a new PostgreSQL store instance
func NewPostgreSQLStore(config *StorageConfig) *PostgreSQLStore {
	return &PostgreSQLStore{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetPostgreSQLMigrations(),
	}
}

// Connect establishes database connection
func (s *PostgreSQLStore) Connect(ctx context.Context) error {
	db, err := sql.Open("postgres", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err.Error())
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to ping PostgreSQL database", err.Error())
	}

	s.db = db
	s.logger.Info("PostgreSQL database connected")

	return nil
}

// Close closes the database connection
func (s *PostgreSQLStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("PostgreSQL database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *PostgreSQLStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations
func (s *PostgreSQLStore) Migrate() error {
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
func (s *PostgreSQLStore) SaveRecord(ctx context.Context, record *models.LogRecord) error {
	query := `
		INSERT INTO logs (level, message, source, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		record.Level, record.Message, record.Source, record.Timestamp).Scan(&record.ID)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save log record", err.Error())
	}

	return nil
}

// GetRecent retrieves up to limit records ordered newest-first
func (s *PostgreSQLStore) GetRecent(ctx context.Context, limit int) ([]*models.LogRecord, error) {
	query := `
		SELECT id, level, message, source, timestamp
		FROM logs
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query recent records", err.Error())
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetRecords retrieves records based on filter
func (s *PostgreSQLStore) GetRecords(ctx context.Context, filter models.RecordFilter) ([]*models.LogRecord, error) {
	query := `
		SELECT id, level, message, source, timestamp
		FROM logs WHERE 1=1
	`
	args := []interface{}{}
	argIndex := 1

	if filter.Level != nil {
		query += fmt.Sprintf(" AND level = $%d", argIndex)
		args = append(args, strings.ToUpper(*filter.Level))
		argIndex++
	}

	if filter.Source != nil {
		query += fmt.Sprintf(" AND source = $%d", argIndex)
		args = append(args, *filter.Source)
		argIndex++
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
		argIndex++
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query records", err.Error())
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetRecordCount returns the total number of persisted records
func (s *PostgreSQLStore) GetRecordCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM logs").Scan(&count)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count records", err.Error())
	}
	return count, nil
}

// GetStorageStats returns storage statistics
func (s *PostgreSQLStore) GetStorageStats() (*StorageStats, error) {
	stats := &StorageStats{StorageType: "postgres"}

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
func (s *PostgreSQLStore) GetHealth() *StorageHealth {
	return &StorageHealth{
		StorageType: "postgres",
		Healthy:     s.Ping() == nil,
		LastPing:    time.Now(),
	}
}

// Cleanup removes records older than the retention window
func (s *PostgreSQLStore) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	result, err := s.db.ExecContext(ctx, "DELETE FROM logs WHERE timestamp < $1", cutoff)
	if err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to cleanup records", err.Error())
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}
