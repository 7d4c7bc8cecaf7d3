package storage

import (
	"time"
)

// Migration represents a database migration
type Migration struct {
	ID          int       `db:"id"`
	Version     string    `db:"version"`
	Description string    `db:"description"`
	SQL         string    `db:"sql"`
	AppliedAt   time.Time `db:"applied_at"`
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS logs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					level TEXT NOT NULL,
					message TEXT NOT NULL,
					source TEXT NOT NULL,
					timestamp DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp);
				CREATE INDEX IF NOT EXISTS idx_logs_level ON logs(level);
				CREATE INDEX IF NOT EXISTS idx_logs_source ON logs(source);
			`,
		},
	}
}

// GetPostgreSQLMigrations returns PostgreSQL migration scripts
func GetPostgreSQLMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS logs (
					id BIGSERIAL PRIMARY KEY,
					level TEXT NOT NULL,
					message TEXT NOT NULL,
					source TEXT NOT NULL,
					timestamp TIMESTAMPTZ NOT NULL,
					created_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp);
				CREATE INDEX IF NOT EXISTS idx_logs_level ON logs(level);
				CREATE INDEX IF NOT EXISTS idx_logs_source ON logs(source);
			`,
		},
	}
}
