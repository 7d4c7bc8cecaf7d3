package models

import (
	"encoding/json"
	"time"
)

// LogRecord represents a single ingested log event. The timestamp is assigned
// server-side at ingestion; the record is never mutated afterwards.
type LogRecord struct {
	ID        int64     `json:"id,omitempty" db:"id"`
	Level     string    `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	Source    string    `json:"source" db:"source"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// NewLogRecord creates a record stamped with the current UTC time.
func NewLogRecord(level, message, source string) *LogRecord {
	return &LogRecord{
		Level:     level,
		Message:   message,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// Frame returns the JSON wire form pushed to live viewers. The store-assigned
// id is zero at broadcast time and therefore omitted.
func (r *LogRecord) Frame() []byte {
	data, _ := json.Marshal(r)
	return data
}

// RecordFilter for querying persisted records
type RecordFilter struct {
	Level  *string `json:"level,omitempty"`
	Source *string `json:"source,omitempty"`
	Limit  int     `json:"limit,omitempty"`
	Offset int     `json:"offset,omitempty"`
}

// IngestRequest is the inbound shape accepted by the ingestion endpoint.
// Presence of the three fields is the only enforced constraint; level is
// free text, not a closed set.
type IngestRequest struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Source  string `json:"source"`
}
