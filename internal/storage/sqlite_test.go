package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/log-monitor/internal/models"
)

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store := NewSQLiteStore(&StorageConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "test.db"),
		MaxConnections:   4,
		MaxIdleTime:      time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, store.Connect(ctx))
	require.NoError(t, store.Migrate())

	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteSaveAssignsID(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	record := models.NewLogRecord("INFO", "service started", "auth-service")
	require.NoError(t, store.SaveRecord(ctx, record))
	assert.Greater(t, record.ID, int64(0))

	second := models.NewLogRecord("ERROR", "service crashed", "auth-service")
	require.NoError(t, store.SaveRecord(ctx, second))
	assert.Greater(t, second.ID, record.ID)
}

func TestSQLiteGetRecentNewestFirst(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		record := &models.LogRecord{
			Level:     "INFO",
			Message:   "event",
			Source:    "test",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.SaveRecord(ctx, record))
	}

	records, err := store.GetRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first, and never more than the limit.
	assert.True(t, records[0].Timestamp.Equal(base.Add(4*time.Second)))
	assert.True(t, records[1].Timestamp.Equal(base.Add(3*time.Second)))
	assert.True(t, records[2].Timestamp.Equal(base.Add(2*time.Second)))

	// Equal timestamps fall back to insertion order, still newest first.
	tied := base.Add(10 * time.Second)
	first := &models.LogRecord{Level: "INFO", Message: "first", Source: "test", Timestamp: tied}
	second := &models.LogRecord{Level: "INFO", Message: "second", Source: "test", Timestamp: tied}
	require.NoError(t, store.SaveRecord(ctx, first))
	require.NoError(t, store.SaveRecord(ctx, second))

	records, err = store.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].Message)
	assert.Equal(t, "first", records[1].Message)
}

func TestSQLiteGetRecordsFilter(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRecord(ctx, models.NewLogRecord("INFO", "a", "svc-a")))
	require.NoError(t, store.SaveRecord(ctx, models.NewLogRecord("ERROR", "b", "svc-a")))
	require.NoError(t, store.SaveRecord(ctx, models.NewLogRecord("ERROR", "c", "svc-b")))

	level := "error"
	records, err := store.GetRecords(ctx, models.RecordFilter{Level: &level})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	source := "svc-b"
	records, err = store.GetRecords(ctx, models.RecordFilter{Level: &level, Source: &source})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "c", records[0].Message)

	count, err := store.GetRecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSQLiteCleanup(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	old := &models.LogRecord{
		Level:     "INFO",
		Message:   "ancient",
		Source:    "test",
		Timestamp: time.Now().UTC().AddDate(0, 0, -30),
	}
	require.NoError(t, store.SaveRecord(ctx, old))
	require.NoError(t, store.SaveRecord(ctx, models.NewLogRecord("INFO", "fresh", "test")))

	deleted, err := store.Cleanup(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := store.GetRecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStats(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()

	stats, err := store.GetStorageStats()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", stats.StorageType)
	assert.Equal(t, int64(0), stats.TotalRecords)

	require.NoError(t, store.SaveRecord(ctx, models.NewLogRecord("INFO", "x", "test")))

	stats, err = store.GetStorageStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalRecords)
	assert.NotNil(t, stats.LatestRecord)

	health := store.GetHealth()
	assert.True(t, health.Healthy)
	assert.Equal(t, "sqlite", health.StorageType)
}
