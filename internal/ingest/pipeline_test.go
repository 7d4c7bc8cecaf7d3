package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/log-monitor/internal/models"
	"github.com/smartdevs17/log-monitor/pkg/utils"
)

// fakeRecorder captures writes and serves a canned history
type fakeRecorder struct {
	mu      sync.Mutex
	written []*models.LogRecord
	history []*models.LogRecord

	lastLimit int
	wrote     chan struct{}
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{wrote: make(chan struct{}, 16)}
}

func (f *fakeRecorder) Write(ctx context.Context, record *models.LogRecord) {
	f.mu.Lock()
	// Simulate the store assigning an id on its own copy.
	record.ID = int64(len(f.written) + 1)
	f.written = append(f.written, record)
	f.mu.Unlock()
	f.wrote <- struct{}{}
}

func (f *fakeRecorder) QueryRecent(ctx context.Context, limit int) []*models.LogRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	return f.history
}

// fakeBroadcaster captures broadcast frames
type fakeBroadcaster struct {
	frames chan []byte
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{frames: make(chan []byte, 16)}
}

func (f *fakeBroadcaster) Broadcast(payload []byte) {
	f.frames <- payload
}

func TestIngestValidation(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		message string
		source  string
	}{
		{"missing level", "", "msg", "src"},
		{"missing message", "INFO", "", "src"},
		{"missing source", "INFO", "msg", ""},
		{"all missing", "", "", ""},
	}

	recorder := newFakeRecorder()
	hub := newFakeBroadcaster()
	p := NewPipeline(recorder, hub)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := p.Ingest(tt.level, tt.message, tt.source)
			require.Error(t, err)
			assert.Nil(t, record)

			appErr, ok := err.(*utils.AppError)
			require.True(t, ok)
			assert.Equal(t, utils.ErrCodeValidation, appErr.Code)
		})
	}

	// Nothing must have been dispatched.
	select {
	case <-recorder.wrote:
		t.Fatal("rejected record reached the recorder")
	case <-hub.frames:
		t.Fatal("rejected record reached the hub")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIngestStampsAndDispatches(t *testing.T) {
	recorder := newFakeRecorder()
	hub := newFakeBroadcaster()
	p := NewPipeline(recorder, hub)

	before := time.Now().UTC()
	record, err := p.Ingest("ERROR", "disk full", "storage-agent")
	require.NoError(t, err)
	after := time.Now().UTC()

	assert.Equal(t, "ERROR", record.Level)
	assert.Equal(t, "disk full", record.Message)
	assert.Equal(t, "storage-agent", record.Source)
	assert.Equal(t, time.UTC, record.Timestamp.Location())
	assert.False(t, record.Timestamp.Before(before))
	assert.False(t, record.Timestamp.After(after))

	// Both downstream tasks fire.
	select {
	case <-recorder.wrote:
	case <-time.After(time.Second):
		t.Fatal("recorder was never invoked")
	}

	var frame []byte
	select {
	case frame = <-hub.frames:
	case <-time.After(time.Second):
		t.Fatal("hub was never invoked")
	}

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, "ERROR", decoded["level"])
	assert.Equal(t, "disk full", decoded["message"])
	assert.Equal(t, "storage-agent", decoded["source"])
	// The broadcast frame is built before the store write and never carries
	// a store-assigned id.
	assert.NotContains(t, decoded, "id")

	// The store assigned an id on its own copy; the record handed back to
	// the caller stays untouched.
	assert.Equal(t, int64(0), record.ID)
	recorder.mu.Lock()
	assert.Equal(t, int64(1), recorder.written[0].ID)
	recorder.mu.Unlock()
}

func TestIngestLevelIsFreeText(t *testing.T) {
	recorder := newFakeRecorder()
	hub := newFakeBroadcaster()
	p := NewPipeline(recorder, hub)

	record, err := p.Ingest("VERBOSE", "custom level accepted", "legacy-app")
	require.NoError(t, err)
	assert.Equal(t, "VERBOSE", record.Level)
}

func TestHistoryDefaultsLimit(t *testing.T) {
	recorder := newFakeRecorder()
	recorder.history = []*models.LogRecord{
		{ID: 2, Level: "INFO", Message: "b", Source: "s"},
		{ID: 1, Level: "INFO", Message: "a", Source: "s"},
	}
	p := NewPipeline(recorder, newFakeBroadcaster())

	records := p.History(context.Background(), 0)
	assert.Len(t, records, 2)
	assert.Equal(t, DefaultHistoryLimit, recorder.lastLimit)

	p.History(context.Background(), -5)
	assert.Equal(t, DefaultHistoryLimit, recorder.lastLimit)

	p.History(context.Background(), 7)
	assert.Equal(t, 7, recorder.lastLimit)
}
