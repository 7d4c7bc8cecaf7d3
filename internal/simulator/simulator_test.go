package simulator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/log-monitor/internal/config"
	"github.com/smartdevs17/log-monitor/internal/models"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		level   string
		message string
	}{
		{"ERROR: disk full", "ERROR", "disk full"},
		{"warning: almost full", "WARNING", "almost full"},
		{"INFO:no space after colon", "INFO", "no space after colon"},
		{"plain line without prefix", "INFO", "plain line without prefix"},
		{"DEBUGGING is not a level prefix", "INFO", "DEBUGGING is not a level prefix"},
	}

	for _, tt := range tests {
		level, message := parseLine(tt.line)
		assert.Equal(t, tt.level, level, "line %q", tt.line)
		assert.Equal(t, tt.message, message, "line %q", tt.line)
	}
}

func TestRandomSimulatorPostsRecords(t *testing.T) {
	var mu sync.Mutex
	var received []models.IngestRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.IngestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		received = append(received, req)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	sim := New(&config.SimulatorConfig{
		TargetURL:     ts.URL,
		RatePerSecond: 200,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sim.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) >= 3
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	for _, req := range received[:3] {
		assert.NotEmpty(t, req.Level)
		assert.NotEmpty(t, req.Message)
		assert.NotEmpty(t, req.Source)
	}
}
