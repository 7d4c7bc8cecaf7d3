package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/log-monitor/internal/config"
	"github.com/smartdevs17/log-monitor/internal/connection"
	"github.com/smartdevs17/log-monitor/internal/ingest"
	"github.com/smartdevs17/log-monitor/internal/models"
	"github.com/smartdevs17/log-monitor/internal/storage"
)

func setupTestServer(t *testing.T) *HTTPServer {
	t.Helper()

	store := storage.NewSQLiteStore(&storage.StorageConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "server.db"),
		MaxConnections:   4,
		MaxIdleTime:      time.Minute,
	})

	gateway := storage.NewGateway(store)
	gateway.Connect(t.Context(), 5*time.Second)
	require.False(t, gateway.Degraded())
	t.Cleanup(func() { gateway.Close() })

	hubCfg := &config.HubConfig{
		SubscriberBuffer: 64,
		WriteTimeout:     10 * time.Second,
		PongTimeout:      60 * time.Second,
	}
	hub := connection.NewManager(hubCfg)
	t.Cleanup(func() { hub.Close() })

	pipeline := ingest.NewPipeline(gateway, hub)

	srv, err := NewHTTPServer(
		&config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         0,
			ReadTimeout:  10 * time.Second,
			EnableHealth: true,
		},
		hubCfg,
		gateway,
		hub,
		pipeline,
		nil,
	)
	require.NoError(t, err)
	return srv
}

func postLog(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/logs", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIngestEndpoint(t *testing.T) {
	srv := setupTestServer(t)

	w := postLog(t, srv.Router(), `{"level":"INFO","message":"hello","source":"test-suite"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string           `json:"status"`
		Data   models.LogRecord `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "INFO", resp.Data.Level)
	assert.Equal(t, "hello", resp.Data.Message)
	assert.Equal(t, "test-suite", resp.Data.Source)
	assert.False(t, resp.Data.Timestamp.IsZero())
	// The response record carries the server-side stamp, not a store id.
	assert.Equal(t, int64(0), resp.Data.ID)
}

func TestIngestEndpointRejectsMissingFields(t *testing.T) {
	srv := setupTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing level", `{"message":"hello","source":"x"}`},
		{"missing message", `{"level":"INFO","source":"x"}`},
		{"missing source", `{"level":"INFO","message":"hello"}`},
		{"empty object", `{}`},
		{"malformed json", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postLog(t, srv.Router(), tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv := setupTestServer(t)

	for _, msg := range []string{"first", "second", "third"} {
		w := postLog(t, srv.Router(), `{"level":"INFO","message":"`+msg+`","source":"test-suite"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	// Persistence is fire-and-forget; wait for the writes to land.
	require.Eventually(t, func() bool {
		req := httptest.NewRequest("GET", "/history", nil)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		var records []*models.LogRecord
		if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
			return false
		}
		return len(records) == 3
	}, 3*time.Second, 50*time.Millisecond)

	req := httptest.NewRequest("GET", "/history?limit=2", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var records []*models.LogRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
	require.Len(t, records, 2)
	// Newest first, and history records carry their store id.
	assert.Equal(t, "third", records[0].Message)
	assert.Equal(t, "second", records[1].Message)
	assert.Greater(t, records[0].ID, records[1].ID)
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestWebSocketStream(t *testing.T) {
	srv := setupTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the hub a moment to register the viewer before broadcasting.
	require.Eventually(t, func() bool {
		return srv.hub.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(ts.URL+"/logs", "application/json",
		strings.NewReader(`{"level":"ERROR","message":"live frame","source":"ws-test"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, "ERROR", decoded["level"])
	assert.Equal(t, "live frame", decoded["message"])
	assert.Equal(t, "ws-test", decoded["source"])
	assert.NotContains(t, decoded, "id")
}

func TestWebSocketDisconnectUnregisters(t *testing.T) {
	srv := setupTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return srv.hub.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return srv.hub.SubscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
