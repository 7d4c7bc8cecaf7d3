package connection

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/log-monitor/internal/config"
	"github.com/smartdevs17/log-monitor/internal/metrics"
	"github.com/smartdevs17/log-monitor/pkg/utils"
)

// Hub defines the broadcast hub interface
type Hub interface {
	Register(sub *Subscriber)
	Unregister(sub *Subscriber)
	Broadcast(payload []byte)
	SubscriberCount() int
	IsHealthy() bool
	Close() error
	GetStats() HubStats
}

// Manager implements the Hub interface. A single mutex serializes every
// registry mutation and every broadcast pass, so a pass always iterates a
// coherent snapshot while connects and disconnects happen concurrently.
// Because broadcasts are serialized and each subscriber drains a single FIFO
// queue, per-subscriber delivery order matches broadcast invocation order.
type Manager struct {
	config *config.HubConfig
	logger *logrus.Logger

	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
	closed      bool

	stats          HubStats
	metricsManager *metrics.Manager
}

// HubStats holds broadcast hub statistics
type HubStats struct {
	ActiveSubscribers int       `json:"active_subscribers"`
	TotalConnected    uint64    `json:"total_connected"`
	TotalPruned       uint64    `json:"total_pruned"`
	TotalBroadcasts   uint64    `json:"total_broadcasts"`
	TotalDropped      uint64    `json:"total_dropped"`
	LastBroadcastAt   time.Time `json:"last_broadcast_at"`
}

// NewManager creates a new broadcast hub
func NewManager(cfg *config.HubConfig) *Manager {
	return &Manager{
		config:      cfg,
		logger:      utils.GetLogger(),
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// SetMetricsManager attaches a metrics manager for hub metrics
func (m *Manager) SetMetricsManager(mm *metrics.Manager) {
	m.metricsManager = mm
}

// NewSubscriber creates a subscriber sized from the hub configuration
func (m *Manager) NewSubscriber() *Subscriber {
	return NewSubscriber(m.config.SubscriberBuffer)
}

// Register adds a subscriber to the registry and activates it. Registration
// always succeeds; from this point the subscriber is included in broadcasts.
func (m *Manager) Register(sub *Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		sub.finishClose()
		return
	}

	sub.activate()
	m.subscribers[sub] = struct{}{}
	m.stats.TotalConnected++
	m.stats.ActiveSubscribers = len(m.subscribers)

	m.logger.WithFields(logrus.Fields{
		"subscriber": sub.ID(),
		"active":     len(m.subscribers),
	}).Info("Subscriber registered")

	if m.metricsManager != nil {
		pm := m.metricsManager.GetPrometheusMetrics()
		pm.RecordSubscriberConnected()
		pm.UpdateSubscribersActive(len(m.subscribers))
	}
}

// Unregister removes a subscriber and releases its queue. Idempotent: it may
// be invoked by the connection's reader, its writer, and the hub's pruning
// pass in any order.
func (m *Manager) Unregister(sub *Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregisterLocked(sub, false)
}

// unregisterLocked removes a subscriber while the registry mutex is held
func (m *Manager) unregisterLocked(sub *Subscriber, pruned bool) {
	if _, ok := m.subscribers[sub]; !ok {
		// Already removed; still make sure the queue is released.
		sub.finishClose()
		return
	}

	delete(m.subscribers, sub)
	sub.finishClose()
	m.stats.ActiveSubscribers = len(m.subscribers)
	if pruned {
		m.stats.TotalPruned++
	}

	m.logger.WithFields(logrus.Fields{
		"subscriber": sub.ID(),
		"pruned":     pruned,
		"active":     len(m.subscribers),
	}).Info("Subscriber unregistered")

	if m.metricsManager != nil {
		pm := m.metricsManager.GetPrometheusMetrics()
		if pruned {
			pm.RecordSubscriberPruned()
		}
		pm.UpdateSubscribersActive(len(m.subscribers))
	}
}

// Broadcast delivers a payload to every subscriber registered at the moment
// of the call. Delivery is per-subscriber independent: a full queue or a
// closed connection marks that subscriber for pruning at the end of the pass
// and never affects the others or the caller.
func (m *Manager) Broadcast(payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	var failed []*Subscriber
	delivered := 0

	for sub := range m.subscribers {
		if sub.offer(payload) {
			delivered++
			continue
		}
		sub.beginClose()
		failed = append(failed, sub)
	}

	// Prune failed subscribers after the pass so the iteration above never
	// mutates the registry it is walking.
	for _, sub := range failed {
		m.unregisterLocked(sub, true)
	}

	m.stats.TotalBroadcasts++
	m.stats.TotalDropped += uint64(len(failed))
	m.stats.LastBroadcastAt = time.Now()

	if m.metricsManager != nil {
		m.metricsManager.GetPrometheusMetrics().RecordBroadcast(delivered, len(failed))
	}
}

// SubscriberCount returns the number of registered subscribers
func (m *Manager) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// IsHealthy reports hub health
func (m *Manager) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// GetStats returns a snapshot of hub statistics
func (m *Manager) GetStats() HubStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	stats.ActiveSubscribers = len(m.subscribers)
	return stats
}

// Close releases every subscriber and rejects further registrations
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for sub := range m.subscribers {
		delete(m.subscribers, sub)
		sub.finishClose()
	}
	m.stats.ActiveSubscribers = 0

	m.logger.Info("Broadcast hub closed")
	return nil
}
