// File: internal/server/websocket.go
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/log-monitor/internal/connection"
)

// maxInboundFrameSize bounds viewer frames; their payload is ignored and only
// used as a liveness signal.
const maxInboundFrameSize = 512

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Viewers connect from anywhere, matching the permissive CORS policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamHandler upgrades a viewer connection and attaches it to the hub.
// The handler goroutine runs the reader (inbound frames are discarded, they
// only signal liveness); a second goroutine pumps hub frames out. Either side
// failing unregisters the subscriber; unregistration is idempotent so the
// hub's own pruning pass may win the race.
func (s *HTTPServer) streamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	sub := s.hub.NewSubscriber()
	s.hub.Register(sub)

	s.logger.WithFields(logrus.Fields{
		"subscriber": sub.ID(),
		"remote":     conn.RemoteAddr().String(),
	}).Info("Viewer connected")

	go s.writePump(conn, sub)
	s.readPump(conn, sub)
}

// writePump drains the subscriber's frame queue onto the connection. It owns
// all writes, including the keepalive pings.
func (s *HTTPServer) writePump(conn *websocket.Conn, sub *connection.Subscriber) {
	pingPeriod := s.hubConfig.PongTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sub.Frames():
			conn.SetWriteDeadline(time.Now().Add(s.hubConfig.WriteTimeout))
			if !ok {
				// The hub released this subscriber.
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.WithFields(logrus.Fields{
					"subscriber": sub.ID(),
					"error":      err,
				}).Debug("Viewer send failed")
				s.hub.Unregister(sub)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.hubConfig.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.hub.Unregister(sub)
				return
			}
		}
	}
}

// readPump consumes inbound frames until the viewer disconnects
func (s *HTTPServer) readPump(conn *websocket.Conn, sub *connection.Subscriber) {
	defer func() {
		s.hub.Unregister(sub)
		conn.Close()
	}()

	conn.SetReadLimit(maxInboundFrameSize)
	conn.SetReadDeadline(time.Now().Add(s.hubConfig.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.hubConfig.PongTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WithFields(logrus.Fields{
					"subscriber": sub.ID(),
					"error":      err,
				}).Debug("Viewer read failed")
			}
			return
		}
		// Payload ignored; any inbound frame refreshes liveness.
		conn.SetReadDeadline(time.Now().Add(s.hubConfig.PongTimeout))
	}
}
