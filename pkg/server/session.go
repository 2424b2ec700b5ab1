package server

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/corkboard-dev/corkboard/pkg/protocol"
)

// Session is one live WebSocket connection. It owns a buffered send queue
// drained by its write loop; the read loop feeds decoded messages to the
// hub's inbound queue.
type Session struct {
	// ID is the opaque session identifier, independent of any user
	// account. Assigned on connect and announced via session:welcome.
	ID string

	conn   *websocket.Conn
	hub    *Hub
	config *Config
	logger *slog.Logger

	send   chan []byte
	done   chan struct{}
	closed atomic.Bool

	lastActive    atomic.Int64
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
}

func newSession(id string, conn *websocket.Conn, hub *Hub, config *Config, logger *slog.Logger) *Session {
	s := &Session{
		ID:     id,
		conn:   conn,
		hub:    hub,
		config: config,
		logger: logger.With("component", "session", "session", id),
		send:   make(chan []byte, protocol.MaxPendingSends),
		done:   make(chan struct{}),
	}
	s.lastActive.Store(time.Now().UnixNano())
	return s
}

// Start starts the session loops after the welcome message is queued.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send queues a message for delivery. A full queue means the session
// cannot keep up with its broadcast volume; it is closed and will recover
// through resync on reconnect.
func (s *Session) Send(msg []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.send <- msg:
	default:
		s.logger.Warn("send queue full, closing slow consumer")
		s.hub.metrics.RecordWSError("slow_consumer")
		s.Close()
	}
}

// Close tears the session down once. Safe to call from any goroutine.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)
	s.conn.Close()
	s.hub.disconnected(s)
}

// UpdateLastActive records inbound traffic.
func (s *Session) UpdateLastActive() {
	s.lastActive.Store(time.Now().UnixNano())
}

// LastActive returns the time of the last inbound message.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// readLoop continuously reads messages from the WebSocket connection and
// forwards them to the hub. It blocks until the connection closes.
func (s *Session) readLoop() {
	defer s.Close()

	s.conn.SetReadLimit(protocol.MaxMessageBytes)
	s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		return nil
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
				s.hub.metrics.RecordWSError("read")
			}
			return
		}

		s.UpdateLastActive()
		s.bytesReceived.Add(uint64(len(msg)))
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		s.hub.ingest(s, msg)
	}
}

// writeLoop drains the send queue and emits heartbeat pings.
func (s *Session) writeLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Error("write error", "error", err)
				s.hub.metrics.RecordWSError("write")
				s.Close()
				return
			}
			s.bytesSent.Add(uint64(len(msg)))

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}

		case <-s.done:
			return
		}
	}
}
