package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// EventRecordAccepted is the only stream event type.
const EventRecordAccepted = "record.accepted"

// StreamEvent wraps every websocket message.
type StreamEvent struct {
	Type   string     `json:"type"`
	Record RecordView `json:"record"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Edges and operators connect from arbitrary hosts; reads are public.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream pushes every record accepted after the connection opens, in
// sequence order. Clients that fall behind are disconnected and should
// resume with GET /api/reports?after_seq=N, N being the last seq received.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	records, cancel := s.feed.Subscribe()
	defer cancel()

	s.logger.DebugContext(r.Context(), "stream client connected",
		"request_id", requestID(r.Context()),
		"subscribers", s.feed.Len(),
	)

	// Reader: only control frames are expected. A read error means the
	// client went away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-records:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
				return
			}
			event := StreamEvent{Type: EventRecordAccepted, Record: NewRecordView(rec)}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
