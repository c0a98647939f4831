package relay

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

type peer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// readPump forwards "message" frames to the dispatcher until the connection
// drops, then unregisters the peer.
func (s *Server) readPump(p *peer) {
	defer func() {
		select {
		case s.unregister <- p:
		case <-s.quit:
		}
		_ = p.conn.Close()
		s.logger.Printf("socket disconnected: %s", p.id)
	}()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("socket %s: read: %v", p.id, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.logger.Printf("socket %s: dropping malformed frame: %v", p.id, err)
			continue
		}
		if env.Event != EventMessage {
			continue
		}

		payload, err := json.Marshal(Envelope{Event: EventMessage, Data: env.Data})
		if err != nil {
			continue
		}
		select {
		case s.broadcast <- outbound{from: p, payload: payload}:
		case <-s.quit:
			return
		}
	}
}

// writePump drains p.send onto the connection and keeps it alive with pings.
func (s *Server) writePump(p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
