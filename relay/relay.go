// Package relay is a fan-out websocket relay: every "message" event a peer
// sends is forwarded to all other connected peers. Nothing is stored.
package relay

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	EventConnect = "connect"
	EventMessage = "message"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

var ErrClosed = errors.New("relay closed")

// Envelope is the frame format on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	from    *peer
	payload []byte
}

// Server owns the peer set. Create it once at startup; the dispatcher
// goroutine starts on the first Ensure.
type Server struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	started bool
	closed  bool

	register   chan *peer
	unregister chan *peer
	broadcast  chan outbound
	count      chan chan int
	quit       chan struct{}
	done       chan struct{}
}

func New(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		register:   make(chan *peer),
		unregister: make(chan *peer),
		broadcast:  make(chan outbound),
		count:      make(chan chan int),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Ensure starts the dispatcher if it is not running yet and reports whether
// this call started it. Safe to call from many goroutines.
func (s *Server) Ensure() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if s.started {
		return false, nil
	}
	s.started = true
	go s.run()
	return true, nil
}

// Close stops the dispatcher and disconnects every peer.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	close(s.quit)
	if started {
		<-s.done
	}
}

// Peers returns the number of registered peers.
func (s *Server) Peers() int {
	s.mu.Lock()
	running := s.started && !s.closed
	s.mu.Unlock()
	if !running {
		return 0
	}

	reply := make(chan int, 1)
	select {
	case s.count <- reply:
		return <-reply
	case <-s.quit:
		return 0
	}
}

// Serve upgrades the request and keeps the connection until either side
// closes it.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request) error {
	if _, err := s.Ensure(); err != nil {
		return err
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	p := &peer{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case s.register <- p:
	case <-s.quit:
		_ = conn.Close()
		return ErrClosed
	}
	s.logger.Printf("socket connected: %s", p.id)

	go s.writePump(p)
	s.readPump(p)
	return nil
}

func (s *Server) run() {
	defer close(s.done)
	peers := make(map[*peer]struct{})

	for {
		select {
		case p := <-s.register:
			peers[p] = struct{}{}
			if hello, err := connectFrame(p.id); err == nil {
				p.send <- hello
			}
		case p := <-s.unregister:
			if _, ok := peers[p]; ok {
				delete(peers, p)
				close(p.send)
			}
		case m := <-s.broadcast:
			for p := range peers {
				if p == m.from {
					continue
				}
				select {
				case p.send <- m.payload:
				default:
					s.logger.Printf("socket %s: send buffer full, disconnecting", p.id)
					delete(peers, p)
					close(p.send)
				}
			}
		case reply := <-s.count:
			reply <- len(peers)
		case <-s.quit:
			for p := range peers {
				close(p.send)
			}
			return
		}
	}
}

func connectFrame(id string) ([]byte, error) {
	data, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: EventConnect, Data: data})
}
