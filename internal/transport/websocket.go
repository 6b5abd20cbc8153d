package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"audioviz/internal/log"
)

const writeTimeout = 2 * time.Second

// WebSocketServer broadcasts frame payloads to every connected client.
// Clients that fail a write are dropped; broadcasting never blocks the
// caller beyond the per-client write timeout.
type WebSocketServer struct {
	addr     string
	server   *http.Server
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

var _ Transport = (*WebSocketServer)(nil)

// NewWebSocketServer starts listening on addr and serving the /ws
// endpoint. The listener runs on its own goroutine until Close.
func NewWebSocketServer(addr string) (*WebSocketServer, error) {
	s := &WebSocketServer{
		addr:    addr,
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			// Local visualization consumers; no origin policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Infof("Transport: websocket listening on ws://%s/ws", addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Transport: websocket server: %v", err)
		}
	}()

	return s, nil
}

func (s *WebSocketServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("Transport: upgrade failed: %v", err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[conn] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()
	log.Infof("Transport: client connected (%d total)", count)

	// Drain reads so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.dropClient(conn)
				return
			}
		}
	}()
}

func (s *WebSocketServer) dropClient(conn *websocket.Conn) {
	s.mu.Lock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		log.Debugf("Transport: client disconnected (%d total)", len(s.clients))
	}
	s.mu.Unlock()
	conn.Close()
}

// Send marshals data as JSON and broadcasts it to all clients.
func (s *WebSocketServer) Send(data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("transport: marshal: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("transport: websocket server closed")
	}
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Warnf("Transport: write failed, dropping client: %v", err)
			s.dropClient(conn)
		}
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (s *WebSocketServer) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects all clients and stops the listener.
func (s *WebSocketServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = nil
	s.mu.Unlock()

	return s.server.Close()
}
