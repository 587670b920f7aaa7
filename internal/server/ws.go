package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/log"
	"github.com/gorilla/websocket"
)

const (
	// clientBuffer is how many events may queue for a slow client before
	// further events are dropped for it.
	clientBuffer = 16
	writeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local connections only
	},
}

// Hub broadcasts pipeline events to WebSocket clients. It implements
// app.Publisher so the pipeline can push to it directly.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan []byte)}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends ev to every client. It never blocks the caller.
func (h *Hub) Publish(ev app.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(ev)
	if err != nil {
		log.Warn("pointer event encode failed", "error", err)
		return
	}

	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case msg := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
