package sse

import (
	"path"
	"sync"

	"github.com/kbukum/diarlive/logger"
)

// ClientBuffer is the number of frames a client may fall behind before
// frames are dropped for it.
const ClientBuffer = 64

// ClientID builds a client id under a topic, e.g. "meeting:m1:<uuid>".
func ClientID(kind, key, unique string) string {
	return kind + ":" + key + ":" + unique
}

// Topic builds the pattern matching every client of kind and key.
func Topic(kind, key string) string {
	return kind + ":" + key + ":*"
}

// Client is one connected stream.
type Client struct {
	id     string
	frames chan Frame
}

// NewClient creates a client with a ClientBuffer-sized queue.
func NewClient(id string) *Client {
	return &Client{id: id, frames: make(chan Frame, ClientBuffer)}
}

func (c *Client) ID() string { return c.id }

// Frames returns the client's queue. It is closed when the client is
// unregistered.
func (c *Client) Frames() <-chan Frame { return c.frames }

// Send queues f, reporting false when the client is too slow.
func (c *Client) Send(f Frame) bool {
	select {
	case c.frames <- f:
		return true
	default:
		return false
	}
}

type message struct {
	pattern string
	frame   Frame
}

// Hub routes frames to clients whose id matches a glob pattern.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *logger.Logger
}

// NewHub creates a stopped hub; call Run to start routing.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		log:        logger.Get("sse"),
	}
}

// Run routes registrations and frames until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("SSE client registered", logger.Fields("client_id", c.id, "total_clients", n))
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.frames)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("SSE client unregistered", logger.Fields("client_id", c.id, "total_clients", n))
		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

// Stop closes every client and makes Run return. Safe to call twice.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds c. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c and closes its queue.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish sends f to every client whose id matches pattern.
func (h *Hub) Publish(pattern string, f Frame) {
	select {
	case h.broadcast <- message{pattern: pattern, frame: f}:
	case <-h.done:
	}
}

func (h *Hub) deliver(m message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		matched, err := path.Match(m.pattern, id)
		if err != nil {
			h.log.Error("SSE pattern match error", logger.Fields("pattern", m.pattern, logger.FieldError, err.Error()))
			return
		}
		if matched && !c.Send(m.frame) {
			h.log.Warn("SSE client too slow, dropping frame", logger.Fields("client_id", id, "event", m.frame.Event))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.frames)
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
