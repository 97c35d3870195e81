// Package stream serves the flock to websocket clients. A Hub is both the
// renderer of a flock.Scheduler, broadcasting one binary Frame per tick, and
// its domain provider: clients report their canvas size and may request a
// new population.
package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-boids-canvas/internal/wire"
	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/flock"
)

const (
	writeWait = 2 * time.Second
	// Control messages are a few dozen bytes.
	maxControlSize = 512
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames out to every connected client.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	domain   flock.Domain
	dropped  uint64
	upgrader websocket.Upgrader

	sendBuffer   int
	onPopulation func(n int) error
	logger       *zap.Logger

	// Touched only by the rendering goroutine
	frame wire.Frame
	buf   []byte
}

// Option customises a Hub.
type Option func(*Hub)

// WithLogger sets the logger, zap.NewNop by default.
func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithSendBuffer sets how many frames may queue per client before new
// frames are dropped for it.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// OnPopulation registers the handler for population requests, typically
// Scheduler.RequestPopulation.
func OnPopulation(fn func(n int) error) Option {
	return func(h *Hub) {
		h.onPopulation = fn
	}
}

// NewHub returns a hub whose domain is initial until a client reports its size.
func NewHub(initial flock.Domain, opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*client]struct{}),
		domain:     initial,
		sendBuffer: 4,
		logger:     zap.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 8192,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Domain implements flock.DomainProvider.
func (h *Hub) Domain() flock.Domain {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.domain
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped is the number of frames skipped for clients that could not keep up.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// BeginFrame implements flock.FrameRenderer.
func (h *Hub) BeginFrame(d flock.Domain) {
	h.frame.Tick++
	h.frame.Domain = d
	h.frame.Boids = h.frame.Boids[:0]
}

// DrawBoid implements flock.Renderer.
func (h *Hub) DrawBoid(v flock.BoidView) {
	h.frame.Boids = append(h.frame.Boids, v)
}

// EndFrame encodes the frame and queues it for every client.
func (h *Hub) EndFrame() {
	h.buf = wire.AppendFrame(h.buf[:0], &h.frame)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		// Each client owns its copy; buf is reused next frame
		msg := append([]byte(nil), h.buf...)
		select {
		case c.send <- msg:
		default:
			// Client is busy, skip this frame for it
			h.dropped++
		}
	}
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}
	h.add(c)
	defer h.remove(c)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.logger.Info("client connected", zap.Stringer("remote", c.conn.RemoteAddr()), zap.Int("clients", len(h.clients)))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
	h.logger.Info("client disconnected", zap.Int("clients", len(h.clients)))
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			h.logger.Debug("client write failed", zap.Error(err))
			// readPump notices the closed connection and removes the client
			c.conn.Close()
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxControlSize)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("client read failed", zap.Error(err))
			}
			return
		}
		ctrl, err := wire.DecodeControl(data)
		if err != nil {
			h.logger.Warn("unable to decode control message", zap.Error(err))
			continue
		}
		h.apply(ctrl)
	}
}

func (h *Hub) apply(ctrl *wire.Control) {
	if !ctrl.Domain.Empty() {
		h.mu.Lock()
		h.domain = ctrl.Domain
		h.mu.Unlock()
	}
	if ctrl.HasPopulation && h.onPopulation != nil {
		if ctrl.Population < 0 || ctrl.Population > flock.MaxPopulation {
			h.logger.Warn("population request out of range", zap.Int64("population", ctrl.Population))
			return
		}
		if err := h.onPopulation(int(ctrl.Population)); err != nil {
			h.logger.Warn("population request rejected", zap.Int64("population", ctrl.Population), zap.Error(err))
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.remove(c)
	}
}
