// internal/server/handlers/websocket.go

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"peerhive/internal/domain/dashboard"
	"peerhive/internal/domain/post"
	"peerhive/internal/metrics"
)

// Subscriber delivers bus messages to a callback
type Subscriber interface {
	Subscribe(subject string, fn func(data []byte)) (unsubscribe func() error, err error)
}

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64

	// Outbound messages buffered per client before it is dropped
	SendBuffer int
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4 * 1024,
		SendBuffer:     256,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// origins are enforced by the CORS layer
		return true
	},
}

// dashboardMessage is pushed to dashboard stream clients
type dashboardMessage struct {
	Type      string              `json:"type"`
	Dashboard dashboard.ViewModel `json:"dashboard"`
}

// StreamHandler serves the live feed and dashboard websockets
type StreamHandler struct {
	feed       post.Service
	bus        Subscriber
	topic      string
	adminEmail string
	config     WebSocketConfig
	log        *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(
	feed post.Service,
	bus Subscriber,
	topic string,
	adminEmail string,
	config WebSocketConfig,
	logger *slog.Logger,
) *StreamHandler {
	return &StreamHandler{
		feed:       feed,
		bus:        bus,
		topic:      topic,
		adminEmail: adminEmail,
		config:     config,
		log:        logger.With("component", "stream"),
	}
}

// Feed streams a snapshot of the feed followed by every post event
func (h *StreamHandler) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.feed.ListPosts(r.Context(), post.Filter{})
	if err != nil {
		respondWithDomainError(w, h.log, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("failed to upgrade to websocket", "error", err)
		return
	}

	client := newWSClient(conn, "feed", h.config, h.log)

	snapshot, _ := json.Marshal(post.Event{Type: post.EventSnapshot, Posts: posts})
	client.enqueue(snapshot)

	unsubscribe, err := h.bus.Subscribe(post.WildcardSubject(h.topic), client.enqueue)
	if err != nil {
		h.log.Error("failed to subscribe to feed events", "error", err)
		client.close()
		return
	}
	client.onClose(unsubscribe)

	go client.writePump()
	go client.readPump()
}

// Dashboard streams the admin dashboard, recomputed after every post event
func (h *StreamHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r, h.adminEmail) == nil {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("failed to upgrade to websocket", "error", err)
		return
	}

	client := newWSClient(conn, "dashboard", h.config, h.log)

	// coalesce bursts of events into one recomputation
	refresh := make(chan struct{}, 1)
	refresh <- struct{}{}

	unsubscribe, err := h.bus.Subscribe(post.WildcardSubject(h.topic), func([]byte) {
		select {
		case refresh <- struct{}{}:
		default:
		}
	})
	if err != nil {
		h.log.Error("failed to subscribe to feed events", "error", err)
		client.close()
		return
	}
	client.onClose(unsubscribe)

	go client.writePump()
	go client.readPump()
	go h.pushDashboards(client, refresh)
}

func (h *StreamHandler) pushDashboards(client *wsClient, refresh <-chan struct{}) {
	for {
		select {
		case <-client.done:
			return
		case <-refresh:
		}

		ctx, cancel := context.WithTimeout(context.Background(), h.config.WriteWait)
		vm, err := h.feed.Dashboard(ctx)
		cancel()
		if err != nil {
			h.log.Error("failed to compute dashboard", "error", err)
			continue
		}

		data, err := json.Marshal(dashboardMessage{Type: "dashboard", Dashboard: vm})
		if err != nil {
			h.log.Error("failed to marshal dashboard", "error", err)
			continue
		}
		client.enqueue(data)
	}
}

// wsClient owns one websocket connection and its pumps
type wsClient struct {
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	stream   string
	config   WebSocketConfig
	log      *slog.Logger
	once     sync.Once
	mu       sync.Mutex
	cleanups []func() error
}

func newWSClient(conn *websocket.Conn, stream string, config WebSocketConfig, logger *slog.Logger) *wsClient {
	metrics.LiveClients.WithLabelValues(stream).Inc()
	return &wsClient{
		conn:   conn,
		send:   make(chan []byte, config.SendBuffer),
		done:   make(chan struct{}),
		stream: stream,
		config: config,
		log:    logger.With("stream", stream, "remote", conn.RemoteAddr().String()),
	}
}

// enqueue queues data for the client. A client whose buffer is full is
// dropped instead of blocking the publisher.
func (c *wsClient) enqueue(data []byte) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.log.Warn("client too slow, dropping")
		go c.close()
	}
}

func (c *wsClient) onClose(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanups = append(c.cleanups, fn)
}

// close releases the subscription and the connection exactly once
func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)

		c.mu.Lock()
		cleanups := c.cleanups
		c.mu.Unlock()
		for _, fn := range cleanups {
			if err := fn(); err != nil {
				c.log.Warn("cleanup failed", "error", err)
			}
		}

		c.conn.Close()
		metrics.LiveClients.WithLabelValues(c.stream).Dec()
		c.log.Debug("websocket connection closed")
	})
}

// readPump discards client messages and keeps the read deadline alive
func (c *wsClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket error", "error", err)
			}
			return
		}
	}
}

// writePump writes queued messages, one per frame, and pings the peer
func (c *wsClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
