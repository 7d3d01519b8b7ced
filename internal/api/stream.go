package api

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub fans batch-lifecycle events (readiness flips, snapshots, shadow-reader
// divergence warnings) out to every connected observer. It differs from a
// plain broadcast relay in two ways that matter for this domain: it caches
// the most recently broadcast snapshot and replays it to a client the
// instant it connects, so an operator attaching mid-batch sees current
// state without waiting for the next tick; and it treats divergence events
// as events that must not be silently dropped under backpressure, unlike a
// routine snapshot update.
type Hub struct {
	clients      map[*Client]bool
	register     chan *Client
	unregister   chan *Client
	broadcast    chan broadcastMsg
	mu           sync.RWMutex
	lastSnapshot []byte
	logger       *slog.Logger
}

// broadcastMsg is one marshaled event queued for fan-out. critical events
// (shadow-reader divergence) get eviction priority over a client's stale
// queued messages instead of being dropped outright.
type broadcastMsg struct {
	data     []byte
	critical bool
}

// Client is one subscriber's WebSocket connection and its outbound queue.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 256),
		logger:     logger.With("component", "ws-hub"),
	}
}

// Run drives registration, unregistration, and fan-out. Call it in a
// goroutine for the lifetime of the server; it never returns.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			snapshot := h.lastSnapshot
			h.mu.Unlock()
			h.logger.Info("client connected", "count", len(h.clients))

			if snapshot != nil {
				select {
				case client.send <- snapshot:
				default:
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected", "count", len(h.clients))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg.data:
					continue
				default:
				}

				if msg.critical {
					// Evict one stale queued message to guarantee room for
					// the divergence alert: losing an older update is
					// preferable to losing the one event an operator must
					// see.
					select {
					case <-client.send:
					default:
					}
					select {
					case client.send <- msg.data:
						continue
					default:
					}
				}

				close(client.send)
				delete(h.clients, client)
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastEvent marshals evt and queues it for fan-out. Snapshot events
// refresh the hub's catch-up cache; divergence events are marked critical
// so Run won't silently drop them the way it drops a stale snapshot under
// backpressure.
func (h *Hub) BroadcastEvent(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal event", "error", err)
		return
	}

	if evt.Type == "snapshot" {
		h.mu.Lock()
		h.lastSnapshot = data
		h.mu.Unlock()
	}

	select {
	case h.broadcast <- broadcastMsg{data: data, critical: evt.Type == "divergence"}:
	default:
		h.logger.Warn("broadcast channel full, dropping event", "type", evt.Type)
	}
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB
)

// writePump pumps queued events from the hub to the websocket connection,
// keeping the link alive with periodic pings between batches.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the websocket connection so pong control frames are
// processed and a closed connection is detected promptly.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("websocket error", "error", err)
			}
			break
		}
		// Connections are outbound-only: the driver never accepts commands
		// from an observer, so any inbound frame is read and discarded.
	}
}

// NewClient registers conn with hub and starts its read/write pumps.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	return client
}
