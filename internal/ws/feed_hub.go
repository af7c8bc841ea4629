// Package ws pushes committed lifecycle events to connected staff dashboards.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zaqqye/exit_slip_backend/internal/lifecycle"
	"github.com/zaqqye/exit_slip_backend/internal/logger"
	"github.com/zaqqye/exit_slip_backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// gate staff only need transitions that change what the gate may let through.
var gateEvents = map[lifecycle.EventType]struct{}{
	lifecycle.EventAuthorized: {},
	lifecycle.EventDenied:     {},
	lifecycle.EventExited:     {},
	lifecycle.EventCleared:    {},
}

type feedMessage struct {
	eventType lifecycle.EventType
	payload   []byte
}

// FeedHub fans lifecycle events out to websocket clients. It implements
// lifecycle.Notifier.
type FeedHub struct {
	register   chan *feedClient
	unregister chan *feedClient
	broadcast  chan feedMessage
	clients    map[*feedClient]struct{}
	done       chan struct{}

	count   atomic.Int64
	dropped atomic.Int64
	log     *slog.Logger
}

func NewFeedHub(log *slog.Logger) *FeedHub {
	if log == nil {
		log = logger.Discard()
	}
	return &FeedHub{
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		broadcast:  make(chan feedMessage, sendBufferSize),
		clients:    make(map[*feedClient]struct{}),
		done:       make(chan struct{}),
		log:        log.With("component", "ws"),
	}
}

// Run owns the client set until ctx is done, then disconnects everyone.
func (h *FeedHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.count.Store(int64(len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if !client.wants(msg.eventType) {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					h.log.Warn("dropping slow feed client", "staff_id", client.staffID)
					h.drop(client)
				}
			}
		}
	}
}

func (h *FeedHub) drop(client *feedClient) {
	delete(h.clients, client)
	close(client.send)
	client.conn.Close()
	h.count.Store(int64(len(h.clients)))
}

// Publish never blocks the caller; events are dropped when the hub is backed up.
func (h *FeedHub) Publish(evt lifecycle.Event) {
	if h == nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("marshal feed event", "error", err)
		return
	}
	select {
	case h.broadcast <- feedMessage{eventType: evt.Type, payload: data}:
	default:
		h.dropped.Add(1)
		h.log.Warn("feed backlog full, event dropped", "type", evt.Type)
	}
}

// attach hands a client to Run; it fails once the hub has stopped.
func (h *FeedHub) attach(c *feedClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *FeedHub) ClientCount() int {
	return int(h.count.Load())
}

type feedClient struct {
	hub       *FeedHub
	conn      *websocket.Conn
	send      chan []byte
	staffID   string
	allEvents bool
}

func newFeedClient(hub *FeedHub, conn *websocket.Conn, actor models.Actor) *feedClient {
	return &feedClient{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		staffID:   actor.ID,
		allEvents: actor.Role != models.RoleGate,
	}
}

func (c *feedClient) wants(t lifecycle.EventType) bool {
	if c.allEvents {
		return true
	}
	_, ok := gateEvents[t]
	return ok
}

func (c *feedClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
