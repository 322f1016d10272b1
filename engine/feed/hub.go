// Package feed broadcasts accepted operations to websocket subscribers,
// replaying the store's event log on connect so a client that subscribes
// mid-run still sees every event since it last disconnected. The
// upgrade-then-pump shape follows the node's own
// chain/node/rpc.go:handleWebSocket; the client registry around it follows
// gorilla/websocket's standard hub pattern, which the node's RPC server
// itself does not need since it only ever serves a single connection at a
// time.
package feed

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quantum-vault-engine/engine/store"
)

const (
	writeTimeout  = 10 * time.Second
	pongTimeout   = 60 * time.Second
	pingInterval  = (pongTimeout * 9) / 10
	clientSendCap = 64
)

// Hub fans out store.Event values to every connected websocket client.
type Hub struct {
	store store.Store

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	broadcast  chan store.Event
	register   chan *client
	unregister chan *client
}

// NewHub constructs a Hub reading replay history from st.
func NewHub(st store.Store) *Hub {
	return &Hub{
		store: st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan store.Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Publish enqueues an event for delivery to every connected subscriber. It
// never blocks on a slow client; slow clients are disconnected instead.
func (h *Hub) Publish(e store.Event) {
	h.broadcast <- e
}

// Run drives the hub's event loop until ctx is canceled. Call it once, in
// its own goroutine, before serving any connections.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*client]struct{})
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case e := <-h.broadcast:
			payload, err := json.Marshal(e)
			if err != nil {
				log.Printf("feed: marshal event %d: %v", e.Seq, err)
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- payload:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ServeWS upgrades the connection and replays every event since the `since`
// query parameter (default 0, i.e. the full log) before streaming live
// updates.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	since := uint64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid since parameter", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("feed: upgrade: %v", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, clientSendCap)}

	backlog, err := h.store.ListEventsSince(since)
	if err != nil {
		log.Printf("feed: replay events since %d: %v", since, err)
		conn.Close()
		return
	}

	go c.writePump()

	for _, e := range backlog {
		payload, err := json.Marshal(e)
		if err != nil {
			continue
		}
		c.send <- payload
	}

	h.register <- c

	go c.readPump()
}

// client is a single websocket subscriber.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump drains and discards client frames, just to notice disconnects and
// keep the read deadline fed by pong frames.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump delivers queued events and periodic pings until send is closed.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
