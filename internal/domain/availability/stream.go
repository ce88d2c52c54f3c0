package availability

import (
	"context"
	"encoding/json"
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 8
)

var (
	wsConnectionsGauge    = expvar.NewInt("board_stream_connections")
	wsSnapshotsSentTotal  = expvar.NewInt("board_stream_snapshots_sent_total")
	wsSnapshotsDropsTotal = expvar.NewInt("board_stream_snapshots_dropped_total")
)

// streamConn is one dashboard client on the board stream
type streamConn struct {
	ws   *websocket.Conn
	send chan []byte
}

// Hub pushes a board snapshot to every connected presentation client
// whenever the store applies a change. Single-instance fan-out; peer
// instances converge through the booking change feed.
type Hub struct {
	store    *Store
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*streamConn]bool
}

// NewHub creates the board stream hub
func NewHub(store *Store) *Hub {
	return &Hub{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// CORS middleware already vets origins for the REST surface
				return true
			},
		},
		conns: make(map[*streamConn]bool),
	}
}

// Run broadcasts store changes until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.store.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-events:
			h.broadcast(h.snapshotPayload())
		}
	}
}

// HandleWS upgrades the connection and starts its pumps
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Board stream upgrade failed")
		return
	}

	c := &streamConn{ws: ws, send: make(chan []byte, sendBuffer)}
	h.register(c)

	// Current board first, changes after
	c.send <- h.snapshotPayload()

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) register(c *streamConn) {
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()
	wsConnectionsGauge.Add(1)
}

func (h *Hub) unregister(c *streamConn) {
	h.mu.Lock()
	if h.conns[c] {
		delete(h.conns, c)
		close(c.send)
		wsConnectionsGauge.Add(-1)
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.conns {
		delete(h.conns, c)
		close(c.send)
		wsConnectionsGauge.Add(-1)
	}
	h.mu.Unlock()
}

func (h *Hub) snapshotPayload() []byte {
	payload, err := json.Marshal(NewBoardView(h.store.Snapshot()))
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal board snapshot")
		return []byte("{}")
	}
	return payload
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- payload:
			wsSnapshotsSentTotal.Add(1)
		default:
			// Slow consumer; it catches up on the next snapshot
			wsSnapshotsDropsTotal.Add(1)
		}
	}
}

func (h *Hub) writePump(c *streamConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *streamConn) {
	defer func() {
		h.unregister(c)
		c.ws.Close()
	}()

	// The stream is one-way; reads only surface disconnects
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
