package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"brick-tracker/internal/alerts"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// Hub pushes delivered alerts to every connected websocket client. It
// satisfies notify.Notifier so the monitor can publish through it. Each
// client has its own writer goroutine; Notify never waits on a socket.
type Hub struct {
	clients  map[*hubClient]struct{}
	mu       sync.Mutex
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

type hubMessage struct {
	Type   string         `json:"type"`
	Events []alerts.Event `json:"events"`
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[*hubClient]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger.With().Str("component", "ws").Logger(),
	}
}

func (h *Hub) Name() string { return "websocket" }

// Notify queues a batch for every client. A client whose queue is full is
// dropped.
func (h *Hub) Notify(_ context.Context, events []alerts.Event) error {
	if len(events) == 0 {
		return nil
	}
	msg, err := json.Marshal(hubMessage{Type: "alerts", Events: events})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			h.logger.Warn().Msg("websocket client too slow, dropping client")
			h.removeLocked(cl)
		}
	}
	return nil
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	cl := &hubClient{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(cl)
	// read loop only detects disconnects
	go func() {
		defer func() {
			h.remove(cl)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) writeLoop(cl *hubClient) {
	defer cl.conn.Close()
	for msg := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Warn().Err(err).Msg("websocket write failed, dropping client")
			h.remove(cl)
			return
		}
	}
}

func (h *Hub) remove(cl *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(cl)
}

// removeLocked closes cl's queue once; h.mu must be held.
func (h *Hub) removeLocked(cl *hubClient) {
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
}
