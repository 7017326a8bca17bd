package control

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ramu/internal/application"
	"ramu/internal/domain"
)

const (
	clientBuffer = 64
	writeTimeout = 5 * time.Second
)

// Message is the envelope pushed to websocket subscribers.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	MessageSnapshot = "snapshot"
	MessageState    = "state"
	MessageLog      = "log"
	MessageError    = "error"
)

// Hub broadcasts orchestrator events to websocket clients. It never blocks the
// orchestrator: a client that falls behind is disconnected.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) StateChanged(ev application.StateEvent) {
	h.broadcast(Message{Type: MessageState, Data: ev})
}

func (h *Hub) LogAppended(entry domain.LogEntry) {
	h.broadcast(Message{Type: MessageLog, Data: entry})
}

func (h *Hub) Error(ev application.ErrorEvent) {
	h.broadcast(Message{Type: MessageError, Data: ev})
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding event", "type", msg.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("event client too slow, disconnecting", "remote_addr", c.conn.RemoteAddr())
			h.removeLocked(c)
		}
	}
}

// Serve registers conn, sends the snapshot returned by initial and then
// streams events until the peer goes away. The client is registered before
// initial runs, so no event is lost in between; an event already reflected in
// the snapshot may be delivered again (log entries carry Seq).
func (h *Hub) Serve(conn *websocket.Conn, initial func() any) {
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	first, err := json.Marshal(Message{Type: MessageSnapshot, Data: initial()})
	if err != nil {
		h.logger.Error("encoding snapshot", "error", err)
		first = nil
	}

	go h.writeLoop(c, first)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) writeLoop(c *client, first []byte) {
	defer c.conn.Close()
	if first != nil {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, first); err != nil {
			h.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.once.Do(func() { close(c.send) })
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
