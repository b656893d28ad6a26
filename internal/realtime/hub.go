package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 16
	maxUserIDLen   = 64
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Displays are kiosk pages served from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu   sync.Mutex
	room string
}

// Hub tracks display connections by the user id whose content they show.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*client]struct{}
	clients map[*client]struct{}
	closed  bool
	serving sync.WaitGroup
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:   make(map[string]map[*client]struct{}),
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) join(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.mu.Lock()
	prev := c.room
	c.room = room
	c.mu.Unlock()

	if prev != "" {
		h.removeLocked(prev, c)
	}

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	h.logger.Debug("display joined", "user_id", room, "conns", len(h.rooms[room]))
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.mu.Lock()
	room := c.room
	c.room = ""
	c.mu.Unlock()

	if room != "" {
		h.removeLocked(room, c)
	}
}

func (h *Hub) removeLocked(room string, c *client) {
	conns, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.rooms, room)
	}
}

// Publish delivers event to the displays joined to userID on this instance.
// A display whose send buffer is full is disconnected rather than blocking
// the publisher.
func (h *Hub) Publish(ctx context.Context, userID string, event Event) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]*client, 0, len(h.rooms[userID]))
	for c := range h.rooms[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		h.logger.Debug("broadcast skipped, no displays", "user_id", userID, "type", event.Type)
		return nil
	}

	for _, c := range conns {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("display too slow, dropping", "user_id", userID)
			h.leave(c)
			_ = c.conn.Close()
		}
	}

	h.logger.Debug("broadcast sent", "user_id", userID, "type", event.Type, "conns", len(conns))
	return nil
}

// Connections returns how many displays are joined to userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Serve runs the read and write loops for an upgraded display connection
// and returns when the connection closes. After Close it closes conn
// immediately.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.serving.Add(1)
	h.mu.Unlock()
	defer h.serving.Done()

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(c, done)
	}()

	h.readLoop(c)
	h.leave(c)
	close(done)
	<-writerDone

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Close disconnects every display and waits for their Serve calls to
// return. It is safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = c.conn.Close()
	}

	h.serving.Wait()
	if len(conns) > 0 {
		h.logger.Info("realtime hub closed", "conns", len(conns))
	}
}

func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Event
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("display connection closed", "error", err)
			}
			return
		}

		switch msg.Type {
		case EventJoin:
			if msg.UserID == "" || len(msg.UserID) > maxUserIDLen {
				h.reply(c, Event{Type: EventError, Message: "user_id is required"})
				continue
			}
			h.join(c, msg.UserID)
			h.reply(c, Event{Type: EventJoined, UserID: msg.UserID})
		default:
			h.reply(c, Event{Type: EventError, Message: "unknown message type"})
		}
	}
}

func (h *Hub) reply(c *client, event Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) writeLoop(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.TextMessage, msg)
			if err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		case <-done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
