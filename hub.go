package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// BracketEvent is pushed to viewers whenever a season's bracket changes.
type BracketEvent struct {
	Type    string         `json:"type"`
	Year    string         `json:"year"`
	Matches []BracketMatch `json:"matches"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	room string
}

// Hub fans bracket updates out to websocket viewers, one room per season.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
	log   *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		log:   logger,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[c.room]; !ok {
		h.rooms[c.room] = make(map[*client]struct{})
	}
	h.rooms[c.room][c] = struct{}{}
	h.log.WithFields(logrus.Fields{"room": c.room, "clients": len(h.rooms[c.room])}).Debug("Bracket viewer connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.room]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.room)
	}
}

// Viewers returns the number of clients watching a room.
func (h *Hub) Viewers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast sends the event to every client in its room. Slow clients are
// skipped rather than blocking the caller.
func (h *Hub) Broadcast(ev BracketEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("Error marshalling bracket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[ev.Year] {
		select {
		case c.send <- msg:
		default:
			h.log.WithField("room", ev.Year).Warn("Bracket viewer send buffer full, dropping update")
		}
	}
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, room := range h.rooms {
		for c := range room {
			close(c.send)
		}
		delete(h.rooms, name)
	}
}

// serve registers the connection and runs its pumps until the peer goes
// away.
func (h *Hub) serve(conn *websocket.Conn, room string, initial []byte) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), room: room}
	if initial != nil {
		c.send <- initial
	}
	h.register(c)
	go c.writePump(h.log)
	c.readPump()
	h.unregister(c)
}

// readPump discards client messages; it only exists to process pongs and
// notice disconnects.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump(logger *logrus.Logger) {
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
				logger.WithError(err).WithField("room", c.room).Debug("Bracket viewer write failed")
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
