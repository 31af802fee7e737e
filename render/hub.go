package render

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/brensch/snek8/game"
)

const (
	hubSendBuffer = 16
	hubWriteWait  = 2 * time.Second
)

// Frame is the JSON message sent to spectators for every rendered board.
// Rows holds one string per board row using the Glyph characters.
type Frame struct {
	Seq  int64     `json:"seq"`
	Rows []string  `json:"rows"`
	Sent time.Time `json:"sent"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Spectators are read-only.
		return true
	},
	ReadBufferSize:  512,
	WriteBufferSize: 1024,
}

type spectator struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
}

// Hub broadcasts rendered boards to websocket spectators. It is a Renderer
// and an http.Handler. Messages from spectators are read and discarded.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*spectator
	seq    int64
	last   Frame
	hasAny bool
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*spectator)}
}

// Render encodes the board once and queues it for every spectator. Slow
// spectators miss frames rather than stall the game.
func (h *Hub) Render(b game.Board) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	frame := Frame{Seq: h.seq, Rows: Rows(&b), Sent: time.Now().UTC()}
	h.last = frame
	h.hasAny = true

	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	// Held under the lock so remove cannot close a channel mid-send.
	for _, c := range h.conns {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Last returns the most recent frame, if any.
func (h *Hub) Last() (Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.hasAny
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	c := &spectator{id: uuid.New().String(), ws: ws, send: make(chan []byte, hubSendBuffer)}

	// Queue the current board first so a new spectator does not wait a tick.
	h.mu.Lock()
	if h.hasAny {
		if data, err := json.Marshal(h.last); err == nil {
			c.send <- data
		}
	}
	h.conns[c.id] = c
	h.mu.Unlock()

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) remove(c *spectator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c.id]; ok {
		delete(h.conns, c.id)
		close(c.send)
	}
}

// readLoop drains the connection until the spectator goes away.
func (h *Hub) readLoop(c *spectator) {
	defer func() {
		h.remove(c)
		c.ws.Close()
	}()
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error for %s: %v", c.id, err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *spectator) {
	for data := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(hubWriteWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			c.ws.Close()
			return
		}
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(hubWriteWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
