// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/siemens-healthineers/rocoknight/internal/launcher"
)

const (
	MessageTypeStatus       = "status"
	MessageTypeLoginSurface = "login_surface"
	MessageTypeLogs         = "logs"
	MessageTypePong         = "pong"

	DefaultLogHistory = 500

	clientQueueSize = 64
	writeTimeout    = 5 * time.Second
)

// Message is one event pushed to the UI shell
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type LoginSurfaceData struct {
	Visible bool `json:"visible"`
}

type LogsData struct {
	Lines []string `json:"lines"`
}

// Hub fans events out to websocket subscribers. It keeps the latest status, the login surface
// visibility and the recent log lines for subscribers connecting later.
// Nothing in the broadcast path logs, since log lines are themselves broadcast.
type Hub struct {
	mu           sync.Mutex
	clients      map[*client]struct{}
	history      []string
	historyLimit int
	status       *launcher.StatusEvent
	loginVisible bool
}

type client struct {
	conn   *websocket.Conn
	send   chan Message
	mu     sync.Mutex
	closed bool
}

func NewHub(historyLimit int) *Hub {
	if historyLimit <= 0 {
		historyLimit = DefaultLogHistory
	}
	return &Hub{
		clients:      map[*client]struct{}{},
		historyLimit: historyLimit,
	}
}

// OnStatus is a launcher.Observer
func (h *Hub) OnStatus(event launcher.StatusEvent) {
	h.mu.Lock()
	h.status = &event
	h.mu.Unlock()

	h.Broadcast(Message{Type: MessageTypeStatus, Data: event})
}

func (h *Hub) ShowLogin() {
	h.setLoginVisible(true)
}

func (h *Hub) HideLogin() {
	h.setLoginVisible(false)
}

// PublishLogs is the flush func of the debug log bus
func (h *Hub) PublishLogs(lines []string) {
	if len(lines) == 0 {
		return
	}

	h.mu.Lock()
	h.history = append(h.history, lines...)
	if overflow := len(h.history) - h.historyLimit; overflow > 0 {
		h.history = append([]string(nil), h.history[overflow:]...)
	}
	h.mu.Unlock()

	h.Broadcast(Message{Type: MessageTypeLogs, Data: LogsData{Lines: lines}})
}

// Broadcast queues the message for every subscriber. Subscribers not keeping up are disconnected.
func (h *Hub) Broadcast(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.trySend(message) {
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) LogHistory() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.history...)
}

// serve registers the connection, replays the current state and blocks until the connection is closed
func (h *Hub) serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan Message, clientQueueSize)}

	h.mu.Lock()
	for _, message := range h.replayLocked() {
		c.send <- message
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	slog.Debug("Event subscriber connected", "remote", conn.RemoteAddr().String(), "subscribers", count)

	go c.writeLoop()
	h.readLoop(c)

	h.remove(c)
	slog.Debug("Event subscriber disconnected", "remote", conn.RemoteAddr().String())
}

func (h *Hub) replayLocked() []Message {
	messages := []Message{{Type: MessageTypeLoginSurface, Data: LoginSurfaceData{Visible: h.loginVisible}}}
	if h.status != nil {
		messages = append(messages, Message{Type: MessageTypeStatus, Data: *h.status})
	}
	if len(h.history) > 0 {
		lines := h.history
		if len(lines) > clientQueueSize*8 {
			lines = lines[len(lines)-clientQueueSize*8:]
		}
		messages = append(messages, Message{Type: MessageTypeLogs, Data: LogsData{Lines: append([]string(nil), lines...)}})
	}
	return messages
}

func (h *Hub) readLoop(c *client) {
	for {
		var incoming Message
		if err := c.conn.ReadJSON(&incoming); err != nil {
			return
		}
		if incoming.Type == "ping" {
			c.trySend(Message{Type: MessageTypePong})
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.close()
}

func (h *Hub) setLoginVisible(visible bool) {
	h.mu.Lock()
	h.loginVisible = visible
	h.mu.Unlock()

	h.Broadcast(Message{Type: MessageTypeLoginSurface, Data: LoginSurfaceData{Visible: visible}})
}

func (c *client) writeLoop() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := c.conn.WriteJSON(message); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// trySend queues without blocking; false if the queue is full or the client is gone
func (c *client) trySend(message Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
