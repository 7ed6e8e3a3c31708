package room

import (
	"encoding/json"
	"sync"
	"time"

	"JamLoop/logger"

	"github.com/gorilla/websocket"
)

// EventType names a room event pushed to connected clients.
type EventType string

const (
	EventLoopCreated    EventType = "loop_created"
	EventLoopUpdated    EventType = "loop_updated"
	EventLoopDeleted    EventType = "loop_deleted"
	EventMixdownCreated EventType = "mixdown_created"
)

// Event is one room change notification. Clients refetch the loop list when
// they receive one instead of polling on a timer.
type Event struct {
	Type      EventType   `json:"type"`
	RoomID    string      `json:"roomId"`
	UserID    int64       `json:"userId,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Client is one WebSocket connection subscribed to a room.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	RoomID   string
	UserID   int64
	Username string
}

// Hub fans room events out to the connections subscribed to each room.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	mu   sync.RWMutex
	done chan struct{}
}

type broadcastMessage struct {
	roomID  string
	message []byte
}

// NewHub creates a room event hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub main loop. Start it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.broadcast:
			h.broadcastToRoom(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop shuts the hub down and closes every connection.
func (h *Hub) Stop() {
	close(h.done)
}

// Register subscribes a client to its room.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast pushes an event to every client in a room.
func (h *Hub) Broadcast(roomID string, event *Event) {
	event.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to marshal room event", logger.ErrorField(err))
		return
	}

	select {
	case h.broadcast <- &broadcastMessage{roomID: roomID, message: data}:
	default:
		logger.Warn("room event dropped, broadcast queue full",
			logger.String("room", roomID),
			logger.String("type", string(event.Type)))
	}
}

// ClientCount returns the number of connections in a room.
func (h *Hub) ClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.RoomID] == nil {
		h.rooms[client.RoomID] = make(map[*Client]bool)
	}
	h.rooms[client.RoomID][client] = true

	logger.Info("room client connected",
		logger.String("room", client.RoomID),
		logger.Int64("user", client.UserID))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[client.RoomID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.Send)
			if len(clients) == 0 {
				delete(h.rooms, client.RoomID)
			}
		}
	}

	logger.Info("room client disconnected",
		logger.String("room", client.RoomID),
		logger.Int64("user", client.UserID))
}

func (h *Hub) broadcastToRoom(msg *broadcastMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[msg.roomID]))
	for client := range h.rooms[msg.roomID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- msg.message:
		default:
			// Slow consumer; drop it in place. Sending on the unregister
			// channel here would block forever, since this runs on the hub
			// goroutine that drains it.
			h.removeClient(client)
		}
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID, clients := range h.rooms {
		for client := range clients {
			close(client.Send)
			if client.Conn != nil {
				client.Conn.Close()
			}
		}
		delete(h.rooms, roomID)
	}
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// ReadPump consumes inbound frames until the connection drops. The event
// feed is one-way; anything the client sends besides pongs is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump forwards broadcast frames to the connection and keeps it alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain anything queued behind this frame.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
