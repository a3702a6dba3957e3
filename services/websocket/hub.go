package websocket

import (
	"encoding/json"
	"sync"
	"time"

	fiberws "github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Hub fans out live updates (sync outcomes, notifications, new chat
// messages) to connected WebSocket clients.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mutex sync.RWMutex
}

// Client is one WebSocket connection registered with the hub.
type Client struct {
	hub    *Hub
	send   chan []byte
	userID uint
}

// Message is the envelope every hub payload is wrapped in.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run processes register, unregister and broadcast requests. Call it
// once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			logrus.WithField("user_id", client.userID).Debug("websocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			logrus.WithField("user_id", client.userID).Debug("websocket client disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastToUser sends a typed payload to every connection owned by
// one user. Slow clients are dropped rather than blocking the hub.
func (h *Hub) BroadcastToUser(userID uint, msgType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		logrus.WithField("error", err.Error()).Error("marshaling websocket message")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		if client.userID != userID {
			continue
		}
		select {
		case client.send <- payload:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// Broadcast sends a typed payload to every connected client.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		logrus.WithField("error", err.Error()).Error("marshaling websocket message")
		return
	}
	h.broadcast <- payload
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeFiberWS registers a Fiber websocket connection with the hub and
// pumps it until either side closes. Blocks for the connection's
// lifetime, as the Fiber websocket handler requires.
func (h *Hub) ServeFiberWS(c *fiberws.Conn, userID uint) {
	client := &Client{
		hub:    h,
		send:   make(chan []byte, 256),
		userID: userID,
	}
	h.register <- client

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.fiberWritePump(client, c)
	}()
	h.fiberReadPump(client, c)
	<-done
}

func (h *Hub) fiberWritePump(client *Client, c *fiberws.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.WriteMessage(fiberws.CloseMessage, []byte{})
				return
			}
			if err := c.WriteMessage(fiberws.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(fiberws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) fiberReadPump(client *Client, c *fiberws.Conn) {
	defer func() {
		h.unregister <- client
		c.Close()
	}()

	c.SetReadLimit(maxMessageSize)
	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Clients only listen; inbound frames are drained to keep the
	// connection's control handling alive.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
