package notify

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// sendBuffer bounds how far a slow reader may fall behind before its
	// deltas start dropping. Dropping beats blocking the hub.
	sendBuffer = 32

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// controlMessage is what clients send upstream: explicit room membership.
//
//	{"action": "join", "room": "Westmoreland"}
//	{"action": "leave", "room": "Westmoreland"}
type controlMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// Client is one websocket observer. It joins rooms the allowed callback
// admits (the caller's resolved scope decides) and receives every delta
// broadcast to those rooms until it disconnects.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	allowed func(room string) bool
	logger  *zap.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, allowed func(room string) bool, logger *zap.Logger) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		allowed: allowed,
		logger:  logger,
	}
}

// deliver enqueues without blocking; a full buffer means the delta is
// dropped for this subscriber (at-most-once).
func (c *Client) deliver(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Serve runs the read and write pumps. It returns when the connection
// closes; by then the client has been detached from every room.
func (c *Client) Serve() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	// The send channel is never closed. Broadcasts racing a detach land
	// in the buffer of a dead client, which is harmless; closing the
	// channel here could panic a concurrent deliver.
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg controlMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Debug("ignoring malformed control message", zap.Error(err))
			continue
		}
		switch msg.Action {
		case "join":
			if msg.Room == "" || !c.allowed(msg.Room) {
				c.logger.Debug("join refused", zap.String("room", msg.Room))
				continue
			}
			c.hub.join(c, msg.Room)
		case "leave":
			c.hub.leave(c, msg.Room)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
