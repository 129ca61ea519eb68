package main

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120 // paddle-move arrives once per key-repeat frame
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string
	remoteAddr string
	binary     bool // state frames as msgpack
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, binary bool) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         GenerateID(),
		remoteAddr: remoteAddr,
		binary:     binary,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
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

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// WantsBinary reports whether state frames go out as msgpack
func (c *Client) WantsBinary() bool {
	return c.binary
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope).
// A panic while handling one message is logged and the connection lives on.
func (c *Client) handleMessage(raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("handler panic for %s: %v", c.id, r)
		}
	}()

	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	room := c.hub.room
	switch env.T {
	case MsgJoin:
		c.join()
	case MsgSetName:
		var name string
		if err := json.Unmarshal(env.D, &name); err != nil {
			return
		}
		room.SetName(c.id, name)
	case MsgModeSelected:
		var mode int
		if err := json.Unmarshal(env.D, &mode); err != nil {
			return
		}
		room.SelectMode(c.id, GameMode(mode))
	case MsgPowerupsToggle:
		var enabled bool
		if err := json.Unmarshal(env.D, &enabled); err != nil {
			return
		}
		room.TogglePowerups(c.id, enabled)
	case MsgPowerupsSetType:
		var msg PowerupSetTypeMsg
		if err := json.Unmarshal(env.D, &msg); err != nil {
			return
		}
		room.SetPowerupType(c.id, msg.Type, msg.Enabled)
	case MsgStartGame:
		room.StartGame(c.id)
	case MsgCountdownFinished:
		room.FinishCountdown(c.id)
	case MsgPaddleMove:
		var msg PaddleMoveMsg
		if err := json.Unmarshal(env.D, &msg); err != nil {
			return
		}
		room.MovePaddle(c.id, msg.ID, msg.Direction)
	case MsgPlayerAction:
		var msg PlayerActionMsg
		if err := json.Unmarshal(env.D, &msg); err != nil {
			return
		}
		room.PlayerAction(c.id, msg.Action)
	}
}

// join seats the connection, or tells it the room is full
func (c *Client) join() {
	if _, err := c.hub.room.Join(c.id, c); errors.Is(err, ErrRoomFull) {
		c.SendJSON(Envelope{T: MsgJoinError, Data: "Room full!"})
	}
}
