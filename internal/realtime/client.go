package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 64
)

// Handler processes one inbound frame for a client.
type Handler func(ctx context.Context, c *Client, env Envelope)

// Client is an authenticated websocket connection. Frames are queued on a buffered
// channel; a client whose queue is full is disconnected instead of blocking publishers.
type Client struct {
	id     string
	UserID primitive.ObjectID
	Role   domain.Role

	conn *websocket.Conn
	hub  *Hub
	log  logrus.FieldLogger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient wraps conn for the given user.
func NewClient(conn *websocket.Conn, hub *Hub, userID primitive.ObjectID, role domain.Role, log logrus.FieldLogger) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		UserID: userID,
		Role:   role,
		conn:   conn,
		hub:    hub,
		log:    log.WithFields(logrus.Fields{"conn": id, "userId": userID.Hex()}),
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues a frame without blocking. It reports false and closes the client when
// the queue is full or the client is gone.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.Close()
		return false
	}
}

// SendError reports a failure to this client only.
func (c *Client) SendError(message string) {
	_ = c.hub.Deliver(c, EventError, ErrorPayload{Message: message})
}

// Close unsubscribes the client and stops its pumps. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.UnsubscribeAll(c)
	})
}

// Serve runs the write pump in the background and the read pump until the connection
// ends. handle is called sequentially for each inbound frame.
func (c *Client) Serve(ctx context.Context, handle Handler) {
	go c.writePump()
	c.readPump(ctx, handle)
}

func (c *Client) readPump(ctx context.Context, handle Handler) {
	defer func() {
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Debug("websocket closed unexpectedly")
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.SendError("malformed frame")
			continue
		}
		handle(ctx, c, env)

		select {
		case <-c.done:
			return
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
