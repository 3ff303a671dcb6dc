package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/tandem/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the websocket connection to the relay.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *signaling.Message
	outgoing  chan *signaling.Message
	done      chan struct{}
	closeOnce sync.Once
	resolver  *resolver
}

// NewClient creates a new signaling client
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *signaling.Message, 16),
		outgoing:  make(chan *signaling.Message, 16),
		done:      make(chan struct{}),
		resolver:  newResolver(),
	}
}

// Connect dials the relay and starts the read and write pumps.
func (c *Client) Connect(ctx context.Context) error {
	// Resolve through the fallback resolver so a broken system DNS does not
	// keep us off the relay
	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = c.resolver.DialContext

	conn, _, err := dialer.DialContext(ctx, c.serverURL, nil)
	if err != nil {
		return NewError("connect to relay", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

// readPump reads messages from the websocket until it fails; Incoming is
// closed afterwards and the client stops accepting sends.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg signaling.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the websocket and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Close()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues msg for the relay.
func (c *Client) Send(msg *signaling.Message) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	}
}

// SendSignal marshals payload and sends it as a handshake message of type t.
func (c *Client) SendSignal(t string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return NewError(fmt.Sprintf("encode %s", t), err)
	}
	return c.Send(&signaling.Message{Type: t, Payload: data})
}

// JoinRoom asks the relay to admit this client to roomID.
func (c *Client) JoinRoom(roomID string) error {
	return c.SendSignal(signaling.MessageTypeJoinRoom, roomID)
}

// Incoming returns the channel of messages received from the relay.
func (c *Client) Incoming() <-chan *signaling.Message {
	return c.incoming
}

// Close closes the websocket connection. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
