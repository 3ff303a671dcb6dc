package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/tandem/internal/signaling"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

type outbound struct {
	msg   *signaling.Message
	close bool
}

// Client is a wrapper for a single websocket connection (a peer)
type Client struct {
	ID signaling.ConnID

	hub  *Hub
	conn *websocket.Conn

	// send is the outbound FIFO drained by WritePump.
	send chan outbound

	// done is closed once the client is detached from the hub.
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id signaling.ConnID, hub *Hub, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		ID:   id,
		hub:  hub,
		conn: conn,
		send: make(chan outbound, buffer),
		done: make(chan struct{}),
	}
}

// enqueue hands a message to the write pump without blocking. It reports
// false when the client is gone or its queue is full.
func (c *Client) enqueue(msg *signaling.Message, closeAfter bool) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- outbound{msg: msg, close: closeAfter}:
		return true
	default:
		return false
	}
}

// shutdown stops the write pump after it flushes what is already queued.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine, which also serializes the connection's events.
func (c *Client) ReadPump(readLimit int64) {
	// When this function exits, detach the client. WritePump closes the
	// socket once it has flushed the queue.
	defer c.hub.Detach(c)

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("Read failed", "conn", c.ID, "error", err)
			}
			return
		}

		msg, err := signaling.ParseMessage(data)
		if err != nil {
			c.hub.Reject(c, fmt.Errorf("%w: %v", signaling.ErrMalformedMessage, err))
			return
		}

		c.hub.Handle(c, msg)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	// When this function exits, stop the ticker and close the connection
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case out := <-c.send:
			if !c.write(out) || out.close {
				c.writeClose()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.flush()
			c.writeClose()
			return
		}
	}
}

// write sends one message. Relayed signals go out as the exact frame the
// other peer sent.
func (c *Client) write(out outbound) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	var err error
	if raw := out.msg.Raw(); raw != nil {
		err = c.conn.WriteMessage(websocket.TextMessage, raw)
	} else {
		err = c.conn.WriteJSON(out.msg)
	}
	if err != nil {
		c.hub.log.Debug("Write failed", "conn", c.ID, "type", out.msg.Type, "error", err)
		return false
	}
	return true
}

// flush writes whatever was queued before the client was detached.
func (c *Client) flush() {
	for {
		select {
		case out := <-c.send:
			if !c.write(out) || out.close {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) writeClose() {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
