package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
)

// Client is the mirrored side's single upstream link to the host hub.
// Implements mirror.PeerLink: with one socket, Broadcast and SendToPeer
// both write to the host, which owns any further routing.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	inbound chan []byte
	done    chan struct{}
}

// Dial connects to a host hub. The id is presented as this peer's identity.
func Dial(ctx context.Context, url, id string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url+"?id="+id, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	c := &Client{
		conn:    conn,
		send:    make(chan []byte, 256),
		inbound: make(chan []byte, 256),
		done:    make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c, nil
}

func (c *Client) readPump() {
	defer close(c.inbound)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case c.inbound <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writePump() {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("websocket write failed", "error", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// Broadcast sends a message to the host.
func (c *Client) Broadcast(msg []byte) error {
	select {
	case c.send <- msg:
		return nil
	default:
		return fmt.Errorf("uplink send queue full")
	}
}

// SendToPeer sends a message toward the named peer via the host.
func (c *Client) SendToPeer(peerID string, msg []byte) error {
	return c.Broadcast(msg)
}

// Inbound returns the stream of messages from the host. Closed when the
// connection drops.
func (c *Client) Inbound() <-chan []byte {
	return c.inbound
}

// Close tears the connection down.
func (c *Client) Close() {
	close(c.done)
	c.conn.Close()
}
