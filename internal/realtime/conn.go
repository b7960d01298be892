package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 64

// socket is the transport half of a connection. *websocket.Conn satisfies it.
type socket interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Conn wraps one live socket. Outbound frames go through a buffered channel
// drained by a single write pump goroutine, so a slow peer never blocks the
// broker's fan-out path.
type Conn struct {
	sock socket
	send chan []byte

	// classification, fixed at Register time
	role   Role
	userID string

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewConn wraps a socket and starts its write pump.
func NewConn(sock socket) *Conn {
	c := &Conn{
		sock: sock,
		send: make(chan []byte, sendBufferSize),
	}
	go c.writePump()
	return c
}

func (c *Conn) writePump() {
	defer c.sock.Close()
	for msg := range c.send {
		if err := c.sock.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// enqueue offers a frame to the connection without blocking. Frames for a
// closed or backed-up connection are dropped; cleanup arrives separately via
// the close event.
func (c *Conn) enqueue(data []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close marks the connection closed and stops the write pump. Idempotent.
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.send)
	})
}
