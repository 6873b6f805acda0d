package sseserver

import (
	"sync"
)

// Conn is the server-side handle for one (room, user) stream. The registry
// creates it on Subscribe and closes it on eviction; the HTTP handler drains
// Frames onto the response via Pump.
type Conn struct {
	RoomID uint64
	UserID string

	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(roomID uint64, userID string, buffer int) *Conn {
	return &Conn{
		RoomID: roomID,
		UserID: userID,
		frames: make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// Frames is the connection's outbox, drained by the stream writer.
func (c *Conn) Frames() <-chan []byte {
	return c.frames
}

// Done is closed when the connection has been evicted.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// push hands a frame to the outbox. It reports false when the connection is
// already closed or when the outbox is full; a subscriber that stopped
// draining is treated the same as one whose transport failed.
func (c *Conn) push(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.frames <- frame:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}
