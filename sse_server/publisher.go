package sseserver

import (
	"log/slog"
)

// FrameWriter is the writable side of one subscriber's transport. Flush must
// push the frame past any buffering so proxies don't sit on real-time
// messages. *bufio.Writer satisfies it.
type FrameWriter interface {
	Write(p []byte) (int, error)
	Flush() error
}

// Pump drains the connection's outbox onto w, flushing after every frame.
// It returns when the connection is evicted or the transport fails; a write
// or flush error evicts this connection only.
func (r *Registry) Pump(conn *Conn, w FrameWriter) {
	for {
		select {
		case <-conn.Done():
			return

		case frame := <-conn.Frames():
			if _, err := w.Write(frame); err != nil {
				slog.Warn("💀 Couldn't write frame",
					slog.Uint64("roomId", conn.RoomID),
					slog.String("userId", conn.UserID),
					slog.String("error", err.Error()))

				r.Evict(conn)

				return
			}

			if err := w.Flush(); err != nil {
				slog.Warn("💀 Couldn't flush frame",
					slog.Uint64("roomId", conn.RoomID),
					slog.String("userId", conn.UserID),
					slog.String("error", err.Error()))

				r.Evict(conn)

				return
			}
		}
	}
}
