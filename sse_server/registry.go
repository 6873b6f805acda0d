package sseserver

import (
	"log/slog"
	"sync"
	"time"
)

const (
	defaultHeartbeatEvery = 30 * time.Second
	defaultSendBuffer     = 64
)

// Registry is the authoritative record of live subscribers per room and the
// fan-out point for new events. Construct one per process and inject it into
// the handlers that need it.
type Registry struct {
	mu    sync.Mutex
	rooms map[uint64]map[string]*Conn

	heartbeatEvery time.Duration
	sendBuffer     int
}

type Option func(*Registry)

func WithHeartbeatInterval(d time.Duration) Option {
	return func(r *Registry) {
		r.heartbeatEvery = d
	}
}

func WithSendBuffer(n int) Option {
	return func(r *Registry) {
		r.sendBuffer = n
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms:          make(map[uint64]map[string]*Conn),
		heartbeatEvery: defaultHeartbeatEvery,
		sendBuffer:     defaultSendBuffer,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Subscribe registers a connection for the (room, user) pair, replacing any
// prior connection for the same pair. The new connection immediately receives
// a connected event and its heartbeat loop is started.
func (r *Registry) Subscribe(roomID uint64, userID string) *Conn {
	conn := newConn(roomID, userID, r.sendBuffer)

	r.mu.Lock()

	room, ok := r.rooms[roomID]

	if !ok {
		room = make(map[string]*Conn)
		r.rooms[roomID] = room
	}

	if old, ok := room[userID]; ok {
		old.close()
	}

	room[userID] = conn

	subscribers := len(room)

	r.mu.Unlock()

	slog.Info("😍 Subscribed to room",
		slog.Uint64("roomId", roomID),
		slog.String("userId", userID),
		slog.Int("subscribers", subscribers))

	frame, err := ConnectedEvent(roomID, userID).Frame()

	if err != nil {
		slog.Error("💀 Couldn't frame connected event",
			slog.String("error", err.Error()))
	} else if !conn.push(frame) {
		r.Evict(conn)

		return conn
	}

	go r.heartbeatLoop(conn)

	return conn
}

// Unsubscribe removes the connection registered for the pair. It is
// idempotent: close and error callbacks can race without harm.
func (r *Registry) Unsubscribe(roomID uint64, userID string) {
	r.mu.Lock()

	room, ok := r.rooms[roomID]

	if !ok {
		r.mu.Unlock()

		return
	}

	conn, ok := room[userID]

	if !ok {
		r.mu.Unlock()

		return
	}

	delete(room, userID)

	if len(room) == 0 {
		delete(r.rooms, roomID)
	}

	subscribers := len(room)

	r.mu.Unlock()

	conn.close()

	slog.Info("Unsubscribed from room",
		slog.Uint64("roomId", roomID),
		slog.String("userId", userID),
		slog.Int("subscribers", subscribers))
}

// Evict removes exactly this connection. A newer connection that replaced it
// for the same pair stays registered.
func (r *Registry) Evict(conn *Conn) {
	r.mu.Lock()

	if room, ok := r.rooms[conn.RoomID]; ok {
		if current, ok := room[conn.UserID]; ok && current == conn {
			delete(room, conn.UserID)

			if len(room) == 0 {
				delete(r.rooms, conn.RoomID)
			}
		}
	}

	r.mu.Unlock()

	conn.close()
}

// Broadcast delivers the event to every connection currently subscribed to
// the room. The subscriber set is snapshotted under the lock; deliveries
// happen outside it so a stalled subscriber cannot block the others. A failed
// delivery evicts only that connection and is never surfaced to the caller.
func (r *Registry) Broadcast(roomID uint64, event Event) {
	frame, err := event.Frame()

	if err != nil {
		slog.Error("💀 Couldn't frame event",
			slog.String("error", err.Error()),
			slog.String("type", event.Type))

		return
	}

	r.mu.Lock()

	room := r.rooms[roomID]

	snapshot := make([]*Conn, 0, len(room))

	for _, conn := range room {
		snapshot = append(snapshot, conn)
	}

	r.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	for _, conn := range snapshot {
		if !conn.push(frame) {
			slog.Warn("💀 Couldn't deliver event, evicting connection",
				slog.Uint64("roomId", conn.RoomID),
				slog.String("userId", conn.UserID))

			r.Evict(conn)
		}
	}
}

// Stats returns a snapshot of subscriber counts per room.
func (r *Registry) Stats() map[uint64]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make(map[uint64]int, len(r.rooms))

	for roomID, room := range r.rooms {
		stats[roomID] = len(room)
	}

	return stats
}

// heartbeatLoop keeps the long-lived response from being treated as idle by
// intermediaries. It stops when the connection is evicted; a heartbeat that
// can't be delivered evicts the connection the same way a broadcast failure does.
func (r *Registry) heartbeatLoop(conn *Conn) {
	ticker := time.NewTicker(r.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-conn.Done():
			return

		case <-ticker.C:
			if !conn.push(HeartbeatFrame) {
				r.Evict(conn)

				return
			}
		}
	}
}
