package chatclient

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultPollInterval = 1 * time.Second

// Poller is the fallback transport when the event stream is down. It
// fetches messages newer than the highest id it has seen, on a fixed
// interval, and hands each non-empty batch to onBatch.
type Poller struct {
	client   *Client
	interval time.Duration
	onBatch  func([]Message)
	onError  func(error)

	mu      sync.Mutex
	roomID  uint64
	lastID  int64
	running bool
	stop    chan struct{}
	trigger chan struct{}
}

type PollerOption func(*Poller)

func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.interval = d
	}
}

func NewPoller(client *Client, onBatch func([]Message), onError func(error), opts ...PollerOption) *Poller {
	p := &Poller{
		client:   client,
		interval: defaultPollInterval,
		onBatch:  onBatch,
		onError:  onError,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start begins polling a room. The watermark starts at zero so the
// first fetch returns recent history too. Starting again on another
// room stops the old loop first.
func (p *Poller) Start(roomID uint64) {
	p.mu.Lock()

	p.stopLocked()

	p.roomID = roomID
	p.lastID = 0
	p.running = true

	stop := make(chan struct{})
	trigger := make(chan struct{}, 1)
	p.stop = stop
	p.trigger = trigger

	p.mu.Unlock()

	slog.Info("Polling started",
		slog.Uint64("roomId", roomID))

	go p.loop(roomID, stop, trigger)
}

// SwitchRoom repoints the poller at a new room and resets the
// watermark.
func (p *Poller) SwitchRoom(roomID uint64) {
	p.Start(roomID)
}

// TriggerFetch requests an immediate fetch without waiting for the
// next tick. A no-op when the poller is stopped or a trigger is
// already pending.
func (p *Poller) TriggerFetch() {
	p.mu.Lock()
	trigger := p.trigger
	running := p.running
	p.mu.Unlock()

	if !running {
		return
	}

	select {
	case trigger <- struct{}{}:
	default:
	}
}

// Stop halts polling. Safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if !p.running {
		return
	}

	close(p.stop)
	p.running = false
}

func (p *Poller) loop(roomID uint64, stop chan struct{}, trigger chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch(roomID)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.fetch(roomID)
		case <-trigger:
			p.fetch(roomID)
		}
	}
}

func (p *Poller) fetch(roomID uint64) {
	p.mu.Lock()
	last := p.lastID
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := p.client.MessagesAfter(ctx, roomID, last)

	if err != nil {
		slog.Warn("Poll failed",
			slog.Uint64("roomId", roomID),
			slog.String("error", err.Error()))

		if p.onError != nil {
			p.onError(err)
		}

		return
	}

	if !resp.HasNew || len(resp.Messages) == 0 {
		return
	}

	p.mu.Lock()

	// The loop may have been repointed at another room mid-fetch.
	if p.roomID != roomID || !p.running {
		p.mu.Unlock()
		return
	}

	for _, m := range resp.Messages {
		if m.ID > p.lastID {
			p.lastID = m.ID
		}
	}

	p.mu.Unlock()

	if p.onBatch != nil {
		p.onBatch(resp.Messages)
	}
}
