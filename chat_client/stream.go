package chatclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/imroc/req/v3"
)

type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	defaultBaseDelay   = 1 * time.Second
	defaultMaxAttempts = 5
)

const dataPrefix = "data: "

// StreamHandlers receive events from the room stream. Nil handlers
// are skipped. Handlers run on the consumer's goroutines and must not
// block.
type StreamHandlers struct {
	OnMessage    func(Message)
	OnUserStatus func(UserStatus)
	OnState      func(ConnectionState)
	OnError      func(error)
}

// StreamConsumer holds one live event stream to a room. When the
// stream drops it reconnects with exponential backoff, giving up and
// going to StateClosed after too many failed attempts.
type StreamConsumer struct {
	http     *req.Client
	handlers StreamHandlers

	baseDelay   time.Duration
	maxAttempts int

	mu         sync.Mutex
	state      ConnectionState
	roomID     uint64
	attempts   int
	generation uint64
	cancel     context.CancelFunc
	reconnect  *time.Timer
}

type StreamOption func(*StreamConsumer)

func WithBaseDelay(d time.Duration) StreamOption {
	return func(s *StreamConsumer) {
		s.baseDelay = d
	}
}

func WithMaxAttempts(n int) StreamOption {
	return func(s *StreamConsumer) {
		s.maxAttempts = n
	}
}

func NewStreamConsumer(baseURL string, token string, handlers StreamHandlers, opts ...StreamOption) *StreamConsumer {
	http := req.C().
		SetBaseURL(baseURL).
		DisableAutoReadResponse()

	if token != "" {
		http.SetCommonBearerAuthToken(token)
	}

	s := &StreamConsumer{
		http:        http,
		handlers:    handlers,
		baseDelay:   defaultBaseDelay,
		maxAttempts: defaultMaxAttempts,
		state:       StateDisconnected,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *StreamConsumer) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Connect opens the stream for a room. Calling it again for the room
// already connected (or connecting) is a no-op; a healthy stream is
// never torn down just to be reopened. Any other previous stream is
// torn down first, so switching rooms is just another Connect.
func (s *StreamConsumer) Connect(roomID uint64) {
	s.mu.Lock()

	if s.roomID == roomID && (s.state == StateConnected || s.state == StateConnecting) {
		s.mu.Unlock()
		return
	}

	s.stopLocked()

	s.roomID = roomID
	s.attempts = 0
	s.generation++
	gen := s.generation
	s.state = StateConnecting

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.mu.Unlock()

	s.notifyState(StateConnecting)

	go s.run(ctx, gen, roomID)
}

// Disconnect tears the stream down. Safe to call more than once.
func (s *StreamConsumer) Disconnect() {
	s.mu.Lock()

	s.generation++
	s.stopLocked()

	changed := s.state != StateDisconnected
	s.state = StateDisconnected

	s.mu.Unlock()

	if changed {
		s.notifyState(StateDisconnected)
	}
}

// stopLocked cancels the in-flight stream and any pending reconnect.
// Callers hold s.mu.
func (s *StreamConsumer) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
}

func (s *StreamConsumer) run(ctx context.Context, gen uint64, roomID uint64) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/event-stream").
		Get(fmt.Sprintf("/api/sse/%d", roomID))

	if err != nil {
		s.streamFailed(gen, err)
		return
	}

	if resp.IsErrorState() {
		resp.Body.Close()
		s.streamFailed(gen, fmt.Errorf("stream rejected: status %d", resp.StatusCode))

		return
	}

	if !s.markConnected(gen) {
		resp.Body.Close()
		return
	}

	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		// Heartbeat comments and blank separators carry no payload.
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		s.dispatch(strings.TrimPrefix(line, dataPrefix))
	}

	err = scanner.Err()

	if err == nil {
		err = io.EOF
	}

	s.streamFailed(gen, err)
}

func (s *StreamConsumer) markConnected(gen uint64) bool {
	s.mu.Lock()

	if gen != s.generation || s.state == StateClosed || s.state == StateDisconnected {
		s.mu.Unlock()
		return false
	}

	s.attempts = 0
	s.state = StateConnected

	s.mu.Unlock()

	s.notifyState(StateConnected)

	return true
}

func (s *StreamConsumer) streamFailed(gen uint64, cause error) {
	s.mu.Lock()

	if gen != s.generation || s.state == StateClosed || s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}

	s.cancel = nil
	s.attempts++

	if s.attempts > s.maxAttempts {
		s.state = StateClosed
		s.mu.Unlock()

		slog.Error("💀 Stream gone, giving up",
			slog.String("error", cause.Error()))

		s.notifyState(StateClosed)

		if s.handlers.OnError != nil {
			s.handlers.OnError(fmt.Errorf("stream closed after %d attempts: %w", s.maxAttempts, cause))
		}

		return
	}

	delay := backoffDelay(s.baseDelay, s.attempts)
	attempt := s.attempts
	roomID := s.roomID
	s.state = StateReconnecting

	s.reconnect = time.AfterFunc(delay, func() {
		s.mu.Lock()

		if gen != s.generation || s.state != StateReconnecting {
			s.mu.Unlock()
			return
		}

		s.state = StateConnecting

		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel

		s.mu.Unlock()

		s.notifyState(StateConnecting)

		s.run(ctx, gen, roomID)
	})

	s.mu.Unlock()

	slog.Info("Stream dropped, reconnecting 👀",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay),
		slog.String("error", cause.Error()))

	s.notifyState(StateReconnecting)
}

// backoffDelay doubles per attempt: base, 2*base, 4*base, ...
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	return base << (attempt - 1)
}

func (s *StreamConsumer) dispatch(payload string) {
	var ev struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		slog.Warn("Skipping malformed stream frame",
			slog.String("error", err.Error()))

		return
	}

	switch ev.Type {
	case "connected":
		slog.Info("😍 Stream established")

	case "newMessage":
		var msg Message

		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			slog.Warn("Skipping malformed message frame",
				slog.String("error", err.Error()))

			return
		}

		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(msg)
		}

	case "userStatus":
		var status UserStatus

		if err := json.Unmarshal(ev.Data, &status); err != nil {
			slog.Warn("Skipping malformed status frame",
				slog.String("error", err.Error()))

			return
		}

		if s.handlers.OnUserStatus != nil {
			s.handlers.OnUserStatus(status)
		}

	case "error":
		if s.handlers.OnError != nil {
			s.handlers.OnError(fmt.Errorf("server error event: %s", string(ev.Data)))
		}

	default:
		slog.Debug("Ignoring unknown stream event",
			slog.String("type", ev.Type))
	}
}

func (s *StreamConsumer) notifyState(state ConnectionState) {
	if s.handlers.OnState != nil {
		s.handlers.OnState(state)
	}
}
