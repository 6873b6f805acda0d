package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	chatdb "github.com/huddlechat/huddle/db/chat_db"
	"github.com/huddlechat/huddle/db/chat_db/model"
	sseserver "github.com/huddlechat/huddle/sse_server"

	"github.com/gofiber/fiber/v2"
)

type fakeStore struct {
	mu       sync.Mutex
	nextID   uint64
	rooms    map[uint64]model.Rooms
	messages []model.Messages
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms: map[uint64]model.Rooms{
			1: {ID: 1, Code: "PUBLIC", Name: "Lobby", IsPublic: true},
		},
	}
}

func (s *fakeStore) seed(roomID uint64, id uint64, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id > s.nextID {
		s.nextID = id
	}

	s.messages = append(s.messages, model.Messages{
		ID:          id,
		CreatedAt:   time.Now(),
		RoomID:      roomID,
		UserID:      "seed",
		Content:     content,
		MessageType: model.MessageTypeText,
	})
}

func (s *fakeStore) AppendMessage(ctx context.Context, roomID uint64, userID string, content string, messageType string, file *chatdb.FileMeta) (model.Messages, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++

	msg := model.Messages{
		ID:          s.nextID,
		CreatedAt:   time.Now(),
		RoomID:      roomID,
		UserID:      userID,
		Content:     content,
		MessageType: messageType,
	}

	if file != nil {
		msg.FileName = sql.NullString{String: file.Name, Valid: true}
		msg.FileSize = sql.NullInt64{Int64: file.Size, Valid: true}
		msg.FileURL = sql.NullString{String: file.URL, Valid: true}
	}

	s.messages = append(s.messages, msg)

	return msg, nil
}

func (s *fakeStore) MessagesAfter(ctx context.Context, roomID uint64, afterID uint64, limit int) ([]model.Messages, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Messages

	for _, m := range s.messages {
		if m.RoomID == roomID && m.ID > afterID {
			out = append(out, m)
		}

		if len(out) == limit {
			break
		}
	}

	return out, nil
}

func (s *fakeStore) LatestMessages(ctx context.Context, roomID uint64, limit int) ([]model.Messages, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Messages

	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if s.messages[i].RoomID == roomID {
			out = append(out, s.messages[i])
		}
	}

	return out, nil
}

func (s *fakeStore) RoomByID(ctx context.Context, roomID uint64) (model.Rooms, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]

	if !ok {
		return model.Rooms{}, sql.ErrNoRows
	}

	return room, nil
}

func (s *fakeStore) RoomByCode(ctx context.Context, code string) (model.Rooms, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, room := range s.rooms {
		if room.Code == code {
			return room, nil
		}
	}

	return model.Rooms{}, sql.ErrNoRows
}

func (s *fakeStore) PublicRoom(ctx context.Context) (model.Rooms, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, room := range s.rooms {
		if room.IsPublic {
			return room, nil
		}
	}

	return model.Rooms{}, sql.ErrNoRows
}

func (s *fakeStore) CreateRoom(ctx context.Context, code string, name string, createdBy string, isPublic bool) (model.Rooms, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := model.Rooms{
		ID:        uint64(len(s.rooms) + 1),
		CreatedAt: time.Now(),
		Code:      code,
		Name:      name,
		CreatedBy: createdBy,
		IsPublic:  isPublic,
	}

	s.rooms[room.ID] = room

	return room, nil
}

func (s *fakeStore) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func testViewer() model.Users {
	return model.Users{ID: 1, Username: "alice", UniqueID: "a1b2c3d4"}
}

func newTestApp(store chatdb.Store, hub *sseserver.Registry, signedIn bool) *fiber.App {
	ctx := context.Background()

	app := fiber.New()

	app.Use(func(c *fiber.Ctx) error {
		if signedIn {
			c.Locals("viewer", testViewer())
		}

		return c.Next()
	})

	app.Post("/api/messages/send", func(c *fiber.Ctx) error {
		return SendMessage(c, ctx, store, hub)
	})

	app.Get("/api/messages/:roomId/latest", func(c *fiber.Ctx) error {
		return LatestMessages(c, ctx, store)
	})

	app.Get("/api/messages/:roomId", func(c *fiber.Ctx) error {
		return Messages(c, ctx, store)
	})

	return app
}

type messagesReply struct {
	Success  bool             `json:"success"`
	HasNew   bool             `json:"hasNew"`
	Message  string           `json:"message"`
	Messages []map[string]any `json:"messages"`
}

func doJSON(t *testing.T, app *fiber.App, method string, target string, body string, out any) int {
	t.Helper()

	var reader io.Reader

	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}

	req := httptest.NewRequest(method, target, reader)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, 5000)

	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("bad response body: %v", err)
		}
	}

	return resp.StatusCode
}

func TestMessagesRequiresViewer(t *testing.T) {
	app := newTestApp(newFakeStore(), sseserver.NewRegistry(), false)

	status := doJSON(t, app, http.MethodGet, "/api/messages/1", "", nil)

	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
}

func TestMessagesReturnsOnlyNewerAscending(t *testing.T) {
	store := newFakeStore()
	store.seed(1, 100, "old")
	store.seed(1, 101, "newer")
	store.seed(1, 102, "newest")

	app := newTestApp(store, sseserver.NewRegistry(), true)

	var reply messagesReply

	doJSON(t, app, http.MethodGet, "/api/messages/1?lastMessageId=100", "", &reply)

	if !reply.Success || !reply.HasNew {
		t.Fatalf("reply = %+v", reply)
	}

	if len(reply.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(reply.Messages))
	}

	if reply.Messages[0]["id"].(float64) != 101 || reply.Messages[1]["id"].(float64) != 102 {
		t.Errorf("ids = %v, %v, want 101, 102", reply.Messages[0]["id"], reply.Messages[1]["id"])
	}
}

func TestMessagesReportsNoNew(t *testing.T) {
	store := newFakeStore()
	store.seed(1, 100, "old")

	app := newTestApp(store, sseserver.NewRegistry(), true)

	var reply messagesReply

	doJSON(t, app, http.MethodGet, "/api/messages/1?lastMessageId=100", "", &reply)

	if !reply.Success {
		t.Fatalf("reply = %+v", reply)
	}

	if reply.HasNew || len(reply.Messages) != 0 {
		t.Errorf("expected empty result, got %+v", reply)
	}
}

func TestLatestMessagesReturnsNewestAscending(t *testing.T) {
	store := newFakeStore()
	store.seed(1, 98, "a")
	store.seed(1, 99, "b")
	store.seed(1, 100, "c")

	app := newTestApp(store, sseserver.NewRegistry(), true)

	var reply messagesReply

	doJSON(t, app, http.MethodGet, "/api/messages/1/latest?limit=2", "", &reply)

	if len(reply.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(reply.Messages))
	}

	if reply.Messages[0]["id"].(float64) != 99 || reply.Messages[1]["id"].(float64) != 100 {
		t.Errorf("ids = %v, %v, want 99, 100", reply.Messages[0]["id"], reply.Messages[1]["id"])
	}
}

func TestLatestMessagesRejectsOversizedLimit(t *testing.T) {
	app := newTestApp(newFakeStore(), sseserver.NewRegistry(), true)

	var reply messagesReply

	doJSON(t, app, http.MethodGet, "/api/messages/1/latest?limit=101", "", &reply)

	if reply.Success {
		t.Error("expected rejection for limit over 100")
	}

	if reply.Message != "Limit must not exceed 100" {
		t.Errorf("message = %q", reply.Message)
	}
}

type sendReply struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID uint64 `json:"messageId"`
}

func TestSendMessagePersistsAndBroadcasts(t *testing.T) {
	store := newFakeStore()
	hub := sseserver.NewRegistry()

	subscriber := hub.Subscribe(1, "bob")
	<-subscriber.Frames()

	app := newTestApp(store, hub, true)

	var reply sendReply

	status := doJSON(t, app, http.MethodPost, "/api/messages/send", `{"roomId":1,"content":"hello room"}`, &reply)

	if status != http.StatusOK || !reply.Success {
		t.Fatalf("status = %d, reply = %+v", status, reply)
	}

	if reply.MessageID == 0 {
		t.Error("messageId missing from response")
	}

	select {
	case frame := <-subscriber.Frames():
		if !bytes.Contains(frame, []byte(`"type":"newMessage"`)) {
			t.Errorf("frame = %q, want a newMessage event", frame)
		}

		if !bytes.Contains(frame, []byte("hello room")) {
			t.Errorf("frame = %q, want the message content", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the broadcast")
	}
}

func TestSendMessageRejectsBlankContent(t *testing.T) {
	app := newTestApp(newFakeStore(), sseserver.NewRegistry(), true)

	var reply sendReply

	doJSON(t, app, http.MethodPost, "/api/messages/send", `{"roomId":1,"content":"   "}`, &reply)

	if reply.Success {
		t.Error("expected rejection for blank content")
	}

	if reply.Message != "Message content must not be empty" {
		t.Errorf("message = %q", reply.Message)
	}
}

func TestSendMessageRejectsOversizedText(t *testing.T) {
	app := newTestApp(newFakeStore(), sseserver.NewRegistry(), true)

	content := strings.Repeat("x", 501)

	var reply sendReply

	doJSON(t, app, http.MethodPost, "/api/messages/send", `{"roomId":1,"content":"`+content+`"}`, &reply)

	if reply.Success {
		t.Error("expected rejection for text over 500 characters")
	}

	if reply.Message != "Message content must not exceed 500 characters" {
		t.Errorf("message = %q", reply.Message)
	}
}

func TestSendMessageUnknownRoom(t *testing.T) {
	app := newTestApp(newFakeStore(), sseserver.NewRegistry(), true)

	var reply sendReply

	doJSON(t, app, http.MethodPost, "/api/messages/send", `{"roomId":99,"content":"hi"}`, &reply)

	if reply.Success {
		t.Error("expected rejection for unknown room")
	}

	if reply.Message != "Room not found" {
		t.Errorf("message = %q", reply.Message)
	}
}
