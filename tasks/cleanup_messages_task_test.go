package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	chatdb "github.com/huddlechat/huddle/db/chat_db"

	"github.com/hibiken/asynq"
)

type fakeCleanupStore struct {
	chatdb.Store

	cutoff time.Time
	purged int64
}

func (s *fakeCleanupStore) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff

	return s.purged, nil
}

func TestHandleMessagesCleanupUsesRetentionWindow(t *testing.T) {
	task, err := NewMessagesCleanupTask(7)

	if err != nil {
		t.Fatalf("NewMessagesCleanupTask failed: %v", err)
	}

	store := &fakeCleanupStore{purged: 12}

	if err := HandleMessagesCleanupTask(context.Background(), task, store); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	want := time.Now().AddDate(0, 0, -7)

	if diff := store.cutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want about %v", store.cutoff, want)
	}
}

func TestHandleMessagesCleanupDefaultsRetention(t *testing.T) {
	task, err := NewMessagesCleanupTask(0)

	if err != nil {
		t.Fatalf("NewMessagesCleanupTask failed: %v", err)
	}

	store := &fakeCleanupStore{}

	if err := HandleMessagesCleanupTask(context.Background(), task, store); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	want := time.Now().AddDate(0, 0, -30)

	if diff := store.cutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want about %v", store.cutoff, want)
	}
}

func TestHandleMessagesCleanupSkipsRetryOnBadPayload(t *testing.T) {
	task := asynq.NewTask(TypeMessagesCleanup, []byte("not json"))

	err := HandleMessagesCleanupTask(context.Background(), task, &fakeCleanupStore{})

	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("got %v, want a SkipRetry error", err)
	}
}
