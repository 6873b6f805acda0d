package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	chatdb "github.com/huddlechat/huddle/db/chat_db"

	"github.com/hibiken/asynq"
)

const (
	TypeMessagesCleanup = "messages:cleanup"

	defaultRetentionDays = 30
)

type MessagesCleanupPayload struct {
	RetentionDays int
}

func NewMessagesCleanupTask(retentionDays int) (*asynq.Task, error) {
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}

	payload, err := json.Marshal(MessagesCleanupPayload{RetentionDays: retentionDays})

	slog.Info("Scheduling messages cleanup")

	if err != nil {
		slog.Error("Unable to schedule messages cleanup")
		slog.Error(err.Error())

		return nil, err
	}

	return asynq.NewTask(TypeMessagesCleanup, payload), nil
}

func HandleMessagesCleanupTask(ctx context.Context, t *asynq.Task, store chatdb.Store) error {
	slog.Info("Cleaning up old messages ✅")

	var p MessagesCleanupPayload

	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		slog.Error("Could not clean up messages")
		slog.Error(err.Error())

		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	if p.RetentionDays <= 0 {
		p.RetentionDays = defaultRetentionDays
	}

	cutoff := time.Now().AddDate(0, 0, -p.RetentionDays)

	purged, err := store.DeleteMessagesBefore(ctx, cutoff)

	if err != nil {
		slog.Error("Could not clean up messages",
			slog.String("error", err.Error()))

		return err
	}

	slog.Info("Messages cleanup done ✅",
		slog.Int64("purged", purged),
		slog.Int("retentionDays", p.RetentionDays))

	return nil
}
