package handlers

import (
	"context"
	"log/slog"

	chatdb "github.com/huddlechat/huddle/db/chat_db"
	"github.com/huddlechat/huddle/db/chat_db/model"

	"github.com/gofiber/fiber/v2"
)

const pollPageSize = 50

// Messages is the polling endpoint: everything newer than lastMessageId for
// the room, ascending, capped at 50.
func Messages(c *fiber.Ctx, ctx context.Context, store chatdb.Store) error {
	if _, ok := c.Locals("viewer").(model.Users); !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(&fiber.Map{
			"success": false,
			"message": "Not allowed",
		})
	}

	roomID, err := c.ParamsInt("roomId")

	if err != nil || roomID <= 0 {
		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Invalid room id",
		})
	}

	lastMessageID := c.QueryInt("lastMessageId", 0)

	if lastMessageID < 0 {
		lastMessageID = 0
	}

	messages, err := store.MessagesAfter(ctx, uint64(roomID), uint64(lastMessageID), pollPageSize)

	if err != nil {
		slog.Error("💀 Couldn't select messages, db error 💀",
			slog.String("error", err.Error()))

		return c.Status(fiber.StatusInternalServerError).JSON(&fiber.Map{
			"success": false,
			"message": "Server error",
		})
	}

	mapped := make([]fiber.Map, len(messages))

	for i, m := range messages {
		mapped[i] = m.ToFiberMap()
	}

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{
		"success":  true,
		"hasNew":   len(mapped) > 0,
		"messages": mapped,
	})
}
