package handlers

import (
	"context"
	"log/slog"
	"slices"

	chatdb "github.com/huddlechat/huddle/db/chat_db"
	"github.com/huddlechat/huddle/db/chat_db/model"

	"github.com/gofiber/fiber/v2"
)

const latestMaxLimit = 100

// LatestMessages is the initial-load endpoint: the newest messages for the
// room, fetched descending and reversed so the response reads ascending.
func LatestMessages(c *fiber.Ctx, ctx context.Context, store chatdb.Store) error {
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

	limit := c.QueryInt("limit", 50)

	if limit <= 0 {
		limit = 50
	}

	if limit > latestMaxLimit {
		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Limit must not exceed 100",
		})
	}

	messages, err := store.LatestMessages(ctx, uint64(roomID), limit)

	if err != nil {
		slog.Error("💀 Couldn't select messages, db error 💀",
			slog.String("error", err.Error()))

		return c.Status(fiber.StatusInternalServerError).JSON(&fiber.Map{
			"success": false,
			"message": "Server error",
		})
	}

	slices.Reverse(messages)

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
