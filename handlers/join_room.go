package handlers

import (
	"context"
	"log/slog"
	"strings"

	chatdb "github.com/huddlechat/huddle/db/chat_db"
	"github.com/huddlechat/huddle/db/chat_db/model"

	"github.com/gofiber/fiber/v2"
)

// JoinRoom looks a room up by its invite code.
func JoinRoom(c *fiber.Ctx, ctx context.Context, store chatdb.Store) error {
	_, ok := c.Locals("viewer").(model.Users)

	if !ok {
		slog.Warn("Not allowed")

		return c.Status(fiber.StatusUnauthorized).JSON(&fiber.Map{
			"success": false,
			"message": "Not allowed",
		})
	}

	code := Truncate(strings.ToUpper(strings.TrimSpace(c.Params("code"))), 6)

	if code == "" {
		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Room code required",
		})
	}

	room, err := store.RoomByCode(ctx, code)

	if err != nil {
		slog.Info("No room found 💀 " + code)

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Room not found",
		})
	}

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{
		"success": true,
		"room":    room.ToFiberMap(),
	})
}
