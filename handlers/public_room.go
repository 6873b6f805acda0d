package handlers

import (
	"context"
	"log/slog"

	chatdb "github.com/huddlechat/huddle/db/chat_db"

	"github.com/gofiber/fiber/v2"
)

// PublicRoom returns the shared lobby, creating it on first use.
func PublicRoom(c *fiber.Ctx, ctx context.Context, store chatdb.Store) error {
	room, err := store.PublicRoom(ctx)

	if err != nil {
		slog.Info("No public room yet, creating the lobby")

		room, err = store.CreateRoom(ctx, "PUBLIC", "Lobby", "", true)

		if err != nil {
			slog.Error("💀 Unable to create the lobby 💀",
				slog.String("error", err.Error()))

			return c.Status(fiber.StatusInternalServerError).JSON(&fiber.Map{
				"success": false,
				"message": "Server error",
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{
		"success": true,
		"room":    room.ToFiberMap(),
	})
}
