package handlers

import (
	"context"
	"log/slog"
	"strings"

	chatdb "github.com/huddlechat/huddle/db/chat_db"
	"github.com/huddlechat/huddle/db/chat_db/model"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateRoomInput struct {
	RoomName string `json:"roomName" validate:"omitempty,lte=50"`
}

// CreateRoom makes a private room with a fresh 6-char invite code.
func CreateRoom(c *fiber.Ctx, ctx context.Context, store chatdb.Store) error {
	slog.Info("Creating room ✅")

	user, ok := c.Locals("viewer").(model.Users)

	if !ok {
		slog.Warn("Not allowed")

		return c.Status(fiber.StatusUnauthorized).JSON(&fiber.Map{
			"success": false,
			"message": "Not allowed",
		})
	}

	input := new(CreateRoomInput)

	if err := c.BodyParser(input); err != nil {
		slog.Error("💀 Invalid input 💀",
			slog.String("error", err.Error()))

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Invalid input",
		})
	}

	if errors := ValidateInput(input); len(errors) > 0 {
		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Invalid input",
			"errors":  errors,
		})
	}

	name := Truncate(strings.TrimSpace(input.RoomName), 50)

	if name == "" {
		name = "Private room"
	}

	code := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])

	room, err := store.CreateRoom(ctx, code, name, user.UniqueID, false)

	if err != nil {
		slog.Error("💀 Unable to create room 💀",
			slog.String("error", err.Error()))

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Unable to create room",
		})
	}

	slog.Info("Room created ✅",
		slog.Uint64("roomId", room.ID))

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{
		"success": true,
		"room":    room.ToFiberMap(),
	})
}
