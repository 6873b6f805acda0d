package handlers

import (
	"context"
	"log/slog"
	"strings"

	chatdb "github.com/huddlechat/huddle/db/chat_db"
	"github.com/huddlechat/huddle/db/chat_db/model"
	sseserver "github.com/huddlechat/huddle/sse_server"

	"github.com/gofiber/fiber/v2"
)

type SendMessageInput struct {
	RoomID      *uint64 `json:"roomId" validate:"required"`
	Content     string  `json:"content" validate:"required"`
	MessageType string  `json:"messageType" validate:"omitempty,oneof=text image file"`
	FileName    *string `json:"fileName" validate:"omitempty,lte=255"`
	FileSize    *int64  `json:"fileSize" validate:"omitempty,gte=0"`
	FileURL     *string `json:"fileUrl" validate:"omitempty,lte=500"`
}

// SendMessage appends the message and fans it out to the room's live
// subscribers. The returned messageId is what the stream event and the
// subsequent polls carry.
func SendMessage(c *fiber.Ctx, ctx context.Context, store chatdb.Store, hub *sseserver.Registry) error {
	slog.Info("Creating message ✅")

	user, ok := c.Locals("viewer").(model.Users)

	if !ok {
		slog.Warn("Not allowed")

		return c.Status(fiber.StatusUnauthorized).JSON(&fiber.Map{
			"success": false,
			"message": "Not allowed",
		})
	}

	input := new(SendMessageInput)

	if err := c.BodyParser(input); err != nil {
		slog.Error("💀 Invalid input 💀",
			slog.String("error", err.Error()))

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Invalid input",
		})
	}

	if errors := ValidateInput(input); len(errors) > 0 {
		slog.Warn("💀 Invalid input 💀")

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Invalid input",
			"errors":  errors,
		})
	}

	content := strings.TrimSpace(input.Content)

	if content == "" {
		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Message content must not be empty",
		})
	}

	messageType := input.MessageType

	if messageType == "" {
		messageType = model.MessageTypeText
	}

	if messageType == model.MessageTypeText && len([]rune(content)) > 500 {
		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Message content must not exceed 500 characters",
		})
	}

	roomID := *input.RoomID

	if _, err := store.RoomByID(ctx, roomID); err != nil {
		slog.Info("No room found 💀",
			slog.Uint64("roomId", roomID))

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Room not found",
		})
	}

	var file *chatdb.FileMeta

	if messageType != model.MessageTypeText && input.FileName != nil {
		file = &chatdb.FileMeta{
			Name: *input.FileName,
		}

		if input.FileSize != nil {
			file.Size = *input.FileSize
		}

		if input.FileURL != nil {
			file.URL = *input.FileURL
		}
	}

	message, err := store.AppendMessage(ctx, roomID, user.UniqueID, content, messageType, file)

	if err != nil {
		slog.Error("💀 Couldn't insert message, db error 💀",
			slog.String("error", err.Error()))

		return c.Status(fiber.StatusInternalServerError).JSON(&fiber.Map{
			"success": false,
			"message": "Server error",
		})
	}

	hub.Broadcast(roomID, sseserver.NewMessageEvent(message.ToFiberMap()))

	slog.Info("✅ Broadcasted message event",
		slog.Uint64("roomId", roomID),
		slog.Uint64("messageId", message.ID))

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{
		"success":   true,
		"messageId": message.ID,
	})
}
