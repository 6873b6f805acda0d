package handlers

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"time"

	chatdb "github.com/huddlechat/huddle/db/chat_db"
	"github.com/huddlechat/huddle/db/chat_db/model"
	sseserver "github.com/huddlechat/huddle/sse_server"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
)

func presenceKey(roomID uint64, userID string) string {
	return fmt.Sprintf("presence-room-%d-user-%s", roomID, userID)
}

// SSEConnect opens the long-lived stream for one room. The registry handles
// replacement of a previous stream for the same (room, user) pair; this
// handler owns the response lifecycle: headers that defeat intermediary
// buffering, the pump that drains the connection's outbox, and presence
// bookkeeping around connect/disconnect.
func SSEConnect(c *fiber.Ctx, ctx context.Context, store chatdb.Store, wRdb *redis.Client, hub *sseserver.Registry) error {
	user, ok := c.Locals("viewer").(model.Users)

	if !ok {
		slog.Warn("Not allowed")

		return c.Status(fiber.StatusUnauthorized).JSON(&fiber.Map{
			"success": false,
			"message": "Not allowed",
		})
	}

	roomID, err := c.ParamsInt("roomId")

	if err != nil || roomID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(&fiber.Map{
			"success": false,
			"message": "Invalid room id",
		})
	}

	if _, err := store.RoomByID(ctx, uint64(roomID)); err != nil {
		slog.Info("No room found 💀",
			slog.Int("roomId", roomID))

		return c.Status(fiber.StatusNotFound).JSON(&fiber.Map{
			"success": false,
			"message": "Room not found",
		})
	}

	slog.Info("😍 New stream request",
		slog.Int("roomId", roomID),
		slog.String("userId", user.UniqueID))

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache, no-transform")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	room := uint64(roomID)
	userID := user.UniqueID

	conn := hub.Subscribe(room, userID)

	go func() {
		_, err := wRdb.Set(context.Background(), presenceKey(room, userID), time.Now().Format(time.RFC3339), 0).Result()

		if err != nil {
			slog.Error("Couldn't set presence in redis 💀",
				slog.String("error", err.Error()))
		}
	}()

	hub.Broadcast(room, sseserver.UserStatusEvent(userID, "online"))

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			hub.Evict(conn)

			_, err := wRdb.Del(context.Background(), presenceKey(room, userID)).Result()

			if err != nil {
				slog.Error("Couldn't clear presence in redis 💀",
					slog.String("error", err.Error()))
			}

			hub.Broadcast(room, sseserver.UserStatusEvent(userID, "offline"))

			slog.Info("Stream closed",
				slog.Uint64("roomId", room),
				slog.String("userId", userID))
		}()

		hub.Pump(conn, w)
	}))

	return nil
}
