package handlers

import (
	"strconv"

	sseserver "github.com/huddlechat/huddle/sse_server"

	"github.com/gofiber/fiber/v2"
)

// SSEStats reports the live subscriber count per room.
func SSEStats(c *fiber.Ctx, hub *sseserver.Registry) error {
	stats := hub.Stats()

	data := make(fiber.Map, len(stats))

	for roomID, count := range stats {
		data[strconv.FormatUint(roomID, 10)] = count
	}

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{
		"success": true,
		"data":    data,
	})
}
