package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/huddlechat/huddle/db/chat_db/model"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// AuthorizationREST resolves the request's verified identity: JWT claims
// carry the user's unique id, the user row is fetched from the redis cache
// (db fallback) and attached as Locals("viewer"). Requests without a valid
// token pass through as guests; protected routes check for the viewer.
func AuthorizationREST(c *fiber.Ctx, ctx context.Context, db *sqlx.DB, wRdb *redis.Client, rRdb *redis.Client) error {
	jwtToken, ok := c.Locals("user").(*jwt.Token)

	if !ok {
		slog.Info("Guest user request")
		return c.Next()
	}

	claims := jwtToken.Claims.(jwt.MapClaims)

	uid, ok := claims["uid"].(string)

	if !ok || uid == "" {
		slog.Error("💀 Unauthorized user attempt 💀")

		return c.Status(fiber.StatusUnauthorized).JSON(&fiber.Map{
			"success": false,
			"message": "Unable to authorize",
		})
	}

	val, err := rRdb.Get(ctx, fmt.Sprintf("user-%s", uid)).Result()

	if err != nil {
		slog.Warn(fmt.Sprintf("Couldn't fetch user from Redis, going to database user-%s", uid))

		user := model.Users{}

		err = db.Get(&user, "SELECT * FROM users WHERE unique_id = ? LIMIT 1", uid)

		if err != nil || user.ID == 0 {
			if err != nil {
				slog.Error("💀 User doesn't exist 💀",
					slog.String("error", err.Error()))
			} else {
				slog.Error("💀 User doesn't exist 💀")
			}

			return c.Status(fiber.StatusUnauthorized).JSON(&fiber.Map{
				"success": false,
				"message": "Unable to authorize",
			})
		}

		p, err := json.Marshal(user)

		if err != nil {
			slog.Error("Unable to authorize",
				slog.String("error", err.Error()))

			return c.Status(fiber.StatusUnauthorized).JSON(&fiber.Map{
				"success": false,
				"message": "Unable to authorize",
			})
		}

		go func() {
			_, err = wRdb.Set(ctx, fmt.Sprintf("user-%s", user.UniqueID), p, 1*time.Hour).Result()

			if err != nil {
				slog.Error("Unable to cache user in redis to authorize",
					slog.String("error", err.Error()))
			}
		}()

		c.Locals("viewer", user)

		return c.Next()
	}

	viewer := model.Users{}

	json.Unmarshal([]byte(val), &viewer)

	if viewer.ID == 0 {
		slog.Error("No user found")

		return c.Status(fiber.StatusUnauthorized).JSON(&fiber.Map{
			"success": false,
			"message": "Unable to authorize",
		})
	}

	go func() {
		db.Exec("UPDATE users SET last_active_at = ? WHERE id = ?", time.Now(), viewer.ID)
	}()

	slog.Info("Attached viewer")

	c.Locals("viewer", viewer)

	return c.Next()
}
