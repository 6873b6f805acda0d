package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/huddlechat/huddle/db/chat_db/model"
	"github.com/huddlechat/huddle/security_helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type SignInInput struct {
	Username string `json:"username" validate:"required,gte=2,lte=30"`
	Password string `json:"password" validate:"required,gte=6,lte=50"`
}

func SignIn(c *fiber.Ctx, ctx context.Context, db *sqlx.DB, wRdb *redis.Client) error {
	slog.Info("Starting user sign_in ✅")

	input := new(SignInInput)

	if err := c.BodyParser(input); err != nil {
		slog.Error("💀 Invalid input 💀")
		slog.Error(err.Error())

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Unable to login",
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

	username := Truncate(strings.TrimSpace(input.Username), 30)

	user := model.Users{}

	err := db.Get(&user, "SELECT * FROM users WHERE username = ? LIMIT 1", username)

	if err != nil {
		slog.Warn("💀 User does not exist 💀")

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "User does not exist",
		})
	}

	if !security_helpers.CheckPasswordHash(input.Password, user.PasswordHash) {
		slog.Warn("💀 Unable to sign_in 💀")

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Password invalid",
		})
	}

	p, err := json.Marshal(user)

	if err == nil {
		go func() {
			_, err := wRdb.Set(ctx, fmt.Sprintf("user-%s", user.UniqueID), p, 1*time.Hour).Result()

			if err != nil {
				slog.Error("💀 Unable to cache user 💀",
					slog.String("error", err.Error()))
			}
		}()
	}

	token, err := issueToken(user)

	if err != nil {
		slog.Error("💀 Unable to login 💀")
		slog.Error(err.Error())

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Unable to login",
		})
	}

	slog.Info("Issued login token ✅")

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{
		"success": true,
		"message": "Signed in",
		"data": fiber.Map{
			"username": user.Username,
			"uniqueId": user.UniqueID,
			"token":    token,
		},
	})
}
