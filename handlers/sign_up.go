package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/huddlechat/huddle/db/chat_db/model"
	"github.com/huddlechat/huddle/security_helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type SignUpInput struct {
	Username string `json:"username" validate:"required,gte=2,lte=30"`
	Password string `json:"password" validate:"required,gte=6,lte=50"`
}

func SignUp(c *fiber.Ctx, ctx context.Context, db *sqlx.DB, wRdb *redis.Client) error {
	slog.Info("Starting user sign_up ✅")

	input := new(SignUpInput)

	if err := c.BodyParser(input); err != nil {
		slog.Error("💀 Invalid input 💀")
		slog.Error(err.Error())

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Unable to sign up",
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

	var userCount int

	err := db.Get(&userCount, "SELECT count(*) FROM users WHERE username = ?", username)

	if err != nil {
		slog.Error("💀 Unable to sign_up 💀",
			slog.String("error", err.Error()))

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Unable to sign up",
		})
	}

	if userCount > 0 {
		slog.Warn("💀 Username already taken 💀")

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Username already taken",
		})
	}

	passwordHash, err := security_helpers.HashPassword(input.Password)

	if err != nil {
		slog.Error("💀 Unable to sign_up 💀",
			slog.String("error", err.Error()))

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Unable to sign up",
		})
	}

	uniqueID := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]

	_, err = db.Exec("INSERT INTO users (created_at, username, unique_id, password_hash, last_active_at) VALUES (?, ?, ?, ?, ?)",
		time.Now(), username, uniqueID, passwordHash, time.Now())

	if err != nil {
		slog.Error("💀 Unable to sign_up, db issue 💀",
			slog.String("error", err.Error()))

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Unable to sign up",
		})
	}

	user := model.Users{}

	err = db.Get(&user, "SELECT * FROM users WHERE unique_id = ? LIMIT 1", uniqueID)

	if err != nil {
		slog.Error("💀 Unable to sign_up 💀",
			slog.String("error", err.Error()))

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Unable to sign up",
		})
	}

	p, err := json.Marshal(user)

	if err == nil {
		go func() {
			_, err := wRdb.Set(ctx, fmt.Sprintf("user-%s", user.UniqueID), p, 1*time.Hour).Result()

			if err != nil {
				slog.Error("Unable to cache user in redis",
					slog.String("error", err.Error()))
			}
		}()
	}

	token, err := issueToken(user)

	if err != nil {
		slog.Error("💀 Unable to sign_up 💀",
			slog.String("error", err.Error()))

		return c.Status(fiber.StatusOK).JSON(&fiber.Map{
			"success": false,
			"message": "Unable to sign up",
		})
	}

	slog.Info("Issued sign up token ✅")

	return c.Status(fiber.StatusOK).JSON(&fiber.Map{
		"success": true,
		"message": "Signed up",
		"data": fiber.Map{
			"username": user.Username,
			"uniqueId": user.UniqueID,
			"token":    token,
		},
	})
}

func issueToken(user model.Users) (string, error) {
	claims := jwt.MapClaims{
		"uid": user.UniqueID,
		"exp": time.Now().Add((time.Hour * 24) * 31).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
