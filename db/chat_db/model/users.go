package model

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Users struct {
	ID           uint64    `db:"id"`
	CreatedAt    time.Time `db:"created_at"`
	Username     string    `db:"username"`
	UniqueID     string    `db:"unique_id"`
	PasswordHash string    `db:"password_hash"`
	LastActiveAt time.Time `db:"last_active_at"`
}

func (u Users) ToFiberMap() fiber.Map {
	return fiber.Map{
		"username": u.Username,
		"uniqueId": u.UniqueID,
	}
}

var USERS_TYPE = "Users"
