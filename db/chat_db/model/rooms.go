package model

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Rooms struct {
	ID        uint64    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	Code      string    `db:"room_code"`
	Name      string    `db:"room_name"`
	CreatedBy string    `db:"created_by"`
	IsPublic  bool      `db:"is_public"`
}

func (r Rooms) ToFiberMap() fiber.Map {
	return fiber.Map{
		"id":        r.ID,
		"roomCode":  r.Code,
		"roomName":  r.Name,
		"isPublic":  r.IsPublic,
		"createdAt": r.CreatedAt.Format(time.RFC3339),
	}
}

var ROOMS_TYPE = "Rooms"
