package model

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

type Messages struct {
	ID          uint64         `db:"id"`
	CreatedAt   time.Time      `db:"created_at"`
	RoomID      uint64         `db:"room_id"`
	UserID      string         `db:"user_id"`
	Content     string         `db:"content"`
	MessageType string         `db:"message_type"`
	FileName    sql.NullString `db:"file_name"`
	FileSize    sql.NullInt64  `db:"file_size"`
	FileURL     sql.NullString `db:"file_url"`
}

// ToFiberMap renders the message in the wire shape shared by the polling
// endpoints and the newMessage stream events.
func (m Messages) ToFiberMap() fiber.Map {
	var fileName *string

	if m.FileName.Valid {
		fileName = &m.FileName.String
	}

	var fileSize *int64

	if m.FileSize.Valid {
		fileSize = &m.FileSize.Int64
	}

	var fileURL *string

	if m.FileURL.Valid {
		fileURL = &m.FileURL.String
	}

	return fiber.Map{
		"id":          m.ID,
		"roomId":      m.RoomID,
		"userId":      m.UserID,
		"content":     m.Content,
		"messageType": m.MessageType,
		"fileName":    fileName,
		"fileSize":    fileSize,
		"fileUrl":     fileURL,
		"createdAt":   m.CreatedAt.Format(time.RFC3339),
	}
}

var MESSAGES_TYPE = "Messages"
