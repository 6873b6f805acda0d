// Package chatdb is the persistence collaborator for the fan-out core: an
// append-and-query contract over rooms and messages, with a sqlx/MySQL
// implementation.
package chatdb

import (
	"context"
	"time"

	"github.com/huddlechat/huddle/db/chat_db/model"
)

// FileMeta is the optional attachment metadata carried by image and file
// messages. Upload itself happens elsewhere; only the reference travels here.
type FileMeta struct {
	Name string
	Size int64
	URL  string
}

// Store is what the handlers consume from persistence. Message ids are
// numeric, assigned at append time and strictly increasing within a room.
type Store interface {
	// AppendMessage persists a message and returns the stored row with its
	// generated id.
	AppendMessage(ctx context.Context, roomID uint64, userID string, content string, messageType string, file *FileMeta) (model.Messages, error)

	// MessagesAfter returns up to limit messages with id > afterID for the
	// room, ascending by id.
	MessagesAfter(ctx context.Context, roomID uint64, afterID uint64, limit int) ([]model.Messages, error)

	// LatestMessages returns up to limit newest messages for the room,
	// descending by id.
	LatestMessages(ctx context.Context, roomID uint64, limit int) ([]model.Messages, error)

	RoomByID(ctx context.Context, roomID uint64) (model.Rooms, error)
	RoomByCode(ctx context.Context, code string) (model.Rooms, error)
	PublicRoom(ctx context.Context) (model.Rooms, error)
	CreateRoom(ctx context.Context, code string, name string, createdBy string, isPublic bool) (model.Rooms, error)

	// DeleteMessagesBefore purges messages created before the cutoff and
	// returns how many rows went away.
	DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
