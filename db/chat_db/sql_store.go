package chatdb

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/huddlechat/huddle/db/chat_db/model"
)

// SQLStore implements Store over sqlx/MySQL.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) AppendMessage(ctx context.Context, roomID uint64, userID string, content string, messageType string, file *FileMeta) (model.Messages, error) {
	var (
		fileName *string
		fileSize *int64
		fileURL  *string
	)

	if file != nil {
		fileName = &file.Name
		fileSize = &file.Size
		fileURL = &file.URL
	}

	insert := `
	INSERT INTO messages (created_at, room_id, user_id, content, message_type, file_name, file_size, file_url)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, insert, time.Now(), roomID, userID, content, messageType, fileName, fileSize, fileURL)

	if err != nil {
		return model.Messages{}, err
	}

	// LAST_INSERT_ID() is per-connection; querying it through the pool can
	// land on another connection and return a foreign id. The exec result
	// carries the id from the connection that ran the insert.
	messageID, err := result.LastInsertId()

	if err != nil {
		return model.Messages{}, err
	}

	message := model.Messages{}

	err = s.db.GetContext(ctx, &message, "SELECT * FROM messages WHERE id = ? LIMIT 1", messageID)

	return message, err
}

func (s *SQLStore) MessagesAfter(ctx context.Context, roomID uint64, afterID uint64, limit int) ([]model.Messages, error) {
	messages := []model.Messages{}

	err := s.db.SelectContext(ctx, &messages,
		"SELECT * FROM messages WHERE room_id = ? AND id > ? ORDER BY id ASC LIMIT ?",
		roomID, afterID, limit)

	return messages, err
}

func (s *SQLStore) LatestMessages(ctx context.Context, roomID uint64, limit int) ([]model.Messages, error) {
	messages := []model.Messages{}

	err := s.db.SelectContext(ctx, &messages,
		"SELECT * FROM messages WHERE room_id = ? ORDER BY id DESC LIMIT ?",
		roomID, limit)

	return messages, err
}

func (s *SQLStore) RoomByID(ctx context.Context, roomID uint64) (model.Rooms, error) {
	room := model.Rooms{}

	err := s.db.GetContext(ctx, &room, "SELECT * FROM rooms WHERE id = ? LIMIT 1", roomID)

	return room, err
}

func (s *SQLStore) RoomByCode(ctx context.Context, code string) (model.Rooms, error) {
	room := model.Rooms{}

	err := s.db.GetContext(ctx, &room, "SELECT * FROM rooms WHERE room_code = ? LIMIT 1", code)

	return room, err
}

func (s *SQLStore) PublicRoom(ctx context.Context) (model.Rooms, error) {
	room := model.Rooms{}

	err := s.db.GetContext(ctx, &room, "SELECT * FROM rooms WHERE is_public = true ORDER BY id ASC LIMIT 1")

	return room, err
}

func (s *SQLStore) CreateRoom(ctx context.Context, code string, name string, createdBy string, isPublic bool) (model.Rooms, error) {
	insert := `
	INSERT INTO rooms (created_at, room_code, room_name, created_by, is_public)
	VALUES (?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, insert, time.Now(), code, name, createdBy, isPublic)

	if err != nil {
		return model.Rooms{}, err
	}

	roomID, err := result.LastInsertId()

	if err != nil {
		return model.Rooms{}, err
	}

	return s.RoomByID(ctx, uint64(roomID))
}

func (s *SQLStore) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE created_at < ?", cutoff)

	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
