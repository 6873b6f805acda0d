package chatclient

// Message is the wire shape of a single chat message. Optimistic
// messages carry a TempID and no server id until the send confirms.
type Message struct {
	ID          int64   `json:"id"`
	TempID      string  `json:"-"`
	RoomID      uint64  `json:"roomId"`
	UserID      string  `json:"userId"`
	Content     string  `json:"content"`
	MessageType string  `json:"messageType"`
	FileName    *string `json:"fileName"`
	FileSize    *int64  `json:"fileSize"`
	FileURL     *string `json:"fileUrl"`
	CreatedAt   string  `json:"createdAt"`
}

func (m Message) Optimistic() bool {
	return m.TempID != ""
}

type MessagesResponse struct {
	Success  bool      `json:"success"`
	HasNew   bool      `json:"hasNew"`
	Messages []Message `json:"messages"`
	Message  string    `json:"message"`
}

type SendResponse struct {
	Success   bool   `json:"success"`
	MessageID int64  `json:"messageId"`
	Message   string `json:"message"`
}

type RoomResponse struct {
	Success bool   `json:"success"`
	Room    Room   `json:"room"`
	Message string `json:"message"`
}

type Room struct {
	ID       uint64 `json:"id"`
	RoomCode string `json:"roomCode"`
	RoomName string `json:"roomName"`
	IsPublic bool   `json:"isPublic"`
}

// UserStatus is broadcast over the stream when a member joins or
// leaves a room.
type UserStatus struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}
