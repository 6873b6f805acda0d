package chatclient

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
)

const defaultRetryAfter = 60

type errorBody struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// Client talks to the chat REST api. It is safe for concurrent use.
type Client struct {
	http *req.Client
}

func New(baseURL string, token string) *Client {
	http := req.C().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetCommonContentType("application/json")

	if token != "" {
		http.SetCommonBearerAuthToken(token)
	}

	return &Client{http: http}
}

// MessagesAfter fetches messages with id strictly greater than
// lastMessageID, oldest first.
func (c *Client) MessagesAfter(ctx context.Context, roomID uint64, lastMessageID int64) (*MessagesResponse, error) {
	var out MessagesResponse
	var errBody errorBody

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("lastMessageId", fmt.Sprintf("%d", lastMessageID)).
		SetSuccessResult(&out).
		SetErrorResult(&errBody).
		Get(fmt.Sprintf("/api/messages/%d", roomID))

	if err != nil {
		return nil, err
	}

	if err := checkStatus(resp, &errBody); err != nil {
		return nil, err
	}

	return &out, nil
}

// LatestMessages fetches up to limit most recent messages, oldest
// first. The server caps limit at 100.
func (c *Client) LatestMessages(ctx context.Context, roomID uint64, limit int) (*MessagesResponse, error) {
	var out MessagesResponse
	var errBody errorBody

	r := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&out).
		SetErrorResult(&errBody)

	if limit > 0 {
		r.SetQueryParam("limit", fmt.Sprintf("%d", limit))
	}

	resp, err := r.Get(fmt.Sprintf("/api/messages/%d/latest", roomID))

	if err != nil {
		return nil, err
	}

	if err := checkStatus(resp, &errBody); err != nil {
		return nil, err
	}

	return &out, nil
}

type sendMessageBody struct {
	RoomID      uint64  `json:"roomId"`
	Content     string  `json:"content"`
	MessageType string  `json:"messageType,omitempty"`
	FileName    *string `json:"fileName,omitempty"`
	FileSize    *int64  `json:"fileSize,omitempty"`
	FileURL     *string `json:"fileUrl,omitempty"`
}

// SendMessage posts a text message to a room.
func (c *Client) SendMessage(ctx context.Context, roomID uint64, content string) (*SendResponse, error) {
	return c.send(ctx, sendMessageBody{
		RoomID:  roomID,
		Content: content,
	})
}

// SendFileMessage posts an image or file message with its metadata.
func (c *Client) SendFileMessage(ctx context.Context, roomID uint64, content string, messageType string, fileName string, fileSize int64, fileURL string) (*SendResponse, error) {
	return c.send(ctx, sendMessageBody{
		RoomID:      roomID,
		Content:     content,
		MessageType: messageType,
		FileName:    &fileName,
		FileSize:    &fileSize,
		FileURL:     &fileURL,
	})
}

func (c *Client) send(ctx context.Context, body sendMessageBody) (*SendResponse, error) {
	var out SendResponse
	var errBody errorBody

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&body).
		SetSuccessResult(&out).
		SetErrorResult(&errBody).
		Post("/api/messages/send")

	if err != nil {
		return nil, err
	}

	if err := checkStatus(resp, &errBody); err != nil {
		return nil, err
	}

	return &out, nil
}

// PublicRoom fetches the shared lobby room, creating it server-side
// if it doesn't exist yet.
func (c *Client) PublicRoom(ctx context.Context) (*RoomResponse, error) {
	var out RoomResponse
	var errBody errorBody

	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&out).
		SetErrorResult(&errBody).
		Get("/api/rooms/public")

	if err != nil {
		return nil, err
	}

	if err := checkStatus(resp, &errBody); err != nil {
		return nil, err
	}

	return &out, nil
}

// JoinRoom resolves a 6 character invite code to a room.
func (c *Client) JoinRoom(ctx context.Context, code string) (*RoomResponse, error) {
	var out RoomResponse
	var errBody errorBody

	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&out).
		SetErrorResult(&errBody).
		Get("/api/rooms/join/" + code)

	if err != nil {
		return nil, err
	}

	if err := checkStatus(resp, &errBody); err != nil {
		return nil, err
	}

	return &out, nil
}

func checkStatus(resp *req.Response, errBody *errorBody) error {
	if resp.StatusCode == 429 {
		retryAfter := errBody.RetryAfter

		if retryAfter <= 0 {
			retryAfter = defaultRetryAfter
		}

		message := errBody.Message

		if message == "" {
			message = "Too many requests, please try again later."
		}

		return &RateLimitError{
			Message:    message,
			RetryAfter: retryAfter,
		}
	}

	if resp.IsErrorState() {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errBody.Message,
		}
	}

	return nil
}
