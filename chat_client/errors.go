package chatclient

import "fmt"

// RateLimitError is returned when the server answers 429. RetryAfter
// is in seconds.
type RateLimitError struct {
	Message    string
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %s (retry after %ds)", e.Message, e.RetryAfter)
}

// APIError is a non-2xx response that isn't a rate limit.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}

	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}
