package telegram

import (
	"encoding/json"
	"fmt"
)

// response is the envelope every Bot API method returns.
type response struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message,omitempty"`
}

type message struct {
	MessageID int64  `json:"message_id"`
	From      *user  `json:"from,omitempty"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

type user struct {
	ID    int64 `json:"id"`
	IsBot bool  `json:"is_bot"`
}

// APIError is returned for non-2xx responses and for envelopes with ok=false.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s (%d): %s", e.Method, e.StatusCode, e.Description)
}

// Temporary reports whether the request may succeed if repeated later:
// server errors and rate limiting. Other client errors, such as a chat that
// blocked the bot, will fail again.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
