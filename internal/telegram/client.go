// Package telegram is a minimal Bot API client: long-poll getUpdates and
// plain-text sendMessage.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ahsanfayaz52/notebot/internal/models"
)

const maxResponseBytes = 4 << 20

type Config struct {
	Token string
	// BaseURL defaults to https://api.telegram.org.
	BaseURL string
	// PollTimeout is the long-poll timeout passed to getUpdates. Zero polls
	// without waiting.
	PollTimeout time.Duration
	// HTTPClient is used for all requests. If nil, one with a timeout
	// covering PollTimeout is created.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type Client struct {
	baseURL     string
	pollTimeout time.Duration
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram: token is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.telegram.org"
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("telegram: invalid base URL %q: %w", base, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.PollTimeout + 30*time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:     strings.TrimRight(base, "/") + "/bot" + cfg.Token,
		pollTimeout: cfg.PollTimeout,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// FetchUpdates returns the text messages received since offset and the
// offset to request next. Updates without a text message are dropped but
// still move the next offset forward.
func (c *Client) FetchUpdates(ctx context.Context, offset int64) ([]models.InboundMessage, int64, error) {
	q := url.Values{}
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	}
	q.Set("timeout", strconv.Itoa(int(c.pollTimeout/time.Second)))
	q.Set("allowed_updates", `["message"]`)

	var updates []update
	if err := c.call(ctx, "getUpdates", q.Encode(), &updates); err != nil {
		return nil, offset, err
	}

	next := offset
	msgs := make([]models.InboundMessage, 0, len(updates))
	for _, u := range updates {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
		if u.Message == nil || u.Message.From == nil || u.Message.Text == "" {
			c.logger.Debug("dropping update without text", zap.Int64("update_id", u.UpdateID))
			continue
		}
		msgs = append(msgs, models.InboundMessage{
			UpdateID:  u.UpdateID,
			UserID:    u.Message.From.ID,
			Timestamp: time.Unix(u.Message.Date, 0),
			Text:      u.Message.Text,
		})
	}
	return msgs, next, nil
}

// SendReply delivers one line to the user's private chat. The line must
// already carry the reply-channel escapes (%23, %25); everything between
// them is query-escaped here.
func (c *Client) SendReply(ctx context.Context, userID int64, line string) error {
	query := "chat_id=" + strconv.FormatInt(userID, 10) + "&text=" + escapeEncoded(line)
	var sent json.RawMessage
	return c.call(ctx, "sendMessage", query, &sent)
}

func escapeEncoded(line string) string {
	parts := strings.Split(line, "%")
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	return strings.Join(parts, "%")
}

func (c *Client) call(ctx context.Context, method, rawQuery string, result any) error {
	requestURL := c.baseURL + "/" + method + "?" + rawQuery

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("telegram: failed to create %s request: %w", method, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error repeats the URL, which carries the bot token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("telegram: failed to read %s response: %w", method, err)
	}

	var envelope response
	jsonErr := json.Unmarshal(body, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || jsonErr != nil || !envelope.OK {
		apiErr := &APIError{Method: method, StatusCode: resp.StatusCode, Description: envelope.Description}
		if apiErr.Description == "" {
			apiErr.Description = http.StatusText(resp.StatusCode)
		}
		c.logger.Error("telegram request failed",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.String("description", apiErr.Description),
		)
		return apiErr
	}

	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("telegram: failed to decode %s result: %w", method, err)
	}
	return nil
}
