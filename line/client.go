package line

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the production Messaging API host.
const DefaultBaseURL = "https://api.line.me"

const (
	replyPath = "/v2/bot/message/reply"
	pushPath  = "/v2/bot/message/push"
)

// APIError is a non-2xx response from the Messaging API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line api status %d: %s", e.Status, e.Body)
}

// Client sends reply and push messages.
type Client struct {
	http *resty.Client
}

// NewClient creates a client authenticated with a channel access token.
func NewClient(baseURL, accessToken string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Client{http: c}
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

// Reply answers an event through its single-use reply token.
func (c *Client) Reply(ctx context.Context, replyToken string, msgs ...Message) error {
	if err := checkBatch(msgs); err != nil {
		return err
	}
	return c.post(ctx, replyPath, replyRequest{ReplyToken: replyToken, Messages: msgs})
}

// Push sends messages to a user, group or room id.
func (c *Client) Push(ctx context.Context, to string, msgs ...Message) error {
	if err := checkBatch(msgs); err != nil {
		return err
	}
	return c.post(ctx, pushPath, pushRequest{To: to, Messages: msgs})
}

func checkBatch(msgs []Message) error {
	if len(msgs) == 0 || len(msgs) > MaxMessagesPerCall {
		return fmt.Errorf("line: %d messages, want 1..%d", len(msgs), MaxMessagesPerCall)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return fmt.Errorf("line %s: %w", path, err)
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
