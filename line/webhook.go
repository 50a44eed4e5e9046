/*
Package line holds the LINE Messaging API surface used by the bot.

CONTENTS:
  webhook.go: inbound webhook envelope, events, X-Line-Signature check
  message.go: outbound message documents (text, flex, quick reply)
  flex.go:    Flex component tree (bubble, carousel, box, text, button...)
  client.go:  reply/push HTTP client

Only the subset of the platform the bot exercises is modeled.
*/
package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Event types.
const (
	EventMessage  = "message"
	EventPostback = "postback"
	EventFollow   = "follow"
)

// WebhookRequest is the body LINE posts to the webhook.
type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

type Event struct {
	Type       string          `json:"type"`
	ReplyToken string          `json:"replyToken"`
	Timestamp  int64           `json:"timestamp"`
	Source     Source          `json:"source"`
	Message    *MessageContent `json:"message,omitempty"`
	Postback   *Postback       `json:"postback,omitempty"`
}

type Source struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// MessageContent is the message body of a message event.
type MessageContent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type Postback struct {
	Data   string         `json:"data"`
	Params PostbackParams `json:"params"`
}

// PostbackParams carries datetime picker results.
type PostbackParams struct {
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Datetime string `json:"datetime,omitempty"`
}

// Text returns the text of a text message event, or "".
func (e Event) Text() string {
	if e.Type != EventMessage || e.Message == nil || e.Message.Type != "text" {
		return ""
	}
	return e.Message.Text
}

// VerifySignature checks the base64 HMAC-SHA256 of body under the channel secret.
func VerifySignature(secret string, body []byte, signature string) bool {
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign computes the signature LINE would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
