package line

import "encoding/json"

// MaxQuickReplyItems is the platform limit on quick-reply buttons.
const MaxQuickReplyItems = 13

// MaxMessagesPerCall is the platform limit on messages per reply or push.
const MaxMessagesPerCall = 5

// Message is an outbound message document.
type Message interface {
	MessageType() string
}

type TextMessage struct {
	Text       string      `json:"text"`
	QuickReply *QuickReply `json:"quickReply,omitempty"`
}

type FlexMessage struct {
	AltText    string      `json:"altText"`
	Contents   Container   `json:"contents"`
	QuickReply *QuickReply `json:"quickReply,omitempty"`
}

func (TextMessage) MessageType() string { return "text" }
func (FlexMessage) MessageType() string { return "flex" }

func (m TextMessage) MarshalJSON() ([]byte, error) {
	type alias TextMessage
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{m.MessageType(), alias(m)})
}

func (m FlexMessage) MarshalJSON() ([]byte, error) {
	type alias FlexMessage
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{m.MessageType(), alias(m)})
}

// QuickReply is the row of shortcut buttons shown under a message.
type QuickReply struct {
	Items []QuickReplyItem `json:"items"`
}

type QuickReplyItem struct {
	Type   string `json:"type"`
	Action Action `json:"action"`
}

// NewQuickReply wraps actions as quick-reply items, truncated to the platform limit.
func NewQuickReply(actions ...Action) *QuickReply {
	if len(actions) > MaxQuickReplyItems {
		actions = actions[:MaxQuickReplyItems]
	}
	qr := &QuickReply{Items: make([]QuickReplyItem, 0, len(actions))}
	for _, a := range actions {
		qr.Items = append(qr.Items, QuickReplyItem{Type: "action", Action: a})
	}
	return qr
}
