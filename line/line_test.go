package line_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leavebot/line"
)

func TestFlex_MarshalsTypeTags(t *testing.T) {
	bubble := line.Bubble{
		Body: &line.Box{
			Layout: "vertical",
			Contents: []line.Component{
				line.Text{Text: "hi", Weight: "bold"},
				line.Separator{Margin: "md"},
				line.Filler{},
				line.Button{Action: line.PostbackAction("Go", "action=cancel_leave", "取消")},
			},
		},
		Footer: &line.Box{Layout: "horizontal"},
	}
	msg := line.FlexMessage{AltText: "alt", Contents: line.Carousel{Contents: []line.Bubble{bubble}}}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "flex", doc["type"])
	contents := doc["contents"].(map[string]any)
	assert.Equal(t, "carousel", contents["type"])
	b := contents["contents"].([]any)[0].(map[string]any)
	assert.Equal(t, "bubble", b["type"])
	body := b["body"].(map[string]any)
	assert.Equal(t, "box", body["type"])
	kinds := []string{}
	for _, c := range body["contents"].([]any) {
		kinds = append(kinds, c.(map[string]any)["type"].(string))
	}
	assert.Equal(t, []string{"text", "separator", "filler", "button"}, kinds)

	footer := b["footer"].(map[string]any)
	assert.Equal(t, []any{}, footer["contents"])
}

func TestNewQuickReply_Truncates(t *testing.T) {
	actions := make([]line.Action, 20)
	for i := range actions {
		actions[i] = line.MessageAction("x", "x")
	}
	qr := line.NewQuickReply(actions...)
	assert.Len(t, qr.Items, line.MaxQuickReplyItems)
	assert.Equal(t, "action", qr.Items[0].Type)
}

func TestSignature(t *testing.T) {
	body := []byte(`{"events":[]}`)
	sig := line.Sign("secret", body)
	assert.True(t, line.VerifySignature("secret", body, sig))
	assert.False(t, line.VerifySignature("other", body, sig))
	assert.False(t, line.VerifySignature("secret", body, "not base64!"))
}

func TestEvent_Text(t *testing.T) {
	e := line.Event{Type: line.EventMessage, Message: &line.MessageContent{Type: "text", Text: "申請休假"}}
	assert.Equal(t, "申請休假", e.Text())

	e.Message.Type = "sticker"
	assert.Equal(t, "", e.Text())
	assert.Equal(t, "", line.Event{Type: line.EventPostback}.Text())
}

func TestWebhookRequest_DecodesMessageAndPostback(t *testing.T) {
	// GIVEN: A delivery with a text message and a picker postback
	body := `{"destination":"Ubot","events":[
		{"type":"message","replyToken":"r1","source":{"type":"user","userId":"U1"},
		 "message":{"id":"m1","type":"text","text":"查詢休假"}},
		{"type":"postback","replyToken":"r2","source":{"type":"user","userId":"U1"},
		 "postback":{"data":"action=pick_start_date","params":{"date":"2026-03-02"}}}]}`

	// WHEN: Decoding it
	var req line.WebhookRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	// THEN: Both events carry their payloads
	require.Len(t, req.Events, 2)
	require.NotNil(t, req.Events[0].Message)
	assert.Equal(t, "m1", req.Events[0].Message.ID)
	assert.Equal(t, "查詢休假", req.Events[0].Text())
	require.NotNil(t, req.Events[1].Postback)
	assert.Equal(t, "2026-03-02", req.Events[1].Postback.Params.Date)
	assert.Nil(t, req.Events[1].Message)
}

// =============================================================================
// CLIENT
// =============================================================================

func TestClient_ReplyAndPush(t *testing.T) {
	type call struct {
		path, auth string
		body       map[string]any
	}
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		calls = append(calls, call{r.URL.Path, r.Header.Get("Authorization"), body})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := line.NewClient(srv.URL, "tok", 5*time.Second)
	ctx := context.Background()

	require.NoError(t, c.Reply(ctx, "rt-1", line.TextMessage{Text: "hello"}))
	require.NoError(t, c.Push(ctx, "Ureviewer", line.TextMessage{Text: "ping"}))

	require.Len(t, calls, 2)
	assert.Equal(t, "/v2/bot/message/reply", calls[0].path)
	assert.Equal(t, "Bearer tok", calls[0].auth)
	assert.Equal(t, "rt-1", calls[0].body["replyToken"])
	msg := calls[0].body["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "text", msg["type"])
	assert.Equal(t, "hello", msg["text"])

	assert.Equal(t, "/v2/bot/message/push", calls[1].path)
	assert.Equal(t, "Ureviewer", calls[1].body["to"])
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer srv.Close()

	c := line.NewClient(srv.URL, "tok", 5*time.Second)
	err := c.Reply(context.Background(), "bad", line.TextMessage{Text: "x"})

	var apiErr *line.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Body, "Invalid reply token")
}

func TestClient_RejectsOversizedBatch(t *testing.T) {
	c := line.NewClient("http://127.0.0.1:1", "tok", time.Second)
	msgs := make([]line.Message, 6)
	for i := range msgs {
		msgs[i] = line.TextMessage{Text: "x"}
	}
	assert.Error(t, c.Reply(context.Background(), "rt", msgs...))
	assert.Error(t, c.Push(context.Background(), "to"))
}
