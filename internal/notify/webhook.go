package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookSender posts messages to an incoming chat webhook.
// Text messages use {"msg_type":"text"}; cards use {"msg_type":"interactive"}
// with a header and a single markdown element.
type WebhookSender struct {
	url    string
	format Format
	client *http.Client
}

func NewWebhookSender(url string, format Format) *WebhookSender {
	if format == "" {
		format = FormatText
	}
	return &WebhookSender{
		url:    url,
		format: format,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type textPayload struct {
	MsgType string `json:"msg_type"`
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
}

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type cardElement struct {
	Tag  string   `json:"tag"`
	Text cardText `json:"text"`
}

type cardPayload struct {
	MsgType string `json:"msg_type"`
	Card    struct {
		Header struct {
			Title    cardText `json:"title"`
			Template string   `json:"template"`
		} `json:"header"`
		Elements []cardElement `json:"elements"`
	} `json:"card"`
}

func (s *WebhookSender) payload(msg Message) any {
	if s.format == FormatCard {
		var p cardPayload
		p.MsgType = "interactive"
		title := msg.Title
		if title == "" {
			title = "Repository report"
		}
		p.Card.Header.Title = cardText{Tag: "plain_text", Content: title}
		p.Card.Header.Template = "blue"
		p.Card.Elements = []cardElement{{Tag: "div", Text: cardText{Tag: "lark_md", Content: msg.Text}}}
		return p
	}
	var p textPayload
	p.MsgType = "text"
	p.Content.Text = plain(msg)
	return p
}

func (s *WebhookSender) Send(ctx context.Context, msg Message) error {
	if s.url == "" {
		return fmt.Errorf("webhook url is not configured")
	}
	body, err := json.Marshal(s.payload(msg))
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
