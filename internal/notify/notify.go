package notify

import (
	"context"
	"fmt"
	"strings"
)

// Message is one report or narrative pushed to the chat channel.
type Message struct {
	Title string
	Text  string
}

// Sender delivers a message. There is no retry; the error carries the failure.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Format selects how a webhook message is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatCard Format = "card"
)

// ParseFormat accepts "text" or "card" (case-insensitive); empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatCard:
		return FormatCard, nil
	default:
		return "", fmt.Errorf("unknown message format: %s", s)
	}
}

// Nop drops every message. Used when delivery is disabled.
type Nop struct{}

func (Nop) Send(context.Context, Message) error { return nil }

func plain(msg Message) string {
	if msg.Title == "" {
		return msg.Text
	}
	if msg.Text == "" {
		return msg.Title
	}
	return msg.Title + "\n\n" + msg.Text
}
