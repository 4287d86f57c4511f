package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramLimit is the maximum message length accepted by the Bot API.
const telegramLimit = 4096

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender posts messages to one chat through the Bot API.
type TelegramSender struct {
	s      botSender
	chatID int64
}

func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramSender{s: api, chatID: chatID}, nil
}

func (t *TelegramSender) Send(_ context.Context, msg Message) error {
	for _, chunk := range splitRunes(plain(msg), telegramLimit) {
		if _, err := t.s.Send(tgbotapi.NewMessage(t.chatID, chunk)); err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
	}
	return nil
}

func splitRunes(s string, limit int) []string {
	r := []rune(s)
	if len(r) <= limit {
		return []string{s}
	}
	var out []string
	for len(r) > 0 {
		n := limit
		if len(r) < n {
			n = len(r)
		}
		out = append(out, string(r[:n]))
		r = r[n:]
	}
	return out
}
