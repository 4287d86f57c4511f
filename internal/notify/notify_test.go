package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, status int) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		var m map[string]any
		assert.NoError(t, json.Unmarshal(body, &m))
		got = append(got, m)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestWebhookSender_Text(t *testing.T) {
	srv, got := capture(t, http.StatusOK)
	s := NewWebhookSender(srv.URL, FormatText)

	require.NoError(t, s.Send(context.Background(), Message{Title: "Daily", Text: "a/b +2"}))
	require.Len(t, *got, 1)
	m := (*got)[0]
	assert.Equal(t, "text", m["msg_type"])
	assert.Equal(t, "Daily\n\na/b +2", m["content"].(map[string]any)["text"])
}

func TestWebhookSender_Card(t *testing.T) {
	srv, got := capture(t, http.StatusOK)
	s := NewWebhookSender(srv.URL, FormatCard)

	require.NoError(t, s.Send(context.Background(), Message{Title: "Weekly", Text: "**a/b** +2"}))
	m := (*got)[0]
	assert.Equal(t, "interactive", m["msg_type"])
	card := m["card"].(map[string]any)
	title := card["header"].(map[string]any)["title"].(map[string]any)
	assert.Equal(t, "Weekly", title["content"])
	elements := card["elements"].([]any)
	require.Len(t, elements, 1)
	text := elements[0].(map[string]any)["text"].(map[string]any)
	assert.Equal(t, "lark_md", text["tag"])
	assert.Equal(t, "**a/b** +2", text["content"])
}

func TestWebhookSender_Non2xxIsError(t *testing.T) {
	srv, _ := capture(t, http.StatusBadRequest)
	err := NewWebhookSender(srv.URL, FormatText).Send(context.Background(), Message{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestWebhookSender_NoURL(t *testing.T) {
	assert.Error(t, NewWebhookSender("", "").Send(context.Background(), Message{Text: "x"}))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat(" CARD ")
	require.NoError(t, err)
	assert.Equal(t, FormatCard, f)

	_, err = ParseFormat("html")
	assert.Error(t, err)
}

type fakeBot struct {
	sent []string
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, m.Text)
	return tgbotapi.Message{}, f.err
}

func TestTelegramSender_SplitsLongMessages(t *testing.T) {
	fb := &fakeBot{}
	s := &TelegramSender{s: fb, chatID: 7}

	long := strings.Repeat("я", telegramLimit+10)
	require.NoError(t, s.Send(context.Background(), Message{Text: long}))
	require.Len(t, fb.sent, 2)
	assert.Len(t, []rune(fb.sent[0]), telegramLimit)
	assert.Len(t, []rune(fb.sent[1]), 10)
}

func TestTelegramSender_Error(t *testing.T) {
	s := &TelegramSender{s: &fakeBot{err: errors.New("blocked")}, chatID: 7}
	assert.Error(t, s.Send(context.Background(), Message{Title: "t", Text: "x"}))
}
