package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repo-pulse/internal/history"
	"repo-pulse/internal/llm"
	"repo-pulse/internal/notify"
)

type fakeLLM struct {
	tokens []string
	err    error
	got    []llm.Message
}

func (f *fakeLLM) Generate(_ context.Context, msgs []llm.Message) (llm.Response, error) {
	f.got = msgs
	if f.err != nil {
		return llm.Response{}, f.err
	}
	text := ""
	for _, t := range f.tokens {
		text += t
	}
	return llm.Response{Content: text, TotalTokens: 7}, nil
}

func (f *fakeLLM) Stream(_ context.Context, msgs []llm.Message, onToken llm.TokenFunc) (llm.Response, error) {
	f.got = msgs
	if f.err != nil {
		return llm.Response{}, f.err
	}
	text := ""
	for _, t := range f.tokens {
		text += t
		if onToken != nil {
			if err := onToken(t); err != nil {
				return llm.Response{Content: text}, err
			}
		}
	}
	return llm.Response{Content: text}, nil
}

type recordingSender struct {
	sent []notify.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg notify.Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func sample() history.History {
	return history.History{
		"2024-01-01": {"a/b": {Stars: 10, Commits: 5, Issues: 2}},
		"2024-01-02": {"a/b": {Stars: 12, Commits: 6, Issues: 1}},
	}
}

func TestPrompt_BuiltinStyles(t *testing.T) {
	for _, style := range []Style{StyleConcise, StyleDetailed, ""} {
		p, err := NewPrompt(style, "")
		require.NoError(t, err)

		out, err := p.Render(sample(), "")
		require.NoError(t, err)
		assert.Contains(t, out, "2024-01-01 to 2024-01-02")
		assert.Contains(t, out, `"stars": 12`)
		assert.NotContains(t, out, "question")
	}
}

func TestPrompt_Question(t *testing.T) {
	p, err := NewPrompt(StyleDetailed, "")
	require.NoError(t, err)

	out, err := p.Render(sample(), "  why did issues drop?  ")
	require.NoError(t, err)
	assert.Contains(t, out, "question in its own section: why did issues drop?")
	assert.Contains(t, out, "Repositories: a/b.")
}

func TestPrompt_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{.From}}|{{.To}}|{{.Question}}"), 0o644))

	p, err := NewPrompt(StyleConcise, path)
	require.NoError(t, err)
	out, err := p.Render(sample(), "q")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01|2024-01-02|q", out)
}

func TestPrompt_Errors(t *testing.T) {
	_, err := NewPrompt("verbose", "")
	assert.Error(t, err)

	_, err = NewPrompt(StyleConcise, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{.From"), 0o644))
	_, err = NewPrompt(StyleConcise, path)
	assert.Error(t, err)
}

func TestPrompt_EmptyHistory(t *testing.T) {
	p, err := NewPrompt(StyleConcise, "")
	require.NoError(t, err)
	out, err := p.Render(history.New(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "{}")
}

func newNarrator(t *testing.T, client llm.Client, sender notify.Sender) *Narrator {
	t.Helper()
	p, err := NewPrompt(StyleConcise, "")
	require.NoError(t, err)
	return NewNarrator(client, p, sender, nil)
}

func TestNarrator_GenerateDoesNotDeliver(t *testing.T) {
	client := &fakeLLM{tokens: []string{"Stars ", "up."}}
	sender := &recordingSender{}
	n := newNarrator(t, client, sender)

	text, err := n.Generate(context.Background(), sample(), "")
	require.NoError(t, err)
	assert.Equal(t, "Stars up.", text)
	assert.Empty(t, sender.sent)
	require.Len(t, client.got, 2)
	assert.Equal(t, "system", client.got[0].Role)
	assert.Equal(t, "user", client.got[1].Role)
}

func TestNarrator_StreamForwardsTokens(t *testing.T) {
	client := &fakeLLM{tokens: []string{"a", "b", "c"}}
	sender := &recordingSender{}
	n := newNarrator(t, client, sender)

	var got []string
	text, err := n.Stream(context.Background(), sample(), "q", func(tok string) error {
		got = append(got, tok)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, "abc", text)
	assert.Empty(t, sender.sent)

	require.NoError(t, n.Deliver(context.Background(), text))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, notify.Message{Title: Title, Text: "abc"}, sender.sent[0])
}

func TestNarrator_StreamErrorSkipsDelivery(t *testing.T) {
	client := &fakeLLM{err: errors.New("upstream down")}
	sender := &recordingSender{}
	n := newNarrator(t, client, sender)

	_, err := n.Stream(context.Background(), sample(), "", nil)
	assert.ErrorContains(t, err, "upstream down")
	assert.Empty(t, sender.sent)

	_, err = n.Generate(context.Background(), sample(), "")
	assert.Error(t, err)
}

func TestNarrator_DeliveryFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("webhook 500")}
	n := newNarrator(t, &fakeLLM{tokens: []string{"x"}}, sender)

	text, err := n.Stream(context.Background(), sample(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "x", text)

	err = n.Deliver(context.Background(), text)
	assert.ErrorContains(t, err, "webhook 500")
	assert.Len(t, sender.sent, 1)
}
