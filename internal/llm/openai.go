package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client *openai.Client
	model  string
}

// attributionTransport adds OpenRouter attribution headers to every request.
type attributionTransport struct {
	next  http.RoundTripper
	extra http.Header
}

func (t attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	for name, values := range t.extra {
		for _, v := range values {
			out.Header.Add(name, v)
		}
	}
	return t.next.RoundTrip(out)
}

// NewOpenAI talks to any OpenAI-compatible endpoint; empty baseURL means api.openai.com.
func NewOpenAI(apiKey, baseURL, model, referrer, title string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	extra := http.Header{}
	if referrer != "" {
		extra.Set("HTTP-Referer", referrer)
	}
	if title != "" {
		extra.Set("X-Title", title)
	}
	if len(extra) > 0 {
		cfg.HTTPClient = &http.Client{Transport: attributionTransport{next: http.DefaultTransport, extra: extra}}
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *OpenAIClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAI(messages),
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("chat completion returned no choices")
	}
	return Response{
		Content:          resp.Choices[0].Message.Content,
		Model:            c.model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, messages []Message, onToken TokenFunc) (Response, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAI(messages),
		Stream:   true,
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to open completion stream: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Response{Content: sb.String(), Model: c.model}, fmt.Errorf("completion stream: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		sb.WriteString(token)
		if onToken != nil {
			if err := onToken(token); err != nil {
				return Response{Content: sb.String(), Model: c.model}, err
			}
		}
	}
	return Response{Content: sb.String(), Model: c.model}, nil
}
