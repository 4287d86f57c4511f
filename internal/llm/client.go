package llm

import "context"

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TokenFunc receives each streamed token. A non-nil error stops the stream.
type TokenFunc func(token string) error

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
	// Stream forwards tokens to onToken as they arrive and returns the full text.
	Stream(ctx context.Context, messages []Message, onToken TokenFunc) (Response, error)
}
