package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"repo-pulse/internal/history"
	"repo-pulse/internal/llm"
	"repo-pulse/internal/notify"
)

// Title is the heading of delivered narratives.
const Title = "Repository analysis"

// Narrator turns recorded metrics into a written analysis.
type Narrator struct {
	client llm.Client
	prompt *Prompt
	sender notify.Sender
	logger *zap.Logger
}

func NewNarrator(client llm.Client, prompt *Prompt, sender notify.Sender, logger *zap.Logger) *Narrator {
	if sender == nil {
		sender = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Narrator{client: client, prompt: prompt, sender: sender, logger: logger}
}

func (n *Narrator) messages(data history.History, question string) ([]llm.Message, error) {
	user, err := n.prompt.Render(data, question)
	if err != nil {
		return nil, err
	}
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}, nil
}

// Generate returns the complete narrative. Delivery is left to the caller.
func (n *Narrator) Generate(ctx context.Context, data history.History, question string) (string, error) {
	msgs, err := n.messages(data, question)
	if err != nil {
		return "", err
	}
	resp, err := n.client.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("analysis failed: %w", err)
	}
	n.logger.Debug("analysis generated", zap.Int("tokens", resp.TotalTokens))
	return resp.Content, nil
}

// Stream forwards each token to onToken and returns the full text once the stream ends.
// Like Generate it leaves delivery to the caller, which reports completion to its
// client before calling Deliver.
func (n *Narrator) Stream(ctx context.Context, data history.History, question string, onToken llm.TokenFunc) (string, error) {
	msgs, err := n.messages(data, question)
	if err != nil {
		return "", err
	}
	resp, err := n.client.Stream(ctx, msgs, onToken)
	if err != nil {
		return resp.Content, fmt.Errorf("analysis stream failed: %w", err)
	}
	return resp.Content, nil
}

// Deliver pushes text to the chat channel under the analysis title.
func (n *Narrator) Deliver(ctx context.Context, text string) error {
	if err := n.sender.Send(ctx, notify.Message{Title: Title, Text: text}); err != nil {
		return fmt.Errorf("failed to deliver analysis: %w", err)
	}
	return nil
}
