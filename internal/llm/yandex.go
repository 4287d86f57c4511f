package llm

import (
	"context"
	"fmt"

	"github.com/Morwran/yagpt"
)

type YandexClient struct {
	ya       yagpt.YaGPTFace
	iamToken string
}

// NewYandex exchanges the OAuth token for an IAM token once at startup.
func NewYandex(oauthToken, folderID string) (*YandexClient, error) {
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init yandex iam: %w", err)
	}
	resp, err := iam.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create iam token: %w", err)
	}

	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to init yagpt: %w", err)
	}

	return &YandexClient{
		ya:       ya,
		iamToken: resp.IamToken,
	}, nil
}

func (c *YandexClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	ms := make([]yagpt.Message, 0, len(messages))
	for _, m := range messages {
		ms = append(ms, yagpt.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := c.ya.CompletionWithCtx(ctx, c.iamToken, ms)
	if err != nil {
		return Response{}, fmt.Errorf("yagpt completion failed: %w", err)
	}
	if resp == nil || len(resp.Alternatives) == 0 {
		return Response{}, fmt.Errorf("yagpt returned empty response")
	}
	out := Response{Content: resp.Alternatives[0].Message.Content, Model: yagpt.YaModelLite}
	out.PromptTokens = int(resp.Usage.InputTextTokens)
	out.CompletionTokens = int(resp.Usage.CompletionTokens)
	out.TotalTokens = int(resp.Usage.TotalTokens)
	return out, nil
}

// Stream has no incremental mode for YandexGPT: the whole completion is emitted as one token.
func (c *YandexClient) Stream(ctx context.Context, messages []Message, onToken TokenFunc) (Response, error) {
	resp, err := c.Generate(ctx, messages)
	if err != nil {
		return Response{}, err
	}
	if onToken != nil && resp.Content != "" {
		if err := onToken(resp.Content); err != nil {
			return resp, err
		}
	}
	return resp, nil
}
