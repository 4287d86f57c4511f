package llm

import (
	"fmt"
	"strings"

	"repo-pulse/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderYandex = "yandex"
)

// Factory builds the completion client selected by LLM_PROVIDER.
type Factory struct {
	cfg *config.Config
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg}
}

func (f *Factory) CreateClient(provider, model string) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI:
		return NewOpenAI(f.cfg.OpenAIAPIKey, f.cfg.OpenAIBaseURL, model, f.cfg.OpenRouterReferrer, f.cfg.OpenRouterTitle), nil
	case ProviderYandex:
		return NewYandex(f.cfg.YandexOAuthToken, f.cfg.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
