package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	// Tracked repositories, owner/name
	Repos       []string `env:"GITHUB_REPOS" envSeparator:","`
	GitHubToken string   `env:"GITHUB_TOKEN"`
	GitHubAPI   string   `env:"GITHUB_API_URL"`

	// Delivery
	DeliveryChannel string `env:"DELIVERY_CHANNEL" envDefault:"webhook"`
	WebhookURL      string `env:"WEBHOOK_URL"`
	MessageFormat   string `env:"MESSAGE_FORMAT" envDefault:"text"`
	TelegramToken   string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID  int64  `env:"TELEGRAM_CHAT_ID"`
	// Daily pushes are off unless asked for explicitly.
	DeliverOnDaily bool `env:"DELIVER_ON_DAILY" envDefault:"false"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Prompts
	PromptStyle        string `env:"PROMPT_STYLE" envDefault:"concise"`
	PromptTemplatePath string `env:"PROMPT_TEMPLATE_PATH"`

	// Storage
	HistoryBackend string `env:"HISTORY_BACKEND" envDefault:"file"`
	DataFilePath   string `env:"DATA_FILE_PATH" envDefault:"data/stats.json"`
	RedisURL       string `env:"REDIS_URL"`
	RedisKey       string `env:"REDIS_KEY" envDefault:"repo-pulse:history"`
	FallbackDir    string `env:"FALLBACK_DIR"`

	WindowDays int `env:"WINDOW_DAYS" envDefault:"7"`

	// Serve mode
	HTTPAddr   string `env:"HTTP_ADDR" envDefault:":8080"`
	DailyCron  string `env:"DAILY_CRON"`
	WeeklyCron string `env:"WEEKLY_CRON"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Repos = cleanRepos(cfg.Repos)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DeliveryChannel {
	case "webhook", "telegram", "none":
	default:
		return fmt.Errorf("unknown DELIVERY_CHANNEL: %s", c.DeliveryChannel)
	}
	if c.DeliveryChannel == "telegram" && (c.TelegramToken == "" || c.TelegramChatID == 0) {
		return fmt.Errorf("telegram delivery needs TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}
	switch c.HistoryBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown HISTORY_BACKEND: %s", c.HistoryBackend)
	}
	if c.HistoryBackend == "redis" && c.RedisURL == "" {
		return fmt.Errorf("redis history backend needs REDIS_URL")
	}
	if c.WindowDays <= 0 {
		return fmt.Errorf("WINDOW_DAYS must be positive, got %d", c.WindowDays)
	}
	return nil
}

func cleanRepos(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
