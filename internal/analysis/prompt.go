package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"repo-pulse/internal/history"
)

type Style string

const (
	StyleConcise  Style = "concise"
	StyleDetailed Style = "detailed"
)

const systemPrompt = "You analyse activity of open-source GitHub repositories from recorded daily metrics."

const conciseTemplate = `Here are daily GitHub metrics for the tracked repositories ({{.From}} to {{.To}}).
Each date maps repository to stars, commits and open issues.

{{.Data}}

Summarise the trend for each repository in two or three sentences. Mention notable changes in stars, commits and open issues.
{{- if .Question}}

Also answer this question: {{.Question}}
{{- end}}
`

const detailedTemplate = `You are given a time series of GitHub repository metrics recorded once per day.
Period: {{.From}} to {{.To}}. Repositories: {{join .Repos ", "}}.

Data (date -> repository -> {stars, commits, issues}):
{{.Data}}

Write a report with these sections:
1. Overview of the period.
2. Per repository: star growth, commit activity and the open issue trend, with concrete numbers.
3. Anomalies such as drops in stars or sudden issue spikes.
4. Short recommendations for the maintainers.
{{- if .Question}}

Finally answer the user's question in its own section: {{.Question}}
{{- end}}
`

// PromptData is what a prompt template is executed with.
type PromptData struct {
	Data     string
	Question string
	From     string
	To       string
	Repos    []string
}

// Prompt renders a history slice and an optional question into a completion prompt.
type Prompt struct {
	tmpl *template.Template
}

var funcs = template.FuncMap{"join": strings.Join}

// NewPrompt selects a built-in template by style, or loads one from path when it is set.
func NewPrompt(style Style, path string) (*Prompt, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt template: %w", err)
		}
		return parsePrompt("file", string(raw))
	}
	switch style {
	case "", StyleConcise:
		return parsePrompt(string(StyleConcise), conciseTemplate)
	case StyleDetailed:
		return parsePrompt(string(StyleDetailed), detailedTemplate)
	default:
		return nil, fmt.Errorf("unknown prompt style: %s", style)
	}
}

func parsePrompt(name, text string) (*Prompt, error) {
	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %s: %w", name, err)
	}
	return &Prompt{tmpl: t}, nil
}

func (p *Prompt) Render(data history.History, question string) (string, error) {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}
	pd := PromptData{
		Data:     string(raw),
		Question: strings.TrimSpace(question),
		Repos:    data.Repos(),
	}
	if dates := data.Dates(); len(dates) > 0 {
		pd.From, pd.To = dates[0], dates[len(dates)-1]
	}
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, pd); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
