package ai

import (
	"bytes"
	"fmt"
	"text/template"

	"sovereign-sentinel/internal/osint"
)

const assessmentTemplate = `
You are a geopolitical risk analyst for a private credit fund. Assess how the news below affects credit risk across industries.

{{ range .Results }}
## Topic: {{ .Topic.Query }}{{ if .Topic.Sector }} (sector: {{ .Topic.Sector }}){{ end }}
{{- range .Signals }}
- {{ .Title }}: {{ .Snippet }}
{{- else }}
- (no results)
{{- end }}
{{ end }}

Rules:
1. global_risk_score is an integer from 0 (calm) to 100 (systemic crisis).
2. affected_sectors lists only industries with a direct, material exposure. Prefer these names: {{ .SectorNames }}.
3. sentiment is one of neutral, elevated, critical.
4. correlated_event is a short headline naming the single most important event.

Reply with exactly one JSON object:
{
  "global_risk_score": 0,
  "affected_sectors": ["..."],
  "sentiment": "neutral|elevated|critical",
  "correlated_event": "...",
  "reasoning": "..."
}
`

var tmpl = template.Must(template.New("assessment").Parse(assessmentTemplate))

// PromptContext 用于渲染提示词。
type PromptContext struct {
	Results     []osint.TopicSignals
	SectorNames string
}

// BuildPrompt 将主题信号渲染成提示词字符串。
func BuildPrompt(results []osint.TopicSignals) (string, error) {
	ctx := PromptContext{
		Results:     results,
		SectorNames: sectorNames(results),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("渲染提示词失败: %w", err)
	}
	return buf.String(), nil
}

func sectorNames(results []osint.TopicSignals) string {
	var buf bytes.Buffer
	seen := make(map[string]struct{})
	for _, r := range results {
		if r.Topic.Sector == "" {
			continue
		}
		if _, ok := seen[r.Topic.Sector]; ok {
			continue
		}
		seen[r.Topic.Sector] = struct{}{}
		if buf.Len() > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(r.Topic.Sector)
	}
	if buf.Len() == 0 {
		return "any"
	}
	return buf.String()
}
