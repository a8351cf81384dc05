package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sadopc/writingflow/internal/textstats"
)

// SourceOllama tags results produced by Ollama.
const SourceOllama = "ollama"

// maxResponseBody bounds how much of a model response is read.
const maxResponseBody = 1 << 20

const systemPrompt = `You analyze short pieces of free writing.
Reply with a single JSON object and nothing else, using exactly these keys:
"mood": one of enthusiastic, focused, reflective, creative, analytical, neutral, tired, stressed
"themes": up to five lowercase single-word themes
"style": up to three short style descriptors
"suggestions": up to three short suggestions for the writer
"insights": up to three objects with "kind" (one of productivity, consistency, creativity, structure, vocabulary, flow, mood), "title", "description", "confidence" (0 to 1), "actionable" (bool), "suggestions" (list of strings)`

// OllamaConfig configures the Ollama analyzer.
type OllamaConfig struct {
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// Ollama asks a local Ollama server to analyze text. Counts and
// readability are still computed locally so they agree with the session.
type Ollama struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllama returns an Ollama analyzer. Empty fields take defaults.
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://127.0.0.1:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Ollama{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

type modelInsight struct {
	Kind        string   `json:"kind"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
	Actionable  bool     `json:"actionable"`
	Suggestions []string `json:"suggestions"`
}

type modelAnalysis struct {
	Mood        string         `json:"mood"`
	Themes      []string       `json:"themes"`
	Style       []string       `json:"style"`
	Suggestions []string       `json:"suggestions"`
	Insights    []modelInsight `json:"insights"`
}

func (o *Ollama) Analyze(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrTextTooShort
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Format: "json",
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: build request: %v", ErrAnalysisUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response: %v", ErrAnalysisUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrAnalysisUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var chat ollamaChatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrAnalysisUnavailable, err)
	}
	if chat.Error != "" {
		return Result{}, fmt.Errorf("%w: %s", ErrAnalysisUnavailable, chat.Error)
	}

	var m modelAnalysis
	if err := json.Unmarshal([]byte(chat.Message.Content), &m); err != nil {
		return Result{}, fmt.Errorf("%w: decode analysis: %v", ErrAnalysisUnavailable, err)
	}
	return o.toResult(text, m)
}

func (o *Ollama) toResult(text string, m modelAnalysis) (Result, error) {
	mood, err := ParseMood(strings.ToLower(strings.TrimSpace(m.Mood)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	var insights []Insight
	for _, mi := range m.Insights {
		kind, err := ParseInsightKind(strings.ToLower(strings.TrimSpace(mi.Kind)))
		if err != nil {
			continue
		}
		insights = append(insights, Insight{
			Kind:        kind,
			Title:       mi.Title,
			Description: mi.Description,
			Confidence:  clamp01(mi.Confidence),
			Actionable:  mi.Actionable,
			Suggestions: mi.Suggestions,
		})
	}

	stats := textstats.Compute(text)
	themes := uniqueNonEmpty(m.Themes)
	if len(themes) == 0 {
		themes = append([]string(nil), placeholderThemes...)
	}
	style := uniqueNonEmpty(m.Style)
	if len(style) == 0 {
		style = []string{defaultStyle}
	}

	return Result{
		Mood:                  mood,
		Themes:                themes,
		Insights:              insights,
		Style:                 style,
		Suggestions:           uniqueNonEmpty(m.Suggestions),
		WordCount:             stats.Words,
		ReadabilityScore:      stats.Readability,
		AverageSentenceLength: stats.AverageSentenceLength,
		Source:                SourceOllama,
	}, nil
}

func uniqueNonEmpty(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
