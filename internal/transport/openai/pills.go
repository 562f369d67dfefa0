package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/krippilippa/matchagig-fast/internal/domain"
)

const pillSystemPrompt = `You extract searchable requirement phrases ("pills") from a job description.
Return strict JSON: {"pills":[{"pill":"...","weight":1.0}]}.
Rules:
- Each pill is a short, self-contained phrase a recruiter would search resumes for (a skill, tool, certification, or responsibility).
- Weight reflects importance in the job description, between 0.1 and 2.0; 1.0 is neutral.
- At most 20 pills. No duplicates. No commentary outside the JSON.`

// PillExtractor compiles a job description into weighted pills using a chat model.
type PillExtractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewPillExtractor creates a chat-based pill extractor sharing the embedder's
// API credentials.
func NewPillExtractor(cfg *Config, chatModel string) *PillExtractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &PillExtractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  chatModel,
		logger: cfg.Logger,
	}
}

type pillResponse struct {
	Pills []struct {
		Pill   string   `json:"pill"`
		Weight *float64 `json:"weight"`
	} `json:"pills"`
}

// Extract compiles the job description into at most domain.MaxPills pills.
// Weights outside the allowed range are clamped rather than rejected, since
// the model occasionally drifts outside the instructed bounds.
func (p *PillExtractor) Extract(ctx context.Context, jobDescription string) ([]domain.Pill, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: pillSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: jobDescription},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pill extraction request failed: %w", domain.ErrExtractionProviderError)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("pill extraction returned no choices: %w", domain.ErrExtractionProviderError)
	}

	content := resp.Choices[0].Message.Content
	pills := parsePills(content)
	if len(pills) == 0 {
		pills = scrapePills(content)
	}
	if len(pills) == 0 {
		p.logger.Warn("pill extraction produced no parseable pills",
			zap.Int("content_len", len(content)))
		return nil, fmt.Errorf("pill extraction produced no pills: %w", domain.ErrExtractionProviderError)
	}

	if len(pills) > domain.MaxPills {
		pills = pills[:domain.MaxPills]
	}
	return pills, nil
}

func parsePills(content string) []domain.Pill {
	var parsed pillResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil
	}

	out := make([]domain.Pill, 0, len(parsed.Pills))
	seen := make(map[string]bool)
	for _, raw := range parsed.Pills {
		text := strings.TrimSpace(raw.Pill)
		if text == "" || seen[strings.ToLower(text)] {
			continue
		}
		seen[strings.ToLower(text)] = true

		weight := domain.DefaultWeight
		if raw.Weight != nil {
			weight = clampWeight(*raw.Weight)
		}
		out = append(out, domain.Pill{Text: text, Weight: weight})
	}
	return out
}

var pillScrapeRe = regexp.MustCompile(`"pill"\s*:\s*"([^"]+)"`)

// scrapePills recovers pill texts from malformed JSON. Weights are lost and
// default to neutral.
func scrapePills(content string) []domain.Pill {
	matches := pillScrapeRe.FindAllStringSubmatch(content, -1)
	out := make([]domain.Pill, 0, len(matches))
	seen := make(map[string]bool)
	for _, m := range matches {
		text := strings.TrimSpace(m[1])
		if text == "" || seen[strings.ToLower(text)] {
			continue
		}
		seen[strings.ToLower(text)] = true
		out = append(out, domain.Pill{Text: text, Weight: domain.DefaultWeight})
	}
	return out
}

func clampWeight(w float64) float64 {
	if w < domain.MinWeight {
		return domain.MinWeight
	}
	if w > domain.MaxWeight {
		return domain.MaxWeight
	}
	return w
}
