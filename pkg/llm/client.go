// Package llm wraps the Gemini API for light analysis of spoken survey
// answers: extracting a numeric value, summarizing a key insight, and
// drafting follow-up question text.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/voicepoll/voice-survey-service/environments"
	"github.com/voicepoll/voice-survey-service/pkg/logger"
)

type Client struct {
	client *genai.Client
	model  string
}

// Analysis is the structured output derived from one answer. Both fields
// are optional; an open-ended answer may yield neither.
type Analysis struct {
	NumericValue *float64 `json:"numeric_value"`
	KeyInsight   *string  `json:"key_insight"`
}

func NewClient(ctx context.Context, cfg environments.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &Client{client: client, model: model}, nil
}

const analysisPrompt = `You are analyzing a spoken answer from a phone survey.
Question: %q
Answer transcript: %q

Respond with only a JSON object of this shape:
{"numeric_value": <number or null>, "key_insight": <short one-sentence summary string or null>}

Use null for numeric_value unless the answer clearly contains or implies a number.
Use null for key_insight when the answer carries no substance worth summarizing.`

// AnalyzeAnswer derives an optional numeric value and key insight from a
// transcript.
func (c *Client) AnalyzeAnswer(ctx context.Context, questionText, transcript string) (*Analysis, error) {
	prompt := fmt.Sprintf(analysisPrompt, questionText, transcript)

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("Gemini analysis failed: %w", err)
	}

	raw := stripCodeFence(result.Text())

	var analysis Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		// A malformed model reply is not fatal; treat it as "no analysis".
		logger.Warnf("Unparseable analysis output %q: %v", raw, err)
		return &Analysis{}, nil
	}

	return &analysis, nil
}

const followUpPrompt = `A phone survey asked: %q
The caller answered: %q

Write exactly one short follow-up question that digs deeper into this answer.
It must be easy to answer out loud over the phone. Reply with the question text only.`

// DraftFollowUp asks the model for one follow-up question text.
func (c *Client) DraftFollowUp(ctx context.Context, questionText, transcript string) (string, error) {
	prompt := fmt.Sprintf(followUpPrompt, questionText, transcript)

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini follow-up drafting failed: %w", err)
	}

	followUp := strings.TrimSpace(result.Text())
	if followUp == "" {
		return "", fmt.Errorf("Gemini returned an empty follow-up")
	}

	return followUp, nil
}

// stripCodeFence removes a markdown code fence the model sometimes wraps
// JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
