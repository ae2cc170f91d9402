package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/teemow/mailchat/internal/domain"
)

// Model backend defaults.
const (
	DefaultModel   = "gpt-4o-mini"
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 8 * time.Second
)

const systemPrompt = "You transform emails into compact chat entries. Return compact JSON only with keys summary, actionItems, entities, category, confidence, priorityScore, reasoning."

// Output is a validated model result.
type Output struct {
	Summary        domain.Summary
	Classification domain.Classification
}

// Classifier is a model backend.
type Classifier interface {
	Classify(ctx context.Context, body string) (*Output, error)
}

// BackendError is any failure of the model tier. It never leaves Process.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("pipeline backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ErrMissingField marks model output that lacks a required key.
var ErrMissingField = errors.New("model output missing required field")

// OpenAIConfig configures OpenAIClassifier.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIClassifier calls an OpenAI-compatible chat completions endpoint with
// a strict JSON schema response format.
type OpenAIClassifier struct {
	client *resty.Client
	model  string
}

// NewOpenAIClassifier creates a classifier. It returns nil when no API key
// is configured, which disables the model tier.
func NewOpenAIClassifier(cfg OpenAIConfig) *OpenAIClassifier {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &OpenAIClassifier{client: client, model: cfg.Model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func processingSchema() map[string]any {
	stringArray := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary":       map[string]any{"type": "string"},
			"actionItems":   stringArray,
			"entities":      stringArray,
			"category":      map[string]any{"type": "string", "enum": domain.CategoryNames()},
			"confidence":    map[string]any{"type": "number"},
			"priorityScore": map[string]any{"type": "number"},
			"reasoning":     map[string]any{"type": "string"},
		},
		"required":             []string{"summary", "actionItems", "entities", "category", "confidence", "priorityScore", "reasoning"},
		"additionalProperties": false,
	}
}

// Classify sends body to the model and validates the answer.
func (c *OpenAIClassifier) Classify(ctx context.Context, body string) (*Output, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: body},
		},
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:   "mailchat_processing",
				Strict: true,
				Schema: processingSchema(),
			},
		},
	}

	var out chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/chat/completions")
	if err != nil {
		return nil, &BackendError{Op: "request", Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &BackendError{Op: "request", Err: fmt.Errorf("http status %d", resp.StatusCode())}
	}
	if len(out.Choices) == 0 {
		return nil, &BackendError{Op: "decode", Err: errors.New("no choices in response")}
	}

	parsed, err := ParseOutput(out.Choices[0].Message.Content)
	if err != nil {
		return nil, &BackendError{Op: "validate", Err: err}
	}
	return parsed, nil
}

// rawOutput uses pointers so absent keys can be told apart from zero values.
type rawOutput struct {
	Summary       *string   `json:"summary"`
	ActionItems   *[]string `json:"actionItems"`
	Entities      *[]string `json:"entities"`
	Category      *string   `json:"category"`
	Confidence    *float64  `json:"confidence"`
	PriorityScore *float64  `json:"priorityScore"`
	Reasoning     *string   `json:"reasoning"`
}

// ParseOutput decodes and validates the model's JSON text. All seven keys
// must be present and the category must be known. Scores are clamped to
// [0,1].
func ParseOutput(text string) (*Output, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty model output")
	}

	var raw rawOutput
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("malformed model output: %w", err)
	}

	switch {
	case raw.Summary == nil:
		return nil, fmt.Errorf("%w: summary", ErrMissingField)
	case raw.ActionItems == nil:
		return nil, fmt.Errorf("%w: actionItems", ErrMissingField)
	case raw.Entities == nil:
		return nil, fmt.Errorf("%w: entities", ErrMissingField)
	case raw.Category == nil:
		return nil, fmt.Errorf("%w: category", ErrMissingField)
	case raw.Confidence == nil:
		return nil, fmt.Errorf("%w: confidence", ErrMissingField)
	case raw.PriorityScore == nil:
		return nil, fmt.Errorf("%w: priorityScore", ErrMissingField)
	case raw.Reasoning == nil:
		return nil, fmt.Errorf("%w: reasoning", ErrMissingField)
	}

	category := domain.Category(*raw.Category)
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", *raw.Category)
	}

	return &Output{
		Summary: domain.Summary{
			Summary:     *raw.Summary,
			ActionItems: *raw.ActionItems,
			Entities:    *raw.Entities,
		},
		Classification: domain.Classification{
			Category:      category,
			Confidence:    domain.Clamp(*raw.Confidence),
			PriorityScore: domain.Clamp(*raw.PriorityScore),
			Reasoning:     *raw.Reasoning,
		},
	}, nil
}
