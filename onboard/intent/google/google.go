// Package google provides an intent.Extractor backed by Google's
// Gemini models.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/cardlink/flowkit/onboard/intent"
)

// DefaultModel is used when no model is specified.
const DefaultModel = "gemini-1.5-flash"

// Extractor implements intent.Extractor using the official
// generative-ai-go client. Close releases the underlying connection
// when the extractor is no longer needed.
type Extractor struct {
	client *genai.Client
	model  string
}

// New creates a Gemini-backed extractor. An empty model uses
// DefaultModel.
func New(ctx context.Context, apiKey, model string) (*Extractor, error) {
	if apiKey == "" {
		return nil, errors.New("API key cannot be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Extractor{
		client: client,
		model:  model,
	}, nil
}

// Close closes the underlying Gemini client.
func (e *Extractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Extract implements intent.Extractor. The model is configured for
// JSON output so the response parses without prose stripping.
func (e *Extractor) Extract(ctx context.Context, messages []string) (*intent.Intent, error) {
	model := e.client.GenerativeModel(e.model)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(intent.Prompt(messages)))
	if err != nil {
		return nil, fmt.Errorf("gemini extraction failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, errors.New("gemini returned empty content")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return nil, errors.New("gemini returned no text parts")
	}

	return intent.Parse(sb.String(), len(messages))
}
