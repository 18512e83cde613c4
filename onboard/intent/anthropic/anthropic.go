// Package anthropic provides an intent.Extractor backed by Anthropic's
// Claude models.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cardlink/flowkit/onboard/intent"
)

// DefaultModel is used when no model is specified.
const DefaultModel = "claude-3-5-haiku-20241022"

// Extractor implements intent.Extractor using the official
// anthropic-sdk-go client. Safe for concurrent use after creation.
type Extractor struct {
	client *anthropic.Client
	model  string
}

// New creates an Anthropic-backed extractor. An empty model uses
// DefaultModel.
func New(apiKey, model string) (*Extractor, error) {
	if apiKey == "" {
		return nil, errors.New("API key cannot be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Extractor{
		client: &client,
		model:  model,
	}, nil
}

// Extract implements intent.Extractor.
func (e *Extractor) Extract(ctx context.Context, messages []string) (*intent.Intent, error) {
	prompt := intent.Prompt(messages)

	message, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic extraction failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, errors.New("anthropic returned no text content")
	}

	return intent.Parse(sb.String(), len(messages))
}
