// Package openai provides an intent.Extractor backed by OpenAI chat
// models.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/cardlink/flowkit/onboard/intent"
)

// DefaultModel is used when no model is specified.
const DefaultModel = "gpt-4o-mini"

// Extractor implements intent.Extractor using the official OpenAI Go
// SDK. Safe for concurrent use; the underlying client handles
// thread-safety internally.
type Extractor struct {
	client *openai.Client
	model  string
}

// New creates an OpenAI-backed extractor.
//
// Parameters:
//   - apiKey: OpenAI API key
//   - model: model name (e.g. "gpt-4o-mini"); empty uses DefaultModel
func New(apiKey, model string) (*Extractor, error) {
	if apiKey == "" {
		return nil, errors.New("API key cannot be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Extractor{
		client: &client,
		model:  model,
	}, nil
}

// Extract implements intent.Extractor. JSON mode is requested so the
// model answers with a bare JSON object.
func (e *Extractor) Extract(ctx context.Context, messages []string) (*intent.Intent, error) {
	prompt := intent.Prompt(messages)

	completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: openai.Ptr(shared.NewResponseFormatJSONObjectParam()),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai extraction failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	return intent.Parse(completion.Choices[0].Message.Content, len(messages))
}
