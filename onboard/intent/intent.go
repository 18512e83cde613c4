// Package intent extracts a structured purchase intent from the free
// text a user has typed during onboarding.
//
// The workflow layer depends only on the Extractor interface; concrete
// extractors backed by OpenAI, Anthropic, and Google Gemini live in the
// subpackages, sharing the prompt and response parsing defined here.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Intent is the structured result of extraction.
//
// MessageCount records how many user messages the extraction consumed,
// so the workflow re-extracts only after new messages arrive instead of
// re-calling the model on unchanged input.
type Intent struct {
	Category     string `json:"category"`
	Item         string `json:"item"`
	Quantity     int    `json:"quantity"`
	Budget       string `json:"budget"`
	MessageCount int    `json:"message_count"`
}

// Complete reports whether the intent carries enough detail to act on.
// Category and Item are required; Quantity and Budget are optional
// refinements.
func (i *Intent) Complete() bool {
	return i != nil && i.Category != "" && i.Item != ""
}

// Extractor extracts a purchase intent from the user's messages,
// oldest first. A nil error with an incomplete Intent means the model
// answered but the messages do not yet contain enough detail.
type Extractor interface {
	Extract(ctx context.Context, messages []string) (*Intent, error)
}

// Prompt builds the extraction prompt shared by all model backends.
// The model is instructed to answer with a single JSON object and to
// leave fields it cannot determine empty rather than guessing.
func Prompt(messages []string) string {
	var sb strings.Builder
	sb.WriteString("Extract the user's purchase intent from the conversation below.\n\n")
	sb.WriteString("Conversation (oldest first):\n")
	for _, msg := range messages {
		sb.WriteString("- ")
		sb.WriteString(msg)
		sb.WriteString("\n")
	}
	sb.WriteString("\nRespond with a single JSON object with these fields:\n")
	sb.WriteString("- category: product category (e.g. \"electronics\"), empty string if unknown\n")
	sb.WriteString("- item: the specific item the user wants, empty string if unknown\n")
	sb.WriteString("- quantity: integer quantity, 0 if unknown\n")
	sb.WriteString("- budget: budget as stated by the user, empty string if unknown\n\n")
	sb.WriteString("Never guess: leave a field empty when the conversation does not state it. ")
	sb.WriteString("Return only the JSON object, no prose.")
	return sb.String()
}

// Parse decodes a model response into an Intent. It tolerates markdown
// code fences around the JSON object, which some models emit despite
// instructions.
func Parse(raw string, messageCount int) (*Intent, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var out Intent
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("failed to parse intent response: %w", err)
	}
	out.MessageCount = messageCount
	return &out, nil
}
