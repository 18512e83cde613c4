package intent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestIntent_Complete(t *testing.T) {
	tests := []struct {
		name   string
		intent *Intent
		want   bool
	}{
		{"nil intent", nil, false},
		{"empty intent", &Intent{}, false},
		{"category only", &Intent{Category: "electronics"}, false},
		{"item only", &Intent{Item: "laptop"}, false},
		{"category and item", &Intent{Category: "electronics", Item: "laptop"}, true},
		{"optional fields not required", &Intent{Category: "electronics", Item: "laptop", Quantity: 0, Budget: ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.intent.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	prompt := Prompt([]string{"I want a laptop", "budget is 1500 euro"})

	for _, want := range []string{
		"I want a laptop",
		"budget is 1500 euro",
		"category",
		"item",
		"quantity",
		"budget",
		"JSON",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if !strings.Contains(prompt, "Never guess") {
		t.Error("prompt must forbid guessing")
	}
}

func TestParse(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		got, err := Parse(`{"category":"electronics","item":"laptop","quantity":1,"budget":"1500"}`, 2)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if got.Category != "electronics" || got.Item != "laptop" || got.Quantity != 1 || got.Budget != "1500" {
			t.Errorf("unexpected intent %+v", got)
		}
		if got.MessageCount != 2 {
			t.Errorf("expected message count 2, got %d", got.MessageCount)
		}
	})

	t.Run("fenced JSON", func(t *testing.T) {
		raw := "```json\n{\"category\":\"electronics\",\"item\":\"laptop\"}\n```"
		got, err := Parse(raw, 1)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if !got.Complete() {
			t.Errorf("expected a complete intent, got %+v", got)
		}
	})

	t.Run("bare fences", func(t *testing.T) {
		raw := "```\n{\"category\":\"books\",\"item\":\"atlas\"}\n```"
		got, err := Parse(raw, 1)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if got.Category != "books" {
			t.Errorf("unexpected intent %+v", got)
		}
	})

	t.Run("model message count is overridden", func(t *testing.T) {
		got, err := Parse(`{"category":"a","item":"b","message_count":99}`, 3)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if got.MessageCount != 3 {
			t.Errorf("expected message count 3, got %d", got.MessageCount)
		}
	})

	t.Run("invalid JSON errors", func(t *testing.T) {
		if _, err := Parse("the user wants a laptop", 1); err == nil {
			t.Error("expected an error for prose output")
		}
	})
}

func TestMockExtractor(t *testing.T) {
	ctx := context.Background()

	t.Run("empty queue returns an incomplete intent", func(t *testing.T) {
		m := &MockExtractor{}
		got, err := m.Extract(ctx, []string{"a", "b"})
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if got.Complete() {
			t.Errorf("expected an incomplete intent, got %+v", got)
		}
		if got.MessageCount != 2 {
			t.Errorf("expected message count 2, got %d", got.MessageCount)
		}
	})

	t.Run("scripted intents replay and the last sticks", func(t *testing.T) {
		m := &MockExtractor{Intents: []*Intent{
			{Category: "electronics"},
			{Category: "electronics", Item: "laptop"},
		}}

		first, _ := m.Extract(ctx, []string{"a"})
		if first.Complete() {
			t.Errorf("expected the partial intent first, got %+v", first)
		}
		for i := 0; i < 2; i++ {
			got, _ := m.Extract(ctx, []string{"a", "b"})
			if !got.Complete() {
				t.Errorf("expected the complete intent, got %+v", got)
			}
		}
		if m.CallCount() != 3 {
			t.Errorf("expected 3 calls, got %d", m.CallCount())
		}
	})

	t.Run("zero message count is filled from input", func(t *testing.T) {
		m := &MockExtractor{Intents: []*Intent{{Category: "c", Item: "i"}}}
		got, _ := m.Extract(ctx, []string{"a", "b", "c"})
		if got.MessageCount != 3 {
			t.Errorf("expected message count 3, got %d", got.MessageCount)
		}
	})

	t.Run("errors take precedence", func(t *testing.T) {
		scripted := errors.New("model unavailable")
		m := &MockExtractor{Intents: []*Intent{{Category: "c", Item: "i"}}, Err: scripted}
		if _, err := m.Extract(ctx, nil); !errors.Is(err, scripted) {
			t.Errorf("expected the scripted error, got %v", err)
		}
	})
}
