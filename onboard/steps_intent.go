package onboard

import (
	"context"

	"github.com/cardlink/flowkit/flow"
	"github.com/cardlink/flowkit/onboard/intent"
)

// Intent clarification steps.

// hasNewUserInput reports whether user messages arrived since the last
// extraction, which is the guard condition for re-calling the model.
func hasNewUserInput(s State) bool {
	n := len(userMessages(s))
	if n == 0 {
		return false
	}
	if s.Intent == nil {
		return true
	}
	return n > s.Intent.MessageCount
}

func extractIntentStep(deps Deps) flow.StepFunc[State] {
	return func(ctx context.Context, s State) flow.StepResult[State] {
		if s.Intent.Complete() {
			return flow.StepResult[State]{}
		}
		if deps.Extractor == nil {
			return flow.StepResult[State]{Err: &flow.StepError{
				Message: "intent extractor is not configured",
				Code:    "UNAVAILABLE",
				StepID:  StepExtractIntent,
			}}
		}
		if !hasNewUserInput(s) {
			// Nothing new to extract from; the router sends this thread
			// to await more details.
			return flow.StepResult[State]{}
		}

		msgs := userMessages(s)
		extracted, err := deps.Extractor.Extract(ctx, msgs)
		if err != nil {
			// Mark the messages consumed so the thread suspends for
			// fresh input instead of re-calling the model on the same
			// conversation.
			consumed := intent.Intent{MessageCount: len(msgs)}
			if s.Intent != nil {
				consumed = *s.Intent
				consumed.MessageCount = len(msgs)
			}
			return flow.StepResult[State]{Delta: State{
				Intent:   &consumed,
				Messages: say("I could not read that just now, please try again."),
			}}
		}

		delta := State{Intent: extracted}
		if extracted.Complete() {
			delta.Messages = say("Got it, I know what you are looking for.")
		}
		return flow.StepResult[State]{Delta: delta}
	}
}

func awaitIntentDetailsStep() flow.StepFunc[State] {
	return func(_ context.Context, s State) flow.StepResult[State] {
		if s.Intent.Complete() {
			return flow.StepResult[State]{}
		}
		if hasNewUserInput(s) {
			return flow.StepResult[State]{}
		}
		return flow.StepResult[State]{Interrupt: flow.Suspend(ReasonAwaitingIntentDetails)}
	}
}

func finishIntentStep() flow.StepFunc[State] {
	return func(_ context.Context, s State) flow.StepResult[State] {
		return flow.StepResult[State]{Delta: State{
			ClearWorkflow: true,
			Messages:      say("Thanks, your request is clear."),
		}}
	}
}
