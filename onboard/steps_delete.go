package onboard

import (
	"context"

	"github.com/cardlink/flowkit/flow"
	"github.com/cardlink/flowkit/onboard/payapi"
)

// Card deletion steps.

func awaitDeleteConfirmationStep() flow.StepFunc[State] {
	return func(_ context.Context, s State) flow.StepResult[State] {
		if s.DeleteConfirmed == nil {
			return flow.StepResult[State]{Interrupt: flow.Suspend(ReasonAwaitingDeleteConfirmation)}
		}
		return flow.StepResult[State]{}
	}
}

func deleteCardStep(deps Deps) flow.StepFunc[State] {
	return func(ctx context.Context, s State) flow.StepResult[State] {
		if s.DeleteResult.OK() {
			return flow.StepResult[State]{}
		}
		if s.LinkedCard == nil {
			return flow.StepResult[State]{Delta: State{
				Messages: say("There is no linked card to delete."),
			}}
		}

		result, err := deps.API.Call(ctx, payapi.OpDeleteCard, map[string]interface{}{
			"card_token": s.LinkedCard.Token,
		})
		if err != nil {
			return flow.StepResult[State]{Delta: State{
				Messages: say("Card deletion is temporarily unavailable, please try again."),
			}}
		}

		r := resultFrom(result)
		if !r.OK() {
			return flow.StepResult[State]{Delta: State{
				DeleteResult: r,
				Messages:     say("The issuer refused to delete the card."),
			}}
		}
		// DeleteSignal is a max-merged counter the UI watches to
		// refresh its card list.
		return flow.StepResult[State]{Delta: State{
			DeleteResult: r,
			DeleteSignal: s.DeleteSignal + 1,
			Messages:     say("Card deleted."),
		}}
	}
}

func finishDeleteStep() flow.StepFunc[State] {
	return func(_ context.Context, s State) flow.StepResult[State] {
		delta := State{
			ClearInFlight: true,
			ClearWorkflow: true,
		}
		if s.DeleteResult.OK() {
			delta.ClearLinkedCard = true
			delta.Messages = say("Your card has been removed.")
		} else {
			delta.Messages = say("Deletion cancelled, your card is unchanged.")
		}
		return flow.StepResult[State]{Delta: delta}
	}
}
