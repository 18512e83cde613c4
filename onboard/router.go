package onboard

import (
	"context"

	"github.com/cardlink/flowkit/flow"
)

// Sub-workflow multiplexer.
//
// The dispatch step consumes a one-shot Action into ActiveAction
// (actions preempt modes) or derives a default Mode from state
// completeness; its router then fans out into the sub-workflows.
// Routers are pure and consult only fields already present in state.

func dispatchStep() flow.StepFunc[State] {
	return func(_ context.Context, s State) flow.StepResult[State] {
		if s.Action != "" {
			if _, ok := entryFor(s.Action); !ok {
				return flow.StepResult[State]{Delta: State{
					ClearAction: true,
					Messages:    say("I do not recognize that request."),
				}}
			}
			return flow.StepResult[State]{Delta: State{
				ActiveAction: s.Action,
				ClearAction:  true,
			}}
		}
		if s.ActiveAction != "" || s.Mode != "" {
			if _, okA := entryFor(s.ActiveAction); !okA {
				if _, okM := entryFor(s.Mode); !okM {
					// Unroutable leftovers would wedge the thread.
					return flow.StepResult[State]{Delta: State{ClearWorkflow: true}}
				}
			}
			// A sub-workflow is mid-flight; route straight back in.
			return flow.StepResult[State]{}
		}

		// Default mode from state completeness: a linked payment method
		// comes before knowing what the user wants to buy.
		switch {
		case s.LinkedCard == nil:
			return flow.StepResult[State]{Delta: State{Mode: ModeAddCard}}
		case !s.Intent.Complete():
			return flow.StepResult[State]{Delta: State{Mode: ModeClarifyIntent}}
		default:
			// All required data present; the router stops.
			return flow.StepResult[State]{}
		}
	}
}

// preempting wraps an interrupt step so a one-shot action delivered
// while the thread is parked there passes through without suspending.
// Paired with preemptingRoute, which hands control back to dispatch,
// this keeps actions winning over an in-progress mode even when the
// checkpoint is parked deep inside a sub-workflow.
func preempting(step flow.StepFunc[State]) flow.StepFunc[State] {
	return func(ctx context.Context, s State) flow.StepResult[State] {
		if s.Action != "" {
			return flow.StepResult[State]{}
		}
		return step(ctx, s)
	}
}

func preemptingRoute(route flow.RouterFn[State]) flow.RouterFn[State] {
	return func(s State) flow.Next {
		if s.Action != "" {
			return flow.Goto(StepDispatch)
		}
		return route(s)
	}
}

// entryFor maps an action or mode to its sub-workflow entry step.
func entryFor(workflow string) (string, bool) {
	switch workflow {
	case ModeAddCard:
		return StepAwaitCardData, true
	case ModeDeleteCard:
		return StepAwaitDeleteConfirmation, true
	case ModeClarifyIntent:
		return StepExtractIntent, true
	default:
		return "", false
	}
}

func routeDispatch(s State) flow.Next {
	if step, ok := entryFor(s.ActiveAction); ok {
		return flow.Goto(step)
	}
	if step, ok := entryFor(s.Mode); ok {
		return flow.Goto(step)
	}
	return flow.Stop()
}

// Enrollment routes. Success advances; a well-formed rejection routes
// to the nearest upstream decision point that can produce a corrected
// input; an absent result with no recovery path routes to cleanup.

func routeTokenizeCard(s State) flow.Next {
	switch {
	case s.CardToken.OK():
		return flow.Goto(StepAwaitSecureToken)
	case s.CardToken.Rejected():
		return flow.Goto(StepAwaitCardData)
	default:
		return flow.Goto(StepCleanup)
	}
}

// routeAwaitSecureToken applies the bounded-retry policy: absent token
// below the cap re-suspends via the self-loop, at the cap aborts.
func routeAwaitSecureToken(maxRetries int) flow.RouterFn[State] {
	return func(s State) flow.Next {
		switch {
		case s.SecureToken != nil:
			return flow.Goto(StepAttestationOptions)
		case s.SecureTokenRetries >= maxRetries:
			return flow.Goto(StepCleanup)
		default:
			return flow.Goto(StepAwaitSecureToken)
		}
	}
}

func routeAttestationOptions(s State) flow.Next {
	if s.Attestation.OK() {
		return flow.Goto(StepBindDevice)
	}
	return flow.Goto(StepCleanup)
}

func routeBindDevice(s State) flow.Next {
	switch {
	case s.DeviceBinding.OK():
		return flow.Goto(StepCheckTokenStatus)
	case s.DeviceBinding != nil && s.DeviceBinding.Status == StatusChallenge:
		return flow.Goto(StepAwaitValidationMethod)
	default:
		return flow.Goto(StepCleanup)
	}
}

func routeCreateChallenge(s State) flow.Next {
	switch {
	case s.Challenge.Rejected():
		return flow.Goto(StepAwaitValidationMethod)
	case s.Challenge.OK():
		return flow.Goto(StepAwaitOTP)
	default:
		return flow.Goto(StepCleanup)
	}
}

func routeValidateOTP(s State) flow.Next {
	if s.OTPValidated != nil && *s.OTPValidated {
		return flow.Goto(StepCheckTokenStatus)
	}
	return flow.Goto(StepAwaitOTP)
}

func routeCheckTokenStatus(s State) flow.Next {
	if s.TokenStatus.OK() {
		return flow.Goto(StepFinishEnroll)
	}
	return flow.Goto(StepCleanup)
}

// Deletion routes.

func routeAwaitDeleteConfirmation(s State) flow.Next {
	if s.DeleteConfirmed != nil && *s.DeleteConfirmed {
		return flow.Goto(StepDeleteCard)
	}
	return flow.Goto(StepFinishDelete)
}

func routeDeleteCard(s State) flow.Next {
	if s.DeleteResult.OK() {
		return flow.Goto(StepFinishDelete)
	}
	return flow.Goto(StepCleanup)
}

// Intent clarification routes.

func routeExtractIntent(s State) flow.Next {
	if s.Intent.Complete() {
		return flow.Goto(StepFinishIntent)
	}
	return flow.Goto(StepAwaitIntentDetails)
}

func routeAwaitIntentDetails(s State) flow.Next {
	if s.Intent.Complete() {
		return flow.Goto(StepFinishIntent)
	}
	return flow.Goto(StepExtractIntent)
}
