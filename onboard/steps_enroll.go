package onboard

import (
	"context"

	"github.com/cardlink/flowkit/flow"
	"github.com/cardlink/flowkit/onboard/payapi"
)

// Card enrollment steps.
//
// Every side-effecting step follows the guard pattern: if the field it
// is responsible for already holds a success, return an empty delta so
// re-entry after a resume or a router self-loop never repeats the call.
// Transient failures leave the field unwritten; well-formed rejections
// write an error-shaped Result the router can distinguish from both
// success and absence.

func awaitCardDataStep() flow.StepFunc[State] {
	return func(_ context.Context, s State) flow.StepResult[State] {
		if s.CardData == nil {
			return flow.StepResult[State]{Interrupt: flow.Suspend(ReasonAwaitingCardData)}
		}
		return flow.StepResult[State]{}
	}
}

func tokenizeCardStep(deps Deps) flow.StepFunc[State] {
	return func(ctx context.Context, s State) flow.StepResult[State] {
		if s.CardToken.OK() {
			return flow.StepResult[State]{}
		}
		if s.CardData == nil {
			return flow.StepResult[State]{Delta: State{
				Messages: say("Card details are required before tokenization."),
			}}
		}

		result, err := deps.API.Call(ctx, payapi.OpTokenizeCard, map[string]interface{}{
			"pan":    s.CardData.PAN,
			"expiry": s.CardData.Expiry,
			"holder": s.CardData.Holder,
		})
		if err != nil {
			return flow.StepResult[State]{Delta: State{
				Messages: say("Card tokenization is temporarily unavailable, please try again."),
			}}
		}

		r := resultFrom(result)
		if !r.OK() {
			// Force re-entry of corrected card details upstream.
			return flow.StepResult[State]{Delta: State{
				CardToken:     r,
				ClearCardData: true,
				Messages:      say("Your card was declined for tokenization, please check the details."),
			}}
		}
		return flow.StepResult[State]{Delta: State{
			CardToken: r,
			Messages:  say("Card tokenized."),
		}}
	}
}

func awaitSecureTokenStep(deps Deps) flow.StepFunc[State] {
	return func(_ context.Context, s State) flow.StepResult[State] {
		if s.SecureToken != nil {
			return flow.StepResult[State]{}
		}
		if s.SecureTokenRetries >= deps.MaxSecureTokenRetries {
			// Cap reached: complete without suspending so the router's
			// abort row sends this thread to cleanup.
			return flow.StepResult[State]{}
		}
		// Count the suspension before persisting it. The counter merges
		// with the max rule, so re-delivering this delta cannot
		// double-count.
		return flow.StepResult[State]{
			Delta:     State{SecureTokenRetries: s.SecureTokenRetries + 1},
			Interrupt: flow.Suspend(ReasonAwaitingSecureToken),
		}
	}
}

func attestationOptionsStep(deps Deps) flow.StepFunc[State] {
	return func(ctx context.Context, s State) flow.StepResult[State] {
		if s.Attestation.OK() {
			return flow.StepResult[State]{}
		}
		if !s.CardToken.OK() || s.SecureToken == nil {
			return flow.StepResult[State]{Delta: State{
				Messages: say("Enrollment is missing a card token or secure token."),
			}}
		}

		result, err := deps.API.Call(ctx, payapi.OpAttestationOptions, map[string]interface{}{
			"card_token":   stringField(s.CardToken.Data, "token"),
			"secure_token": s.SecureToken.Value,
		})
		if err != nil {
			return flow.StepResult[State]{Delta: State{
				Messages: say("Could not fetch attestation options, please try again."),
			}}
		}

		r := resultFrom(result)
		delta := State{Attestation: r}
		if r.OK() {
			delta.Messages = say("Attestation options received.")
		} else {
			delta.Messages = say("The issuer refused to provide attestation options.")
		}
		return flow.StepResult[State]{Delta: delta}
	}
}

func bindDeviceStep(deps Deps) flow.StepFunc[State] {
	return func(ctx context.Context, s State) flow.StepResult[State] {
		if s.DeviceBinding.OK() {
			return flow.StepResult[State]{}
		}
		if !s.Attestation.OK() {
			return flow.StepResult[State]{Delta: State{
				Messages: say("Attestation options are required before device binding."),
			}}
		}

		result, err := deps.API.Call(ctx, payapi.OpBindDevice, map[string]interface{}{
			"card_token":  stringField(s.CardToken.Data, "token"),
			"attestation": s.Attestation.Data,
		})
		if err != nil {
			return flow.StepResult[State]{Delta: State{
				Messages: say("Device binding is temporarily unavailable, please try again."),
			}}
		}

		r := resultFrom(result)
		delta := State{DeviceBinding: r}
		switch r.Status {
		case StatusSuccess:
			delta.Messages = say("Device bound to your card.")
		case StatusChallenge:
			delta.Messages = say("Your bank requires an extra validation step.")
		default:
			delta.Messages = say("The issuer rejected device binding.")
		}
		return flow.StepResult[State]{Delta: delta}
	}
}

func awaitValidationMethodStep() flow.StepFunc[State] {
	return func(_ context.Context, s State) flow.StepResult[State] {
		if s.ValidationMethod == "" {
			return flow.StepResult[State]{Interrupt: flow.Suspend(ReasonAwaitingValidationMethod)}
		}
		return flow.StepResult[State]{}
	}
}

func createChallengeStep(deps Deps) flow.StepFunc[State] {
	return func(ctx context.Context, s State) flow.StepResult[State] {
		if s.Challenge.OK() {
			return flow.StepResult[State]{}
		}
		if s.ValidationMethod == "" {
			return flow.StepResult[State]{Delta: State{
				Messages: say("A validation method must be selected first."),
			}}
		}

		result, err := deps.API.Call(ctx, payapi.OpCreateChallenge, map[string]interface{}{
			"card_token": stringField(s.CardToken.Data, "token"),
			"method":     s.ValidationMethod,
		})
		if err != nil {
			return flow.StepResult[State]{Delta: State{
				Messages: say("Could not start the validation challenge, please try again."),
			}}
		}

		r := resultFrom(result)
		if !r.OK() {
			// Clear the selection so the user picks a different method.
			return flow.StepResult[State]{Delta: State{
				Challenge:             r,
				ClearValidationMethod: true,
				Messages:              say("That validation method is not available, please pick another."),
			}}
		}
		return flow.StepResult[State]{Delta: State{
			Challenge: r,
			Messages:  say("Validation challenge sent."),
		}}
	}
}

func awaitOTPStep() flow.StepFunc[State] {
	return func(_ context.Context, s State) flow.StepResult[State] {
		if s.OTP == "" {
			return flow.StepResult[State]{Interrupt: flow.Suspend(ReasonAwaitingOTP)}
		}
		return flow.StepResult[State]{}
	}
}

func validateOTPStep(deps Deps) flow.StepFunc[State] {
	return func(ctx context.Context, s State) flow.StepResult[State] {
		if s.OTPValidated != nil && *s.OTPValidated {
			return flow.StepResult[State]{}
		}
		if s.OTP == "" {
			return flow.StepResult[State]{Delta: State{
				Messages: say("A one-time passcode is required."),
			}}
		}

		result, err := deps.API.Call(ctx, payapi.OpValidateOTP, map[string]interface{}{
			"challenge": s.Challenge.Data,
			"otp":       s.OTP,
		})
		if err != nil {
			// Codes are single use: discard it so the next resume
			// suspends for a fresh one instead of replaying this call.
			return flow.StepResult[State]{Delta: State{
				ClearOTP: true,
				Messages: say("Passcode validation is temporarily unavailable, please request a new code."),
			}}
		}

		valid := resultFrom(result).OK()
		delta := State{OTPValidated: &valid, ClearOTP: true}
		if !valid {
			delta.Messages = say("That passcode was not accepted, please try again.")
		}
		return flow.StepResult[State]{Delta: delta}
	}
}

func checkTokenStatusStep(deps Deps) flow.StepFunc[State] {
	return func(ctx context.Context, s State) flow.StepResult[State] {
		if s.TokenStatus.OK() {
			return flow.StepResult[State]{}
		}
		if !s.CardToken.OK() {
			return flow.StepResult[State]{Delta: State{
				Messages: say("No card token to check."),
			}}
		}

		result, err := deps.API.Call(ctx, payapi.OpTokenStatus, map[string]interface{}{
			"card_token": stringField(s.CardToken.Data, "token"),
		})
		if err != nil {
			return flow.StepResult[State]{Delta: State{
				Messages: say("Could not confirm the card token status, please try again."),
			}}
		}

		r := resultFrom(result)
		delta := State{TokenStatus: r}
		if !r.OK() {
			delta.Messages = say("The card token is not active.")
		}
		return flow.StepResult[State]{Delta: delta}
	}
}

func finishEnrollStep() flow.StepFunc[State] {
	return func(_ context.Context, s State) flow.StepResult[State] {
		card := Card{
			Token:   stringField(s.CardToken.Data, "token"),
			Last4:   stringField(s.CardToken.Data, "last4"),
			Network: stringField(s.CardToken.Data, "network"),
		}
		return flow.StepResult[State]{Delta: State{
			LinkedCard:    &card,
			ClearInFlight: true,
			ClearWorkflow: true,
			Messages:      say("Your card has been added."),
		}}
	}
}

func cleanupStep() flow.StepFunc[State] {
	return func(_ context.Context, s State) flow.StepResult[State] {
		return flow.StepResult[State]{Delta: State{
			ClearInFlight: true,
			ClearWorkflow: true,
			Messages:      say("We could not complete that, please start over."),
		}}
	}
}
