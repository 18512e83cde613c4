// Package payapi provides the external-call client used by the
// side-effecting onboarding steps.
//
// The engine never talks to the payment API directly; steps receive a
// Client through their dependency bundle and invoke named operations
// with opaque JSON-shaped payloads. Responses come back as maps so the
// step layer decides how to interpret success, rejection, and absence.
package payapi

import "context"

// Operation names accepted by Call. The set is closed; each
// side-effecting step owns exactly one operation.
const (
	OpTokenizeCard       = "tokenize-card"
	OpAttestationOptions = "get-attestation-options"
	OpBindDevice         = "bind-device"
	OpCreateChallenge    = "create-challenge"
	OpValidateOTP        = "validate-otp"
	OpTokenStatus        = "check-token-status"
	OpDeleteCard         = "delete-card"
)

// Client performs one named operation against the payment onboarding
// backend.
//
// The result map is returned for both successful responses and
// well-formed rejections; the two are distinguished by the response's
// own status field. An error return means the call did not produce a
// usable response at all (transport failure, timeout, malformed body)
// and the caller should treat it as transient.
type Client interface {
	Call(ctx context.Context, op string, payload map[string]interface{}) (map[string]interface{}, error)
}
