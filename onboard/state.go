// Package onboard implements the payment-onboarding workflows: card
// enrollment, card deletion, and purchase-intent clarification, all
// multiplexed through one dispatch step and resumable per thread.
package onboard

import (
	"github.com/cardlink/flowkit/flow"
	"github.com/cardlink/flowkit/onboard/intent"
)

// Message is one entry in the append-only conversation log.
type Message struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// Result statuses. SUCCESS marks a completed call; CHALLENGE is the
// binding backend asking for a step-up validation; anything else is a
// rejection.
const (
	StatusSuccess   = "SUCCESS"
	StatusChallenge = "CHALLENGE"
	StatusRejected  = "REJECTED"
)

// Result is the outcome of one guarded external call, stored in the
// field the calling step is responsible for. Both successes and
// well-formed rejections land here; a transient failure writes nothing
// so the step's idempotency guard permits a retry.
type Result struct {
	Status  string                 `json:"status"`
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// OK reports whether the result is a success.
func (r *Result) OK() bool {
	return r != nil && r.Status == StatusSuccess
}

// Rejected reports whether the result is present but not a success.
func (r *Result) Rejected() bool {
	return r != nil && r.Status != StatusSuccess
}

// resultFrom shapes a raw response map into a Result. A response
// without a status field counts as a rejection; the full map is kept
// in Data for the steps that need response details.
func resultFrom(m map[string]interface{}) *Result {
	r := &Result{Status: StatusRejected, Data: m}
	if s, ok := m["status"].(string); ok && s != "" {
		r.Status = s
	}
	if c, ok := m["code"].(string); ok {
		r.Code = c
	}
	if msg, ok := m["message"].(string); ok {
		r.Message = msg
	}
	return r
}

// CardData is the raw card input supplied by the user.
type CardData struct {
	PAN    string `json:"pan"`
	Expiry string `json:"expiry"`
	Holder string `json:"holder"`
}

// SecureToken is the user-approved token from the issuer popup.
type SecureToken struct {
	Value string `json:"value"`
}

// Card is the linked payment method produced by a completed
// enrollment.
type Card struct {
	Token   string `json:"token"`
	Last4   string `json:"last4"`
	Network string `json:"network"`
}

// State is the shared workflow state for one onboarding thread.
//
// Merge rules, realized by Reduce:
//   - Messages: append
//   - SecureTokenRetries, DeleteSignal: max
//   - Clear* flags: applied to the merged state, never persisted
//   - everything else: replace-if-set
type State struct {
	// Messages is the append-only conversation log.
	Messages []Message `json:"messages,omitempty"`

	// Action is a one-shot request that preempts the active mode. The
	// dispatch step consumes it into ActiveAction.
	Action string `json:"action,omitempty"`

	// ActiveAction is the action currently being executed.
	ActiveAction string `json:"active_action,omitempty"`

	// Mode marks which sub-workflow is in flight.
	Mode string `json:"mode,omitempty"`

	// Intent is the extracted purchase intent.
	Intent *intent.Intent `json:"intent,omitempty"`

	// Enrollment fields, one per guarded step.
	CardData           *CardData    `json:"card_data,omitempty"`
	CardToken          *Result      `json:"card_token,omitempty"`
	SecureToken        *SecureToken `json:"secure_token,omitempty"`
	SecureTokenRetries int          `json:"secure_token_retries,omitempty"`
	Attestation        *Result      `json:"attestation,omitempty"`
	DeviceBinding      *Result      `json:"device_binding,omitempty"`
	ValidationMethod   string       `json:"validation_method,omitempty"`
	Challenge          *Result      `json:"challenge,omitempty"`
	OTP                string       `json:"otp,omitempty"`
	OTPValidated       *bool        `json:"otp_validated,omitempty"`
	TokenStatus        *Result      `json:"token_status,omitempty"`
	LinkedCard         *Card        `json:"linked_card,omitempty"`

	// Deletion fields. DeleteSignal is a monotonically increasing
	// UI-refresh signal bumped on every successful deletion.
	DeleteConfirmed *bool   `json:"delete_confirmed,omitempty"`
	DeleteResult    *Result `json:"delete_result,omitempty"`
	DeleteSignal    int     `json:"delete_signal,omitempty"`

	// Clear flags. Replace-if-set cannot erase a field, so deltas
	// request clearing explicitly; Reduce applies the flag to the
	// merged state and resets it, so flags never persist.
	ClearAction           bool `json:"-"`
	ClearWorkflow         bool `json:"-"` // ActiveAction + Mode
	ClearInFlight         bool `json:"-"` // all enrollment/deletion in-flight fields
	ClearCardData         bool `json:"-"`
	ClearValidationMethod bool `json:"-"`
	ClearOTP              bool `json:"-"`
	ClearLinkedCard       bool `json:"-"`
}

// UserSays builds a delta appending one user message.
func UserSays(text string) State {
	return State{Messages: []Message{{Role: "user", Text: text}}}
}

// say builds a delta message from the workflow to the user.
func say(text string) []Message {
	return []Message{{Role: "assistant", Text: text}}
}

// Reduce merges a partial state update into the previous state. It is
// the flow.Reducer for onboarding threads.
func Reduce(prev, delta State) State {
	next := prev

	next.Messages = flow.Append(prev.Messages, delta.Messages)

	next.Action = flow.ReplaceIfSet(prev.Action, delta.Action)
	next.ActiveAction = flow.ReplaceIfSet(prev.ActiveAction, delta.ActiveAction)
	next.Mode = flow.ReplaceIfSet(prev.Mode, delta.Mode)

	next.Intent = flow.KeepExisting(prev.Intent, delta.Intent)

	next.CardData = flow.KeepExisting(prev.CardData, delta.CardData)
	next.CardToken = flow.KeepExisting(prev.CardToken, delta.CardToken)
	next.SecureToken = flow.KeepExisting(prev.SecureToken, delta.SecureToken)
	next.SecureTokenRetries = flow.Max(prev.SecureTokenRetries, delta.SecureTokenRetries)
	next.Attestation = flow.KeepExisting(prev.Attestation, delta.Attestation)
	next.DeviceBinding = flow.KeepExisting(prev.DeviceBinding, delta.DeviceBinding)
	next.ValidationMethod = flow.ReplaceIfSet(prev.ValidationMethod, delta.ValidationMethod)
	next.Challenge = flow.KeepExisting(prev.Challenge, delta.Challenge)
	next.OTP = flow.ReplaceIfSet(prev.OTP, delta.OTP)
	next.OTPValidated = flow.KeepExisting(prev.OTPValidated, delta.OTPValidated)
	next.TokenStatus = flow.KeepExisting(prev.TokenStatus, delta.TokenStatus)
	next.LinkedCard = flow.KeepExisting(prev.LinkedCard, delta.LinkedCard)

	next.DeleteConfirmed = flow.KeepExisting(prev.DeleteConfirmed, delta.DeleteConfirmed)
	next.DeleteResult = flow.KeepExisting(prev.DeleteResult, delta.DeleteResult)
	next.DeleteSignal = flow.Max(prev.DeleteSignal, delta.DeleteSignal)

	// Clear flags apply after the merges so a delta can set one field
	// and clear others in the same step.
	if delta.ClearAction {
		next.Action = ""
	}
	if delta.ClearWorkflow {
		next.ActiveAction = ""
		next.Mode = ""
	}
	if delta.ClearCardData {
		next.CardData = nil
	}
	if delta.ClearValidationMethod {
		next.ValidationMethod = ""
	}
	if delta.ClearOTP {
		next.OTP = ""
	}
	if delta.ClearLinkedCard {
		next.LinkedCard = nil
	}
	if delta.ClearInFlight {
		next.CardData = nil
		next.CardToken = nil
		next.SecureToken = nil
		next.SecureTokenRetries = 0
		next.Attestation = nil
		next.DeviceBinding = nil
		next.ValidationMethod = ""
		next.Challenge = nil
		next.OTP = ""
		next.OTPValidated = nil
		next.TokenStatus = nil
		next.DeleteConfirmed = nil
		next.DeleteResult = nil
	}

	// Flags never persist.
	next.ClearAction = false
	next.ClearWorkflow = false
	next.ClearInFlight = false
	next.ClearCardData = false
	next.ClearValidationMethod = false
	next.ClearOTP = false
	next.ClearLinkedCard = false

	return next
}

// userMessages returns the texts of all user messages, oldest first.
func userMessages(s State) []string {
	var out []string
	for _, m := range s.Messages {
		if m.Role == "user" {
			out = append(out, m.Text)
		}
	}
	return out
}

// stringField reads a string out of a response data map.
func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}
