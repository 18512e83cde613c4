package onboard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cardlink/flowkit/flow"
	"github.com/cardlink/flowkit/flow/emit"
	"github.com/cardlink/flowkit/flow/store"
	"github.com/cardlink/flowkit/onboard/intent"
	"github.com/cardlink/flowkit/onboard/payapi"
)

// Step IDs. These are the resume pointers persisted in checkpoints and
// must stay stable across releases.
const (
	StepDispatch = "dispatch"

	StepAwaitCardData         = "await-card-data"
	StepTokenizeCard          = "tokenize-card"
	StepAwaitSecureToken      = "await-secure-token"
	StepAttestationOptions    = "get-attestation-options"
	StepBindDevice            = "bind-device"
	StepAwaitValidationMethod = "await-validation-method"
	StepCreateChallenge       = "create-challenge"
	StepAwaitOTP              = "await-otp"
	StepValidateOTP           = "validate-otp"
	StepCheckTokenStatus      = "check-token-status"
	StepFinishEnroll          = "finish-enroll"

	StepAwaitDeleteConfirmation = "await-delete-confirmation"
	StepDeleteCard              = "delete-card"
	StepFinishDelete            = "finish-delete"

	StepExtractIntent      = "extract-intent"
	StepAwaitIntentDetails = "await-intent-details"
	StepFinishIntent       = "finish-intent"

	StepCleanup = "cleanup"
)

// Sub-workflow modes and one-shot actions share the same identifiers;
// an action is simply a mode request with preempting priority.
const (
	ModeAddCard       = "add-card"
	ModeDeleteCard    = "delete-card"
	ModeClarifyIntent = "clarify-intent"
)

// Suspend reasons. This is the closed enumeration callers map to UI
// prompts.
const (
	ReasonAwaitingCardData           flow.Reason = "awaiting_card_data"
	ReasonAwaitingSecureToken        flow.Reason = "awaiting_secure_token"
	ReasonAwaitingValidationMethod   flow.Reason = "awaiting_validation_method"
	ReasonAwaitingOTP                flow.Reason = "awaiting_otp"
	ReasonAwaitingDeleteConfirmation flow.Reason = "awaiting_delete_confirmation"
	ReasonAwaitingIntentDetails      flow.Reason = "awaiting_intent_details"
)

// DefaultMaxSecureTokenRetries bounds how often the secure-token wait
// re-suspends without a token before aborting to cleanup.
const DefaultMaxSecureTokenRetries = 1

// Deps is the dependency bundle the onboarding steps close over. All
// external collaborators are injected here; steps never reach for
// globals.
type Deps struct {
	// API performs the payment onboarding operations.
	API payapi.Client

	// Extractor turns conversation text into a structured intent.
	Extractor intent.Extractor

	// MaxSecureTokenRetries overrides DefaultMaxSecureTokenRetries
	// when positive.
	MaxSecureTokenRetries int
}

// NewEngine assembles the onboarding workflow on a flow.Engine: all
// steps, the route table, and the dispatch entry.
func NewEngine(deps Deps, st store.Store[State], emitter emit.Emitter, opts ...flow.Option) (*flow.Engine[State], error) {
	if deps.API == nil {
		return nil, errors.New("payment API client is required")
	}
	if deps.MaxSecureTokenRetries <= 0 {
		deps.MaxSecureTokenRetries = DefaultMaxSecureTokenRetries
	}

	engine, err := flow.New(Reduce, st, emitter, opts...)
	if err != nil {
		return nil, err
	}

	steps := map[string]flow.Step[State]{
		StepDispatch: dispatchStep(),

		StepAwaitCardData:         preempting(awaitCardDataStep()),
		StepTokenizeCard:          tokenizeCardStep(deps),
		StepAwaitSecureToken:      preempting(awaitSecureTokenStep(deps)),
		StepAttestationOptions:    attestationOptionsStep(deps),
		StepBindDevice:            bindDeviceStep(deps),
		StepAwaitValidationMethod: preempting(awaitValidationMethodStep()),
		StepCreateChallenge:       createChallengeStep(deps),
		StepAwaitOTP:              preempting(awaitOTPStep()),
		StepValidateOTP:           validateOTPStep(deps),
		StepCheckTokenStatus:      checkTokenStatusStep(deps),
		StepFinishEnroll:          finishEnrollStep(),

		StepAwaitDeleteConfirmation: preempting(awaitDeleteConfirmationStep()),
		StepDeleteCard:              deleteCardStep(deps),
		StepFinishDelete:            finishDeleteStep(),

		StepExtractIntent:      extractIntentStep(deps),
		StepAwaitIntentDetails: preempting(awaitIntentDetailsStep()),
		StepFinishIntent:       finishIntentStep(),

		StepCleanup: cleanupStep(),
	}
	for id, step := range steps {
		if err := engine.Add(id, step); err != nil {
			return nil, err
		}
	}

	routes := map[string]flow.RouterFn[State]{
		StepDispatch: routeDispatch,

		StepAwaitCardData:         preemptingRoute(flow.To[State](StepTokenizeCard)),
		StepTokenizeCard:          routeTokenizeCard,
		StepAwaitSecureToken:      preemptingRoute(routeAwaitSecureToken(deps.MaxSecureTokenRetries)),
		StepAttestationOptions:    routeAttestationOptions,
		StepBindDevice:            routeBindDevice,
		StepAwaitValidationMethod: preemptingRoute(flow.To[State](StepCreateChallenge)),
		StepCreateChallenge:       routeCreateChallenge,
		StepAwaitOTP:              preemptingRoute(flow.To[State](StepValidateOTP)),
		StepValidateOTP:           routeValidateOTP,
		StepCheckTokenStatus:      routeCheckTokenStatus,
		StepFinishEnroll:          flow.Terminal[State](),

		StepAwaitDeleteConfirmation: preemptingRoute(routeAwaitDeleteConfirmation),
		StepDeleteCard:              routeDeleteCard,
		StepFinishDelete:            flow.Terminal[State](),

		StepExtractIntent:      routeExtractIntent,
		StepAwaitIntentDetails: preemptingRoute(routeAwaitIntentDetails),
		StepFinishIntent:       flow.Terminal[State](),

		StepCleanup: flow.Terminal[State](),
	}
	for id, router := range routes {
		if err := engine.Route(id, router); err != nil {
			return nil, err
		}
	}

	if err := engine.EntryAt(StepDispatch); err != nil {
		return nil, err
	}
	return engine, nil
}

// Service is the caller-facing entry point: the engine's Resume
// wrapped in logging and panic recovery middleware.
type Service struct {
	resume flow.ResumeFunc[State]
}

// NewService builds the onboarding engine and composes its middleware
// chain. logger may be nil, in which case slog.Default() is used.
func NewService(deps Deps, st store.Store[State], emitter emit.Emitter, logger *slog.Logger, opts ...flow.Option) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	engine, err := NewEngine(deps, st, emitter, opts...)
	if err != nil {
		return nil, err
	}

	resume := flow.Chain(engine.Resume,
		flow.Logging[State](logger),
		flow.Recover[State](logger),
	)
	return &Service{resume: resume}, nil
}

// Resume drives the thread until it suspends or terminates.
func (s *Service) Resume(ctx context.Context, threadID string, delta State) (flow.Outcome[State], error) {
	return s.resume(ctx, threadID, delta)
}

// Say resumes the thread with one user message appended.
func (s *Service) Say(ctx context.Context, threadID, text string) (flow.Outcome[State], error) {
	return s.resume(ctx, threadID, UserSays(text))
}

// Request resumes the thread with a one-shot action, preempting any
// in-flight sub-workflow.
func (s *Service) Request(ctx context.Context, threadID, action string) (flow.Outcome[State], error) {
	return s.resume(ctx, threadID, State{Action: action})
}
