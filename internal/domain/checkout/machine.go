package checkout

import (
	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
)

// Flow is the per-session checkout state machine: the current step plus the
// form drafts whose validity gates forward progress.
type Flow struct {
	Step     Step         `json:"step"`
	Customer CustomerInfo `json:"customer"`
	Delivery DeliveryInfo `json:"delivery"`
	Card     CardInfo     `json:"card"`
}

// NewFlow starts a checkout at product selection.
func NewFlow() Flow {
	return Flow{Step: StepProductSelection}
}

// transitions lists the structurally allowed step moves. Result has no
// entries: leaving it happens through Reset or TryAgain, never through a
// plain transition.
var transitions = map[Step][]Step{
	StepProductSelection: {StepPaymentInfo},
	StepPaymentInfo:      {StepSummary, StepProductSelection},
	StepSummary:          {StepProcessing, StepPaymentInfo, StepProductSelection},
	StepProcessing:       {StepResult},
	StepResult:           {},
}

// CanTransitionTo checks whether the step move is structurally allowed.
func (f *Flow) CanTransitionTo(to Step) bool {
	for _, allowed := range transitions[f.Step] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the flow to the given step, enforcing both the
// transition table and the data guards: no step past product selection with
// an empty cart, and no summary until every form draft validates.
func (f *Flow) TransitionTo(to Step, cartEmpty bool) error {
	if !to.Valid() {
		return domainErrors.ErrInvalidInput
	}
	if !f.CanTransitionTo(to) {
		return domainErrors.NewDomainError(
			"invalid_transition",
			"cannot move from "+f.Step.String()+" to "+to.String(),
			domainErrors.ErrInvalidStepTransition,
		)
	}

	switch to {
	case StepPaymentInfo, StepSummary, StepProcessing:
		if cartEmpty {
			return domainErrors.ErrCartEmpty
		}
	}

	if to == StepSummary && f.Step == StepPaymentInfo {
		if err := f.validateForms(); err != nil {
			return err
		}
	}

	f.Step = to
	return nil
}

// EnforceCartGuard forces the flow back to product selection when the cart
// empties underneath any step before the result. Only Result is exempt: an
// approved payment clears the cart while the flow legitimately sits there.
func (f *Flow) EnforceCartGuard(cartEmpty bool) bool {
	if !cartEmpty {
		return false
	}
	if f.Step == StepPaymentInfo || f.Step == StepSummary || f.Step == StepProcessing {
		f.Step = StepProductSelection
		return true
	}
	return false
}

// Reset returns the whole flow to product selection, dropping the drafts.
// Used by the "new payment" action together with a cart/session clear.
func (f *Flow) Reset() {
	*f = NewFlow()
}

// TryAgain rewinds a finished attempt back to the summary so the user can
// retry with the same cart and drafts.
func (f *Flow) TryAgain() error {
	if f.Step != StepResult {
		return domainErrors.NewDomainError(
			"invalid_transition",
			"try again is only available from the result step",
			domainErrors.ErrInvalidStepTransition,
		)
	}
	f.Step = StepSummary
	return nil
}

func (f *Flow) validateForms() error {
	if err := f.Customer.Validate(); err != nil {
		return err
	}
	if err := f.Delivery.Validate(); err != nil {
		return err
	}
	return f.Card.Validate()
}
