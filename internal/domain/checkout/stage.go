package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Step is a page of the checkout sequence.
type Step int

// Checkout steps in navigation order.
const (
	StepCart Step = iota
	StepShipping
	StepPayment
	StepReview
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepCart:
		return "cart"
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	case StepConfirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Stage is the position of a session in the checkout state machine.
type Stage int

// Checkout stages.
const (
	StageAwaitingShipping Stage = iota
	StageAwaitingPayment
	StageAwaitingReview
	StagePlaced
)

func (s Stage) String() string {
	switch s {
	case StageAwaitingShipping:
		return "awaiting_shipping"
	case StageAwaitingPayment:
		return "awaiting_payment"
	case StageAwaitingReview:
		return "awaiting_review"
	case StagePlaced:
		return "placed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Next returns the step a session in this stage should visit next.
func (s Stage) Next() Step {
	switch s {
	case StageAwaitingShipping:
		return StepShipping
	case StageAwaitingPayment:
		return StepPayment
	case StageAwaitingReview:
		return StepReview
	default:
		return StepConfirmation
	}
}

// Resolve derives the stage from the filled session slots. A payment slot
// without a shipping slot still awaits shipping.
func Resolve(hasShipping, hasPayment, placed bool) Stage {
	switch {
	case placed:
		return StagePlaced
	case !hasShipping:
		return StageAwaitingShipping
	case !hasPayment:
		return StageAwaitingPayment
	default:
		return StageAwaitingReview
	}
}

// Precondition sentinels wrapped by PreconditionError.
var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrStepsIncomplete = errors.New("checkout steps incomplete")
)

// PreconditionError reports that Step cannot be entered yet. Redirect is the
// step the customer should be sent to instead.
type PreconditionError struct {
	Step     Step
	Redirect Step
	Notice   string
	Err      error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("checkout %s: redirect to %s: %v", e.Step, e.Redirect, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// Gate reports whether step may be entered from stage. Payment needs a
// shipping slot, review needs both slots and confirmation needs a placed
// order.
func Gate(step Step, stage Stage) error {
	var need Stage
	switch step {
	case StepPayment:
		need = StageAwaitingPayment
	case StepReview:
		need = StageAwaitingReview
	case StepConfirmation:
		need = StagePlaced
	default:
		return nil
	}
	if stage >= need {
		return nil
	}

	redirect := stage.Next()
	notice := "Please complete all checkout steps"
	switch redirect {
	case StepShipping:
		notice = "Please complete shipping information first"
	case StepPayment:
		notice = "Please complete payment information first"
	}
	return &PreconditionError{
		Step:     step,
		Redirect: redirect,
		Notice:   notice,
		Err:      ErrStepsIncomplete,
	}
}

// RequireItems returns a PreconditionError redirecting to the cart when the
// cart is empty.
func RequireItems(step Step, empty bool) error {
	if !empty {
		return nil
	}
	return &PreconditionError{
		Step:     step,
		Redirect: StepCart,
		Notice:   "Your cart is empty",
		Err:      ErrEmptyCart,
	}
}
