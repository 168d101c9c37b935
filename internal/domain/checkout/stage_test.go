package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		shipping, payment, placed bool
		want                      Stage
	}{
		{false, false, false, StageAwaitingShipping},
		{false, true, false, StageAwaitingShipping},
		{true, false, false, StageAwaitingPayment},
		{true, true, false, StageAwaitingReview},
		{true, true, true, StagePlaced},
		{false, false, true, StagePlaced},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Resolve(tt.shipping, tt.payment, tt.placed))
	}
}

func TestGate(t *testing.T) {
	tests := []struct {
		name         string
		step         Step
		stage        Stage
		wantRedirect Step
		wantNotice   string
		ok           bool
	}{
		{name: "shipping always open", step: StepShipping, stage: StageAwaitingShipping, ok: true},
		{name: "cart always open", step: StepCart, stage: StagePlaced, ok: true},
		{
			name: "payment needs shipping", step: StepPayment, stage: StageAwaitingShipping,
			wantRedirect: StepShipping, wantNotice: "Please complete shipping information first",
		},
		{name: "payment after shipping", step: StepPayment, stage: StageAwaitingPayment, ok: true},
		{
			name: "review without shipping", step: StepReview, stage: StageAwaitingShipping,
			wantRedirect: StepShipping, wantNotice: "Please complete shipping information first",
		},
		{
			name: "review without payment", step: StepReview, stage: StageAwaitingPayment,
			wantRedirect: StepPayment, wantNotice: "Please complete payment information first",
		},
		{name: "review ready", step: StepReview, stage: StageAwaitingReview, ok: true},
		{
			name: "confirmation before placing", step: StepConfirmation, stage: StageAwaitingReview,
			wantRedirect: StepReview, wantNotice: "Please complete all checkout steps",
		},
		{name: "confirmation after placing", step: StepConfirmation, stage: StagePlaced, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Gate(tt.step, tt.stage)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			var perr *PreconditionError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.step, perr.Step)
			assert.Equal(t, tt.wantRedirect, perr.Redirect)
			assert.Equal(t, tt.wantNotice, perr.Notice)
			assert.ErrorIs(t, err, ErrStepsIncomplete)
		})
	}
}

func TestRequireItems(t *testing.T) {
	require.NoError(t, RequireItems(StepReview, false))

	err := RequireItems(StepReview, true)
	var perr *PreconditionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StepCart, perr.Redirect)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, "checkout review: redirect to cart: cart is empty", err.Error())
}

func TestStageStrings(t *testing.T) {
	assert.Equal(t, "awaiting_payment", StageAwaitingPayment.String())
	assert.Equal(t, "confirmation", StepConfirmation.String())
	assert.Equal(t, StepPayment, StageAwaitingPayment.Next())
}
