// Package refund computes the credit refund owed when a render job is
// cancelled. The amount depends on the job's lifecycle stage and
// progress; recording the ledger transaction is the billing
// collaborator's responsibility, not this package's.
package refund

import (
	"math"

	"github.com/AaraikAI/Abode-AI-sub011/job"
)

// DefaultFeeFraction is the processing fee retained from refunds for
// jobs that had already started rendering.
const DefaultFeeFraction = 0.05

// Calculator computes cancellation refunds. The zero value uses
// DefaultFeeFraction.
type Calculator struct {
	// FeeFraction is the fraction of the unconsumed work value retained
	// as a processing fee for jobs cancelled mid-render. Must be in
	// [0, 1); values outside fall back to the default.
	FeeFraction float64
}

// NewCalculator creates a Calculator with the given fee fraction.
func NewCalculator(feeFraction float64) Calculator {
	return Calculator{FeeFraction: feeFraction}
}

func (c Calculator) fee() float64 {
	if c.FeeFraction < 0 || c.FeeFraction >= 1 {
		return DefaultFeeFraction
	}
	if c.FeeFraction == 0 {
		return DefaultFeeFraction
	}
	return c.FeeFraction
}

// Refund returns the credits to return for cancelling a job with the
// given cost, status, and progress percentage.
//
// Jobs that had not started (queued or scheduled, progress zero) refund
// the full cost. Jobs cancelled mid-render refund the unconsumed
// fraction of the cost minus the processing fee: the result never
// exceeds cost × (1 − progress/100) and stays strictly positive while
// progress < 100 for any positive cost.
//
// Amounts are rounded to two decimal places so the computation is
// deterministic and auditable.
func (c Calculator) Refund(creditsCost float64, status job.Status, progress int) float64 {
	if creditsCost <= 0 {
		return 0
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	if status.Pending() && progress == 0 {
		return round2(creditsCost)
	}

	unconsumed := creditsCost * (1 - float64(progress)/100)
	amount := round2(unconsumed * (1 - c.fee()))

	// Rounding must not push a sub-cent refund to zero while work remains.
	if progress < 100 && amount <= 0 {
		amount = 0.01
	}
	return amount
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
