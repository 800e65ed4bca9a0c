package pricing

import "github.com/shopspring/decimal"

// Outcome classifies what the cashier has to do after an order edit.
type Outcome string

const (
	OutcomeNone       Outcome = "none"
	OutcomeAdditional Outcome = "additional_payment"
	OutcomeRefund     Outcome = "refund"
)

// Reconciliation is the result of comparing a charged total with a new one.
type Reconciliation struct {
	Outcome Outcome `json:"outcome"`
	// Amount is zero for OutcomeNone and positive otherwise.
	Amount Money `json:"amount"`
	// Diff is the signed, rounded difference current - previous.
	Diff Money `json:"diff"`
}

// ActionRequired reports whether money has to change hands.
func (r Reconciliation) ActionRequired() bool {
	return r.Outcome != OutcomeNone
}

// Reconcile compares the total an order was charged with its recomputed total.
// Differences within Tolerance need no action.
func Reconcile(previous, current Money) Reconciliation {
	diff := Round2(current.Sub(previous))
	switch {
	case diff.GreaterThan(Tolerance):
		return Reconciliation{Outcome: OutcomeAdditional, Amount: diff, Diff: diff}
	case diff.LessThan(Tolerance.Neg()):
		return Reconciliation{Outcome: OutcomeRefund, Amount: diff.Abs(), Diff: diff}
	default:
		return Reconciliation{Outcome: OutcomeNone, Amount: decimal.Zero, Diff: diff}
	}
}
