package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OutcomeStatus is the settlement state of one intent in a batch.
type OutcomeStatus string

const (
	StatusSubmitted OutcomeStatus = "submitted"
	StatusFailed    OutcomeStatus = "failed"
)

// Outcome records what happened to one intent of a batch.
//
// Submitted outcomes carry TxRef; failed ones carry Reason and Kind
// (CodeTransferFailed or CodeTransferTimeout).
type Outcome struct {
	Intent DonationIntent `json:"intent"`
	Status OutcomeStatus  `json:"status"`
	TxRef  string         `json:"txRef,omitempty"`
	Reason string         `json:"reason,omitempty"`
	Kind   ErrorCode      `json:"kind,omitempty"`
}

// Submitted reports whether the wallet accepted the transfer.
func (o Outcome) Submitted() bool { return o.Status == StatusSubmitted }

// Err returns the per-item failure as an *Error, or nil for a submitted outcome.
func (o Outcome) Err() error {
	if o.Submitted() {
		return nil
	}
	return &Error{
		Code:    o.Kind,
		Message: o.Reason,
		Details: map[string]string{"project": o.Intent.ProjectID},
	}
}

// BatchResult is the ordered per-intent outcome list of one submission.
// Counts are derived from Outcomes, never stored.
type BatchResult struct {
	ID         string    `json:"id"`
	Outcomes   []Outcome `json:"outcomes"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// SuccessCount returns the number of submitted outcomes.
func (r BatchResult) SuccessCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Submitted() {
			n++
		}
	}
	return n
}

// FailCount returns the number of failed outcomes.
func (r BatchResult) FailCount() int {
	return len(r.Outcomes) - r.SuccessCount()
}

// FailedIntents returns the intents whose transfer failed, in batch order.
func (r BatchResult) FailedIntents() []DonationIntent {
	var out []DonationIntent
	for _, o := range r.Outcomes {
		if !o.Submitted() {
			out = append(out, o.Intent)
		}
	}
	return out
}

// SubmittedTotals sums the submitted amounts per currency.
func (r BatchResult) SubmittedTotals() map[Currency]decimal.Decimal {
	totals := make(map[Currency]decimal.Decimal)
	for _, o := range r.Outcomes {
		if o.Submitted() {
			totals[o.Intent.Currency] = totals[o.Intent.Currency].Add(o.Intent.Amount)
		}
	}
	return totals
}
