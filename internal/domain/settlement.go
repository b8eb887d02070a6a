package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	QuoteStatusPending  = "PENDING"
	QuoteStatusApproved = "APPROVED"
	QuoteStatusRejected = "REJECTED"
	QuoteStatusExpired  = "EXPIRED"
)

// SettlementQuote is a time-boxed early payoff offer for a loan.
type SettlementQuote struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	LoanID        uuid.UUID       `json:"loan_id" db:"loan_id"`
	PayoffAmount  decimal.Decimal `json:"payoff_amount" db:"payoff_amount"`
	RebateAmount  decimal.Decimal `json:"rebate_amount" db:"rebate_amount"`
	AsOfDate      Date            `json:"as_of_date" db:"as_of_date"`
	ComputedAt    time.Time       `json:"computed_at" db:"computed_at"`
	ValidUntil    time.Time       `json:"valid_until" db:"valid_until"`
	Status        string          `json:"status" db:"status"`
	DecisionNotes *string         `json:"decision_notes,omitempty" db:"decision_notes"`
	DecidedBy     *string         `json:"decided_by,omitempty" db:"decided_by"`
	DecidedAt     *time.Time      `json:"decided_at,omitempty" db:"decided_at"`
}

// IsExpiredAt reports whether the validity window has closed at now.
func (q *SettlementQuote) IsExpiredAt(now time.Time) bool {
	return now.After(q.ValidUntil)
}

// EffectiveStatus treats a PENDING quote past its window as EXPIRED even
// before the sweep has persisted the transition.
func (q *SettlementQuote) EffectiveStatus(now time.Time) string {
	if q.Status == QuoteStatusPending && q.IsExpiredAt(now) {
		return QuoteStatusExpired
	}
	return q.Status
}

type QuoteRequest struct {
	AsOfDate *Date `json:"as_of_date,omitempty"`
}

type QuoteDecisionRequest struct {
	Notes string `json:"notes"`
	Actor string `json:"actor"`
}

type RejectQuoteRequest struct {
	Reason string `json:"reason" validate:"required"`
	Actor  string `json:"actor"`
}
