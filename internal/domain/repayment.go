package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RepaymentStatusPending = "PENDING"
	RepaymentStatusPartial = "PARTIAL"
	RepaymentStatusPaid    = "PAID"
	RepaymentStatusOverdue = "OVERDUE"
)

// Repayment is one installment of a loan's amortization schedule.
type Repayment struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	LoanID            uuid.UUID       `json:"loan_id" db:"loan_id"`
	InstallmentNumber int             `json:"installment_number" db:"installment_number"`
	DueDate           Date            `json:"due_date" db:"due_date"`
	PrincipalDue      decimal.Decimal `json:"principal_due" db:"principal_due"`
	InterestDue       decimal.Decimal `json:"interest_due" db:"interest_due"`
	FeeDue            decimal.Decimal `json:"fee_due" db:"fee_due"`
	AmountPaid        decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	Status            string          `json:"status" db:"status"`
	Version           int64           `json:"version" db:"version"`
	SettledByQuoteID  *uuid.UUID      `json:"settled_by_quote_id,omitempty" db:"settled_by_quote_id"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// ScheduledAmount is the principal plus interest originally scheduled.
func (r *Repayment) ScheduledAmount() decimal.Decimal {
	return r.PrincipalDue.Add(r.InterestDue)
}

// TotalDue includes accrued late fees.
func (r *Repayment) TotalDue() decimal.Decimal {
	return r.ScheduledAmount().Add(r.FeeDue)
}

// Outstanding is what remains unpaid, never negative.
func (r *Repayment) Outstanding() decimal.Decimal {
	out := r.TotalDue().Sub(r.AmountPaid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// IsSettled reports whether the installment was closed through an approved
// settlement quote.
func (r *Repayment) IsSettled() bool {
	return r.SettledByQuoteID != nil
}

// IsOpen reports whether the installment still carries a balance that can
// accrue fees or receive payments.
func (r *Repayment) IsOpen() bool {
	if r.IsSettled() {
		return false
	}
	switch r.Status {
	case RepaymentStatusPending, RepaymentStatusPartial, RepaymentStatusOverdue:
		return true
	}
	return false
}
