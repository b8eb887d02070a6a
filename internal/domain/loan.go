package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive     = "ACTIVE"
	LoanStatusSettled    = "SETTLED"
	LoanStatusDefaulted  = "DEFAULTED"
	LoanStatusDischarged = "DISCHARGED"
)

// Loan represents a funded loan. Terms are immutable once funded; only
// Status and SettlementQuoteID change afterwards.
type Loan struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	ProductCode        string          `json:"product_code" db:"product_code"`
	PrincipalAmount    decimal.Decimal `json:"principal_amount" db:"principal_amount"`
	AnnualInterestRate decimal.Decimal `json:"annual_interest_rate" db:"annual_interest_rate"` // percent, 12 means 12%
	TermMonths         int             `json:"term_months" db:"term_months"`
	TotalAmount        decimal.Decimal `json:"total_amount" db:"total_amount"`
	FundingDate        Date            `json:"funding_date" db:"funding_date"`
	Status             string          `json:"status" db:"status"`
	SettlementQuoteID  *uuid.UUID      `json:"settlement_quote_id,omitempty" db:"settlement_quote_id"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the loan still accrues fees and accepts payments.
func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	ID                 *uuid.UUID      `json:"id,omitempty"`
	ProductCode        string          `json:"product_code" validate:"required"`
	PrincipalAmount    decimal.Decimal `json:"principal_amount" validate:"decimal_gt0"`
	AnnualInterestRate decimal.Decimal `json:"annual_interest_rate" validate:"decimal_gte0"`
	TermMonths         int             `json:"term_months" validate:"required,gt=0"`
	FundingDate        Date            `json:"funding_date"`
	Actor              string          `json:"actor"`
}

type CreateLoanResponse struct {
	Loan     *Loan        `json:"loan"`
	Schedule []*Repayment `json:"schedule"`
}

type ScheduleResponse struct {
	LoanID   uuid.UUID    `json:"loan_id"`
	Schedule []*Repayment `json:"schedule"`
}
