package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LateFeeStatusActive = "ACTIVE"
	LateFeeStatusWaived = "WAIVED"
)

// LateFee is one accrual booked against an overdue installment. There is
// at most one row per (RepaymentID, CalculationDate).
type LateFee struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	RepaymentID     uuid.UUID       `json:"repayment_id" db:"repayment_id"`
	LoanID          uuid.UUID       `json:"loan_id" db:"loan_id"`
	CalculationDate Date            `json:"calculation_date" db:"calculation_date"`
	DaysOverdue     int             `json:"days_overdue" db:"days_overdue"`
	RateApplied     decimal.Decimal `json:"rate_applied" db:"rate_applied"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Status          string          `json:"status" db:"status"`
	WaivedReason    *string         `json:"waived_reason,omitempty" db:"waived_reason"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

type WaiveFeeRequest struct {
	Reason string `json:"reason" validate:"required"`
	Actor  string `json:"actor"`
}
