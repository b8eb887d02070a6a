package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentAllocation is the share of a posted payment applied to one installment.
type PaymentAllocation struct {
	RepaymentID       uuid.UUID       `json:"repayment_id"`
	InstallmentNumber int             `json:"installment_number"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
}

// Payment is the result of posting money against a loan.
type Payment struct {
	LoanID      uuid.UUID           `json:"loan_id"`
	Amount      decimal.Decimal     `json:"amount"`
	Allocations []PaymentAllocation `json:"allocations"`
	LoanStatus  string              `json:"loan_status"`
	LedgerEntry *LedgerEntry        `json:"ledger_entry"`
}

type MakePaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"decimal_gt0"`
	Actor  string          `json:"actor"`
}
