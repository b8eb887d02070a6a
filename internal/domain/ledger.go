package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LedgerKindDisbursement = "DISBURSEMENT"
	LedgerKindLateFee      = "LATE_FEE"
	LedgerKindFeeWaiver    = "FEE_WAIVER"
	LedgerKindPayment      = "PAYMENT"
	LedgerKindSettlement   = "SETTLEMENT"
)

// Actors recorded on ledger entries written by the engine itself.
const (
	ActorAccrualJob = "system:fee-accrual"
	ActorSystem     = "system"
)

// LedgerEntry is an append-only audit record of a monetary mutation.
type LedgerEntry struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	LoanID      uuid.UUID       `json:"loan_id" db:"loan_id"`
	RepaymentID *uuid.UUID      `json:"repayment_id,omitempty" db:"repayment_id"`
	Kind        string          `json:"kind" db:"kind"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Memo        string          `json:"memo" db:"memo"`
	Actor       string          `json:"actor" db:"actor"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// NewLedgerEntry stamps a fresh id and creation time.
func NewLedgerEntry(loanID uuid.UUID, repaymentID *uuid.UUID, kind string, amount decimal.Decimal, actor, memo string, at time.Time) *LedgerEntry {
	if actor == "" {
		actor = ActorSystem
	}
	return &LedgerEntry{
		ID:          uuid.New(),
		LoanID:      loanID,
		RepaymentID: repaymentID,
		Kind:        kind,
		Amount:      amount,
		Memo:        memo,
		Actor:       actor,
		CreatedAt:   at,
	}
}

// LedgerFilter narrows a ledger listing. Zero values mean unbounded.
type LedgerFilter struct {
	LoanID *uuid.UUID
	From   time.Time
	To     time.Time
	Limit  int
}
