package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ScanOutcomeScanned         = "SCANNED"
	ScanOutcomeFailed          = "FAILED"
	ScanOutcomeSkippedDeadline = "SKIPPED_DEADLINE"
)

// InstallmentFailure records why one installment could not be accrued.
type InstallmentFailure struct {
	RepaymentID uuid.UUID `json:"repayment_id"`
	Code        string    `json:"code"`
	Reason      string    `json:"reason"`
}

// LoanResult is the outcome of processing one loan in an accrual run.
// Failures are reported as data rather than aborting the run.
type LoanResult struct {
	LoanID            uuid.UUID            `json:"loan_id"`
	Outcome           string               `json:"outcome"`
	FeesCalculated    int                  `json:"fees_calculated"`
	FeeAmount         decimal.Decimal      `json:"fee_amount"`
	OverdueRepayments int                  `json:"overdue_repayments"`
	Reason            string               `json:"reason,omitempty"`
	Failures          []InstallmentFailure `json:"failures,omitempty"`
}

// Failed reports whether the loan or any of its installments failed.
func (r *LoanResult) Failed() bool {
	return r.Outcome == ScanOutcomeFailed || len(r.Failures) > 0
}

// RunSummary is the outcome of one FeeAccrualProcessor invocation.
type RunSummary struct {
	RunDate           Date            `json:"run_date"`
	Success           bool            `json:"success"`
	FeesCalculated    int             `json:"fees_calculated"`
	TotalFeeAmount    decimal.Decimal `json:"total_fee_amount"`
	OverdueRepayments int             `json:"overdue_repayments"`
	ProcessingTimeMs  int64           `json:"processing_time_ms"`
	ErrorMessage      *string         `json:"error_message"`
	LoansScanned      int             `json:"loans_scanned"`
	LoansFailed       int             `json:"loans_failed"`
	LoansSkipped      int             `json:"loans_skipped"`
	Incomplete        bool            `json:"incomplete"`
	Failures          []LoanResult    `json:"failures,omitempty"`
}

// Add folds a loan result into the summary.
func (s *RunSummary) Add(r LoanResult) {
	switch r.Outcome {
	case ScanOutcomeSkippedDeadline:
		s.LoansSkipped++
		return
	case ScanOutcomeFailed:
		s.LoansFailed++
	default:
		s.LoansScanned++
		if len(r.Failures) > 0 {
			s.LoansFailed++
		}
	}
	s.FeesCalculated += r.FeesCalculated
	s.TotalFeeAmount = s.TotalFeeAmount.Add(r.FeeAmount)
	s.OverdueRepayments += r.OverdueRepayments
	if r.Failed() {
		s.Failures = append(s.Failures, r)
	}
}

// AccrualRun is the persisted record of the latest run for a calendar day.
type AccrualRun struct {
	RunDate           Date            `json:"run_date" db:"run_date"`
	StartedAt         time.Time       `json:"started_at" db:"started_at"`
	FinishedAt        time.Time       `json:"finished_at" db:"finished_at"`
	Success           bool            `json:"success" db:"success"`
	Incomplete        bool            `json:"incomplete" db:"incomplete"`
	FeesCalculated    int             `json:"fees_calculated" db:"fees_calculated"`
	TotalFeeAmount    decimal.Decimal `json:"total_fee_amount" db:"total_fee_amount"`
	OverdueRepayments int             `json:"overdue_repayments" db:"overdue_repayments"`
	LoansScanned      int             `json:"loans_scanned" db:"loans_scanned"`
	LoansFailed       int             `json:"loans_failed" db:"loans_failed"`
	LoansSkipped      int             `json:"loans_skipped" db:"loans_skipped"`
	ErrorMessage      *string         `json:"error_message,omitempty" db:"error_message"`
}

// AccrualScan records what happened to one loan on a run date, so loans
// skipped at the deadline are distinguishable from loans already handled.
type AccrualScan struct {
	RunDate   Date      `json:"run_date" db:"run_date"`
	LoanID    uuid.UUID `json:"loan_id" db:"loan_id"`
	Outcome   string    `json:"outcome" db:"outcome"`
	Reason    string    `json:"reason" db:"reason"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
