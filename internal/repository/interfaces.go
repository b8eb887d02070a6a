package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/segyhp/repayment-ledger/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// CreateWithSchedule persists the loan, every installment and the
	// disbursement entry in one transaction: all rows exist or none do.
	CreateWithSchedule(ctx context.Context, loan *domain.Loan, schedule []*domain.Repayment, entry *domain.LedgerEntry) error

	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// ListActiveIDs returns the ids of every ACTIVE loan
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)

	// GetSchedule retrieves the installments of a loan ordered by number
	GetSchedule(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error)

	// GetRepayment retrieves a single installment
	GetRepayment(ctx context.Context, id uuid.UUID) (*domain.Repayment, error)
}

// AccrualRepository defines the interface for late fee data operations
type AccrualRepository interface {
	// HasFee reports whether a fee row exists for the installment and day
	HasFee(ctx context.Context, repaymentID uuid.UUID, date domain.Date) (bool, error)

	// AccrueFee inserts the fee, writes the repayment's new fee and status
	// conditionally on its version and appends the ledger entry, atomically.
	// Returns ErrDuplicateFee if the (repayment, day) slot is taken and
	// ErrVersionConflict if the repayment changed since it was read.
	AccrueFee(ctx context.Context, fee *domain.LateFee, repayment *domain.Repayment, entry *domain.LedgerEntry) error

	// WaiveFee marks an ACTIVE fee WAIVED and writes the repayment's reduced
	// fee conditionally on its version, atomically with the ledger entry.
	WaiveFee(ctx context.Context, fee *domain.LateFee, repayment *domain.Repayment, entry *domain.LedgerEntry) error

	// GetFee retrieves a fee by id
	GetFee(ctx context.Context, id uuid.UUID) (*domain.LateFee, error)

	// ListFees retrieves every fee booked against an installment
	ListFees(ctx context.Context, repaymentID uuid.UUID) ([]*domain.LateFee, error)

	// SaveRun upserts the summary of the latest run for its date
	SaveRun(ctx context.Context, run *domain.AccrualRun) error

	// GetRun retrieves the run record for a date
	GetRun(ctx context.Context, date domain.Date) (*domain.AccrualRun, error)

	// RecordScan upserts the outcome of one loan for a run date
	RecordScan(ctx context.Context, scan *domain.AccrualScan) error

	// ListScans retrieves every loan outcome recorded for a run date
	ListScans(ctx context.Context, date domain.Date) ([]*domain.AccrualScan, error)
}

// SettlementRepository defines the interface for settlement quote operations
type SettlementRepository interface {
	// CreateQuote persists a PENDING quote. Returns ErrDuplicatePending if
	// the loan already has one.
	CreateQuote(ctx context.Context, quote *domain.SettlementQuote) error

	// GetQuote retrieves a quote by id
	GetQuote(ctx context.Context, id uuid.UUID) (*domain.SettlementQuote, error)

	// GetPendingQuote returns the loan's PENDING quote, or nil
	GetPendingQuote(ctx context.Context, loanID uuid.UUID) (*domain.SettlementQuote, error)

	// ApproveQuote marks the quote APPROVED, settles every open installment,
	// marks the loan SETTLED and appends the entry in one transaction.
	// Returns ErrStateChanged if the quote or loan moved on concurrently.
	ApproveQuote(ctx context.Context, quote *domain.SettlementQuote, entry *domain.LedgerEntry) error

	// DecideQuote moves a PENDING quote to a terminal status other than APPROVED
	DecideQuote(ctx context.Context, quote *domain.SettlementQuote) error

	// ListPendingQuotes returns every PENDING quote
	ListPendingQuotes(ctx context.Context) ([]*domain.SettlementQuote, error)
}

// PaymentRepository defines the interface for payment posting
type PaymentRepository interface {
	// ApplyPayment writes the new paid amounts and statuses of the touched
	// installments conditionally on their versions, optionally closes the
	// loan, and appends the entry, atomically.
	ApplyPayment(ctx context.Context, loan *domain.Loan, repayments []*domain.Repayment, entry *domain.LedgerEntry) error
}

// LedgerRepository is the append-only audit trail. It exposes no update or
// delete.
type LedgerRepository interface {
	// Append writes a single entry
	Append(ctx context.Context, entry *domain.LedgerEntry) error

	// List retrieves entries matching the filter, oldest first
	List(ctx context.Context, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error)
}

// PolicyRepository reads product configuration
type PolicyRepository interface {
	// GetPolicy retrieves the policy of a product. Returns ErrPolicyNotFound
	// when the product is not configured.
	GetPolicy(ctx context.Context, productCode string) (*domain.ProductPolicy, error)

	// UpsertPolicy stores a policy, used by provisioning and tests
	UpsertPolicy(ctx context.Context, policy *domain.ProductPolicy) error
}
