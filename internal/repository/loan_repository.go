package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/repayment-ledger/internal/domain"
)

const repaymentColumns = `id, loan_id, installment_number, due_date, principal_due, interest_due,
	fee_due, amount_paid, status, version, settled_by_quote_id, created_at, updated_at`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) CreateWithSchedule(ctx context.Context, loan *domain.Loan, schedule []*domain.Repayment, entry *domain.LedgerEntry) error {
	loanQuery := `
		INSERT INTO loans (id, product_code, principal_amount, annual_interest_rate, term_months,
			total_amount, funding_date, status, settlement_quote_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	repaymentQuery := `
		INSERT INTO repayments (` + repaymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := exec(ctx, tx, loanQuery,
			loan.ID,
			loan.ProductCode,
			loan.PrincipalAmount,
			loan.AnnualInterestRate,
			loan.TermMonths,
			loan.TotalAmount,
			loan.FundingDate,
			loan.Status,
			loan.SettlementQuoteID,
			loan.CreatedAt.UTC(),
			loan.UpdatedAt.UTC(),
		)
		if err != nil {
			return err
		}

		for _, rp := range schedule {
			_, err = exec(ctx, tx, repaymentQuery,
				rp.ID,
				rp.LoanID,
				rp.InstallmentNumber,
				rp.DueDate,
				rp.PrincipalDue,
				rp.InterestDue,
				rp.FeeDue,
				rp.AmountPaid,
				rp.Status,
				rp.Version,
				rp.SettledByQuoteID,
				rp.CreatedAt.UTC(),
				rp.UpdatedAt.UTC(),
			)
			if err != nil {
				return err
			}
		}

		if entry == nil {
			return nil
		}
		return insertLedgerEntry(ctx, tx, entry)
	})
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT id, product_code, principal_amount, annual_interest_rate, term_months, total_amount,
			funding_date, status, settlement_quote_id, created_at, updated_at
		FROM loans
		WHERE id = ?
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, r.db.Rebind(query), id); err != nil {
		return nil, notFound(err)
	}
	return &loan, nil
}

func (r *loanRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT id FROM loans WHERE status = ? ORDER BY id`

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(query), domain.LoanStatusActive); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *loanRepository) GetSchedule(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error) {
	return selectSchedule(ctx, r.db, loanID)
}

func (r *loanRepository) GetRepayment(ctx context.Context, id uuid.UUID) (*domain.Repayment, error) {
	query := `SELECT ` + repaymentColumns + ` FROM repayments WHERE id = ?`

	var rp domain.Repayment
	if err := r.db.GetContext(ctx, &rp, r.db.Rebind(query), id); err != nil {
		return nil, notFound(err)
	}
	return &rp, nil
}

func selectSchedule(ctx context.Context, q sqlx.ExtContext, loanID uuid.UUID) ([]*domain.Repayment, error) {
	query := `
		SELECT ` + repaymentColumns + `
		FROM repayments
		WHERE loan_id = ?
		ORDER BY installment_number
	`

	var schedule []*domain.Repayment
	if err := sqlx.SelectContext(ctx, q, &schedule, q.Rebind(query), loanID); err != nil {
		return nil, err
	}
	return schedule, nil
}
