package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/repayment-ledger/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) ApplyPayment(ctx context.Context, loan *domain.Loan, repayments []*domain.Repayment, entry *domain.LedgerEntry) error {
	repaymentQuery := `
		UPDATE repayments
		SET amount_paid = ?, status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND settled_by_quote_id IS NULL
			AND EXISTS (SELECT 1 FROM loans WHERE loans.id = repayments.loan_id AND loans.status = ?)
	`
	loanQuery := `
		UPDATE loans
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	now := time.Now().UTC()
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, rp := range repayments {
			n, err := exec(ctx, tx, repaymentQuery,
				rp.AmountPaid,
				rp.Status,
				now,
				rp.ID,
				rp.Version,
				domain.LoanStatusActive,
			)
			if err != nil {
				return err
			}
			if n == 0 {
				return classifyRepaymentMiss(ctx, tx, rp.ID)
			}
		}

		if loan.Status != domain.LoanStatusActive {
			n, err := exec(ctx, tx, loanQuery, loan.Status, now, loan.ID, domain.LoanStatusActive)
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrStateChanged
			}
		}

		return insertLedgerEntry(ctx, tx, entry)
	})
	if err != nil {
		return err
	}

	for _, rp := range repayments {
		rp.Version++
		rp.UpdatedAt = now
	}
	loan.UpdatedAt = now
	return nil
}
