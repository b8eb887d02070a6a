package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/repayment-ledger/internal/domain"
)

const lateFeeColumns = `id, repayment_id, loan_id, calculation_date, days_overdue, rate_applied, amount,
	status, waived_reason, created_at`

type accrualRepository struct {
	db *sqlx.DB
}

func NewAccrualRepository(db *sqlx.DB) AccrualRepository {
	return &accrualRepository{db: db}
}

func (r *accrualRepository) HasFee(ctx context.Context, repaymentID uuid.UUID, date domain.Date) (bool, error) {
	query := `SELECT COUNT(1) FROM late_fees WHERE repayment_id = ? AND calculation_date = ?`

	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(query), repaymentID, date); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *accrualRepository) AccrueFee(ctx context.Context, fee *domain.LateFee, repayment *domain.Repayment, entry *domain.LedgerEntry) error {
	feeQuery := `
		INSERT INTO late_fees (` + lateFeeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repayment_id, calculation_date) DO NOTHING
	`
	// The accrual only lands while the installment is unsettled and the
	// loan is still ACTIVE, so a concurrent settlement always wins.
	repaymentQuery := `
		UPDATE repayments
		SET fee_due = ?, status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND settled_by_quote_id IS NULL
			AND EXISTS (SELECT 1 FROM loans WHERE loans.id = repayments.loan_id AND loans.status = ?)
	`

	now := time.Now().UTC()
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		n, err := exec(ctx, tx, feeQuery,
			fee.ID,
			fee.RepaymentID,
			fee.LoanID,
			fee.CalculationDate,
			fee.DaysOverdue,
			fee.RateApplied,
			fee.Amount,
			fee.Status,
			fee.WaivedReason,
			fee.CreatedAt.UTC(),
		)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrDuplicateFee
		}

		n, err = exec(ctx, tx, repaymentQuery,
			repayment.FeeDue,
			repayment.Status,
			now,
			repayment.ID,
			repayment.Version,
			domain.LoanStatusActive,
		)
		if err != nil {
			return err
		}
		if n == 0 {
			return classifyRepaymentMiss(ctx, tx, repayment.ID)
		}

		return insertLedgerEntry(ctx, tx, entry)
	})
	if err != nil {
		return err
	}

	repayment.Version++
	repayment.UpdatedAt = now
	return nil
}

func (r *accrualRepository) WaiveFee(ctx context.Context, fee *domain.LateFee, repayment *domain.Repayment, entry *domain.LedgerEntry) error {
	feeQuery := `
		UPDATE late_fees
		SET status = ?, waived_reason = ?
		WHERE id = ? AND status = ?
	`
	repaymentQuery := `
		UPDATE repayments
		SET fee_due = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	now := time.Now().UTC()
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		n, err := exec(ctx, tx, feeQuery, domain.LateFeeStatusWaived, fee.WaivedReason, fee.ID, domain.LateFeeStatusActive)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStateChanged
		}

		n, err = exec(ctx, tx, repaymentQuery, repayment.FeeDue, now, repayment.ID, repayment.Version)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrVersionConflict
		}

		return insertLedgerEntry(ctx, tx, entry)
	})
	if err != nil {
		return err
	}

	fee.Status = domain.LateFeeStatusWaived
	repayment.Version++
	repayment.UpdatedAt = now
	return nil
}

func (r *accrualRepository) GetFee(ctx context.Context, id uuid.UUID) (*domain.LateFee, error) {
	query := `SELECT ` + lateFeeColumns + ` FROM late_fees WHERE id = ?`

	var fee domain.LateFee
	if err := r.db.GetContext(ctx, &fee, r.db.Rebind(query), id); err != nil {
		return nil, notFound(err)
	}
	return &fee, nil
}

func (r *accrualRepository) ListFees(ctx context.Context, repaymentID uuid.UUID) ([]*domain.LateFee, error) {
	query := `
		SELECT ` + lateFeeColumns + `
		FROM late_fees
		WHERE repayment_id = ?
		ORDER BY calculation_date
	`

	var fees []*domain.LateFee
	if err := r.db.SelectContext(ctx, &fees, r.db.Rebind(query), repaymentID); err != nil {
		return nil, err
	}
	return fees, nil
}

func (r *accrualRepository) SaveRun(ctx context.Context, run *domain.AccrualRun) error {
	query := `
		INSERT INTO accrual_runs (run_date, started_at, finished_at, success, incomplete, fees_calculated,
			total_fee_amount, overdue_repayments, loans_scanned, loans_failed, loans_skipped, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_date) DO UPDATE SET
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			success = excluded.success,
			incomplete = excluded.incomplete,
			fees_calculated = excluded.fees_calculated,
			total_fee_amount = excluded.total_fee_amount,
			overdue_repayments = excluded.overdue_repayments,
			loans_scanned = excluded.loans_scanned,
			loans_failed = excluded.loans_failed,
			loans_skipped = excluded.loans_skipped,
			error_message = excluded.error_message
	`

	_, err := exec(ctx, r.db, query,
		run.RunDate,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		run.Success,
		run.Incomplete,
		run.FeesCalculated,
		run.TotalFeeAmount,
		run.OverdueRepayments,
		run.LoansScanned,
		run.LoansFailed,
		run.LoansSkipped,
		run.ErrorMessage,
	)
	return err
}

func (r *accrualRepository) GetRun(ctx context.Context, date domain.Date) (*domain.AccrualRun, error) {
	query := `
		SELECT run_date, started_at, finished_at, success, incomplete, fees_calculated, total_fee_amount,
			overdue_repayments, loans_scanned, loans_failed, loans_skipped, error_message
		FROM accrual_runs
		WHERE run_date = ?
	`

	var run domain.AccrualRun
	if err := r.db.GetContext(ctx, &run, r.db.Rebind(query), date); err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

func (r *accrualRepository) RecordScan(ctx context.Context, scan *domain.AccrualScan) error {
	query := `
		INSERT INTO accrual_scans (run_date, loan_id, outcome, reason, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_date, loan_id) DO UPDATE SET
			outcome = excluded.outcome,
			reason = excluded.reason,
			updated_at = excluded.updated_at
	`

	_, err := exec(ctx, r.db, query, scan.RunDate, scan.LoanID, scan.Outcome, scan.Reason, scan.UpdatedAt.UTC())
	return err
}

func (r *accrualRepository) ListScans(ctx context.Context, date domain.Date) ([]*domain.AccrualScan, error) {
	query := `
		SELECT run_date, loan_id, outcome, reason, updated_at
		FROM accrual_scans
		WHERE run_date = ?
		ORDER BY loan_id
	`

	var scans []*domain.AccrualScan
	if err := r.db.SelectContext(ctx, &scans, r.db.Rebind(query), date); err != nil {
		return nil, err
	}
	return scans, nil
}

// classifyRepaymentMiss explains why a version-guarded update touched no
// row: the installment or its loan left the accruable state, or another
// writer bumped the version.
func classifyRepaymentMiss(ctx context.Context, q sqlx.ExtContext, repaymentID uuid.UUID) error {
	query := `
		SELECT r.settled_by_quote_id IS NOT NULL OR l.status <> ?
		FROM repayments r
		JOIN loans l ON l.id = r.loan_id
		WHERE r.id = ?
	`

	var closed bool
	if err := sqlx.GetContext(ctx, q, &closed, q.Rebind(query), domain.LoanStatusActive, repaymentID); err != nil {
		return notFound(err)
	}
	if closed {
		return ErrStateChanged
	}
	return ErrVersionConflict
}
