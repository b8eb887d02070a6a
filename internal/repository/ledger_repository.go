package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/repayment-ledger/internal/domain"
)

type ledgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	return insertLedgerEntry(ctx, r.db, entry)
}

func (r *ledgerRepository) List(ctx context.Context, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.LoanID != nil {
		where = append(where, "loan_id = ?")
		args = append(args, *filter.LoanID)
	}
	if !filter.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, filter.To.UTC())
	}

	query := `SELECT id, loan_id, repayment_id, kind, amount, memo, actor, created_at FROM ledger_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var entries []*domain.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return entries, nil
}

// insertLedgerEntry is shared by every repository that books money so the
// entry lands in the same transaction as the mutation it records.
func insertLedgerEntry(ctx context.Context, e sqlx.ExtContext, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, loan_id, repayment_id, kind, amount, memo, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := exec(ctx, e, query,
		entry.ID,
		entry.LoanID,
		entry.RepaymentID,
		entry.Kind,
		entry.Amount,
		entry.Memo,
		entry.Actor,
		entry.CreatedAt.UTC(),
	)
	return err
}
