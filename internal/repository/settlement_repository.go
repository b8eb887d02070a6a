package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/repayment-ledger/internal/domain"
)

const quoteColumns = `id, loan_id, payoff_amount, rebate_amount, as_of_date, computed_at, valid_until,
	status, decision_notes, decided_by, decided_at`

type settlementRepository struct {
	db *sqlx.DB
}

func NewSettlementRepository(db *sqlx.DB) SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) CreateQuote(ctx context.Context, quote *domain.SettlementQuote) error {
	query := `
		INSERT INTO settlement_quotes (` + quoteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := exec(ctx, r.db, query,
		quote.ID,
		quote.LoanID,
		quote.PayoffAmount,
		quote.RebateAmount,
		quote.AsOfDate,
		quote.ComputedAt.UTC(),
		quote.ValidUntil.UTC(),
		quote.Status,
		quote.DecisionNotes,
		quote.DecidedBy,
		utcPtr(quote.DecidedAt),
	)
	if isUniqueViolation(err) {
		return ErrDuplicatePending
	}
	return err
}

func (r *settlementRepository) GetQuote(ctx context.Context, id uuid.UUID) (*domain.SettlementQuote, error) {
	query := `SELECT ` + quoteColumns + ` FROM settlement_quotes WHERE id = ?`

	var quote domain.SettlementQuote
	if err := r.db.GetContext(ctx, &quote, r.db.Rebind(query), id); err != nil {
		return nil, notFound(err)
	}
	return &quote, nil
}

func (r *settlementRepository) GetPendingQuote(ctx context.Context, loanID uuid.UUID) (*domain.SettlementQuote, error) {
	query := `SELECT ` + quoteColumns + ` FROM settlement_quotes WHERE loan_id = ? AND status = ?`

	var quote domain.SettlementQuote
	err := r.db.GetContext(ctx, &quote, r.db.Rebind(query), loanID, domain.QuoteStatusPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *settlementRepository) ApproveQuote(ctx context.Context, quote *domain.SettlementQuote, entry *domain.LedgerEntry) error {
	quoteQuery := `
		UPDATE settlement_quotes
		SET status = ?, decision_notes = ?, decided_by = ?, decided_at = ?
		WHERE id = ? AND status = ?
	`
	loanQuery := `
		UPDATE loans
		SET status = ?, settlement_quote_id = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`
	repaymentQuery := `
		UPDATE repayments
		SET settled_by_quote_id = ?, version = version + 1, updated_at = ?
		WHERE loan_id = ? AND settled_by_quote_id IS NULL AND status <> ?
	`

	now := time.Now().UTC()
	decidedAt := now
	if quote.DecidedAt != nil {
		decidedAt = quote.DecidedAt.UTC()
	}

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		n, err := exec(ctx, tx, quoteQuery,
			domain.QuoteStatusApproved,
			quote.DecisionNotes,
			quote.DecidedBy,
			decidedAt,
			quote.ID,
			domain.QuoteStatusPending,
		)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStateChanged
		}

		n, err = exec(ctx, tx, loanQuery, domain.LoanStatusSettled, quote.ID, now, quote.LoanID, domain.LoanStatusActive)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStateChanged
		}

		if _, err = exec(ctx, tx, repaymentQuery, quote.ID, now, quote.LoanID, domain.RepaymentStatusPaid); err != nil {
			return err
		}

		return insertLedgerEntry(ctx, tx, entry)
	})
	if err != nil {
		return err
	}

	quote.Status = domain.QuoteStatusApproved
	quote.DecidedAt = &decidedAt
	return nil
}

func (r *settlementRepository) DecideQuote(ctx context.Context, quote *domain.SettlementQuote) error {
	query := `
		UPDATE settlement_quotes
		SET status = ?, decision_notes = ?, decided_by = ?, decided_at = ?
		WHERE id = ? AND status = ?
	`

	n, err := exec(ctx, r.db, query,
		quote.Status,
		quote.DecisionNotes,
		quote.DecidedBy,
		utcPtr(quote.DecidedAt),
		quote.ID,
		domain.QuoteStatusPending,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStateChanged
	}
	return nil
}

func (r *settlementRepository) ListPendingQuotes(ctx context.Context) ([]*domain.SettlementQuote, error) {
	query := `SELECT ` + quoteColumns + ` FROM settlement_quotes WHERE status = ? ORDER BY valid_until`

	var quotes []*domain.SettlementQuote
	if err := r.db.SelectContext(ctx, &quotes, r.db.Rebind(query), domain.QuoteStatusPending); err != nil {
		return nil, err
	}
	return quotes, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
