package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/repayment-ledger/internal/domain"
	"github.com/segyhp/repayment-ledger/internal/report"
	"github.com/segyhp/repayment-ledger/internal/repository"
	customErrors "github.com/segyhp/repayment-ledger/pkg/errors"
)

var ledgerKinds = map[string]bool{
	domain.LedgerKindDisbursement: true,
	domain.LedgerKindLateFee:      true,
	domain.LedgerKindFeeWaiver:    true,
	domain.LedgerKindPayment:      true,
	domain.LedgerKindSettlement:   true,
}

// AuditTrail is the read and append surface of the ledger. Entries are
// never updated or deleted.
type AuditTrail struct {
	ledger repository.LedgerRepository
	now    Clock
}

func NewAuditTrail(ledger repository.LedgerRepository) *AuditTrail {
	return &AuditTrail{ledger: ledger, now: time.Now}
}

// Append records an entry written outside the engine's own transactions,
// e.g. by an external payment path.
func (a *AuditTrail) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	if !ledgerKinds[entry.Kind] {
		return customErrors.WrapInvalidLedgerEntry(fmt.Sprintf("unknown ledger kind %q", entry.Kind))
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.now()
	}
	entry.Actor = actorOrSystem(entry.Actor)

	if err := a.ledger.Append(ctx, entry); err != nil {
		return dbError(err)
	}
	return nil
}

// List returns entries matching filter, oldest first.
func (a *AuditTrail) List(ctx context.Context, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error) {
	entries, err := a.ledger.List(ctx, filter)
	if err != nil {
		return nil, dbError(err)
	}
	return entries, nil
}

// Export writes the matching entries to w as an XLSX workbook and returns
// how many were exported.
func (a *AuditTrail) Export(ctx context.Context, filter domain.LedgerFilter, w io.Writer) (int, error) {
	entries, err := a.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	if err := report.WriteLedger(w, entries); err != nil {
		return 0, fmt.Errorf("render ledger: %w", err)
	}
	return len(entries), nil
}
