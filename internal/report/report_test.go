package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/segyhp/repayment-ledger/internal/config"
	"github.com/segyhp/repayment-ledger/internal/domain"
)

func TestWriteLedger(t *testing.T) {
	loanID := uuid.New()
	repaymentID := uuid.New()
	at := time.Date(2024, time.February, 16, 0, 5, 0, 0, time.UTC)
	entries := []*domain.LedgerEntry{
		domain.NewLedgerEntry(loanID, nil, domain.LedgerKindDisbursement, decimal.RequireFromString("1000.00"), "ops", "funded", at),
		domain.NewLedgerEntry(loanID, &repaymentID, domain.LedgerKindLateFee, decimal.RequireFromString("5.10"), domain.ActorAccrualJob, "", at),
		domain.NewLedgerEntry(loanID, &repaymentID, domain.LedgerKindLateFee, decimal.RequireFromString("5.20"), domain.ActorAccrualJob, "", at),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLedger(&buf, entries))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(entriesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, entryHeaders, rows[0])
	assert.Equal(t, "2024-02-16 00:05:00", rows[1][0])
	assert.Equal(t, domain.LedgerKindDisbursement, rows[1][4])
	assert.Equal(t, repaymentID.String(), rows[2][3])

	totals, err := f.GetRows(totalsSheet)
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, []string{domain.LedgerKindDisbursement, "1000.00"}, totals[1])
	assert.Equal(t, []string{domain.LedgerKindLateFee, "10.30"}, totals[2])
}

func TestWriteLedger_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLedger(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(entriesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFileUploader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	u, err := NewUploader(context.Background(), config.ReportConfig{}, dir)
	require.NoError(t, err)

	path, err := u.Upload(context.Background(), "ledger.xlsx", bytes.NewReader([]byte("data")), 4)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ledger.xlsx"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}
