// Package report renders the audit trail for reconciliation and ships the
// result to object storage.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/segyhp/repayment-ledger/internal/domain"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	entriesSheet = "Ledger"
	totalsSheet  = "Totals"
)

var entryHeaders = []string{"Created At (UTC)", "Entry ID", "Loan ID", "Repayment ID", "Kind", "Amount", "Actor", "Memo"}

// WriteLedger renders entries as an XLSX workbook with one row per entry and
// a per-kind totals sheet, and writes it to w.
func WriteLedger(w io.Writer, entries []*domain.LedgerEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", entriesSheet); err != nil {
		return err
	}
	if err := writeHeaders(f, entriesSheet, entryHeaders); err != nil {
		return err
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}

	totals := make(map[string]decimal.Decimal)
	for i, e := range entries {
		row := i + 2
		repaymentID := ""
		if e.RepaymentID != nil {
			repaymentID = e.RepaymentID.String()
		}
		values := []any{
			e.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			e.ID.String(),
			e.LoanID.String(),
			repaymentID,
			e.Kind,
			e.Amount.InexactFloat64(),
			e.Actor,
			e.Memo,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(entriesSheet, cell, &values); err != nil {
			return fmt.Errorf("write ledger row %d: %w", row, err)
		}
		amountCell, _ := excelize.CoordinatesToCellName(6, row)
		if err := f.SetCellStyle(entriesSheet, amountCell, amountCell, money); err != nil {
			return err
		}
		totals[e.Kind] = totals[e.Kind].Add(e.Amount)
	}
	_ = f.SetColWidth(entriesSheet, "A", "A", 20)
	_ = f.SetColWidth(entriesSheet, "B", "D", 38)
	_ = f.SetColWidth(entriesSheet, "H", "H", 48)

	if _, err := f.NewSheet(totalsSheet); err != nil {
		return err
	}
	if err := writeHeaders(f, totalsSheet, []string{"Kind", "Total"}); err != nil {
		return err
	}
	kinds := make([]string, 0, len(totals))
	for kind := range totals {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for i, kind := range kinds {
		row := i + 2
		// Totals are summed exactly and written as fixed-point text.
		values := []any{kind, totals[kind].StringFixed(2)}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(totalsSheet, cell, &values); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func writeHeaders(f *excelize.File, sheet string, headers []string) error {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	return nil
}
