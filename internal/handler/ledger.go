package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/repayment-ledger/internal/domain"
	"github.com/segyhp/repayment-ledger/internal/report"
	"github.com/segyhp/repayment-ledger/pkg/response"
)

const maxLedgerPage = 1000

// ListLedger handles GET /api/v1/ledger?loan_id=&from=&to=&limit=
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	filter, err := h.ledgerFilter(r.URL.Query())
	if err != nil {
		response.BadRequest(w, "Invalid ledger query", err)
		return
	}
	if filter.Limit <= 0 || filter.Limit > maxLedgerPage {
		filter.Limit = maxLedgerPage
	}

	entries, err := h.audit.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to list ledger entries", err)
		return
	}
	if entries == nil {
		entries = []*domain.LedgerEntry{}
	}

	response.Success(w, entries)
}

// ExportLedger handles GET /api/v1/ledger/export and streams an XLSX workbook.
func (h *Handler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	filter, err := h.ledgerFilter(r.URL.Query())
	if err != nil {
		response.BadRequest(w, "Invalid ledger query", err)
		return
	}

	var buf bytes.Buffer
	n, err := h.audit.Export(r.Context(), filter, &buf)
	if err != nil {
		h.fail(w, r, "Failed to export ledger", err)
		return
	}

	name := fmt.Sprintf("ledger-%s.xlsx", time.Now().In(h.loc).Format("20060102-150405"))
	w.Header().Set("Content-Type", report.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Ledger-Entries", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) ledgerFilter(q url.Values) (domain.LedgerFilter, error) {
	var filter domain.LedgerFilter

	if raw := q.Get("loan_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid loan_id %q", raw)
		}
		filter.LoanID = &id
	}

	var err error
	if filter.From, err = h.parseInstant(q.Get("from")); err != nil {
		return filter, fmt.Errorf("invalid from: %w", err)
	}
	if filter.To, err = h.parseInstant(q.Get("to")); err != nil {
		return filter, fmt.Errorf("invalid to: %w", err)
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}

// parseInstant accepts RFC 3339 timestamps or bare dates, which mean
// midnight in the ledger timezone.
func (h *Handler) parseInstant(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return d.StartIn(h.loc), nil
}
