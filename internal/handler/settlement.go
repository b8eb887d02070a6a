package handler

import (
	"net/http"

	"github.com/segyhp/repayment-ledger/internal/domain"
	"github.com/segyhp/repayment-ledger/pkg/response"
)

// RequestQuote handles POST /api/v1/loans/{loanId}/quotes. The body is
// optional; without as_of_date the quote is priced for today.
func (h *Handler) RequestQuote(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "Invalid loan ID", err)
		return
	}

	var req domain.QuoteRequest
	if err := h.decode(r, &req, true); err != nil {
		response.BadRequest(w, "Invalid quote request", err)
		return
	}

	quote, err := h.settlements.RequestQuote(r.Context(), loanID, req.AsOfDate)
	if err != nil {
		h.fail(w, r, "Failed to request settlement quote", err)
		return
	}

	response.Created(w, quote)
}

// GetQuote handles GET /api/v1/quotes/{quoteId}
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, err := pathID(r, "quoteId")
	if err != nil {
		response.BadRequest(w, "Invalid quote ID", err)
		return
	}

	quote, err := h.settlements.GetQuote(r.Context(), quoteID)
	if err != nil {
		h.fail(w, r, "Failed to get settlement quote", err)
		return
	}

	response.Success(w, quote)
}

// ApproveQuote handles POST /api/v1/quotes/{quoteId}/approve
func (h *Handler) ApproveQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, err := pathID(r, "quoteId")
	if err != nil {
		response.BadRequest(w, "Invalid quote ID", err)
		return
	}

	var req domain.QuoteDecisionRequest
	if err := h.decode(r, &req, true); err != nil {
		response.BadRequest(w, "Invalid approval request", err)
		return
	}

	loan, err := h.settlements.Approve(r.Context(), quoteID, &req)
	if err != nil {
		h.fail(w, r, "Failed to approve settlement quote", err)
		return
	}

	response.Success(w, loan)
}

// RejectQuote handles POST /api/v1/quotes/{quoteId}/reject
func (h *Handler) RejectQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, err := pathID(r, "quoteId")
	if err != nil {
		response.BadRequest(w, "Invalid quote ID", err)
		return
	}

	var req domain.RejectQuoteRequest
	if err := h.decode(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid rejection request", err)
		return
	}

	quote, err := h.settlements.Reject(r.Context(), quoteID, &req)
	if err != nil {
		h.fail(w, r, "Failed to reject settlement quote", err)
		return
	}

	response.Success(w, quote)
}
