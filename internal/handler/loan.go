package handler

import (
	"net/http"

	"github.com/segyhp/repayment-ledger/internal/domain"
	"github.com/segyhp/repayment-ledger/pkg/response"
)

// CreateLoan handles POST /api/v1/loans
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if err := h.decode(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid loan request", err)
		return
	}

	resp, err := h.loans.CreateLoan(r.Context(), &req)
	if err != nil {
		h.fail(w, r, "Failed to create loan", err)
		return
	}

	response.Created(w, resp)
}

// GetSchedule handles GET /api/v1/loans/{loanId}/schedule
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "Invalid loan ID", err)
		return
	}

	schedule, err := h.loans.GetSchedule(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, "Failed to get schedule", err)
		return
	}

	response.Success(w, schedule)
}

// MakePayment handles POST /api/v1/loans/{loanId}/payments
func (h *Handler) MakePayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "Invalid loan ID", err)
		return
	}

	var req domain.MakePaymentRequest
	if err := h.decode(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid payment request", err)
		return
	}

	payment, err := h.payments.PostPayment(r.Context(), loanID, &req)
	if err != nil {
		h.fail(w, r, "Failed to post payment", err)
		return
	}

	response.Created(w, payment)
}

// WaiveFee handles POST /api/v1/fees/{feeId}/waive
func (h *Handler) WaiveFee(w http.ResponseWriter, r *http.Request) {
	feeID, err := pathID(r, "feeId")
	if err != nil {
		response.BadRequest(w, "Invalid fee ID", err)
		return
	}

	var req domain.WaiveFeeRequest
	if err := h.decode(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid waiver request", err)
		return
	}

	fee, err := h.fees.WaiveFee(r.Context(), feeID, &req)
	if err != nil {
		h.fail(w, r, "Failed to waive fee", err)
		return
	}

	response.Success(w, fee)
}
