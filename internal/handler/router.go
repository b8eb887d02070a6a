package handler

import (
	"github.com/gorilla/mux"

	"github.com/segyhp/repayment-ledger/pkg/response"
)

// NewRouter wires the API and probe routes.
func NewRouter(h *Handler, health *HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware, response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", health.Health).Methods("GET")
	router.HandleFunc("/health/ready", health.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", h.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/schedule", h.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanId}/payments", h.MakePayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/quotes", h.RequestQuote).Methods("POST")

	api.HandleFunc("/quotes/{quoteId}", h.GetQuote).Methods("GET")
	api.HandleFunc("/quotes/{quoteId}/approve", h.ApproveQuote).Methods("POST")
	api.HandleFunc("/quotes/{quoteId}/reject", h.RejectQuote).Methods("POST")

	api.HandleFunc("/fees/{feeId}/waive", h.WaiveFee).Methods("POST")

	api.HandleFunc("/ledger", h.ListLedger).Methods("GET")
	api.HandleFunc("/ledger/export", h.ExportLedger).Methods("GET")

	return router
}
