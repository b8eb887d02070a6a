package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/repayment-ledger/internal/config"
	"github.com/segyhp/repayment-ledger/internal/domain"
	"github.com/segyhp/repayment-ledger/internal/mocks"
	"github.com/segyhp/repayment-ledger/internal/report"
	"github.com/segyhp/repayment-ledger/internal/repository"
	customErrors "github.com/segyhp/repayment-ledger/pkg/errors"
)

type testServer struct {
	loans       *mocks.MockLoanService
	payments    *mocks.MockPaymentService
	fees        *mocks.MockFeeService
	settlements *mocks.MockSettlementService
	audit       *mocks.MockAuditService
	router      http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		loans:       new(mocks.MockLoanService),
		payments:    new(mocks.MockPaymentService),
		fees:        new(mocks.MockFeeService),
		settlements: new(mocks.MockSettlementService),
		audit:       new(mocks.MockAuditService),
	}
	h := NewHandler(s.loans, s.payments, s.fees, s.settlements, s.audit, time.UTC)
	s.router = NewRouter(h, NewHealthHandler(nil, nil, time.Second))
	t.Cleanup(func() {
		s.loans.AssertExpectations(t)
		s.payments.AssertExpectations(t)
		s.fees.AssertExpectations(t)
		s.settlements.AssertExpectations(t)
		s.audit.AssertExpectations(t)
	})
	return s
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHandler_CreateLoan(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*mocks.MockLoanService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "created",
			body: `{"product_code":"PERSONAL","principal_amount":"10000.00","annual_interest_rate":"12","term_months":12,"funding_date":"2024-01-15"}`,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("CreateLoan", mock.Anything, mock.MatchedBy(func(req *domain.CreateLoanRequest) bool {
					return req.ProductCode == "PERSONAL" &&
						req.PrincipalAmount.Equal(decimal.NewFromInt(10000)) &&
						req.TermMonths == 12 &&
						req.FundingDate.String() == "2024-01-15"
				})).Return(&domain.CreateLoanResponse{
					Loan:     &domain.Loan{ID: uuid.New(), ProductCode: "PERSONAL", Status: domain.LoanStatusActive},
					Schedule: []*domain.Repayment{{InstallmentNumber: 1}},
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing product",
			body:           `{"principal_amount":"100","term_months":12}`,
			setupMock:      func(m *mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "zero principal",
			body:           `{"product_code":"PERSONAL","principal_amount":"0","term_months":12}`,
			setupMock:      func(m *mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative rate",
			body:           `{"product_code":"PERSONAL","principal_amount":"100","annual_interest_rate":"-1","term_months":12}`,
			setupMock:      func(m *mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			body:           `{"product_code":`,
			setupMock:      func(m *mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "rejected terms",
			body: `{"product_code":"PERSONAL","principal_amount":"1.00","term_months":200}`,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("CreateLoan", mock.Anything, mock.Anything).
					Return(nil, customErrors.WrapInvalidLoanTerms("final installment would be negative")).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customErrors.ErrCodeInvalidLoanTerms,
		},
		{
			name: "unknown product",
			body: `{"product_code":"NOPE","principal_amount":"100","term_months":1}`,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("CreateLoan", mock.Anything, mock.Anything).
					Return(nil, customErrors.WrapConfiguration("NOPE", "product is not configured")).Once()
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   customErrors.ErrCodeConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			tt.setupMock(s.loans)

			w := s.do(http.MethodPost, "/api/v1/loans", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			env := decodeEnvelope(t, w)
			assert.Equal(t, tt.expectedStatus < 300, env.Success)
			assert.Equal(t, tt.expectedCode, env.Code)
		})
	}
}

func TestHandler_GetSchedule(t *testing.T) {
	s := newTestServer(t)
	loanID := uuid.New()
	s.loans.On("GetSchedule", mock.Anything, loanID).Return(&domain.ScheduleResponse{LoanID: loanID}, nil).Once()
	missing := uuid.New()
	s.loans.On("GetSchedule", mock.Anything, missing).Return(nil, customErrors.WrapLoanNotFound(missing)).Once()

	w := s.do(http.MethodGet, "/api/v1/loans/"+loanID.String()+"/schedule", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/loans/"+missing.String()+"/schedule", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, customErrors.ErrCodeLoanNotFound, decodeEnvelope(t, w).Code)

	w = s.do(http.MethodGet, "/api/v1/loans/not-a-uuid/schedule", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_MakePayment(t *testing.T) {
	s := newTestServer(t)
	loanID := uuid.New()

	s.payments.On("PostPayment", mock.Anything, loanID, mock.MatchedBy(func(req *domain.MakePaymentRequest) bool {
		return req.Amount.Equal(decimal.RequireFromString("450.00"))
	})).Return(&domain.Payment{LoanID: loanID, LoanStatus: domain.LoanStatusActive}, nil).Once()
	s.payments.On("PostPayment", mock.Anything, loanID, mock.MatchedBy(func(req *domain.MakePaymentRequest) bool {
		return req.Amount.Equal(decimal.NewFromInt(99999))
	})).Return(nil, customErrors.WrapPaymentExceedsBalance("99999.00", "900.00")).Once()

	w := s.do(http.MethodPost, "/api/v1/loans/"+loanID.String()+"/payments", `{"amount":"450.00"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/v1/loans/"+loanID.String()+"/payments", `{"amount":"99999"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, customErrors.ErrCodePaymentExceedsBalance, decodeEnvelope(t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/loans/"+loanID.String()+"/payments", `{"amount":"-5"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_WaiveFee(t *testing.T) {
	s := newTestServer(t)
	feeID := uuid.New()
	s.fees.On("WaiveFee", mock.Anything, feeID, &domain.WaiveFeeRequest{Reason: "goodwill", Actor: "agent"}).
		Return(&domain.LateFee{ID: feeID, Status: domain.LateFeeStatusWaived}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/fees/"+feeID.String()+"/waive", `{"reason":"goodwill","actor":"agent"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/v1/fees/"+feeID.String()+"/waive", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_RequestQuote(t *testing.T) {
	s := newTestServer(t)
	loanID := uuid.New()

	s.settlements.On("RequestQuote", mock.Anything, loanID, (*domain.Date)(nil)).
		Return(&domain.SettlementQuote{ID: uuid.New(), LoanID: loanID, Status: domain.QuoteStatusPending}, nil).Once()
	s.settlements.On("RequestQuote", mock.Anything, loanID, mock.MatchedBy(func(d *domain.Date) bool {
		return d != nil && d.String() == "2024-03-20"
	})).Return(nil, customErrors.WrapPendingQuoteExists(loanID)).Once()

	w := s.do(http.MethodPost, "/api/v1/loans/"+loanID.String()+"/quotes", "")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/v1/loans/"+loanID.String()+"/quotes", `{"as_of_date":"2024-03-20"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, customErrors.ErrCodePendingQuoteExists, decodeEnvelope(t, w).Code)
}

func TestHandler_QuoteDecisions(t *testing.T) {
	s := newTestServer(t)
	quoteID := uuid.New()
	expired := uuid.New()

	s.settlements.On("GetQuote", mock.Anything, quoteID).
		Return(&domain.SettlementQuote{ID: quoteID, Status: domain.QuoteStatusPending}, nil).Once()
	s.settlements.On("Approve", mock.Anything, quoteID, &domain.QuoteDecisionRequest{Actor: "lead"}).
		Return(&domain.Loan{Status: domain.LoanStatusSettled}, nil).Once()
	s.settlements.On("Approve", mock.Anything, expired, mock.Anything).
		Return(nil, customErrors.WrapQuoteExpired(expired)).Once()
	s.settlements.On("Reject", mock.Anything, quoteID, &domain.RejectQuoteRequest{Reason: "declined"}).
		Return(nil, customErrors.WrapQuoteNotPending(quoteID, domain.QuoteStatusApproved)).Once()

	w := s.do(http.MethodGet, "/api/v1/quotes/"+quoteID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/v1/quotes/"+quoteID.String()+"/approve", `{"actor":"lead"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	var loan domain.Loan
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &loan))
	assert.Equal(t, domain.LoanStatusSettled, loan.Status)

	w = s.do(http.MethodPost, "/api/v1/quotes/"+expired.String()+"/approve", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, customErrors.ErrCodeQuoteExpired, decodeEnvelope(t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/quotes/"+quoteID.String()+"/reject", `{"reason":"declined"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, customErrors.ErrCodeQuoteNotPending, decodeEnvelope(t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/quotes/"+quoteID.String()+"/reject", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ListLedger(t *testing.T) {
	s := newTestServer(t)
	loanID := uuid.New()

	s.audit.On("List", mock.Anything, mock.MatchedBy(func(f domain.LedgerFilter) bool {
		return f.LoanID != nil && *f.LoanID == loanID &&
			f.From.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) &&
			f.To.Equal(time.Date(2024, time.March, 2, 12, 0, 0, 0, time.UTC)) &&
			f.Limit == 50
	})).Return([]*domain.LedgerEntry{{ID: uuid.New(), LoanID: loanID, Kind: domain.LedgerKindPayment}}, nil).Once()
	s.audit.On("List", mock.Anything, mock.MatchedBy(func(f domain.LedgerFilter) bool {
		return f.LoanID == nil && f.Limit == maxLedgerPage
	})).Return(nil, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/ledger?loan_id="+loanID.String()+"&from=2024-03-01&to=2024-03-02T12:00:00Z&limit=50", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var entries []*domain.LedgerEntry
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &entries))
	assert.Len(t, entries, 1)

	w = s.do(http.MethodGet, "/api/v1/ledger", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decodeEnvelope(t, w).Data))

	for _, query := range []string{"loan_id=abc", "from=yesterday", "limit=-1"} {
		w = s.do(http.MethodGet, "/api/v1/ledger?"+query, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestHandler_ExportLedger(t *testing.T) {
	s := newTestServer(t)
	workbook := []byte("PK-fake-workbook")
	s.audit.On("Export", mock.Anything, mock.Anything, mock.Anything).Return(workbook, 3, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/ledger/export", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, report.ContentTypeXLSX, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "3", w.Header().Get("X-Ledger-Entries"))
	assert.True(t, bytes.Equal(workbook, w.Body.Bytes()))
}

func TestHandler_ExportLedgerFailure(t *testing.T) {
	s := newTestServer(t)
	s.audit.On("Export", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, 0, customErrors.WrapDatabaseError(errors.New("disk full"))).Once()

	w := s.do(http.MethodGet, "/api/v1/ledger/export", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestStatusFor(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		err      error
		expected int
	}{
		{customErrors.WrapQuoteNotFound(id), http.StatusNotFound},
		{customErrors.WrapFeeNotFound(id), http.StatusNotFound},
		{customErrors.WrapInvalidPaymentAmount("0"), http.StatusBadRequest},
		{customErrors.WrapLoanNotActive(id, domain.LoanStatusSettled), http.StatusConflict},
		{customErrors.WrapFeeNotActive(id), http.StatusConflict},
		{customErrors.WrapConcurrencyConflict(id, 3), http.StatusConflict},
		{customErrors.WrapLockNotAcquired(id), http.StatusConflict},
		{customErrors.WrapDatabaseError(context.DeadlineExceeded), http.StatusServiceUnavailable},
		{customErrors.WrapDatabaseError(errors.New("syntax error")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, statusFor(tt.err), tt.err.Error())
	}
}

func TestHealthHandler(t *testing.T) {
	db, err := repository.Open(context.Background(), config.DatabaseConfig{
		Driver: repository.DriverSQLite,
		URL:    "file:" + filepath.Join(t.TempDir(), "health.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	t.Run("liveness", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewHealthHandler(db, nil, time.Second).Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ready without redis", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewHealthHandler(db, nil, time.Second).Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		var status HealthStatus
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &status))
		assert.Equal(t, "ok", status.Checks["database"])
		assert.Equal(t, "disabled", status.Checks["redis"])
	})

	t.Run("redis unreachable", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
		defer client.Close()

		w := httptest.NewRecorder()
		NewHealthHandler(db, client, time.Second).Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var status HealthStatus
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &status))
		assert.Equal(t, "error", status.Status)
		assert.Contains(t, status.Checks["redis"], "failed")
	})
}
