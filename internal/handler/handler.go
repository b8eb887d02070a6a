package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/segyhp/repayment-ledger/internal/domain"
	customErrors "github.com/segyhp/repayment-ledger/pkg/errors"
	"github.com/segyhp/repayment-ledger/pkg/response"
)

type LoanService interface {
	CreateLoan(ctx context.Context, req *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error)
	GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error)
}

type PaymentService interface {
	PostPayment(ctx context.Context, loanID uuid.UUID, req *domain.MakePaymentRequest) (*domain.Payment, error)
}

type FeeService interface {
	WaiveFee(ctx context.Context, feeID uuid.UUID, req *domain.WaiveFeeRequest) (*domain.LateFee, error)
}

type SettlementService interface {
	RequestQuote(ctx context.Context, loanID uuid.UUID, asOf *domain.Date) (*domain.SettlementQuote, error)
	GetQuote(ctx context.Context, quoteID uuid.UUID) (*domain.SettlementQuote, error)
	Approve(ctx context.Context, quoteID uuid.UUID, req *domain.QuoteDecisionRequest) (*domain.Loan, error)
	Reject(ctx context.Context, quoteID uuid.UUID, req *domain.RejectQuoteRequest) (*domain.SettlementQuote, error)
}

type AuditService interface {
	List(ctx context.Context, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error)
	Export(ctx context.Context, filter domain.LedgerFilter, w io.Writer) (int, error)
}

// Handler exposes the engine's operations over HTTP. It holds no logic of
// its own beyond decoding, validation and error mapping.
type Handler struct {
	loans       LoanService
	payments    PaymentService
	fees        FeeService
	settlements SettlementService
	audit       AuditService
	validator   *validator.Validate
	loc         *time.Location
}

func NewHandler(
	loans LoanService,
	payments PaymentService,
	fees FeeService,
	settlements SettlementService,
	audit AuditService,
	loc *time.Location,
) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		loans:       loans,
		payments:    payments,
		fees:        fees,
		settlements: settlements,
		audit:       audit,
		validator:   newValidator(),
		loc:         loc,
	}
}

// newValidator registers decimal.Decimal as a string-valued type so the
// decimal_gt0 and decimal_gte0 tags can inspect it.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_gt0", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	_ = v.RegisterValidation("decimal_gte0", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
	return v
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted when allowEmpty is set.
func (h *Handler) decode(r *http.Request, dst interface{}, allowEmpty bool) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return fmt.Errorf("invalid request body: %w", err)
		}
	}
	if err := h.validator.Struct(dst); err != nil {
		return err
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// statusFor maps a business error code onto an HTTP status.
func statusFor(err error) int {
	switch customErrors.Code(err) {
	case customErrors.ErrCodeLoanNotFound,
		customErrors.ErrCodeQuoteNotFound,
		customErrors.ErrCodeFeeNotFound:
		return http.StatusNotFound
	case customErrors.ErrCodeInvalidLoanTerms,
		customErrors.ErrCodeInvalidPaymentAmount,
		customErrors.ErrCodeInvalidLedgerEntry:
		return http.StatusBadRequest
	case customErrors.ErrCodeLoanNotActive,
		customErrors.ErrCodeQuoteExpired,
		customErrors.ErrCodeQuoteNotPending,
		customErrors.ErrCodePendingQuoteExists,
		customErrors.ErrCodeFeeNotActive,
		customErrors.ErrCodeConcurrencyConflict,
		customErrors.ErrCodeLockNotAcquired:
		return http.StatusConflict
	case customErrors.ErrCodePaymentExceedsBalance,
		customErrors.ErrCodeConfiguration:
		return http.StatusUnprocessableEntity
	case customErrors.ErrCodeTransientStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(message)
	}
	response.Error(w, status, message, err)
}
