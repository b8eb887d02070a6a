package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
)

// Domain errors
var (
	ErrLoanNotFound          = errors.New("loan not found")
	ErrLoanNotActive         = errors.New("loan is not active")
	ErrInvalidLoanTerms      = errors.New("invalid loan terms")
	ErrConfiguration         = errors.New("invalid product configuration")
	ErrConcurrencyConflict   = errors.New("concurrent modification detected")
	ErrTransientStorage      = errors.New("transient storage failure")
	ErrQuoteNotFound         = errors.New("settlement quote not found")
	ErrQuoteExpired          = errors.New("settlement quote expired")
	ErrQuoteNotPending       = errors.New("settlement quote is not pending")
	ErrPendingQuoteExists    = errors.New("loan already has a pending settlement quote")
	ErrFeeNotFound           = errors.New("late fee not found")
	ErrFeeNotActive          = errors.New("late fee is not active")
	ErrInvalidPaymentAmount  = errors.New("invalid payment amount")
	ErrPaymentExceedsBalance = errors.New("payment exceeds outstanding balance")
	ErrLockNotAcquired       = errors.New("loan is locked by another operation")
	ErrInvalidLedgerEntry    = errors.New("invalid ledger entry")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound          = "LOAN_NOT_FOUND"
	ErrCodeLoanNotActive         = "LOAN_NOT_ACTIVE"
	ErrCodeInvalidLoanTerms      = "INVALID_LOAN_TERMS"
	ErrCodeConfiguration         = "CONFIGURATION_ERROR"
	ErrCodeConcurrencyConflict   = "CONCURRENCY_CONFLICT"
	ErrCodeTransientStorage      = "TRANSIENT_STORAGE_ERROR"
	ErrCodeQuoteNotFound         = "QUOTE_NOT_FOUND"
	ErrCodeQuoteExpired          = "QUOTE_EXPIRED"
	ErrCodeQuoteNotPending       = "QUOTE_NOT_PENDING"
	ErrCodePendingQuoteExists    = "PENDING_QUOTE_EXISTS"
	ErrCodeFeeNotFound           = "FEE_NOT_FOUND"
	ErrCodeFeeNotActive          = "FEE_NOT_ACTIVE"
	ErrCodeInvalidPaymentAmount  = "INVALID_PAYMENT_AMOUNT"
	ErrCodePaymentExceedsBalance = "PAYMENT_EXCEEDS_BALANCE"
	ErrCodeLockNotAcquired       = "LOCK_NOT_ACQUIRED"
	ErrCodeInvalidLedgerEntry    = "INVALID_LEDGER_ENTRY"
	ErrCodeDatabaseError         = "DATABASE_ERROR"
	ErrCodeCacheError            = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapLoanNotFound(loanID uuid.UUID) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanNotActive(loanID uuid.UUID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotActive,
		fmt.Sprintf("Loan with ID %s is %s", loanID, status),
		ErrLoanNotActive,
	)
}

func WrapInvalidLoanTerms(reason string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidLoanTerms, reason, ErrInvalidLoanTerms)
}

func WrapConfiguration(productCode, reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeConfiguration,
		fmt.Sprintf("product %q: %s", productCode, reason),
		ErrConfiguration,
	)
}

func WrapConcurrencyConflict(repaymentID uuid.UUID, attempts int) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrencyConflict,
		fmt.Sprintf("repayment %s changed concurrently, gave up after %d attempts", repaymentID, attempts),
		ErrConcurrencyConflict,
	)
}

func WrapQuoteNotFound(quoteID uuid.UUID) *BusinessError {
	return NewBusinessError(
		ErrCodeQuoteNotFound,
		fmt.Sprintf("Settlement quote %s not found", quoteID),
		ErrQuoteNotFound,
	)
}

func WrapQuoteExpired(quoteID uuid.UUID) *BusinessError {
	return NewBusinessError(
		ErrCodeQuoteExpired,
		fmt.Sprintf("Settlement quote %s is past its validity window", quoteID),
		ErrQuoteExpired,
	)
}

func WrapQuoteNotPending(quoteID uuid.UUID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeQuoteNotPending,
		fmt.Sprintf("Settlement quote %s is %s", quoteID, status),
		ErrQuoteNotPending,
	)
}

func WrapPendingQuoteExists(loanID uuid.UUID) *BusinessError {
	return NewBusinessError(
		ErrCodePendingQuoteExists,
		fmt.Sprintf("Loan with ID %s already has a pending settlement quote", loanID),
		ErrPendingQuoteExists,
	)
}

func WrapFeeNotFound(feeID uuid.UUID) *BusinessError {
	return NewBusinessError(
		ErrCodeFeeNotFound,
		fmt.Sprintf("Late fee %s not found", feeID),
		ErrFeeNotFound,
	)
}

func WrapFeeNotActive(feeID uuid.UUID) *BusinessError {
	return NewBusinessError(
		ErrCodeFeeNotActive,
		fmt.Sprintf("Late fee %s is already waived", feeID),
		ErrFeeNotActive,
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapPaymentExceedsBalance(amount, outstanding string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentExceedsBalance,
		fmt.Sprintf("Payment amount %s exceeds outstanding balance %s", amount, outstanding),
		ErrPaymentExceedsBalance,
	)
}

func WrapLockNotAcquired(loanID uuid.UUID) *BusinessError {
	return NewBusinessError(
		ErrCodeLockNotAcquired,
		fmt.Sprintf("Loan with ID %s is busy, retry later", loanID),
		ErrLockNotAcquired,
	)
}

func WrapInvalidLedgerEntry(reason string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidLedgerEntry, reason, ErrInvalidLedgerEntry)
}

func WrapDatabaseError(err error) *BusinessError {
	if IsTransient(err) {
		return NewBusinessError(
			ErrCodeTransientStorage,
			"database temporarily unavailable",
			errors.Join(ErrTransientStorage, err),
		)
	}
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// IsTransient reports whether err is worth retrying: timeouts, dropped
// connections and network failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransientStorage) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Code extracts the business error code, or "" when err is not a BusinessError.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
