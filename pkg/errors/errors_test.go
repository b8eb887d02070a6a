package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("select loans: %w", context.DeadlineExceeded), true},
		{"bad conn", driver.ErrBadConn, true},
		{"sentinel", ErrTransientStorage, true},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("syntax error at or near"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}
}

func TestWrapDatabaseError(t *testing.T) {
	transient := WrapDatabaseError(fmt.Errorf("ping: %w", driver.ErrBadConn))
	assert.Equal(t, ErrCodeTransientStorage, transient.Code)
	assert.ErrorIs(t, transient, ErrTransientStorage)
	assert.ErrorIs(t, transient, driver.ErrBadConn)
	assert.True(t, IsTransient(transient))

	permanent := WrapDatabaseError(errors.New("constraint violated"))
	assert.Equal(t, ErrCodeDatabaseError, permanent.Code)
	assert.False(t, IsTransient(permanent))
}

func TestBusinessErrorUnwrap(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		err      *BusinessError
		sentinel error
		code     string
	}{
		{WrapLoanNotFound(id), ErrLoanNotFound, ErrCodeLoanNotFound},
		{WrapQuoteExpired(id), ErrQuoteExpired, ErrCodeQuoteExpired},
		{WrapPendingQuoteExists(id), ErrPendingQuoteExists, ErrCodePendingQuoteExists},
		{WrapFeeNotActive(id), ErrFeeNotActive, ErrCodeFeeNotActive},
		{WrapInvalidLoanTerms("term must be positive"), ErrInvalidLoanTerms, ErrCodeInvalidLoanTerms},
		{WrapPaymentExceedsBalance("10.00", "5.00"), ErrPaymentExceedsBalance, ErrCodePaymentExceedsBalance},
		{WrapConcurrencyConflict(id, 3), ErrConcurrencyConflict, ErrCodeConcurrencyConflict},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.code, Code(wrapped))
			assert.Contains(t, tt.err.Error(), tt.code)
		})
	}
}

func TestCode_NotBusinessError(t *testing.T) {
	assert.Equal(t, "", Code(errors.New("boom")))
	assert.Equal(t, "", Code(nil))
}
