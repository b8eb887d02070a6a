package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/repayment-ledger/internal/domain"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, req *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreateLoanResponse), args.Error(1)
}

func (m *MockLoanService) GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduleResponse), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) PostPayment(ctx context.Context, loanID uuid.UUID, req *domain.MakePaymentRequest) (*domain.Payment, error) {
	args := m.Called(ctx, loanID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

type MockFeeService struct {
	mock.Mock
}

func (m *MockFeeService) WaiveFee(ctx context.Context, feeID uuid.UUID, req *domain.WaiveFeeRequest) (*domain.LateFee, error) {
	args := m.Called(ctx, feeID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LateFee), args.Error(1)
}

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) RequestQuote(ctx context.Context, loanID uuid.UUID, asOf *domain.Date) (*domain.SettlementQuote, error) {
	args := m.Called(ctx, loanID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementQuote), args.Error(1)
}

func (m *MockSettlementService) GetQuote(ctx context.Context, quoteID uuid.UUID) (*domain.SettlementQuote, error) {
	args := m.Called(ctx, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementQuote), args.Error(1)
}

func (m *MockSettlementService) Approve(ctx context.Context, quoteID uuid.UUID, req *domain.QuoteDecisionRequest) (*domain.Loan, error) {
	args := m.Called(ctx, quoteID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockSettlementService) Reject(ctx context.Context, quoteID uuid.UUID, req *domain.RejectQuoteRequest) (*domain.SettlementQuote, error) {
	args := m.Called(ctx, quoteID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementQuote), args.Error(1)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) List(ctx context.Context, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LedgerEntry), args.Error(1)
}

// Export writes the bytes given as the first return value to w.
func (m *MockAuditService) Export(ctx context.Context, filter domain.LedgerFilter, w io.Writer) (int, error) {
	args := m.Called(ctx, filter, w)
	if b, ok := args.Get(0).([]byte); ok {
		if _, err := w.Write(b); err != nil {
			return 0, err
		}
	}
	return args.Int(1), args.Error(2)
}
