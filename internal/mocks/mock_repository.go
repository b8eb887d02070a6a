package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/repayment-ledger/internal/domain"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) CreateWithSchedule(ctx context.Context, loan *domain.Loan, schedule []*domain.Repayment, entry *domain.LedgerEntry) error {
	args := m.Called(ctx, loan, schedule, entry)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockLoanRepository) GetSchedule(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Repayment), args.Error(1)
}

func (m *MockLoanRepository) GetRepayment(ctx context.Context, id uuid.UUID) (*domain.Repayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Repayment), args.Error(1)
}

type MockAccrualRepository struct {
	mock.Mock
}

func (m *MockAccrualRepository) HasFee(ctx context.Context, repaymentID uuid.UUID, date domain.Date) (bool, error) {
	args := m.Called(ctx, repaymentID, date)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccrualRepository) AccrueFee(ctx context.Context, fee *domain.LateFee, repayment *domain.Repayment, entry *domain.LedgerEntry) error {
	args := m.Called(ctx, fee, repayment, entry)
	return args.Error(0)
}

func (m *MockAccrualRepository) WaiveFee(ctx context.Context, fee *domain.LateFee, repayment *domain.Repayment, entry *domain.LedgerEntry) error {
	args := m.Called(ctx, fee, repayment, entry)
	return args.Error(0)
}

func (m *MockAccrualRepository) GetFee(ctx context.Context, id uuid.UUID) (*domain.LateFee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LateFee), args.Error(1)
}

func (m *MockAccrualRepository) ListFees(ctx context.Context, repaymentID uuid.UUID) ([]*domain.LateFee, error) {
	args := m.Called(ctx, repaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LateFee), args.Error(1)
}

func (m *MockAccrualRepository) SaveRun(ctx context.Context, run *domain.AccrualRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockAccrualRepository) GetRun(ctx context.Context, date domain.Date) (*domain.AccrualRun, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccrualRun), args.Error(1)
}

func (m *MockAccrualRepository) RecordScan(ctx context.Context, scan *domain.AccrualScan) error {
	args := m.Called(ctx, scan)
	return args.Error(0)
}

func (m *MockAccrualRepository) ListScans(ctx context.Context, date domain.Date) ([]*domain.AccrualScan, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AccrualScan), args.Error(1)
}

type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) GetPolicy(ctx context.Context, productCode string) (*domain.ProductPolicy, error) {
	args := m.Called(ctx, productCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductPolicy), args.Error(1)
}

func (m *MockPolicyRepository) UpsertPolicy(ctx context.Context, policy *domain.ProductPolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}
