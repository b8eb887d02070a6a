package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/segyhp/repayment-ledger/internal/domain"
	"github.com/segyhp/repayment-ledger/internal/repository"
	customErrors "github.com/segyhp/repayment-ledger/pkg/errors"
	"github.com/segyhp/repayment-ledger/pkg/utils"
)

// ScheduleGenerator turns a funded loan into its amortization schedule.
type ScheduleGenerator struct {
	loans    repository.LoanRepository
	policies repository.PolicyRepository
	loc      *time.Location
	now      Clock
}

func NewScheduleGenerator(loans repository.LoanRepository, policies repository.PolicyRepository, loc *time.Location) *ScheduleGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleGenerator{
		loans:    loans,
		policies: policies,
		loc:      loc,
		now:      time.Now,
	}
}

// Generate builds the loan and its installments without persisting them.
//
// Flat-rate interest: totalInterest = P × rate/100 × term/12. Every
// installment is round2(total/N), split between principal and interest in
// proportion to the loan totals; the final installment absorbs the rounding
// remainders. Due dates are fundingDate + i calendar months, clamped to the
// last day of short months.
func (g *ScheduleGenerator) Generate(req *domain.CreateLoanRequest) (*domain.Loan, []*domain.Repayment, error) {
	if req.TermMonths <= 0 {
		return nil, nil, customErrors.WrapInvalidLoanTerms(fmt.Sprintf("term must be positive, got %d months", req.TermMonths))
	}
	if !req.PrincipalAmount.IsPositive() {
		return nil, nil, customErrors.WrapInvalidLoanTerms(fmt.Sprintf("principal must be positive, got %s", req.PrincipalAmount))
	}
	if req.AnnualInterestRate.IsNegative() {
		return nil, nil, customErrors.WrapInvalidLoanTerms(fmt.Sprintf("interest rate must not be negative, got %s", req.AnnualInterestRate))
	}
	if req.PrincipalAmount.Exponent() < -2 {
		return nil, nil, customErrors.WrapInvalidLoanTerms("principal has more than two decimal places")
	}

	now := g.now()
	fundingDate := req.FundingDate
	if fundingDate.IsZero() {
		fundingDate = domain.DateIn(now, g.loc)
	}

	principal := req.PrincipalAmount
	interest := utils.CalculateFlatInterest(principal, req.AnnualInterestRate, req.TermMonths)
	total := principal.Add(interest)

	splits := utils.SplitInstallments(principal, interest, req.TermMonths)
	last := splits[len(splits)-1]
	if !last.Principal.Add(last.Interest).IsPositive() {
		return nil, nil, customErrors.WrapInvalidLoanTerms(
			fmt.Sprintf("final installment would be %s after rounding %s over %d months",
				last.Principal.Add(last.Interest), total, req.TermMonths))
	}

	loanID := uuid.New()
	if req.ID != nil {
		loanID = *req.ID
	}

	loan := &domain.Loan{
		ID:                 loanID,
		ProductCode:        req.ProductCode,
		PrincipalAmount:    principal,
		AnnualInterestRate: req.AnnualInterestRate,
		TermMonths:         req.TermMonths,
		TotalAmount:        total,
		FundingDate:        fundingDate,
		Status:             domain.LoanStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	schedule := make([]*domain.Repayment, 0, req.TermMonths)
	for i, split := range splits {
		schedule = append(schedule, &domain.Repayment{
			ID:                uuid.New(),
			LoanID:            loanID,
			InstallmentNumber: i + 1,
			DueDate:           fundingDate.AddMonths(i + 1),
			PrincipalDue:      split.Principal,
			InterestDue:       split.Interest,
			FeeDue:            decimal.Zero,
			AmountPaid:        decimal.Zero,
			Status:            domain.RepaymentStatusPending,
			Version:           1,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	return loan, schedule, nil
}

// CreateLoan generates the schedule and persists the loan, every installment
// and the disbursement entry atomically.
func (g *ScheduleGenerator) CreateLoan(ctx context.Context, req *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	if _, err := g.policies.GetPolicy(ctx, req.ProductCode); err != nil {
		if errors.Is(err, repository.ErrPolicyNotFound) {
			return nil, customErrors.WrapConfiguration(req.ProductCode, "product is not configured")
		}
		return nil, dbError(err)
	}

	loan, schedule, err := g.Generate(req)
	if err != nil {
		return nil, err
	}

	entry := domain.NewLedgerEntry(loan.ID, nil, domain.LedgerKindDisbursement, loan.PrincipalAmount,
		req.Actor, fmt.Sprintf("funded %s over %d months", loan.TotalAmount.StringFixed(2), loan.TermMonths), loan.CreatedAt)

	if err := g.loans.CreateWithSchedule(ctx, loan, schedule, entry); err != nil {
		return nil, dbError(err)
	}

	log.Info().
		Str("loan_id", loan.ID.String()).
		Str("principal", loan.PrincipalAmount.StringFixed(2)).
		Str("total", loan.TotalAmount.StringFixed(2)).
		Int("installments", len(schedule)).
		Msg("loan funded")

	return &domain.CreateLoanResponse{Loan: loan, Schedule: schedule}, nil
}

// GetSchedule returns the loan's installments in order.
func (g *ScheduleGenerator) GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error) {
	if _, err := g.loans.GetByID(ctx, loanID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, customErrors.WrapLoanNotFound(loanID)
		}
		return nil, dbError(err)
	}

	schedule, err := g.loans.GetSchedule(ctx, loanID)
	if err != nil {
		return nil, dbError(err)
	}
	return &domain.ScheduleResponse{LoanID: loanID, Schedule: schedule}, nil
}
