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
)

// PaymentService posts borrower payments against a loan's schedule.
type PaymentService struct {
	loans    repository.LoanRepository
	payments repository.PaymentRepository
	retries  int
	now      Clock
}

func NewPaymentService(loans repository.LoanRepository, payments repository.PaymentRepository) *PaymentService {
	return &PaymentService{
		loans:    loans,
		payments: payments,
		retries:  defaultMaxVersionRetries,
		now:      time.Now,
	}
}

// PostPayment allocates amount to the earliest open installments. Fees are
// paid like any other part of an installment but feeDue itself is never
// changed. Each touched installment is written conditionally on its version;
// on a conflict the whole read-allocate-write cycle is retried.
func (s *PaymentService) PostPayment(ctx context.Context, loanID uuid.UUID, req *domain.MakePaymentRequest) (*domain.Payment, error) {
	amount := req.Amount
	if !amount.IsPositive() || amount.Exponent() < -2 {
		return nil, customErrors.WrapInvalidPaymentAmount(amount.String())
	}
	actor := actorOrSystem(req.Actor)

	var lastConflict uuid.UUID
	for attempt := 1; attempt <= s.retries; attempt++ {
		loan, err := s.loans.GetByID(ctx, loanID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, customErrors.WrapLoanNotFound(loanID)
			}
			return nil, dbError(err)
		}
		if !loan.IsActive() {
			return nil, customErrors.WrapLoanNotActive(loanID, loan.Status)
		}

		schedule, err := s.loans.GetSchedule(ctx, loanID)
		if err != nil {
			return nil, dbError(err)
		}

		payment, touched, err := allocate(loan, schedule, amount)
		if err != nil {
			return nil, err
		}

		now := s.now()
		payment.LedgerEntry = domain.NewLedgerEntry(loanID, nil, domain.LedgerKindPayment, amount, actor,
			fmt.Sprintf("payment across %d installment(s)", len(touched)), now)

		err = s.payments.ApplyPayment(ctx, loan, touched, payment.LedgerEntry)
		switch {
		case err == nil:
			log.Info().
				Str("loan_id", loanID.String()).
				Str("amount", amount.StringFixed(2)).
				Str("loan_status", loan.Status).
				Msg("payment posted")
			return payment, nil
		case errors.Is(err, repository.ErrVersionConflict), errors.Is(err, repository.ErrStateChanged):
			lastConflict = touched[0].ID
		default:
			return nil, dbError(err)
		}
	}
	return nil, customErrors.WrapConcurrencyConflict(lastConflict, s.retries)
}

// allocate spreads amount over the open installments in order and returns
// the mutated copies to persist. loan.Status becomes DISCHARGED when nothing
// remains unpaid.
func allocate(loan *domain.Loan, schedule []*domain.Repayment, amount decimal.Decimal) (*domain.Payment, []*domain.Repayment, error) {
	outstanding := decimal.Zero
	for _, rp := range schedule {
		if rp.IsOpen() {
			outstanding = outstanding.Add(rp.Outstanding())
		}
	}
	if amount.GreaterThan(outstanding) {
		return nil, nil, customErrors.WrapPaymentExceedsBalance(amount.StringFixed(2), outstanding.StringFixed(2))
	}

	payment := &domain.Payment{LoanID: loan.ID, Amount: amount}
	var touched []*domain.Repayment
	remaining := amount
	for _, rp := range schedule {
		if !remaining.IsPositive() {
			break
		}
		if !rp.IsOpen() || !rp.Outstanding().IsPositive() {
			continue
		}

		portion := decimal.Min(remaining, rp.Outstanding())
		next := *rp
		next.AmountPaid = rp.AmountPaid.Add(portion)
		if next.Outstanding().IsZero() {
			next.Status = domain.RepaymentStatusPaid
		} else {
			next.Status = domain.RepaymentStatusPartial
		}
		remaining = remaining.Sub(portion)

		touched = append(touched, &next)
		payment.Allocations = append(payment.Allocations, domain.PaymentAllocation{
			RepaymentID:       rp.ID,
			InstallmentNumber: rp.InstallmentNumber,
			Amount:            portion,
			Status:            next.Status,
		})
	}

	if amount.Equal(outstanding) && allPaid(schedule, touched) {
		loan.Status = domain.LoanStatusDischarged
	}
	payment.LoanStatus = loan.Status
	return payment, touched, nil
}

func allPaid(schedule, touched []*domain.Repayment) bool {
	updated := make(map[uuid.UUID]string, len(touched))
	for _, rp := range touched {
		updated[rp.ID] = rp.Status
	}
	for _, rp := range schedule {
		status := rp.Status
		if s, ok := updated[rp.ID]; ok {
			status = s
		}
		if status != domain.RepaymentStatusPaid {
			return false
		}
	}
	return true
}
