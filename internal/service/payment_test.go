package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/repayment-ledger/internal/domain"
	customErrors "github.com/segyhp/repayment-ledger/pkg/errors"
)

func TestPostPayment_AllocatesInDueOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := env.fundLoan(t, "PERSONAL", "900.00", "0", 3, domain.NewDate(2024, time.January, 15))

	payment, err := env.payments.PostPayment(ctx, resp.Loan.ID, &domain.MakePaymentRequest{
		Amount: decimal.RequireFromString("450.00"),
		Actor:  "teller-2",
	})
	require.NoError(t, err)

	require.Len(t, payment.Allocations, 2)
	assert.Equal(t, 1, payment.Allocations[0].InstallmentNumber)
	assertDecimal(t, "300.00", payment.Allocations[0].Amount)
	assert.Equal(t, domain.RepaymentStatusPaid, payment.Allocations[0].Status)
	assert.Equal(t, 2, payment.Allocations[1].InstallmentNumber)
	assertDecimal(t, "150.00", payment.Allocations[1].Amount)
	assert.Equal(t, domain.RepaymentStatusPartial, payment.Allocations[1].Status)
	assert.Equal(t, domain.LoanStatusActive, payment.LoanStatus)

	second := env.repayment(t, resp.Schedule[1].ID)
	assertDecimal(t, "150.00", second.AmountPaid)
	assert.Equal(t, int64(2), second.Version)
	assert.Equal(t, domain.RepaymentStatusPending, env.repayment(t, resp.Schedule[2].ID).Status)

	require.NotNil(t, payment.LedgerEntry)
	assert.Equal(t, domain.LedgerKindPayment, payment.LedgerEntry.Kind)
	assert.Equal(t, "teller-2", payment.LedgerEntry.Actor)
}

func TestPostPayment_DischargesWithoutTouchingFees(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := env.fundLoan(t, "PERSONAL", "500.00", "0", 1, domain.NewDate(2024, time.January, 1))
	env.run(t, domain.NewDate(2024, time.February, 2))

	_, err := env.payments.PostPayment(ctx, resp.Loan.ID, &domain.MakePaymentRequest{Amount: decimal.RequireFromString("505.01")})
	assert.ErrorIs(t, err, customErrors.ErrPaymentExceedsBalance)

	payment, err := env.payments.PostPayment(ctx, resp.Loan.ID, &domain.MakePaymentRequest{Amount: decimal.RequireFromString("505.00")})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDischarged, payment.LoanStatus)

	rp := env.repayment(t, resp.Schedule[0].ID)
	assert.Equal(t, domain.RepaymentStatusPaid, rp.Status)
	assertDecimal(t, "5.00", rp.FeeDue)
	assertDecimal(t, "505.00", rp.AmountPaid)

	loan, err := env.loans.GetByID(ctx, resp.Loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDischarged, loan.Status)

	summary := env.run(t, domain.NewDate(2024, time.February, 3))
	assert.Zero(t, summary.LoansScanned)

	_, err = env.payments.PostPayment(ctx, resp.Loan.ID, &domain.MakePaymentRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, customErrors.ErrLoanNotActive)
}

func TestPostPayment_InvalidAmounts(t *testing.T) {
	env := newTestEnv(t)
	resp := env.fundLoan(t, "PERSONAL", "500.00", "0", 1, domain.NewDate(2024, time.January, 1))

	for _, amount := range []string{"0", "-10", "1.001"} {
		t.Run(amount, func(t *testing.T) {
			_, err := env.payments.PostPayment(context.Background(), resp.Loan.ID, &domain.MakePaymentRequest{
				Amount: decimal.RequireFromString(amount),
			})
			assert.ErrorIs(t, err, customErrors.ErrInvalidPaymentAmount)
		})
	}

	_, err := env.payments.PostPayment(context.Background(), uuid.New(), &domain.MakePaymentRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, customErrors.ErrLoanNotFound)
}

func TestPostPayment_SettledLoanRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := fundedWithLateFee(t, env)

	quote, err := env.settlements.RequestQuote(ctx, resp.Loan.ID, nil)
	require.NoError(t, err)
	_, err = env.settlements.Approve(ctx, quote.ID, &domain.QuoteDecisionRequest{})
	require.NoError(t, err)

	_, err = env.payments.PostPayment(ctx, resp.Loan.ID, &domain.MakePaymentRequest{Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, customErrors.ErrLoanNotActive)
}
