package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/repayment-ledger/internal/cache"
	"github.com/segyhp/repayment-ledger/internal/config"
	"github.com/segyhp/repayment-ledger/internal/domain"
	"github.com/segyhp/repayment-ledger/internal/repository"
)

var jakarta = mustLocation("Asia/Jakarta")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type testEnv struct {
	db          *sqlx.DB
	loans       repository.LoanRepository
	accruals    repository.AccrualRepository
	quotes      repository.SettlementRepository
	ledger      repository.LedgerRepository
	policies    repository.PolicyRepository
	generator   *ScheduleGenerator
	processor   *FeeAccrualProcessor
	settlements *SettlementService
	payments    *PaymentService
	audit       *AuditTrail
	now         time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := repository.Open(context.Background(), config.DatabaseConfig{
		Driver:      repository.DriverSQLite,
		URL:         "file:" + path + "?_foreign_keys=on",
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:       db,
		loans:    repository.NewLoanRepository(db),
		accruals: repository.NewAccrualRepository(db),
		quotes:   repository.NewSettlementRepository(db),
		ledger:   repository.NewLedgerRepository(db),
		policies: repository.NewPolicyRepository(db),
		now:      time.Date(2024, time.January, 15, 9, 0, 0, 0, jakarta),
	}
	env.generator = NewScheduleGenerator(env.loans, env.policies, jakarta)
	env.processor = NewFeeAccrualProcessor(env.loans, env.accruals, env.policies)
	env.settlements = NewSettlementService(env.loans, env.quotes, env.policies, cache.NewLocalLocker(), 24*time.Hour, jakarta)
	env.payments = NewPaymentService(env.loans, repository.NewPaymentRepository(db))
	env.audit = NewAuditTrail(env.ledger)

	clock := func() time.Time { return env.now }
	env.generator.now = clock
	env.processor.now = clock
	env.settlements.now = clock
	env.payments.now = clock
	env.audit.now = clock

	require.NoError(t, env.policies.UpsertPolicy(context.Background(), dailyOnePercent()))
	return env
}

// dailyOnePercent charges 1% of the unpaid installment every overdue day.
func dailyOnePercent() *domain.ProductPolicy {
	return &domain.ProductPolicy{
		ProductCode:          "PERSONAL",
		LateFeeType:          domain.LateFeeTypeRate,
		LateFeeRate:          decimal.RequireFromString("0.01"),
		LateFeeFrequencyDays: 1,
	}
}

func (e *testEnv) fundLoan(t *testing.T, product, principal, rate string, months int, funded domain.Date) *domain.CreateLoanResponse {
	t.Helper()
	resp, err := e.generator.CreateLoan(context.Background(), &domain.CreateLoanRequest{
		ProductCode:        product,
		PrincipalAmount:    decimal.RequireFromString(principal),
		AnnualInterestRate: decimal.RequireFromString(rate),
		TermMonths:         months,
		FundingDate:        funded,
		Actor:              "ops",
	})
	require.NoError(t, err)
	return resp
}

func (e *testEnv) run(t *testing.T, asOf domain.Date) *domain.RunSummary {
	t.Helper()
	summary, err := e.processor.Run(context.Background(), AccrualOptions{
		AsOf:              asOf,
		Workers:           3,
		CallTimeout:       5 * time.Second,
		MaxVersionRetries: 3,
		LoanRetries:       1,
		Location:          jakarta,
	})
	require.NoError(t, err)
	return summary
}

func (e *testEnv) repayment(t *testing.T, id uuid.UUID) *domain.Repayment {
	t.Helper()
	rp, err := e.loans.GetRepayment(context.Background(), id)
	require.NoError(t, err)
	return rp
}

func (e *testEnv) entries(t *testing.T, loanID uuid.UUID) []*domain.LedgerEntry {
	t.Helper()
	entries, err := e.ledger.List(context.Background(), domain.LedgerFilter{LoanID: &loanID})
	require.NoError(t, err)
	return entries
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
