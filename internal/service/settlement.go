package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/segyhp/repayment-ledger/internal/cache"
	"github.com/segyhp/repayment-ledger/internal/domain"
	"github.com/segyhp/repayment-ledger/internal/repository"
	customErrors "github.com/segyhp/repayment-ledger/pkg/errors"
	"github.com/segyhp/repayment-ledger/pkg/utils"
)

const defaultQuoteValidity = 24 * time.Hour

// SettlementService computes early payoff quotes and applies their
// approve/reject transitions. Transitions are serialized per loan.
type SettlementService struct {
	loans    repository.LoanRepository
	quotes   repository.SettlementRepository
	policies repository.PolicyRepository
	locker   cache.Locker
	validity time.Duration
	loc      *time.Location
	lockWait time.Duration
	now      Clock
}

func NewSettlementService(
	loans repository.LoanRepository,
	quotes repository.SettlementRepository,
	policies repository.PolicyRepository,
	locker cache.Locker,
	validity time.Duration,
	loc *time.Location,
) *SettlementService {
	if validity <= 0 {
		validity = defaultQuoteValidity
	}
	if loc == nil {
		loc = time.UTC
	}
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	return &SettlementService{
		loans:    loans,
		quotes:   quotes,
		policies: policies,
		locker:   locker,
		validity: validity,
		loc:      loc,
		lockWait: defaultLockWait,
		now:      time.Now,
	}
}

// RequestQuote prices an early payoff of the loan as of asOf (today when
// nil) and stores it as the loan's single PENDING quote.
//
// payoff = Σ outstanding of unpaid, unsettled installments − rebate, where
// rebate = rebateRate × Σ interestDue of installments due after asOf.
func (s *SettlementService) RequestQuote(ctx context.Context, loanID uuid.UUID, asOf *domain.Date) (*domain.SettlementQuote, error) {
	release, err := s.lock(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer release()

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

	now := s.now()
	if err := s.expireIfStale(ctx, loanID, now); err != nil {
		return nil, err
	}

	day := domain.DateIn(now, s.loc)
	if asOf != nil && !asOf.IsZero() {
		day = *asOf
	}

	schedule, err := s.loans.GetSchedule(ctx, loanID)
	if err != nil {
		return nil, dbError(err)
	}

	policy, err := s.policies.GetPolicy(ctx, loan.ProductCode)
	if err != nil && !errors.Is(err, repository.ErrPolicyNotFound) {
		return nil, dbError(err)
	}

	outstanding, futureInterest := decimal.Zero, decimal.Zero
	for _, rp := range schedule {
		if rp.Status == domain.RepaymentStatusPaid || rp.IsSettled() {
			continue
		}
		outstanding = outstanding.Add(rp.Outstanding())
		if rp.DueDate.After(day) {
			futureInterest = futureInterest.Add(rp.InterestDue)
		}
	}

	rebate := utils.RoundCurrency(policy.RebateRate().Mul(futureInterest))
	payoff := outstanding.Sub(rebate)
	if payoff.IsNegative() {
		payoff = decimal.Zero
	}

	quote := &domain.SettlementQuote{
		ID:           uuid.New(),
		LoanID:       loanID,
		PayoffAmount: utils.RoundCurrency(payoff),
		RebateAmount: rebate,
		AsOfDate:     day,
		ComputedAt:   now,
		ValidUntil:   now.Add(s.validity),
		Status:       domain.QuoteStatusPending,
	}
	if err := s.quotes.CreateQuote(ctx, quote); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, customErrors.WrapPendingQuoteExists(loanID)
		}
		return nil, dbError(err)
	}

	log.Info().
		Str("loan_id", loanID.String()).
		Str("quote_id", quote.ID.String()).
		Str("payoff", quote.PayoffAmount.StringFixed(2)).
		Str("rebate", quote.RebateAmount.StringFixed(2)).
		Time("valid_until", quote.ValidUntil).
		Msg("settlement quote issued")

	return quote, nil
}

// Approve closes the loan at the quoted payoff. A quote past its validity
// window fails with QuoteExpired, any other non-PENDING quote with
// QuoteNotPending; neither performs a mutation.
func (s *SettlementService) Approve(ctx context.Context, quoteID uuid.UUID, req *domain.QuoteDecisionRequest) (*domain.Loan, error) {
	quote, release, err := s.lockedQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	switch quote.EffectiveStatus(now) {
	case domain.QuoteStatusPending:
	case domain.QuoteStatusExpired:
		return nil, customErrors.WrapQuoteExpired(quoteID)
	default:
		return nil, customErrors.WrapQuoteNotPending(quoteID, quote.Status)
	}

	loan, err := s.loans.GetByID(ctx, quote.LoanID)
	if err != nil {
		return nil, dbError(err)
	}
	if !loan.IsActive() {
		return nil, customErrors.WrapLoanNotActive(loan.ID, loan.Status)
	}

	actor := actorOrSystem(req.Actor)
	quote.DecidedBy = &actor
	quote.DecidedAt = &now
	if req.Notes != "" {
		notes := req.Notes
		quote.DecisionNotes = &notes
	}

	entry := domain.NewLedgerEntry(loan.ID, nil, domain.LedgerKindSettlement, quote.PayoffAmount, actor,
		fmt.Sprintf("settled by quote %s", quote.ID), now)
	if err := s.quotes.ApproveQuote(ctx, quote, entry); err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return nil, customErrors.WrapQuoteNotPending(quoteID, "no longer pending")
		}
		return nil, dbError(err)
	}

	settled, err := s.loans.GetByID(ctx, loan.ID)
	if err != nil {
		return nil, dbError(err)
	}

	log.Info().
		Str("loan_id", loan.ID.String()).
		Str("quote_id", quote.ID.String()).
		Str("payoff", quote.PayoffAmount.StringFixed(2)).
		Str("actor", actor).
		Msg("loan settled")

	return settled, nil
}

// Reject declines a PENDING quote. The loan and its installments are left
// untouched and accrual resumes.
func (s *SettlementService) Reject(ctx context.Context, quoteID uuid.UUID, req *domain.RejectQuoteRequest) (*domain.SettlementQuote, error) {
	quote, release, err := s.lockedQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	if status := quote.EffectiveStatus(now); status != domain.QuoteStatusPending {
		return nil, customErrors.WrapQuoteNotPending(quoteID, status)
	}

	actor := actorOrSystem(req.Actor)
	reason := req.Reason
	quote.Status = domain.QuoteStatusRejected
	quote.DecisionNotes = &reason
	quote.DecidedBy = &actor
	quote.DecidedAt = &now

	if err := s.quotes.DecideQuote(ctx, quote); err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return nil, customErrors.WrapQuoteNotPending(quoteID, "no longer pending")
		}
		return nil, dbError(err)
	}

	log.Info().Str("loan_id", quote.LoanID.String()).Str("quote_id", quote.ID.String()).Str("actor", actor).Msg("settlement quote rejected")
	return quote, nil
}

// GetQuote returns a quote with its effective status at the time of reading.
func (s *SettlementService) GetQuote(ctx context.Context, quoteID uuid.UUID) (*domain.SettlementQuote, error) {
	quote, err := s.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, customErrors.WrapQuoteNotFound(quoteID)
		}
		return nil, dbError(err)
	}
	quote.Status = quote.EffectiveStatus(s.now())
	return quote, nil
}

// ExpireStale persists the EXPIRED status of every PENDING quote past its
// validity window and returns how many were expired.
func (s *SettlementService) ExpireStale(ctx context.Context) (int, error) {
	pending, err := s.quotes.ListPendingQuotes(ctx)
	if err != nil {
		return 0, dbError(err)
	}

	now := s.now()
	expired := 0
	for _, quote := range pending {
		if !quote.IsExpiredAt(now) {
			continue
		}
		if err := s.markExpired(ctx, quote, now); err != nil {
			if errors.Is(err, repository.ErrStateChanged) {
				continue
			}
			return expired, dbError(err)
		}
		expired++
	}

	if expired > 0 {
		log.Info().Int("expired", expired).Msg("stale settlement quotes expired")
	}
	return expired, nil
}

func (s *SettlementService) expireIfStale(ctx context.Context, loanID uuid.UUID, now time.Time) error {
	pending, err := s.quotes.GetPendingQuote(ctx, loanID)
	if err != nil {
		return dbError(err)
	}
	if pending == nil {
		return nil
	}
	if !pending.IsExpiredAt(now) {
		return customErrors.WrapPendingQuoteExists(loanID)
	}
	if err := s.markExpired(ctx, pending, now); err != nil && !errors.Is(err, repository.ErrStateChanged) {
		return dbError(err)
	}
	return nil
}

func (s *SettlementService) markExpired(ctx context.Context, quote *domain.SettlementQuote, now time.Time) error {
	actor := domain.ActorSystem
	quote.Status = domain.QuoteStatusExpired
	quote.DecidedBy = &actor
	quote.DecidedAt = &now
	return s.quotes.DecideQuote(ctx, quote)
}

// lockedQuote loads the quote, takes its loan's lock and re-reads the quote
// under the lock.
func (s *SettlementService) lockedQuote(ctx context.Context, quoteID uuid.UUID) (*domain.SettlementQuote, func(), error) {
	quote, err := s.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, customErrors.WrapQuoteNotFound(quoteID)
		}
		return nil, nil, dbError(err)
	}

	release, err := s.lock(ctx, quote.LoanID)
	if err != nil {
		return nil, nil, err
	}

	quote, err = s.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		release()
		return nil, nil, dbError(err)
	}
	return quote, release, nil
}

func (s *SettlementService) lock(ctx context.Context, loanID uuid.UUID) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, "loan:"+loanID.String())
	if err != nil {
		if errors.Is(err, cache.ErrLockTimeout) {
			return nil, customErrors.WrapLockNotAcquired(loanID)
		}
		return nil, customErrors.WrapCacheError(err)
	}
	return release, nil
}
