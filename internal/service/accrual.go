package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/segyhp/repayment-ledger/internal/config"
	"github.com/segyhp/repayment-ledger/internal/domain"
	"github.com/segyhp/repayment-ledger/internal/repository"
	customErrors "github.com/segyhp/repayment-ledger/pkg/errors"
	"github.com/segyhp/repayment-ledger/pkg/utils"
)

// AccrualOptions parameterises one accrual run. Zero values fall back to
// safe defaults.
type AccrualOptions struct {
	// AsOf is the calendar day being accrued. Zero means today in Location.
	AsOf domain.Date
	// Workers is the number of concurrent loan workers.
	Workers int
	// Deadline bounds the whole run. Zero means no deadline.
	Deadline time.Duration
	// CallTimeout bounds every storage or policy call.
	CallTimeout time.Duration
	// MaxVersionRetries bounds optimistic-concurrency retries per installment.
	MaxVersionRetries int
	// LoanRetries is how many times a loan is retried after a transient error.
	LoanRetries int
	// Location is the ledger timezone used to turn instants into days.
	Location *time.Location
}

// AccrualOptionsFromConfig maps the service configuration onto run options.
func AccrualOptionsFromConfig(cfg *config.Config) AccrualOptions {
	return AccrualOptions{
		Workers:           cfg.Accrual.Workers,
		Deadline:          cfg.Accrual.RunDeadline,
		CallTimeout:       cfg.Accrual.CallTimeout,
		MaxVersionRetries: cfg.Accrual.MaxVersionRetries,
		LoanRetries:       cfg.Accrual.LoanRetries,
		Location:          cfg.Location(),
	}
}

func (o AccrualOptions) withDefaults() AccrualOptions {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = defaultCallTimeout
	}
	if o.MaxVersionRetries <= 0 {
		o.MaxVersionRetries = defaultMaxVersionRetries
	}
	if o.LoanRetries < 0 {
		o.LoanRetries = 0
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// FeeAccrualProcessor books late fees on overdue installments, at most one
// per installment per calendar day.
type FeeAccrualProcessor struct {
	loans    repository.LoanRepository
	accruals repository.AccrualRepository
	policies repository.PolicyRepository
	now      Clock

	// opts holds the call timeout and retry budget for operations outside a
	// run, such as waivers. Run takes its own options.
	opts AccrualOptions
}

func NewFeeAccrualProcessor(loans repository.LoanRepository, accruals repository.AccrualRepository, policies repository.PolicyRepository) *FeeAccrualProcessor {
	return &FeeAccrualProcessor{
		loans:    loans,
		accruals: accruals,
		policies: policies,
		now:      time.Now,
		opts:     AccrualOptions{}.withDefaults(),
	}
}

// WithOptions sets the call timeout and version retry budget used by WaiveFee.
func (p *FeeAccrualProcessor) WithOptions(opts AccrualOptions) *FeeAccrualProcessor {
	p.opts = opts.withDefaults()
	return p
}

// Run accrues fees for every ACTIVE loan as of opts.AsOf. Loans are
// partitioned across workers by id, so a loan is only ever handled by one
// worker. Per-loan failures are reported in the summary; the returned error
// is non-nil only when the loan set could not be read at all.
//
// When the deadline passes, workers finish the loan in hand and record the
// remaining ones as SKIPPED_DEADLINE.
func (p *FeeAccrualProcessor) Run(ctx context.Context, opts AccrualOptions) (*domain.RunSummary, error) {
	opts = opts.withDefaults()
	started := p.now()
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = domain.DateIn(started, opts.Location)
	}

	summary := &domain.RunSummary{
		RunDate:        asOf,
		Success:        true,
		TotalFeeAmount: decimal.Zero,
	}

	runCtx := ctx
	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}

	logger := log.With().Str("run_date", asOf.String()).Logger()
	logger.Info().Int("workers", opts.Workers).Msg("fee accrual run started")

	ids, err := p.listActive(runCtx, opts)
	if err != nil {
		msg := err.Error()
		summary.Success = false
		summary.ErrorMessage = &msg
		p.finish(ctx, summary, started, opts)
		logger.Error().Err(err).Msg("fee accrual run aborted: cannot enumerate loans")
		return summary, err
	}

	partitions := make([][]uuid.UUID, opts.Workers)
	for _, id := range ids {
		i := utils.PartitionIndex(id, opts.Workers)
		partitions[i] = append(partitions[i], id)
	}

	results := make(chan domain.LoanResult)
	var g errgroup.Group
	for _, part := range partitions {
		g.Go(func() error {
			for _, loanID := range part {
				if runCtx.Err() != nil {
					results <- domain.LoanResult{
						LoanID:    loanID,
						Outcome:   domain.ScanOutcomeSkippedDeadline,
						FeeAmount: decimal.Zero,
						Reason:    "run deadline reached before the loan was started",
					}
					continue
				}
				results <- p.processLoan(runCtx, loanID, asOf, opts)
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	for res := range results {
		summary.Add(res)
		p.recordScan(ctx, asOf, res, opts)
		if res.Failed() {
			logLoanFailure(logger, res)
		}
	}

	summary.Incomplete = summary.LoansSkipped > 0
	p.finish(ctx, summary, started, opts)

	logger.Info().
		Bool("incomplete", summary.Incomplete).
		Int("fees_calculated", summary.FeesCalculated).
		Str("total_fee_amount", summary.TotalFeeAmount.StringFixed(2)).
		Int("overdue_repayments", summary.OverdueRepayments).
		Int("loans_scanned", summary.LoansScanned).
		Int("loans_failed", summary.LoansFailed).
		Int("loans_skipped", summary.LoansSkipped).
		Int64("processing_time_ms", summary.ProcessingTimeMs).
		Msg("fee accrual run finished")

	return summary, nil
}

// listActive enumerates the loans to scan, retrying transient failures.
func (p *FeeAccrualProcessor) listActive(ctx context.Context, opts AccrualOptions) ([]uuid.UUID, error) {
	var lastErr error
	for attempt := 0; attempt <= opts.LoanRetries; attempt++ {
		c, cancel := callCtx(ctx, opts.CallTimeout)
		ids, err := p.loans.ListActiveIDs(c)
		cancel()
		if err == nil {
			return ids, nil
		}
		lastErr = dbError(err)
		if !customErrors.IsTransient(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// processLoan handles one loan on a context detached from the run deadline,
// so the loan in hand always finishes. Transient errors retry the whole loan;
// installments already accrued are skipped on the retry by the day guard.
func (p *FeeAccrualProcessor) processLoan(runCtx context.Context, loanID uuid.UUID, asOf domain.Date, opts AccrualOptions) domain.LoanResult {
	ctx := context.WithoutCancel(runCtx)
	res := domain.LoanResult{
		LoanID:    loanID,
		Outcome:   domain.ScanOutcomeScanned,
		FeeAmount: decimal.Zero,
	}

	var err error
	for attempt := 0; attempt <= opts.LoanRetries; attempt++ {
		res.OverdueRepayments = 0
		res.Failures = nil
		if err = p.accrueLoan(ctx, &res, asOf, opts); err == nil {
			return res
		}
		if !customErrors.IsTransient(err) {
			break
		}
		log.Debug().Err(err).Str("loan_id", loanID.String()).Int("attempt", attempt+1).Msg("retrying loan after transient error")
	}

	res.Outcome = domain.ScanOutcomeFailed
	res.Reason = err.Error()
	return res
}

func (p *FeeAccrualProcessor) accrueLoan(ctx context.Context, res *domain.LoanResult, asOf domain.Date, opts AccrualOptions) error {
	c, cancel := callCtx(ctx, opts.CallTimeout)
	loan, err := p.loans.GetByID(c, res.LoanID)
	cancel()
	if err != nil {
		return dbError(err)
	}
	if !loan.IsActive() {
		res.Reason = "loan is " + loan.Status
		return nil
	}

	c, cancel = callCtx(ctx, opts.CallTimeout)
	schedule, err := p.loans.GetSchedule(c, loan.ID)
	cancel()
	if err != nil {
		return dbError(err)
	}

	var overdue []*domain.Repayment
	for _, rp := range schedule {
		if rp.IsOpen() && asOf.DaysSince(rp.DueDate) > 0 {
			overdue = append(overdue, rp)
		}
	}
	res.OverdueRepayments = len(overdue)
	if len(overdue) == 0 {
		return nil
	}

	policy, err := p.policy(ctx, loan.ProductCode, opts)
	if err != nil {
		if customErrors.IsTransient(err) {
			return err
		}
		for _, rp := range overdue {
			res.Failures = append(res.Failures, domain.InstallmentFailure{
				RepaymentID: rp.ID,
				Code:        customErrors.Code(err),
				Reason:      err.Error(),
			})
		}
		return nil
	}

	for _, rp := range overdue {
		fee, err := p.accrueInstallment(ctx, rp, policy, asOf, opts)
		switch {
		case err == nil:
			if fee != nil {
				res.FeesCalculated++
				res.FeeAmount = res.FeeAmount.Add(fee.Amount)
			}
		case errors.Is(err, repository.ErrStateChanged):
			// Settled or closed while we were working; nothing more may accrue.
			res.Reason = "loan closed during accrual"
			return nil
		case customErrors.IsTransient(err):
			return err
		default:
			res.Failures = append(res.Failures, domain.InstallmentFailure{
				RepaymentID: rp.ID,
				Code:        customErrors.Code(err),
				Reason:      err.Error(),
			})
		}
	}
	return nil
}

func (p *FeeAccrualProcessor) policy(ctx context.Context, productCode string, opts AccrualOptions) (*domain.ProductPolicy, error) {
	c, cancel := callCtx(ctx, opts.CallTimeout)
	defer cancel()

	policy, err := p.policies.GetPolicy(c, productCode)
	if err != nil {
		if errors.Is(err, repository.ErrPolicyNotFound) {
			return nil, customErrors.WrapConfiguration(productCode, "no late fee policy configured")
		}
		return nil, dbError(err)
	}
	if err := policy.Validate(); err != nil {
		return nil, customErrors.WrapConfiguration(productCode, err.Error())
	}
	return policy, nil
}

// accrueInstallment books today's fee on rp if one is due. It returns a nil
// fee when nothing applies or the day was already accrued.
func (p *FeeAccrualProcessor) accrueInstallment(ctx context.Context, rp *domain.Repayment, policy *domain.ProductPolicy, asOf domain.Date, opts AccrualOptions) (*domain.LateFee, error) {
	for attempt := 1; ; attempt++ {
		daysOverdue := asOf.DaysSince(rp.DueDate)
		if !rp.IsOpen() || daysOverdue <= 0 || !policy.AppliesOn(daysOverdue) {
			return nil, nil
		}

		c, cancel := callCtx(ctx, opts.CallTimeout)
		done, err := p.accruals.HasFee(c, rp.ID, asOf)
		cancel()
		if err != nil {
			return nil, dbError(err)
		}
		if done {
			return nil, nil
		}

		amount, rate := policy.FeeFor(rp)
		if !amount.IsPositive() {
			return nil, nil
		}

		now := p.now()
		next := *rp
		next.FeeDue = rp.FeeDue.Add(amount)
		next.Status = domain.RepaymentStatusOverdue

		fee := &domain.LateFee{
			ID:              uuid.New(),
			RepaymentID:     rp.ID,
			LoanID:          rp.LoanID,
			CalculationDate: asOf,
			DaysOverdue:     daysOverdue,
			RateApplied:     rate,
			Amount:          amount,
			Status:          domain.LateFeeStatusActive,
			CreatedAt:       now,
		}
		entry := domain.NewLedgerEntry(rp.LoanID, &rp.ID, domain.LedgerKindLateFee, amount, domain.ActorAccrualJob,
			fmt.Sprintf("installment %d, %d days overdue", rp.InstallmentNumber, daysOverdue), now)

		c, cancel = callCtx(ctx, opts.CallTimeout)
		err = p.accruals.AccrueFee(c, fee, &next, entry)
		cancel()

		switch {
		case err == nil:
			*rp = next
			return fee, nil
		case errors.Is(err, repository.ErrDuplicateFee):
			return nil, nil
		case errors.Is(err, repository.ErrStateChanged):
			return nil, err
		case errors.Is(err, repository.ErrVersionConflict):
			if attempt >= opts.MaxVersionRetries {
				return nil, customErrors.WrapConcurrencyConflict(rp.ID, attempt)
			}
			c, cancel = callCtx(ctx, opts.CallTimeout)
			fresh, err := p.loans.GetRepayment(c, rp.ID)
			cancel()
			if err != nil {
				return nil, dbError(err)
			}
			*rp = *fresh
		default:
			return nil, dbError(err)
		}
	}
}

// WaiveFee cancels an ACTIVE fee and takes its amount back off the
// installment. The waived row keeps its day slot so the fee is never
// re-accrued.
func (p *FeeAccrualProcessor) WaiveFee(ctx context.Context, feeID uuid.UUID, req *domain.WaiveFeeRequest) (*domain.LateFee, error) {
	opts := p.opts.withDefaults()

	c, cancel := callCtx(ctx, opts.CallTimeout)
	fee, err := p.accruals.GetFee(c, feeID)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, customErrors.WrapFeeNotFound(feeID)
		}
		return nil, dbError(err)
	}
	if fee.Status != domain.LateFeeStatusActive {
		return nil, customErrors.WrapFeeNotActive(feeID)
	}

	reason := req.Reason
	actor := actorOrSystem(req.Actor)
	for attempt := 1; ; attempt++ {
		c, cancel := callCtx(ctx, opts.CallTimeout)
		rp, err := p.loans.GetRepayment(c, fee.RepaymentID)
		cancel()
		if err != nil {
			return nil, dbError(err)
		}

		next := *rp
		next.FeeDue = rp.FeeDue.Sub(fee.Amount)
		if next.FeeDue.IsNegative() {
			next.FeeDue = decimal.Zero
		}
		fee.WaivedReason = &reason
		entry := domain.NewLedgerEntry(fee.LoanID, &rp.ID, domain.LedgerKindFeeWaiver, fee.Amount.Neg(), actor,
			fmt.Sprintf("waived fee of %s: %s", fee.CalculationDate, reason), p.now())

		c, cancel = callCtx(ctx, opts.CallTimeout)
		err = p.accruals.WaiveFee(c, fee, &next, entry)
		cancel()
		switch {
		case err == nil:
			log.Info().Str("fee_id", feeID.String()).Str("repayment_id", rp.ID.String()).Str("actor", actor).Msg("late fee waived")
			return fee, nil
		case errors.Is(err, repository.ErrStateChanged):
			return nil, customErrors.WrapFeeNotActive(feeID)
		case errors.Is(err, repository.ErrVersionConflict):
			if attempt >= opts.MaxVersionRetries {
				return nil, customErrors.WrapConcurrencyConflict(rp.ID, attempt)
			}
		default:
			return nil, dbError(err)
		}
	}
}

func (p *FeeAccrualProcessor) recordScan(ctx context.Context, asOf domain.Date, res domain.LoanResult, opts AccrualOptions) {
	c, cancel := callCtx(context.WithoutCancel(ctx), opts.CallTimeout)
	defer cancel()

	outcome := res.Outcome
	scan := &domain.AccrualScan{
		RunDate:   asOf,
		LoanID:    res.LoanID,
		Outcome:   outcome,
		Reason:    res.Reason,
		UpdatedAt: p.now(),
	}
	if outcome == domain.ScanOutcomeScanned && len(res.Failures) > 0 {
		scan.Outcome = domain.ScanOutcomeFailed
		scan.Reason = fmt.Sprintf("%d installment(s) failed", len(res.Failures))
	}
	if err := p.accruals.RecordScan(c, scan); err != nil {
		log.Warn().Err(err).Str("loan_id", res.LoanID.String()).Msg("failed to record accrual scan")
	}
}

func (p *FeeAccrualProcessor) finish(ctx context.Context, summary *domain.RunSummary, started time.Time, opts AccrualOptions) {
	finished := p.now()
	summary.ProcessingTimeMs = finished.Sub(started).Milliseconds()

	c, cancel := callCtx(context.WithoutCancel(ctx), opts.CallTimeout)
	defer cancel()

	run := &domain.AccrualRun{
		RunDate:           summary.RunDate,
		StartedAt:         started,
		FinishedAt:        finished,
		Success:           summary.Success,
		Incomplete:        summary.Incomplete,
		FeesCalculated:    summary.FeesCalculated,
		TotalFeeAmount:    summary.TotalFeeAmount,
		OverdueRepayments: summary.OverdueRepayments,
		LoansScanned:      summary.LoansScanned,
		LoansFailed:       summary.LoansFailed,
		LoansSkipped:      summary.LoansSkipped,
		ErrorMessage:      summary.ErrorMessage,
	}
	if err := p.accruals.SaveRun(c, run); err != nil {
		log.Warn().Err(err).Str("run_date", summary.RunDate.String()).Msg("failed to save accrual run")
	}
}

func logLoanFailure(logger zerolog.Logger, res domain.LoanResult) {
	if res.Outcome == domain.ScanOutcomeFailed {
		logger.Error().Str("loan_id", res.LoanID.String()).Str("reason", res.Reason).Msg("loan accrual failed")
		return
	}
	for _, f := range res.Failures {
		logger.Error().
			Str("loan_id", res.LoanID.String()).
			Str("repayment_id", f.RepaymentID.String()).
			Str("code", f.Code).
			Str("reason", f.Reason).
			Msg("installment accrual failed")
	}
}
