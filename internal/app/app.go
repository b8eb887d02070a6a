// Package app wires configuration, storage and services into the components
// shared by the HTTP server and the scheduler.
package app

import (
	"context"
	"fmt"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/segyhp/repayment-ledger/internal/cache"
	"github.com/segyhp/repayment-ledger/internal/config"
	"github.com/segyhp/repayment-ledger/internal/handler"
	"github.com/segyhp/repayment-ledger/internal/repository"
	"github.com/segyhp/repayment-ledger/internal/service"
)

type App struct {
	Config *config.Config
	DB     *sqlx.DB
	// Redis is nil when REDIS_URL is unset.
	Redis redis.UniversalClient

	Schedules   *service.ScheduleGenerator
	Accruals    *service.FeeAccrualProcessor
	Settlements *service.SettlementService
	Payments    *service.PaymentService
	Audit       *service.AuditTrail
}

// New opens the database, connects to Redis when configured and builds every
// service on top of them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	a := &App{Config: cfg, DB: db}

	policies := repository.NewPolicyRepository(db)
	var locker cache.Locker = cache.NewLocalLocker()
	var cachedPolicies repository.PolicyRepository = policies

	if cfg.RedisEnabled() {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize redis: %w", err)
		}
		a.Redis = client
		cachedPolicies = cache.NewPolicyCache(policies, client, cfg.Redis.KeyPrefix, cfg.Redis.PolicyTTL)
		locker = cache.NewRedisLocker(client, cfg.Redis.KeyPrefix, cfg.Redis.LockTTL)
	} else {
		log.Warn().Msg("REDIS_URL not set: using in-process locks and uncached policies")
	}

	loans := repository.NewLoanRepository(db)
	loc := cfg.Location()

	a.Schedules = service.NewScheduleGenerator(loans, cachedPolicies, loc)
	a.Accruals = service.NewFeeAccrualProcessor(loans, repository.NewAccrualRepository(db), cachedPolicies).
		WithOptions(service.AccrualOptionsFromConfig(cfg))
	a.Settlements = service.NewSettlementService(
		loans,
		repository.NewSettlementRepository(db),
		cachedPolicies,
		locker,
		cfg.Settlement.QuoteValidity,
		loc,
	)
	a.Payments = service.NewPaymentService(loans, repository.NewPaymentRepository(db))
	a.Audit = service.NewAuditTrail(repository.NewLedgerRepository(db))

	return a, nil
}

// Router builds the HTTP API over the app's services.
func (a *App) Router() *mux.Router {
	h := handler.NewHandler(a.Schedules, a.Payments, a.Accruals, a.Settlements, a.Audit, a.Config.Location())
	health := handler.NewHealthHandler(a.DB, a.Redis, a.Config.Health.Timeout)
	return handler.NewRouter(h, health)
}

func (a *App) Close() error {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("closing redis client")
		}
	}
	return a.DB.Close()
}
