package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/segyhp/repayment-ledger/internal/app"
	"github.com/segyhp/repayment-ledger/internal/config"
	"github.com/segyhp/repayment-ledger/internal/logger"
	"github.com/segyhp/repayment-ledger/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "ledger-scheduler",
		Short:        "Batch jobs for the repayment ledger: fee accrual, quote expiry and ledger export",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(expireQuotesCmd())
	rootCmd.AddCommand(exportLedgerCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, installs the logger and builds the app.
func bootstrap(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logger.Setup(cfg.Logging, "ledger-scheduler")
	return app.New(ctx, cfg)
}

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the accrual and quote expiry jobs on their cron schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cronLogger := log.With().Str("component", "cron").Logger()
			c := cron.New(
				cron.WithSeconds(),
				cron.WithLocation(a.Config.Location()),
				cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(&cronLogger))),
			)
			if err := setupCronJobs(ctx, c, a); err != nil {
				return err
			}

			c.Start()
			log.Info().
				Str("accrual_cron", a.Config.Scheduler.AccrualCron).
				Str("expiry_cron", a.Config.Scheduler.ExpiryCron).
				Str("timezone", a.Config.Scheduler.Timezone).
				Msg("scheduler started")

			<-ctx.Done()
			log.Info().Msg("shutting down scheduler, waiting for running jobs")
			<-c.Stop().Done()
			log.Info().Msg("scheduler stopped")
			return nil
		},
	}
}

func setupCronJobs(ctx context.Context, c *cron.Cron, a *app.App) error {
	opts := service.AccrualOptionsFromConfig(a.Config)

	// Daily fee accrual. AsOf stays zero so each run accrues "today".
	if _, err := c.AddFunc(a.Config.Scheduler.AccrualCron, func() {
		if _, err := a.Accruals.Run(ctx, opts); err != nil {
			log.Error().Err(err).Msg("scheduled fee accrual failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule fee accrual: %w", err)
	}

	if _, err := c.AddFunc(a.Config.Scheduler.ExpiryCron, func() {
		if _, err := a.Settlements.ExpireStale(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled quote expiry failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule quote expiry: %w", err)
	}
	return nil
}
