package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/segyhp/repayment-ledger/internal/domain"
	"github.com/segyhp/repayment-ledger/internal/service"
)

func runCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one fee accrual pass and print its summary",
		Long: `Run the fee accrual job once. Reruns for the same day are safe:
fees already booked for a day are never charged twice.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := service.AccrualOptionsFromConfig(a.Config)
			if asOf != "" {
				if opts.AsOf, err = domain.ParseDate(asOf); err != nil {
					return err
				}
			}

			summary, runErr := a.Accruals.Run(ctx, opts)
			if summary != nil {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(summary); err != nil {
					return err
				}
			}
			if runErr != nil {
				return fmt.Errorf("fee accrual failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Accrual date YYYY-MM-DD (default: today in the ledger timezone)")
	return cmd
}

func expireQuotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire-quotes",
		Short: "Mark pending settlement quotes past their validity as expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Settlements.ExpireStale(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("expired %d quote(s)\n", n)
			return nil
		},
	}
}
