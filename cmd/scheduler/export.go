package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/segyhp/repayment-ledger/internal/domain"
	"github.com/segyhp/repayment-ledger/internal/report"
)

func exportLedgerCmd() *cobra.Command {
	var (
		loanID string
		from   string
		to     string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export-ledger",
		Short: "Export ledger entries to an XLSX workbook",
		Long: `Export ledger entries to an XLSX workbook. The workbook is uploaded to
the configured S3 bucket, or written to --out when no endpoint is set.
--from is inclusive and --to exclusive; both are days in the ledger timezone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			loc := a.Config.Location()
			var filter domain.LedgerFilter
			if loanID != "" {
				id, err := uuid.Parse(loanID)
				if err != nil {
					return fmt.Errorf("invalid --loan: %w", err)
				}
				filter.LoanID = &id
			}
			if from != "" {
				d, err := domain.ParseDate(from)
				if err != nil {
					return err
				}
				filter.From = d.StartIn(loc)
			}
			if to != "" {
				d, err := domain.ParseDate(to)
				if err != nil {
					return err
				}
				filter.To = d.StartIn(loc)
			}

			uploader, err := report.NewUploader(ctx, a.Config.Report, outDir)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			n, err := a.Audit.Export(ctx, filter, &buf)
			if err != nil {
				return err
			}

			name := fmt.Sprintf("ledger-%s.xlsx", time.Now().In(loc).Format("20060102-150405"))
			location, err := uploader.Upload(ctx, name, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
			if err != nil {
				return fmt.Errorf("upload %s: %w", name, err)
			}

			log.Info().Int("entries", n).Str("location", location).Msg("ledger exported")
			fmt.Println(location)
			return nil
		},
	}

	cmd.Flags().StringVar(&loanID, "loan", "", "Only export entries of this loan ID")
	cmd.Flags().StringVar(&from, "from", "", "First day to include, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Day to stop before, YYYY-MM-DD")
	cmd.Flags().StringVar(&outDir, "out", "exports", "Local directory used when no S3 endpoint is configured")
	return cmd
}
