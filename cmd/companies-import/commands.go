package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/ledgerdesk/modules/companies/infrastructure/persistence"
	"github.com/iota-uz/ledgerdesk/modules/companies/services"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
	"github.com/iota-uz/ledgerdesk/pkg/configuration"
	"github.com/iota-uz/ledgerdesk/pkg/logging"
)

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, withCode(exitFailure, err)
	}
	return data, nil
}

// offlineService cleans and detects without touching the database.
func offlineService(maxSize int64) *services.ImportService {
	return services.NewImportService(persistence.NewCompanyRepository(""), nil, services.ImportOptions{MaxFileSize: maxSize})
}

func newCleanCmd() *cobra.Command {
	var input, output string
	var maxSize int64
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Write a cleaned CSV; the first row of the input is the header",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readInput(input)
			if err != nil {
				return err
			}
			logger := logging.ConsoleLogger(logrus.InfoLevel)
			ctx := composables.WithLogger(cmd.Context(), logrus.NewEntry(logger))
			out, err := offlineService(maxSize).Clean(ctx, data, filepath.Base(input))
			if err != nil {
				return err
			}
			for _, w := range out.Result.Warnings {
				logger.Warn(w)
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(out.CSV)
				return withCode(exitFailure, err)
			}
			if err := os.WriteFile(output, out.CSV, 0o644); err != nil {
				return withCode(exitFailure, err)
			}
			stats := out.Result.Stats
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d read, %d written (%d blank, %d missing key, %d excluded, %d duplicate)\n",
				output, stats.Read, stats.Emitted, stats.Blank, stats.MissingKey, stats.Excluded, stats.Duplicate)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV or XLSX file, - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination CSV, stdout when empty")
	cmd.Flags().Int64Var(&maxSize, "max-size", 0, "reject inputs larger than this many bytes")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newDetectCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Print the zero based index of the header row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readInput(input)
			if err != nil {
				return err
			}
			idx, err := offlineService(0).Detect(data, filepath.Base(input))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), idx)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV or XLSX file, - for stdin")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newImportCmd() *cobra.Command {
	var input string
	var batchSize int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Detect the header, clean and upsert into the companies table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := configuration.Use()
			if batchSize <= 0 {
				batchSize = conf.Import.BatchSize
			}
			if batchSize > 1000 {
				return withCode(exitFailure, fmt.Errorf("--batch-size must be at most 1000, got %d", batchSize))
			}
			data, err := readInput(input)
			if err != nil {
				return err
			}

			connectCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			pool, err := pgxpool.New(connectCtx, conf.Database.Opts)
			if err != nil {
				return withCode(exitFailure, fmt.Errorf("connect: %w", err))
			}
			defer pool.Close()

			logger := logging.ConsoleLogger(conf.LogrusLogLevel())
			ctx := composables.WithPool(cmd.Context(), pool)
			ctx = composables.WithLogger(ctx, logrus.NewEntry(logger))

			svc := services.NewImportService(persistence.NewCompanyRepository(conf.Import.Table), nil, services.ImportOptions{
				BatchSize:   batchSize,
				MaxFileSize: conf.Import.MaxFileSize,
			})
			report, err := svc.Import(ctx, data, "cli:"+filepath.Base(input))
			if report != nil {
				if perr := printReport(cmd, report, asJSON); perr != nil {
					return withCode(exitFailure, perr)
				}
			}
			if err != nil {
				return err
			}
			if report.Failed > 0 {
				return withCode(exitPartial, fmt.Errorf("%d of %d batches failed", report.Failed, len(report.Batches)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV or XLSX file, - for stdin")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "rows per upsert statement (default IMPORT_BATCH_SIZE)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func printReport(cmd *cobra.Command, report *services.Report, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	s := report.Stats
	_, err := fmt.Fprintf(out, "%s (%s, %s, header row %d)\nread %d, emitted %d, blank %d, missing key %d, excluded %d, duplicate %d\nwritten %d, failed batches %d of %d\n",
		report.Source, report.Format, report.Encoding, report.HeaderRow,
		s.Read, s.Emitted, s.Blank, s.MissingKey, s.Excluded, s.Duplicate,
		report.Written, report.Failed, len(report.Batches))
	return err
}
