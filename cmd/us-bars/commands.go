package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"us-bars/internal/app"
	"us-bars/internal/orchestrate"
)

func batchOptions(a *App) orchestrate.Options {
	return orchestrate.Options{
		DataDir:    a.Config.DataDir,
		Datasets:   a.Config.Datasets,
		Intervals:  a.Config.Intervals,
		Workers:    a.Config.Workers,
		Saver:      a.Saver,
		Validation: a.Config.ValidateMode,
		Validator:  a.Validator,
		MaxErrors:  a.Config.MaxErrors,
	}
}

func newAggregateCmd(a *App) *cobra.Command {
	var noValidate bool
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate configured datasets across all configured intervals",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := batchOptions(a)
			if noValidate {
				opts.Validation = orchestrate.ValidationOff
			}
			rep, err := orchestrate.Run(opts)
			if err != nil {
				return err
			}
			slog.Info("run complete", "run_id", rep.RunID, "datasets", len(rep.Datasets), "errors", rep.HasErrors())
			return nil
		},
	}
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "skip inline validation of freshly aggregated tables")
	return cmd
}

func newValidateCmd(a *App) *cobra.Command {
	var exhaustive bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Re-verify persisted aggregated outputs against their source files",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := batchOptions(a)
			opts.Validation = orchestrate.ValidationSpot
			if exhaustive {
				opts.Validation = orchestrate.ValidationExhaustive
			}
			runs, err := orchestrate.RunValidation(opts)
			if err != nil {
				return err
			}
			var failed int
			for _, r := range runs {
				failed += r.Failed
			}
			if failed > 0 {
				return fmt.Errorf("validation: %d bars failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&exhaustive, "exhaustive", false, "validate every aggregated bar instead of a per-ticker sample")
	return cmd
}

func newDownloadCmd(a *App) *cobra.Command {
	var fromStr, toStr, dataset string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Backfill missing 1-minute day-files from the aggregates API",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			tickers, err := app.LoadTickers(a.Config)
			if err != nil {
				return err
			}
			dp, err := app.CreateProvider(a.Config)
			if err != nil {
				return err
			}
			defer dp.Close()
			slog.Info("using data provider", "provider", dp.GetName(), "tickers", len(tickers))

			_, err = orchestrate.RunDownload(dp, orchestrate.DownloadOptions{
				DataDir: a.Config.DataDir,
				Dataset: dataset,
				Tickers: tickers,
				From:    from,
				To:      to,
			})
			return err
		},
	}
	cmd.Flags().StringVar(&fromStr, "from", "", "first date to backfill (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toStr, "to", "", "last date to backfill (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dataset, "dataset", "us_stocks_sip", "dataset directory to backfill")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newRunCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Aggregate and validate in one pass (the default batch pipeline)",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := orchestrate.Run(batchOptions(a))
			if err != nil {
				return err
			}
			if rep.HasErrors() {
				return fmt.Errorf("run %s finished with errors, see .lastrun.report.json", rep.RunID)
			}
			slog.Info("run complete", "run_id", rep.RunID, "datasets", len(rep.Datasets))
			return nil
		},
	}
}
