package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"us-bars/internal/slogx"
)

func init() {
	slog.SetDefault(slogx.NewDefault("info"))
}

func main() {
	// Optional .env, environment wins.
	_ = godotenv.Load()

	a, err := InitializeApp()
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slogx.NewDefault(a.Config.LogLevel))

	root := &cobra.Command{
		Use:           "us-bars",
		Short:         "Aggregate 1-minute OHLCV day-files into 5/15/30/60-minute bars and verify them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newAggregateCmd(a),
		newValidateCmd(a),
		newDownloadCmd(a),
		newRunCmd(a),
	)

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
