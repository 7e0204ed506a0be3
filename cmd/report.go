package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/watanabekazunori/tonarino/internal/config"
	"github.com/watanabekazunori/tonarino/internal/export"
	"github.com/watanabekazunori/tonarino/internal/report"
)

var reportFlags struct {
	user        string
	placeID     string
	competitors []string
	out         string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate, show, and export review comparison reports",
}

var reportRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate and store a report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeReport); err != nil {
			return err
		}
		if err := requireFlag("user", reportFlags.user); err != nil {
			return err
		}
		if err := requireFlag("place-id", reportFlags.placeID); err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{withReports: true})
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Analyzer.Run(ctx, report.Request{
			UserID:        reportFlags.user,
			PlaceID:       reportFlags.placeID,
			CompetitorIDs: reportFlags.competitors,
		})
		if err != nil {
			return err
		}
		return printOutput(cmd.OutOrStdout(), outputFormat, rec)
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeMigrate); err != nil {
			return err
		}
		if err := requireFlag("user", reportFlags.user); err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{withStore: true})
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Store.GetReport(ctx, args[0], reportFlags.user)
		if err != nil {
			return err
		}
		return printOutput(cmd.OutOrStdout(), outputFormat, rec)
	},
}

var reportExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a stored report to an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeMigrate); err != nil {
			return err
		}
		if err := requireFlag("user", reportFlags.user); err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{withStore: true})
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Store.GetReport(ctx, args[0], reportFlags.user)
		if err != nil {
			return err
		}

		out := reportFlags.out
		if out == "" {
			out = "report-" + rec.ID + ".xlsx"
		}
		if err := export.SaveXLSX(out, rec); err != nil {
			return err
		}
		zap.L().Info("report exported", zap.String("id", rec.ID), zap.String("path", out))
		return nil
	},
}

func init() {
	reportCmd.PersistentFlags().StringVar(&reportFlags.user, "user", "", "owning user ID")

	reportRunCmd.Flags().StringVar(&reportFlags.placeID, "place-id", "", "place ID of the store")
	reportRunCmd.Flags().StringSliceVar(&reportFlags.competitors, "competitor", nil, "competitor place IDs (repeatable, at most 5 used)")

	reportExportCmd.Flags().StringVar(&reportFlags.out, "out", "", "output path (default report-<id>.xlsx)")

	reportCmd.AddCommand(reportRunCmd, reportShowCmd, reportExportCmd)
	rootCmd.AddCommand(reportCmd)
}
