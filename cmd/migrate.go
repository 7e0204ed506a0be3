package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/watanabekazunori/tonarino/internal/config"
	"github.com/watanabekazunori/tonarino/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the searches and reports tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeMigrate); err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("migrations applied", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
