package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/watanabekazunori/tonarino/internal/config"
	"github.com/watanabekazunori/tonarino/internal/server"
	"github.com/watanabekazunori/tonarino/pkg/sheets"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  "Serves store search, competitor discovery, report generation, and the spreadsheet webhooks over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate(config.ModeServe); err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{withReports: true})
		if err != nil {
			return err
		}
		defer env.Close()

		srv := server.New(server.Config{
			Port:           cfg.Server.Port,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Auth: server.AuthConfig{
				Secret:   cfg.Auth.JWTSecret,
				Issuer:   cfg.Auth.Issuer,
				Audience: cfg.Auth.Audience,
			},
		}, server.Deps{
			Places:      env.Places,
			Competitors: env.Discoverer,
			Reports:     env.Analyzer,
			Store:       env.Store,
			Sheets:      sheets.NewClient(cfg.Sheets.WebhookURL),
		})

		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
