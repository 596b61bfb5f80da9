package main

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"yesod/internal/config"
	"yesod/internal/repository"
	"yesod/pkg/database/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg := config.Load().Postgres

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		db, err := postgres.NewPostgresConnection(ctx, postgres.ConnectionInfo{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.User,
			DBName:   cfg.DBName,
			SSLMode:  cfg.SSLMode,
			Password: cfg.Password,
		})
		if err != nil {
			return err
		}
		defer postgres.Close(db)

		if err := repository.ApplyMigrations(ctx, db); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", repository.LatestVersion())
		return nil
	},
}
