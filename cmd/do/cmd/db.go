package cmd

import (
	"context"
	"fmt"

	"github.com/adpanel/adpanel/internal/config"
	"github.com/adpanel/adpanel/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func DBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, database *sqlx.DB) error {
				return db.RunMigrations(ctx, database.DB, cfg.DBDriver)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, database *sqlx.DB) error {
				return db.MigrateDown(ctx, database.DB, cfg.DBDriver)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, database *sqlx.DB) error {
				status, err := db.MigrationStatus(ctx, database.DB, cfg.DBDriver)
				if err != nil {
					return err
				}
				for _, s := range status {
					fmt.Printf("%05d  %-10s  %s\n", s.Source.Version, s.State, s.Source.Path)
				}
				return nil
			})
		},
	})

	return cmd
}

// withDB loads configuration from the environment and opens the database
// for the duration of fn.
func withDB(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, database *sqlx.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.Load()
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection, cfg.DBMaxOpenConns)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close(database)
	}()

	return fn(ctx, cfg, database)
}
