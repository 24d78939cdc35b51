// Command migrate runs schema and ledger maintenance for the backend.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"campusqa/internal/config"
	"campusqa/internal/database"
	"campusqa/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// connect loads the configuration and opens the database without touching
// the schema.
func connect() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Run database migrations and ledger maintenance",
		SilenceUsage: true,
	}
	root.AddCommand(newUpCmd(), newAutoCmd(), newStatusCmd(), newDownCmd(), newReconcileCmd())
	return root
}

func newUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending SQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(cmd.Context(), db); err != nil {
				return fmt.Errorf("sql migrations failed: %w", err)
			}
			slog.Info("sql migrations applied")
			return nil
		},
	}
}

func newAutoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Sync the schema with GORM AutoMigrate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			cfg.DBSchemaMode = database.SchemaModeAuto
			if err := database.ApplySchema(cmd.Context(), db, cfg); err != nil {
				return fmt.Errorf("auto schema apply failed: %w", err)
			}
			slog.Info("automigrations applied")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the schema mode and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			status, err := database.GetSchemaStatus(cmd.Context(), db, cfg)
			if err != nil {
				return fmt.Errorf("schema status failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
				status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
				len(status.AppliedVersions), len(status.PendingMigrations))
			for _, m := range status.PendingMigrations {
				fmt.Fprintf(out, "pending: %s\n", m.String())
			}
			return nil
		},
	}
}

func newDownCmd() *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back one applied migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if version <= 0 {
				return fmt.Errorf("--version must be a positive migration version")
			}
			_, db, err := connect()
			if err != nil {
				return err
			}
			if err := database.RollbackMigration(cmd.Context(), db, version); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			slog.Info("rolled back migration", slog.Int("version", version))
			return nil
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "migration version to roll back")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild reputation counters from the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := connect()
			if err != nil {
				return err
			}
			fixed, err := service.NewReputationService(db).Reconcile(cmd.Context())
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reconciled users=%d\n", fixed)
			return nil
		},
	}
}
