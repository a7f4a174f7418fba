package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"skytrack/internal/app"
	"skytrack/internal/config"
	"skytrack/internal/logger"
	"skytrack/internal/pg"
)

func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC server and the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(ctx)
		},
	}
}

// NewMigrateCommand manages the Postgres schema.
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	run := func(op func(*pg.Migrator) error) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Close()
			if cfg.Storage.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			m, err := pg.NewMigrator(cfg.Storage.DatabaseURL)
			if err != nil {
				return err
			}
			defer m.Close()
			return op(m)
		}
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: run(func(m *pg.Migrator) error {
			changed, err := m.Up()
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println("no change")
				return nil
			}
			fmt.Println("migrations applied")
			return nil
		}),
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: run(func(m *pg.Migrator) error {
			changed, err := m.Down()
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println("no change")
				return nil
			}
			fmt.Println("migrations rolled back")
			return nil
		}),
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: run(func(m *pg.Migrator) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Printf("version %d (dirty: %t)\n", v, dirty)
			return nil
		}),
	})
	return migrateCmd
}

// NewExportCommand prints one user's data as JSON.
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print a user's classes, tasks, notes, contacts and events as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid, _ := cmd.Flags().GetString("uid")
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// stdout carries the JSON, so nothing else may log there
			snap, err := app.Export(cmd.Context(), cfg, logger.Nop(), uid)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().String("uid", "", "user id to export")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
