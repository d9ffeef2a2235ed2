// Command migrate applies and inspects goose schema migrations for
// driftctl's Postgres-backed stores.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitaliisemenov/driftctl/internal/migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := migrations.LoadConfig()
	if err != nil {
		logger.Error("failed to load migration config", "error", err)
		os.Exit(1)
	}
	cfg.Logger = logger

	manager, err := migrations.NewMigrationManager(cfg)
	if err != nil {
		logger.Error("failed to create migration manager", "error", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:   "migrate",
		Short: "Apply and inspect driftctl schema migrations",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return manager.Connect(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return manager.Disconnect(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return manager.Up(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return manager.Down(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "down-by-one",
			Short: "Roll back the most recently applied migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return manager.DownByOne(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the applied/pending status of every migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return manager.Status(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := manager.Version(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Println(version)
				return nil
			},
		},
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.Error("migrate command failed", "error", err)
		os.Exit(1)
	}
}
