package system

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
	"github.com/Alijeyrad/dentlab_backend/pkg/database"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and seed role policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			fmt.Println("Running Migrations For Client DB.")
			client, err := database.NewRepoClient(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer client.Close()

			ctx, cancel := commandContext(cfg)
			defer cancel()

			if err := database.Migrate(ctx, client); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			fmt.Println("Running Migrations For Casbin DB.")
			auth, cleanup, err := openAuthorization(cfg)
			if err != nil {
				return err
			}
			defer cleanup(context.Background())

			slog.Info("Seeding Casbin policies...")
			if err := authorize.SeedDefaultPolicies(ctx, auth); err != nil {
				return fmt.Errorf("failed to seed policies: %w", err)
			}

			fmt.Println("Migrations executed successfully.")
			return nil
		},
	}

	return cmd
}
