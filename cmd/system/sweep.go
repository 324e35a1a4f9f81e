package system

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/dentlab_backend/internal/service/cases"
	"github.com/Alijeyrad/dentlab_backend/pkg/database"
)

func NewSweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Archive completed and long-approved cases once",
		Long: `Runs the archival sweep a single time, outside the server's schedule.
Safe to run while servers are up: a case already archived is never touched again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client, err := database.NewRepoClient(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer client.Close()

			ctx, cancel := commandContext(cfg)
			defer cancel()

			res, err := cases.NewSweeper(client.Case, cases.Rules(cfg.Cases)).Run(ctx)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	return cmd
}
