package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"contactlink/internal/database"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if isMemory(cfg.DatabaseURL) {
				return errors.New("the in-memory store has no schema to migrate")
			}

			db, err := database.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			version, dirty, err := db.SchemaVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s, dirty=%t)\n", version, db.Dialect, dirty)
			return nil
		},
	}
}
