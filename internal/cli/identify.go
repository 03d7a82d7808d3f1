package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"contactlink/internal/handlers"
	"contactlink/internal/models"
	"contactlink/internal/service"
)

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	var email, phone string

	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Resolve one contact against the configured store",
		Long: `Run a single identify request without starting the server and print the
consolidated contact as JSON.

Examples:
  contactlink identify --email mcfly@hillvalley.edu --phone 123456
  DATABASE_URL=postgres://localhost/contacts contactlink identify --phone 123456`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			var req models.IdentifyRequest
			if cmd.Flags().Changed("email") {
				req.Email = &email
			}
			if cmd.Flags().Changed("phone") {
				req.PhoneNumber = &phone
			}
			req, err = handlers.ValidateIdentifyRequest(req)
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore() //nolint:errcheck

			svc := service.NewReconciliationService(store, logger, nil)
			resp, err := svc.Identify(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	return cmd
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
