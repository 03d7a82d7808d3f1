package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contactlink/internal/metrics"
	"contactlink/internal/server"
	"contactlink/internal/service"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
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

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := openStore(runCtx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeStore(); err != nil {
					logger.Warn("close store", zap.Error(err))
				}
			}()

			m := metrics.New(nil)
			svc := service.NewReconciliationService(store, logger.Named("service"), m)
			srv := server.New(cfg, server.Deps{
				Identifier: svc,
				Store:      store,
				Metrics:    m,
				Logger:     logger.Named("http"),
			})

			logger.Info("contactlink starting",
				zap.String("addr", cfg.Addr()),
				zap.Bool("memory_store", isMemory(cfg.DatabaseURL)),
			)
			if err := srv.ListenAndRun(runCtx); err != nil {
				return err
			}
			logger.Info("contactlink stopped")
			return nil
		},
	}
}
