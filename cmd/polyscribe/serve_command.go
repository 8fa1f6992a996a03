package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"polyscribe/internal/daemon"
	"polyscribe/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP transcription server",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, err := ctx.openHistory(false)
			if err != nil {
				logger.Error("open history store", logging.Error(err))
				return err
			}
			runner, err := ctx.newRunner(store, false)
			if err != nil {
				if store != nil {
					_ = store.Close()
				}
				return err
			}

			d, err := daemon.New(cfg, runner, store, logger)
			if err != nil {
				if store != nil {
					_ = store.Close()
				}
				return fmt.Errorf("create server: %w", err)
			}
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return fmt.Errorf("start server: %w", err)
			}

			<-signalCtx.Done()
			logger.Info("polyscribe server shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override the configured listen address")
	return cmd
}
