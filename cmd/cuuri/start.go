package main

import (
	"os"
	"os/signal"

	"github.com/sandevgo/cuuri/pkg/log"
	"github.com/sandevgo/cuuri/pkg/srv"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:          "start",
	Short:        "Start the enabled transports",
	Long:         `Starts every enabled transport (terminal REPL, Telegram bot) and runs until interrupted.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting cuuri")

		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		services, err := NewServices(ctx, a, "")
		if err != nil {
			_ = a.Close(ctx)
			return err
		}

		srv.StartServices(ctx, stop, services)

		// Wait for shutdown signal
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("cuuri has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
