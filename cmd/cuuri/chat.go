package main

import (
	"os"
	"os/signal"

	"github.com/sandevgo/cuuri/internal/transport/cli"
	"github.com/sandevgo/cuuri/pkg/srv"
	"github.com/spf13/cobra"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:          "chat",
	Short:        "Chat interactively in the terminal",
	Long:         `Opens a prompt on a session. Type /new to start a fresh session and exit to quit.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		repl, err := cli.NewReadLine(a.chat, a.providerCfg, a.appCfg.GetInputHistoryPath(), chatSession)
		if err != nil {
			_ = a.Close(ctx)
			return err
		}

		services := []srv.Service{srv.NewCleanupCtx(a.Close), repl}
		srv.StartServices(ctx, stop, services)
		srv.ShutdownServices(ctx, services)
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session id to continue (default: new session)")
	rootCmd.AddCommand(chatCmd)
}
