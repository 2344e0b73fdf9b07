package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/sandevgo/cuuri/internal/core"
	"github.com/sandevgo/cuuri/internal/service/chat"
	"github.com/sandevgo/cuuri/internal/service/ui"
	"github.com/sandevgo/cuuri/internal/transport/cli"
	"github.com/spf13/cobra"
)

var (
	askSession string
	askModel   string
	askImages  []string
)

var askCmd = &cobra.Command{
	Use:          "ask [flags] TEXT",
	Short:        "Ask one question and stream the answer",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		images := make([]core.Image, 0, len(askImages))
		for _, path := range askImages {
			img, err := chat.LoadImage(path)
			if err != nil {
				return fmt.Errorf("attach %s: %w", path, err)
			}
			images = append(images, img)
		}

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(ctx))

		sessionID := askSession
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		fmt.Fprintln(os.Stderr, ui.DescStyle.Render("session "+sessionID))

		req := a.request(sessionID, strings.Join(args, " "), images, askModel)
		_, err = cli.Ask(ctx, a.chat, req, cmd.OutOrStdout())
		if err != nil {
			fmt.Fprintln(os.Stderr, cli.DescribeError(err))
			var chatErr *chat.Error
			if errors.As(err, &chatErr) && chatErr.Produced() {
				// the answer was shown, only saving failed
				return nil
			}
			return errors.New("no answer")
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session id to continue (default: new session)")
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "model id (default: LLM_MODEL)")
	askCmd.Flags().StringArrayVarP(&askImages, "image", "i", nil, "attach an image file, repeatable")
	rootCmd.AddCommand(askCmd)
}
