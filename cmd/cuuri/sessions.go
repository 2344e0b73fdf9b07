package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/sandevgo/cuuri/internal/service/ui"
	"github.com/spf13/cobra"
)

var historyLimit int

var sessionsCmd = &cobra.Command{
	Use:          "sessions",
	Short:        "List stored sessions, most recent first",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		sessions, err := a.repo.Sessions(ctx)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), ui.DescStyle.Render("no sessions yet"))
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tEXCHANGES\tLAST ACTIVITY")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%d\t%s\n", s.SessionID, s.Exchanges, s.LastActivity.Local().Format(time.DateTime))
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:          "history SESSION",
	Short:        "Print the exchanges of a session",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		exchanges, err := a.repo.History(ctx, args[0], historyLimit)
		if err != nil {
			return err
		}
		if len(exchanges) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), ui.DescStyle.Render("no exchanges in session "+args[0]))
			return nil
		}

		out := cmd.OutOrStdout()
		for _, ex := range exchanges {
			fmt.Fprintln(out, ui.DescStyle.Render(ex.CreatedAt.Local().Format(time.DateTime)))
			fmt.Fprintln(out, ui.UsageStyle.Render("> "+ex.Question))
			fmt.Fprintln(out, ex.Answer)
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show only the newest N exchanges")
	rootCmd.AddCommand(sessionsCmd, historyCmd)
}
