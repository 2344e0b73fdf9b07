package main

import (
	"fmt"

	"github.com/sandevgo/cuuri/internal/service/ui"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:          "models",
	Short:        "List models offered by the configured provider",
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

		models, err := a.provider.Models(ctx)
		if err != nil {
			return err
		}

		current := a.providerCfg.GetModel()
		for _, m := range models {
			if m.ID == current {
				fmt.Fprintln(cmd.OutOrStdout(), ui.UsageStyle.Render(m.ID+" *"))
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
