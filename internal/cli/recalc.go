package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/earnedvalue-backend/internal/app"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

func newRecalcCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc <component-id>",
		Short: "Recompute a component's earned hours from its milestones and active allocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			componentID, err := parseUUIDArg("component", args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Components.Recalculate(dbctx.Context{Ctx: ctx}, componentID)
				if err != nil {
					return err
				}
				if opts.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s", componentID, res.Status)
				if res.BudgetVersion > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), " budget v%d earned %s of %s (was %s)",
						res.BudgetVersion, res.EarnedHours.StringFixed(2), res.BudgetedHours.StringFixed(2), res.PreviousEarned.StringFixed(2))
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
}
