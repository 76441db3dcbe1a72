package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yungbote/earnedvalue-backend/internal/app"
	"github.com/yungbote/earnedvalue-backend/internal/domain/manhours"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/services"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "report <project-id>",
		Short: "Budgeted vs earned hours for a project, optionally grouped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseUUIDArg("project", args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				dbc := dbctx.Context{Ctx: ctx}
				var r *services.ProjectReport
				if by == "" {
					r, err = a.Services.Reports.ProjectSummary(dbc, projectID)
				} else {
					r, err = a.Services.Reports.Breakdown(dbc, projectID, manhours.GroupDimension(by))
				}
				if err != nil {
					return err
				}
				if opts.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), r)
				}
				if !r.Configured {
					fmt.Fprintln(cmd.OutOrStdout(), "no active budget")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "budget v%d  %s hours\n", r.BudgetVersion, r.TotalHours.StringFixed(2))
				tw := newTable(cmd)
				fmt.Fprintln(tw, "GROUP\tCOMPONENTS\tBUDGETED\tEARNED\tREMAINING\t%")
				for _, g := range r.Groups {
					writeRollup(tw, g)
				}
				if r.Total != nil {
					writeRollup(tw, *r.Total)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "group by area, system or test_package")
	return cmd
}

func writeRollup(w io.Writer, r manhours.Rollup) {
	fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n", r.Key, r.ComponentCount,
		r.BudgetedHours.StringFixed(2), r.EarnedHours.StringFixed(2), r.RemainingHours.StringFixed(2), r.PercentComplete.StringFixed(2))
}
