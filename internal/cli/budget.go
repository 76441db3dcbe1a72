package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yungbote/earnedvalue-backend/internal/app"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/services"
)

func newBudgetCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Create, inspect and override manhour budgets",
	}
	cmd.AddCommand(
		newBudgetCreateCmd(opts),
		newBudgetListCmd(opts),
		newBudgetActiveCmd(opts),
		newBudgetOverrideCmd(opts),
	)
	return cmd
}

func parseUUIDArg(what, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, NewCLIError(fmt.Sprintf("invalid %s id %q", what, raw), "", err)
	}
	return id, nil
}

func parseHours(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, NewCLIError(fmt.Sprintf("invalid hours %q", raw), "pass a decimal number such as 1250.5", err)
	}
	return d, nil
}

func newBudgetCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		hours     string
		reason    string
		effective string
	)
	cmd := &cobra.Command{
		Use:   "create <project-id>",
		Short: "Create a new budget version and distribute it across the project's components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseUUIDArg("project", args[0])
			if err != nil {
				return err
			}
			total, err := parseHours(hours)
			if err != nil {
				return err
			}
			req := services.CreateBudgetRequest{ProjectID: projectID, TotalHours: total, Reason: reason}
			if effective != "" {
				ts, err := time.Parse("2006-01-02", effective)
				if err != nil {
					return NewCLIError(fmt.Sprintf("invalid effective date %q", effective), "use YYYY-MM-DD", err)
				}
				req.EffectiveDate = ts
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Budgets.CreateBudget(dbctx.Context{Ctx: ctx}, req)
				if err != nil {
					return err
				}
				if opts.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "budget v%d created (%s)\n", res.Budget.Version, res.Budget.ID)
				fmt.Fprintf(out, "components processed: %d\n", res.ComponentsProcessed)
				fmt.Fprintf(out, "hours allocated:      %s of %s\n", res.TotalAllocated.StringFixed(2), res.Budget.TotalHours.StringFixed(2))
				for _, w := range res.Warnings {
					fmt.Fprintf(out, "warning: %s: %s\n", w.ComponentID, w.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&hours, "hours", "", "total budgeted manhours")
	cmd.Flags().StringVar(&reason, "reason", "", "revision reason")
	cmd.Flags().StringVar(&effective, "effective", "", "effective date YYYY-MM-DD (default now)")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}

func newBudgetListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List every budget version of a project, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseUUIDArg("project", args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				budgets, err := a.Services.Budgets.ListBudgetVersions(dbctx.Context{Ctx: ctx}, projectID)
				if err != nil {
					return err
				}
				if opts.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), budgets)
				}
				tw := newTable(cmd)
				fmt.Fprintln(tw, "VERSION\tACTIVE\tHOURS\tEFFECTIVE\tCREATED BY\tREASON")
				for _, b := range budgets {
					fmt.Fprintf(tw, "%d\t%t\t%s\t%s\t%s\t%s\n", b.Version, b.IsActive, b.TotalHours.StringFixed(2),
						b.EffectiveDate.Format("2006-01-02"), b.CreatedBy, b.RevisionReason)
				}
				return tw.Flush()
			})
		},
	}
}

func newBudgetActiveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "active <project-id>",
		Short: "Show the active budget version of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseUUIDArg("project", args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				b, err := a.Services.Budgets.GetActiveBudget(dbctx.Context{Ctx: ctx}, projectID)
				if err != nil {
					return err
				}
				if opts.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), map[string]any{"budget": b, "configured": b != nil})
				}
				if b == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "no budget configured")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "v%d  %s hours  effective %s\n", b.Version, b.TotalHours.StringFixed(2), b.EffectiveDate.Format("2006-01-02"))
				return nil
			})
		},
	}
}

func newBudgetOverrideCmd(opts *rootOptions) *cobra.Command {
	var (
		hours  string
		reason string
	)
	cmd := &cobra.Command{
		Use:   "override <project-id> <component-id>",
		Short: "Set a component's budgeted hours by hand in the active budget",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseUUIDArg("project", args[0])
			if err != nil {
				return err
			}
			componentID, err := parseUUIDArg("component", args[1])
			if err != nil {
				return err
			}
			h, err := parseHours(hours)
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				alloc, err := a.Services.Budgets.OverrideAllocation(dbctx.Context{Ctx: ctx}, services.OverrideAllocationRequest{
					ProjectID:   projectID,
					ComponentID: componentID,
					Hours:       h,
					Reason:      reason,
				})
				if err != nil {
					return err
				}
				if opts.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), alloc)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "component %s: budgeted %s earned %s (%s)\n",
					alloc.ComponentID, alloc.BudgetedHours.StringFixed(2), alloc.EarnedHours.StringFixed(2), alloc.CalculationBasis)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&hours, "hours", "", "budgeted manhours for the component")
	cmd.Flags().StringVar(&reason, "reason", "", "why the distributor's figure is being replaced")
	_ = cmd.MarkFlagRequired("hours")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}
