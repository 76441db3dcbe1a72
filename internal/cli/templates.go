package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/earnedvalue-backend/internal/app"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/services"
)

func newTemplatesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"template"},
		Short:   "Seed and inspect milestone templates",
	}
	cmd.AddCommand(newTemplatesSeedCmd(opts), newTemplatesListCmd(opts), newTemplatesShowCmd(opts))
	return cmd
}

func newTemplatesSeedCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a template version for every category whose seed differs from the latest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				path := file
				if path == "" {
					path = a.Cfg.EarnedValue.TemplatesFile
				}
				set, err := services.LoadTemplateSet(path)
				if err != nil {
					return NewCLIError("could not read template seed file", "pass --file or set earned_value.templates_file", err)
				}
				res, err := a.Services.Templates.Seed(dbctx.Context{Ctx: ctx}, set)
				if err != nil {
					return err
				}
				if opts.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				for _, e := range res.Created {
					fmt.Fprintf(cmd.OutOrStdout(), "created   %s v%d\n", e.Category, e.Version)
				}
				for _, e := range res.Unchanged {
					fmt.Fprintf(cmd.OutOrStdout(), "unchanged %s v%d\n", e.Category, e.Version)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (default earned_value.templates_file)")
	return cmd
}

func newTemplatesListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the latest template version of every category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tpls, err := a.Services.Templates.ListLatest(dbctx.Context{Ctx: ctx})
				if err != nil {
					return err
				}
				if opts.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), tpls)
				}
				tw := newTable(cmd)
				fmt.Fprintln(tw, "CATEGORY\tVERSION\tMILESTONES\tCREATED")
				for _, t := range tpls {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", t.Category, t.Version, len(t.Milestones), t.CreatedAt.Format("2006-01-02"))
				}
				return tw.Flush()
			})
		},
	}
}

func newTemplatesShowCmd(opts *rootOptions) *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "show <category>",
		Short: "Show one template version (latest by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, ok := progress.ParseCategory(args[0])
			if !ok {
				return NewCLIError(fmt.Sprintf("unknown category %q", args[0]), "categories: spool, field_weld, valve, support, pipe, fitting, flange, instrument, gasket, threaded_pipe, tubing, hose, misc", nil)
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tpl, err := a.Services.Templates.Get(dbctx.Context{Ctx: ctx}, category, version)
				if err != nil {
					return err
				}
				if opts.jsonOutput() {
					return writeJSON(cmd.OutOrStdout(), tpl)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s v%d\n", tpl.Category, tpl.Version)
				tw := newTable(cmd)
				fmt.Fprintln(tw, "#\tMILESTONE\tWEIGHT\tPARTIAL\tAPPROVAL")
				for _, d := range tpl.Milestones {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%t\n", d.Order, d.Name, d.Weight.String(), d.IsPartial, d.RequiresSecondaryApproval)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "template version (0 for latest)")
	return cmd
}
