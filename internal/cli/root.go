package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/earnedvalue-backend/internal/app"
	"github.com/yungbote/earnedvalue-backend/internal/config"
	"github.com/yungbote/earnedvalue-backend/internal/platform/ctxutil"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

var (
	Version = "dev"
	Commit  = "none"
)

// rootOptions are the persistent flags every subcommand shares.
type rootOptions struct {
	env       string
	configDir string
	output    string
	actor     string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "evctl",
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		Short:         "Operate the earned value engine",
		Long:          "evctl distributes manhour budgets, seeds milestone templates, recalculates earned hours and serves the API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOutput(opts)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.env, "env", "", "config environment overlay (default $CONFIG_ENV or local)")
	pf.StringVar(&opts.configDir, "config-dir", "", "directory holding base.yaml (default $CONFIG_DIR or config)")
	pf.StringVarP(&opts.output, "output", "o", "text", "output format: text or json")
	pf.StringVar(&opts.actor, "actor", "evctl", "actor id recorded on writes")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newTemplatesCmd(opts),
		newBudgetCmd(opts),
		newRecalcCmd(opts),
		newReportCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// Execute runs the root command and maps domain errors for display.
func Execute(ctx context.Context) error {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		mapped := MapError(err)
		root.PrintErrln("Error:", mapped)
		if ce, ok := mapped.(*CLIError); ok && ce.Hint != "" {
			root.PrintErrln("Hint:", ce.Hint)
		}
		return mapped
	}
	return nil
}

func (o *rootOptions) loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(o.env, o.configDir)
	if err != nil {
		return nil, nil, NewCLIError("could not load configuration", "check --config-dir and the environment overrides", err)
	}
	log, err := logger.NewWithLevel(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// withApp opens the engine without its network surface and runs fn with an
// actor-scoped context.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, log, err := o.loadConfig()
	if err != nil {
		return err
	}
	ctx := ctxutil.WithActor(cmd.Context(), &ctxutil.ActorData{ActorID: o.actor, Role: "admin"})
	ctx = ctxutil.WithRequest(ctx, &ctxutil.RequestData{RequestID: uuid.NewString(), Source: ctxutil.SourceCLI})
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
