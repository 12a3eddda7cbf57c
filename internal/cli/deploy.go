package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiranraj/sredeploy/internal/command"
	"github.com/kiranraj/sredeploy/internal/config"
	"github.com/kiranraj/sredeploy/internal/orchestrator"
	"github.com/kiranraj/sredeploy/internal/output"
	"github.com/kiranraj/sredeploy/internal/util"
)

// newDeployCmd creates the deploy command
func newDeployCmd() *cobra.Command {
	var (
		env            string
		skipBuild      bool
		skipMonitoring bool
		portForward    bool
		planPath       string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Build and deploy the application to the local cluster",
		Long: `Deploy runs the full deployment sequence against the local Minikube
cluster: build the container image, ensure the cluster is running, create
namespaces, apply the monitoring stack, apply the application overlay for
the selected environment, and wait for the workload to become ready.

With --port-forward the command keeps running after a successful deploy,
holding port-forwards to the application and monitoring services open
until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, env, orchestrator.Options{
				SkipBuild:      skipBuild,
				SkipMonitoring: skipMonitoring,
				PortForward:    portForward,
				PlanPath:       planPath,
			})
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "target environment (dev, prod)")
	cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "skip the image build and load")
	cmd.Flags().BoolVar(&skipMonitoring, "skip-monitoring", false, "skip the monitoring stack")
	cmd.Flags().BoolVar(&portForward, "port-forward", false, "open port-forwards after a successful deploy")
	cmd.Flags().StringVar(&planPath, "plan", "", "apply a plan file instead of the built-in application plan")

	return cmd
}

func runDeploy(cmd *cobra.Command, env string, opts orchestrator.Options) error {
	cfg, err := loadConfig(env)
	if err != nil {
		return err
	}

	logger := slog.Default()
	runner := command.NewExecRunner(logger)

	orch := orchestrator.New(cfg, opts, runner, logger)
	defer func() {
		if err := orch.Shutdown(); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	ctx := cmd.Context()
	summary, err := orch.Deploy(ctx)

	printSummary(cmd, summary)

	if err != nil {
		return fmt.Errorf("deployment failed at %s stage: %s", summary.Stage, util.FriendlyError(err))
	}

	if opts.PortForward && summary.TunnelsOpen > 0 {
		logger.Info("port-forwards open, press Ctrl+C to stop", "count", summary.TunnelsOpen)
		<-ctx.Done()
		logger.Info("shutting down")
	}

	return nil
}

// printSummary renders every plan report the run produced
func printSummary(cmd *cobra.Command, summary *orchestrator.RunSummary) {
	if summary == nil {
		return
	}

	formatter := newFormatter()
	for _, r := range summary.Reports() {
		fmt.Fprintln(os.Stdout, "")
		if err := formatter.FormatReport(os.Stdout, r); err != nil {
			slog.Warn("could not render report", "plan", r.Plan, "error", err)
		}
	}
}

// loadConfig loads the configuration file and applies the environment
// override from the command line
func loadConfig(env string) (*config.Config, error) {
	cfg, err := config.NewManager(cfgFile).Load()
	if err != nil {
		return nil, err
	}

	if env != "" {
		cfg.Environment = env
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newFormatter builds a formatter from the global output flags
func newFormatter() output.Formatter {
	return output.NewFormatter(
		output.Format(viper.GetString("output")),
		output.WithNoColor(viper.GetBool("no-color")),
	)
}
