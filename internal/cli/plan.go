package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kiranraj/sredeploy/internal/plan"
)

// newPlanCmd creates the plan command
func newPlanCmd() *cobra.Command {
	var (
		env      string
		planPath string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the deployment plan without applying it",
		Long: `Plan prints the ordered steps a deploy run would execute for the
selected environment, including each step's required/best-effort mode.
Nothing is applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(env, planPath)
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "target environment (dev, prod)")
	cmd.Flags().StringVar(&planPath, "plan", "", "show a plan file instead of the built-in plans")

	return cmd
}

func runPlan(env, planPath string) error {
	cfg, err := loadConfig(env)
	if err != nil {
		return err
	}

	var plans []plan.Plan
	if planPath != "" {
		p, err := plan.Load(planPath)
		if err != nil {
			return err
		}
		plans = []plan.Plan{p}
	} else {
		plans = []plan.Plan{
			plan.Namespaces(cfg.Readiness.Namespace, cfg.Monitoring.Namespace),
			plan.Monitoring(cfg.Paths.MonitoringDir),
			plan.Application(cfg.Paths.KubernetesDir, cfg.Environment),
		}
	}

	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(2)
	defer encoder.Close()

	for _, p := range plans {
		if err := encoder.Encode(p); err != nil {
			return fmt.Errorf("could not render plan %q: %w", p.Name, err)
		}
	}

	return nil
}
