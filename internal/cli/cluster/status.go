package cluster

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiranraj/sredeploy/internal/config"
	"github.com/kiranraj/sredeploy/internal/output"
)

// newStatusCmd creates the cluster status command
func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the local cluster",
		Long: `Status issues a single bounded query against the cluster runtime and
reports the observed state together with the kubeconfig context in use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}

	return cmd
}

func runStatus(cmd *cobra.Command) error {
	controller, cfg, err := newController()
	if err != nil {
		return err
	}

	state := controller.Status(cmd.Context())

	data := map[string]interface{}{
		"state":   state.String(),
		"driver":  cfg.Cluster.Driver,
		"context": cfg.Cluster.Context,
	}

	// The kubeconfig context is informational; a missing file just means
	// the cluster was never started
	loader := config.NewKubeconfigLoader(viper.GetString("kubeconfig"))
	if current, err := loader.GetCurrentContext(); err == nil && current != "" {
		data["currentContext"] = current
	}

	formatter := output.NewFormatter(
		output.Format(viper.GetString("output")),
		output.WithNoColor(viper.GetBool("no-color")),
	)
	return formatter.Format(os.Stdout, data)
}
