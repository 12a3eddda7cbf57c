package cluster

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiranraj/sredeploy/internal/command"
	"github.com/kiranraj/sredeploy/internal/config"
	"github.com/kiranraj/sredeploy/internal/minikube"
)

// NewClusterCmd creates the cluster management command
func NewClusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Manage the local Minikube cluster",
		Long: `Manage the lifecycle of the local Minikube cluster the application
deploys to.

This command provides subcommands for checking the cluster state and for
starting, stopping, and restarting the cluster with the configured
resources.`,
	}

	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newRestartCmd())

	return cmd
}

// newController builds a lifecycle controller from the loaded configuration
func newController() (*minikube.Controller, *config.Config, error) {
	cfg, err := config.NewManager(viper.GetString("config")).Load()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.Default()
	runner := command.NewExecRunner(logger)

	controller := minikube.NewController(runner, minikube.Options{
		Memory:       cfg.Cluster.Memory,
		CPUs:         cfg.Cluster.CPUs,
		Driver:       cfg.Cluster.Driver,
		PollInterval: cfg.Cluster.PollInterval,
	}, logger)

	return controller, cfg, nil
}
