package cluster

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiranraj/sredeploy/internal/util"
)

// newRestartCmd creates the cluster restart command
func newRestartCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the local cluster",
		Long: `Restart stops the local Minikube cluster and brings it back up, waiting
until the control plane accepts API calls again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestart(cmd, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "how long to wait for the cluster (default from config)")

	return cmd
}

func runRestart(cmd *cobra.Command, timeout time.Duration) error {
	controller, cfg, err := newController()
	if err != nil {
		return err
	}

	if timeout == 0 {
		timeout = cfg.Cluster.StartTimeout
	}

	if err := controller.Restart(cmd.Context(), timeout); err != nil {
		return fmt.Errorf("cluster restart failed: %s", util.FriendlyError(err))
	}

	slog.Info("cluster is running")
	return nil
}
