package cluster

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiranraj/sredeploy/internal/util"
)

// newStartCmd creates the cluster start command
func newStartCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the local cluster and wait until it is ready",
		Long: `Start brings up the local Minikube cluster with the configured memory,
CPU, and driver settings, then polls until the control plane accepts API
calls or the timeout expires. Starting an already-running cluster is a
no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "how long to wait for the cluster (default from config)")

	return cmd
}

func runStart(cmd *cobra.Command, timeout time.Duration) error {
	controller, cfg, err := newController()
	if err != nil {
		return err
	}

	if timeout == 0 {
		timeout = cfg.Cluster.StartTimeout
	}

	if err := controller.EnsureRunning(cmd.Context(), timeout); err != nil {
		return fmt.Errorf("cluster start failed: %s", util.FriendlyError(err))
	}

	slog.Info("cluster is running")
	return nil
}
