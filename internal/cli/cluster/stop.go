package cluster

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kiranraj/sredeploy/internal/util"
)

// newStopCmd creates the cluster stop command
func newStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the local cluster",
		Long: `Stop shuts down the local Minikube cluster. Stopping a cluster that is
not running is a no-op. Deployed resources are preserved and come back
with the next start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd)
		},
	}

	return cmd
}

func runStop(cmd *cobra.Command) error {
	controller, _, err := newController()
	if err != nil {
		return err
	}

	if err := controller.Stop(cmd.Context()); err != nil {
		return fmt.Errorf("cluster stop failed: %s", util.FriendlyError(err))
	}

	slog.Info("cluster stopped")
	return nil
}
