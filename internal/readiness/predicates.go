package readiness

import (
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/kiranraj/sredeploy/internal/command"
)

// PodsQuery builds the status command used for pod-phase checks: a single
// bounded `kubectl get pods` with JSON output, one attempt, short timeout.
func PodsQuery(namespace, selector string) command.Command {
	args := []string{"kubectl", "get", "pods", "-n", namespace, "-o", "json"}
	if selector != "" {
		args = append(args, "-l", selector)
	}
	return command.New(args...).WithTimeout(10 * time.Second)
}

// AllRunning returns a predicate that holds when at least min pods exist,
// every pod reports the Running phase, and none is Pending or Failed.
func AllRunning(min int) func(*Snapshot) bool {
	return func(s *Snapshot) bool {
		if s.Pods == nil || len(s.Pods.Items) < min {
			return false
		}
		for _, pod := range s.Pods.Items {
			if pod.Status.Phase != corev1.PodRunning {
				return false
			}
		}
		return true
	}
}

// NoneFailed returns a predicate that holds when no pod reports a failure
// phase. An empty pod list satisfies it.
func NoneFailed() func(*Snapshot) bool {
	return func(s *Snapshot) bool {
		if s.Pods == nil {
			return false
		}
		for _, pod := range s.Pods.Items {
			if pod.Status.Phase == corev1.PodFailed {
				return false
			}
		}
		return true
	}
}

// RunningCount reports how many pods in the snapshot are in the Running phase
func RunningCount(s *Snapshot) int {
	if s == nil || s.Pods == nil {
		return 0
	}
	n := 0
	for _, pod := range s.Pods.Items {
		if pod.Status.Phase == corev1.PodRunning {
			n++
		}
	}
	return n
}
