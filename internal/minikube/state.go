package minikube

import (
	"encoding/json"
	"strings"
)

// State represents the observed lifecycle state of the Minikube cluster
type State int

const (
	// StateUnknown means no status query has completed yet
	StateUnknown State = iota

	// StateStopped means the control plane is not running
	StateStopped

	// StateStarting means a start command was issued and readiness
	// confirmation is still pending
	StateStarting

	// StateRunning means the control plane is reachable and accepting commands
	StateRunning
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	default:
		return "Unknown"
	}
}

// statusOutput is the subset of `minikube status -o json` output we inspect.
// The Host field reports the state of the VM/container running the cluster.
type statusOutput struct {
	Host string `json:"Host"`
}

// parseStatus maps `minikube status -o json` stdout to a running/not-running
// decision. If the output is not valid JSON it falls back to a substring
// check, matching what older minikube releases print.
func parseStatus(stdout string) bool {
	var status statusOutput
	if err := json.Unmarshal([]byte(stdout), &status); err == nil && status.Host != "" {
		return status.Host == "Running"
	}
	// Plain-text status output contains a "host: Running" line
	return strings.Contains(stdout, "Running")
}
