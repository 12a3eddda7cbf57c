// Package orchestrator composes the full deployment sequence for the
// application: build artifact, ensure the local cluster is running, create
// namespaces, apply the monitoring stack, apply the application overlay,
// wait for workload readiness, and optionally open port-forwards.
//
// The sequence is strictly ordered and synchronous; the only background
// work is the port-forward processes, which stay open until Shutdown.
package orchestrator
