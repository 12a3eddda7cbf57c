// Package command provides the single primitive every other component is built
// on: executing an external command with a per-attempt timeout and a bounded,
// fixed-backoff retry policy.
//
// # Basic Usage
//
// Build a Command and run it through a Runner:
//
//	runner := command.NewExecRunner(logger)
//
//	cmd := command.New("kubectl", "apply", "-f", "deployment.yaml").
//	    WithTimeout(30 * time.Second).
//	    WithRetries(3, 5*time.Second)
//
//	res, err := runner.Run(ctx, cmd)
//
// # Retry Semantics
//
// A non-zero exit or a timeout counts as one failed attempt. On any successful
// attempt the runner returns immediately with that attempt's output; earlier
// failures are discarded. After exhausting all attempts the runner returns a
// *RunError carrying the last captured output and whether the final cause was
// a timeout or a non-zero exit.
//
// # Process Hygiene
//
// Each attempt runs under exec.CommandContext with its own deadline, so a
// timed-out process is killed before the next attempt starts; the runner never
// leaks the underlying process.
//
// # Testing
//
// Components accept the Runner interface. Tests substitute RunnerFunc to
// script exact command outcomes without spawning processes.
package command
