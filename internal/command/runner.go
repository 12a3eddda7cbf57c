package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/kiranraj/sredeploy/internal/util"
)

const (
	// DefaultTimeout bounds a single attempt when none is specified
	DefaultTimeout = 60 * time.Second

	// DefaultBackoff is the fixed wait between failed attempts
	DefaultBackoff = 5 * time.Second
)

// Runner executes external commands. Components take this interface so tests
// can substitute a scripted implementation.
type Runner interface {
	// Run executes the command according to its retry policy.
	// On any successful attempt it returns that attempt's result immediately.
	// On exhausting all attempts it returns a *RunError carrying the last
	// captured output and whether the final cause was a timeout.
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context, cmd Command) (*Result, error)

// Run implements Runner
func (f RunnerFunc) Run(ctx context.Context, cmd Command) (*Result, error) {
	return f(ctx, cmd)
}

// RunError is the typed failure returned after all attempts are exhausted
type RunError struct {
	// Cmd is the command that failed
	Cmd Command

	// Last is the result of the final attempt (nil if the command never started)
	Last *Result

	// TimedOut is true when the final attempt exceeded its timeout
	TimedOut bool

	// Attempts is the number of tries that were made
	Attempts int
}

// Error implements the error interface
func (e *RunError) Error() string {
	cause := "non-zero exit"
	if e.TimedOut {
		cause = "timeout"
	}
	return fmt.Sprintf("command %q failed after %d attempt(s) (%s)", e.Cmd.String(), e.Attempts, cause)
}

// Unwrap maps the failure onto the shared error taxonomy
func (e *RunError) Unwrap() error {
	if e.TimedOut {
		return util.ErrTimeout
	}
	return util.ErrStepFailed
}

// ExecRunner runs commands via os/exec with per-attempt timeouts
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates a Runner backed by os/exec
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{logger: logger}
}

// Run executes the command, retrying on non-zero exit or timeout with a fixed
// backoff, up to cmd.Attempts total tries. A timed-out attempt counts as one
// failed attempt; exec.CommandContext kills the process on timeout so nothing
// leaks before the retry.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if len(cmd.Args) == 0 {
		return nil, fmt.Errorf("%w: command has no arguments", util.ErrInvalidConfig)
	}
	if cmd.Attempts < 1 {
		return nil, fmt.Errorf("%w: attempts must be >= 1, got %d", util.ErrInvalidConfig, cmd.Attempts)
	}
	if cmd.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be > 0, got %s", util.ErrInvalidConfig, cmd.Timeout)
	}

	var (
		last     *Result
		timedOut bool
	)

	for attempt := 1; attempt <= cmd.Attempts; attempt++ {
		// Bail out between attempts if the caller is shutting down
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", util.ErrCancelled, ctx.Err())
		default:
		}

		r.logger.Debug("running command",
			"command", cmd.String(),
			"attempt", attempt,
			"max_attempts", cmd.Attempts,
			"timeout", cmd.Timeout)

		res, attemptTimedOut := r.runOnce(ctx, cmd)
		res.Attempts = attempt
		last = res
		timedOut = attemptTimedOut

		if !attemptTimedOut && res.ExitCode == 0 {
			r.logger.Debug("command succeeded",
				"command", cmd.String(),
				"attempt", attempt,
				"duration", res.Duration)
			return res, nil
		}

		if attemptTimedOut {
			r.logger.Warn("command timed out",
				"command", cmd.String(),
				"attempt", fmt.Sprintf("%d/%d", attempt, cmd.Attempts),
				"timeout", cmd.Timeout)
		} else {
			r.logger.Warn("command failed",
				"command", cmd.String(),
				"attempt", fmt.Sprintf("%d/%d", attempt, cmd.Attempts),
				"exit_code", res.ExitCode,
				"stderr", truncate(res.Stderr, 200))
		}

		// Fixed backoff before the next attempt, unless this was the last one
		if attempt < cmd.Attempts {
			select {
			case <-time.After(cmd.Backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", util.ErrCancelled, ctx.Err())
			}
		}
	}

	r.logger.Error("command failed after all attempts",
		"command", cmd.String(),
		"attempts", cmd.Attempts,
		"timed_out", timedOut)

	return nil, &RunError{
		Cmd:      cmd,
		Last:     last,
		TimedOut: timedOut,
		Attempts: cmd.Attempts,
	}
}

// runOnce performs a single attempt and reports whether it timed out
func (r *ExecRunner) runOnce(ctx context.Context, cmd Command) (*Result, bool) {
	attemptCtx, cancel := context.WithTimeout(ctx, cmd.Timeout)
	defer cancel()

	execCmd := exec.CommandContext(attemptCtx, cmd.Args[0], cmd.Args[1:]...)
	execCmd.Dir = cmd.Dir
	if cmd.Stdin != "" {
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	start := time.Now()
	err := execCmd.Run()
	duration := time.Since(start)

	res := &Result{
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: duration,
	}

	if err == nil {
		return res, false
	}

	// Distinguish timeout from non-zero exit. CommandContext has already
	// killed the process when the attempt context expired.
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		res.ExitCode = -1
		return res, true
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	} else {
		// Command could not be started (e.g. binary not found)
		res.ExitCode = -1
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
	}

	return res, false
}

// truncate shortens a string for log output
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
