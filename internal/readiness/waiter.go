package readiness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/kiranraj/sredeploy/internal/command"
	"github.com/kiranraj/sredeploy/internal/util"
)

// Check describes one readiness wait: a status query, a predicate over the
// observed status, a poll interval, and a deadline.
// Invariant: Deadline > 0 and Interval < Deadline.
type Check struct {
	// Name identifies the check in logs and errors
	Name string

	// Query is the status command run once per poll; it should carry a
	// short timeout and a single attempt so one hung poll cannot stall
	// the whole wait
	Query command.Command

	// Interval is the sleep between polls
	Interval time.Duration

	// Deadline bounds the whole wait
	Deadline time.Duration

	// Predicate decides whether the observed status counts as ready.
	// It is never called for a poll whose query failed.
	Predicate func(*Snapshot) bool
}

// Validate checks the invariants on the check
func (c Check) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: readiness check has no name", util.ErrInvalidConfig)
	}
	if c.Deadline <= 0 {
		return fmt.Errorf("%w: readiness check %q has no deadline", util.ErrInvalidConfig, c.Name)
	}
	if c.Interval <= 0 || c.Interval >= c.Deadline {
		return fmt.Errorf("%w: readiness check %q interval must be positive and below the deadline", util.ErrInvalidConfig, c.Name)
	}
	if c.Predicate == nil {
		return fmt.Errorf("%w: readiness check %q has no predicate", util.ErrInvalidConfig, c.Name)
	}
	return nil
}

// Snapshot is one observation of workload status. When the query output was
// valid pod JSON, Pods holds the decoded list; Raw always holds the original
// output so timeouts can be diagnosed even for unparseable responses.
type Snapshot struct {
	// Pods is the decoded pod list (nil when the output was not pod JSON)
	Pods *corev1.PodList

	// Raw is the query's standard output
	Raw string

	// Err is the query error for a failed poll (nil for a clean observation)
	Err error

	// ObservedAt is when the observation was taken
	ObservedAt time.Time
}

// TimeoutError reports that the predicate never held within the deadline.
// It carries the last observed snapshot so the caller can log actionable
// diagnostics instead of a bare timeout message.
type TimeoutError struct {
	Check   string
	Last    *Snapshot
	Elapsed time.Duration
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("readiness check %q timed out after %s", e.Check, e.Elapsed.Round(time.Second))
}

// Unwrap maps the failure onto the shared error taxonomy
func (e *TimeoutError) Unwrap() error {
	return util.ErrReadinessTimeout
}

// Waiter polls workload status until a predicate holds or a deadline expires
type Waiter struct {
	runner command.Runner
	logger *slog.Logger
}

// NewWaiter creates a waiter on top of a command runner
func NewWaiter(runner command.Runner, logger *slog.Logger) *Waiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Waiter{runner: runner, logger: logger}
}

// Wait polls the check's query on its interval until the predicate holds or
// the deadline expires. It returns the satisfying snapshot as soon as the
// predicate first holds, never polling past that point. A poll whose query
// fails counts as "not yet ready" rather than aborting the wait. On timeout
// it returns a *TimeoutError carrying the last observed snapshot.
func (w *Waiter) Wait(ctx context.Context, check Check) (*Snapshot, error) {
	if err := check.Validate(); err != nil {
		return nil, err
	}

	w.logger.Info("waiting for readiness",
		"check", check.Name,
		"interval", check.Interval,
		"deadline", check.Deadline)

	start := time.Now()
	var last *Snapshot

	for {
		snap := w.observe(ctx, check)
		last = snap

		if snap.Err == nil && check.Predicate(snap) {
			w.logger.Info("readiness check satisfied",
				"check", check.Name,
				"elapsed", time.Since(start).Round(time.Second))
			return snap, nil
		}

		elapsed := time.Since(start)
		if elapsed >= check.Deadline {
			break
		}

		w.logger.Info("not ready yet",
			"check", check.Name,
			"elapsed", elapsed.Round(time.Second))

		// Never sleep past the deadline; the loop must wake to report
		// elapsed >= deadline rather than overshoot silently
		wait := check.Interval
		if remaining := check.Deadline - elapsed; wait > remaining {
			wait = remaining
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return last, fmt.Errorf("%w: %v", util.ErrCancelled, ctx.Err())
		}
	}

	elapsed := time.Since(start)
	w.logger.Error("readiness check timed out",
		"check", check.Name,
		"elapsed", elapsed.Round(time.Second),
		"last_status", summarize(last))

	return last, &TimeoutError{
		Check:   check.Name,
		Last:    last,
		Elapsed: elapsed,
	}
}

// observe runs a single bounded poll and decodes the output
func (w *Waiter) observe(ctx context.Context, check Check) *Snapshot {
	snap := &Snapshot{ObservedAt: time.Now()}

	res, err := w.runner.Run(ctx, check.Query)
	if err != nil {
		// A failed poll is "not yet ready", not a wait abort
		w.logger.Debug("status query failed", "check", check.Name, "error", err)
		snap.Err = err
		return snap
	}

	snap.Raw = res.Stdout

	var pods corev1.PodList
	if jsonErr := json.Unmarshal([]byte(res.Stdout), &pods); jsonErr == nil && pods.Kind == "PodList" {
		snap.Pods = &pods
	}

	return snap
}

// summarize renders a snapshot for timeout diagnostics
func summarize(s *Snapshot) string {
	if s == nil {
		return "no observation"
	}
	if s.Err != nil {
		return fmt.Sprintf("last poll failed: %v", s.Err)
	}
	if s.Pods == nil {
		return fmt.Sprintf("unparsed output (%d bytes)", len(s.Raw))
	}

	running := RunningCount(s)
	return fmt.Sprintf("%d/%d pods running", running, len(s.Pods.Items))
}
