package minikube

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/kiranraj/sredeploy/internal/command"
	"github.com/kiranraj/sredeploy/internal/util"
)

// Options controls how the cluster is started and polled
type Options struct {
	// Memory is the VM/container memory in MiB passed to minikube start
	Memory int

	// CPUs is the CPU count passed to minikube start
	CPUs int

	// Driver is the minikube driver (docker, virtualbox, ...)
	Driver string

	// StatusTimeout bounds a single status query; a hung status check must
	// not block the caller, so the query runs with one attempt only
	StatusTimeout time.Duration

	// PollInterval is the delay between status queries while waiting for
	// the control plane to come up
	PollInterval time.Duration

	// CommandTimeout bounds start and stop commands
	CommandTimeout time.Duration
}

// applyDefaults fills in zero values with sensible local-cluster defaults
func (o *Options) applyDefaults() {
	if o.Memory == 0 {
		o.Memory = 4096
	}
	if o.CPUs == 0 {
		o.CPUs = 2
	}
	if o.Driver == "" {
		o.Driver = "docker"
	}
	if o.StatusTimeout == 0 {
		o.StatusTimeout = 10 * time.Second
	}
	if o.PollInterval == 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.CommandTimeout == 0 {
		o.CommandTimeout = 60 * time.Second
	}
}

// Controller manages the lifecycle of a local Minikube cluster through the
// minikube and kubectl CLIs. It is the only component that mutates the
// observed cluster state.
type Controller struct {
	runner command.Runner
	opts   Options
	logger *slog.Logger

	// mu protects state
	mu    sync.Mutex
	state State
}

// NewController creates a lifecycle controller on top of a command runner
func NewController(runner command.Runner, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()

	return &Controller{
		runner: runner,
		opts:   opts,
		logger: logger,
		state:  StateUnknown,
	}
}

// State returns the last observed cluster state without issuing a query
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status issues a single bounded status query and maps the output to a state.
// The query runs with one attempt and a short timeout so a hung minikube
// cannot block the caller indefinitely. A failed query maps to Stopped unless
// a start is in flight, in which case Starting is preserved.
func (c *Controller) Status(ctx context.Context) State {
	cmd := command.New("minikube", "status", "-o", "json").
		WithTimeout(c.opts.StatusTimeout)

	res, err := c.runner.Run(ctx, cmd)

	running := false
	if err == nil {
		running = parseStatus(res.Stdout)
	} else {
		c.logger.Debug("status query failed", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if running {
		c.state = StateRunning
	} else if c.state != StateStarting {
		c.state = StateStopped
	}

	return c.state
}

// EnsureRunning makes sure the cluster control plane is up and accepting
// commands. If the cluster is already Running this is an idempotent no-op.
// Otherwise it issues a start command and polls status until Running or
// startTimeout elapses.
//
// The start command's own exit code is not trusted: minikube start is slow
// and occasionally reports success before the API server accepts calls, so
// the subsequent poll loop is the source of truth.
func (c *Controller) EnsureRunning(ctx context.Context, startTimeout time.Duration) error {
	if c.Status(ctx) == StateRunning {
		c.logger.Info("minikube is already running")
		return nil
	}

	c.logger.Info("starting minikube",
		"memory", c.opts.Memory,
		"cpus", c.opts.CPUs,
		"driver", c.opts.Driver,
		"timeout", startTimeout)

	c.setState(StateStarting)

	startCmd := command.New("minikube", "start",
		"--memory="+strconv.Itoa(c.opts.Memory),
		"--cpus="+strconv.Itoa(c.opts.CPUs),
		"--driver="+c.opts.Driver).
		WithTimeout(c.opts.CommandTimeout)

	if _, err := c.runner.Run(ctx, startCmd); err != nil {
		if util.IsCancelled(err) {
			c.setState(StateStopped)
			return err
		}
		// Partial failures are tolerated; the poll loop decides
		c.logger.Warn("minikube start command did not complete cleanly", "error", err)
	}

	return c.waitForReady(ctx, startTimeout)
}

// waitForReady polls status until the control plane is Running and kubectl
// can execute a basic command against it, or the timeout elapses
func (c *Controller) waitForReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if c.Status(ctx) == StateRunning {
			// Confirm basic command execution works before declaring victory
			if err := c.verifyKubectl(ctx); err == nil {
				c.logger.Info("minikube started successfully")
				return nil
			}
			c.setState(StateStarting)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		c.logger.Info("waiting for minikube to be ready",
			"remaining", remaining.Round(time.Second))

		wait := c.opts.PollInterval
		if wait > remaining {
			wait = remaining
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			c.setState(StateStopped)
			return fmt.Errorf("%w: %v", util.ErrCancelled, ctx.Err())
		}
	}

	c.setState(StateStopped)
	return fmt.Errorf("minikube failed to start within %s: %w", timeout, util.ErrTimeout)
}

// Stop stops the cluster. Stopping an already-stopped cluster is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	if c.Status(ctx) != StateRunning {
		c.logger.Info("minikube is not running")
		return nil
	}

	c.logger.Info("stopping minikube")

	cmd := command.New("minikube", "stop").
		WithTimeout(c.opts.CommandTimeout).
		WithRetries(3, command.DefaultBackoff)

	if _, err := c.runner.Run(ctx, cmd); err != nil {
		return util.WrapErrorf(err, "failed to stop minikube")
	}

	c.setState(StateStopped)
	c.logger.Info("minikube stopped successfully")
	return nil
}

// Restart stops the cluster, waits briefly for it to settle, then starts it
func (c *Controller) Restart(ctx context.Context, startTimeout time.Duration) error {
	if err := c.Stop(ctx); err != nil {
		return err
	}

	select {
	case <-time.After(c.opts.PollInterval):
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", util.ErrCancelled, ctx.Err())
	}

	return c.EnsureRunning(ctx, startTimeout)
}

// LoadImage loads a locally built container image into the cluster runtime
func (c *Controller) LoadImage(ctx context.Context, tag string) error {
	c.logger.Info("loading image into minikube", "image", tag)

	cmd := command.New("minikube", "image", "load", tag).
		WithTimeout(2 * c.opts.CommandTimeout)

	if _, err := c.runner.Run(ctx, cmd); err != nil {
		return util.WrapErrorf(err, "failed to load image %s", tag)
	}

	return nil
}

// verifyKubectl confirms kubectl can talk to the freshly started control plane
func (c *Controller) verifyKubectl(ctx context.Context) error {
	cmd := command.New("kubectl", "version", "--output=yaml").
		WithTimeout(c.opts.StatusTimeout)

	_, err := c.runner.Run(ctx, cmd)
	if err != nil {
		c.logger.Debug("kubectl verification failed", "error", err)
	}
	return err
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
