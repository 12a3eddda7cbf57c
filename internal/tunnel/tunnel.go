package tunnel

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/kiranraj/sredeploy/internal/util"
)

const (
	// DefaultStartupGrace is how long a freshly spawned forward gets to
	// prove it stays alive before Open reports success
	DefaultStartupGrace = 2 * time.Second

	// DefaultStopGrace is how long Close waits for a graceful exit
	// before killing the process
	DefaultStopGrace = 3 * time.Second
)

// Spec describes one local forward to a cluster service
type Spec struct {
	// Name identifies the forward in logs and errors
	Name string

	// Namespace is the namespace of the target service
	Namespace string

	// Target is the resource reference, for example "svc/grafana"
	Target string

	// LocalPort is the local listen port. The caller picks a free port;
	// there is no automatic port search.
	LocalPort int

	// RemotePort is the service port to forward to
	RemotePort int
}

// Validate checks that the spec is complete
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: tunnel has no name", util.ErrInvalidConfig)
	}
	if s.Namespace == "" {
		return fmt.Errorf("%w: tunnel %q has no namespace", util.ErrInvalidConfig, s.Name)
	}
	if s.Target == "" {
		return fmt.Errorf("%w: tunnel %q has no target", util.ErrInvalidConfig, s.Name)
	}
	if s.LocalPort <= 0 || s.RemotePort <= 0 {
		return fmt.Errorf("%w: tunnel %q has invalid ports %d:%d", util.ErrInvalidConfig, s.Name, s.LocalPort, s.RemotePort)
	}
	return nil
}

// args builds the forwarding command line
func (s Spec) args() []string {
	return []string{
		"kubectl", "port-forward", s.Target,
		strconv.Itoa(s.LocalPort) + ":" + strconv.Itoa(s.RemotePort),
		"-n", s.Namespace,
	}
}

// Handle owns one background forwarding process. Close is the only
// sanctioned way to terminate it.
type Handle struct {
	Spec

	cmd    *exec.Cmd
	stderr *bytes.Buffer
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	waitErr error
}

// PID returns the process identifier of the forward
func (h *Handle) PID() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Alive reports whether the forwarding process is still running
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// close terminates the process and reaps it. Idempotent.
func (h *Handle) close(stopGrace time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.Alive() && h.cmd.Process != nil {
		// Ask nicely first so kubectl can tear down the forward
		_ = h.cmd.Process.Signal(os.Interrupt)

		select {
		case <-h.done:
		case <-time.After(stopGrace):
			_ = h.cmd.Process.Kill()
			<-h.done
		}
	}

	return nil
}

// Manager tracks open forwards so that every one of them can be closed on
// shutdown, including signal-driven termination.
type Manager struct {
	startupGrace time.Duration
	stopGrace    time.Duration
	logger       *slog.Logger

	// spawn is replaced in tests to avoid needing a real cluster
	spawn func(Spec) *exec.Cmd

	mu      sync.Mutex
	handles []*Handle
}

// Options configures a Manager
type Options struct {
	// StartupGrace overrides DefaultStartupGrace
	StartupGrace time.Duration

	// StopGrace overrides DefaultStopGrace
	StopGrace time.Duration
}

// NewManager creates a tunnel manager
func NewManager(opts Options, logger *slog.Logger) *Manager {
	if opts.StartupGrace <= 0 {
		opts.StartupGrace = DefaultStartupGrace
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		startupGrace: opts.StartupGrace,
		stopGrace:    opts.StopGrace,
		logger:       logger,
		spawn: func(s Spec) *exec.Cmd {
			args := s.args()
			return exec.Command(args[0], args[1:]...)
		},
	}
}

// Open spawns a background forwarding process for the spec and verifies it
// stays alive through a short startup grace period. Every handle returned by
// Open must be released with exactly one Close or CloseAll call, on all exit
// paths of the caller.
func (m *Manager) Open(ctx context.Context, spec Spec) (*Handle, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrCancelled, err)
	}

	h := &Handle{
		Spec:   spec,
		cmd:    m.spawn(spec),
		stderr: &bytes.Buffer{},
		done:   make(chan struct{}),
	}
	h.cmd.Stderr = h.stderr

	m.logger.Info("opening tunnel",
		"tunnel", spec.Name,
		"target", spec.Target,
		"local_port", spec.LocalPort,
		"remote_port", spec.RemotePort)

	if err := h.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: tunnel %q: %v", util.ErrTunnelNotAlive, spec.Name, err)
	}

	go func() {
		h.waitErr = h.cmd.Wait()
		close(h.done)
	}()

	// Liveness only, not end-to-end connectivity: a forward that dies
	// within the grace period almost always means a bad target or a
	// port already in use
	select {
	case <-h.done:
		msg := bytes.TrimSpace(h.stderr.Bytes())
		return nil, fmt.Errorf("%w: tunnel %q exited during startup: %s", util.ErrTunnelNotAlive, spec.Name, msg)
	case <-time.After(m.startupGrace):
	case <-ctx.Done():
		_ = h.close(m.stopGrace)
		return nil, fmt.Errorf("%w: %v", util.ErrCancelled, ctx.Err())
	}

	m.mu.Lock()
	m.handles = append(m.handles, h)
	m.mu.Unlock()

	m.logger.Info("tunnel open",
		"tunnel", spec.Name,
		"pid", h.PID(),
		"local_port", spec.LocalPort)

	return h, nil
}

// Close terminates the forward and stops tracking it. Closing an
// already-closed handle is a no-op.
func (m *Manager) Close(h *Handle) error {
	if h == nil {
		return nil
	}

	m.mu.Lock()
	for i, tracked := range m.handles {
		if tracked == h {
			m.handles = append(m.handles[:i], m.handles[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.logger.Info("closing tunnel", "tunnel", h.Name, "pid", h.PID())
	return h.close(m.stopGrace)
}

// CloseAll terminates every tracked forward, most recent first. Safe to call
// multiple times and from signal-driven shutdown paths.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	handles := m.handles
	m.handles = nil
	m.mu.Unlock()

	var errs util.MultiError
	for i := len(handles) - 1; i >= 0; i-- {
		h := handles[i]
		m.logger.Info("closing tunnel", "tunnel", h.Name, "pid", h.PID())
		if err := h.close(m.stopGrace); err != nil {
			errs.Add(fmt.Errorf("tunnel %q: %w", h.Name, err))
		}
	}
	return errs.ErrorOrNil()
}

// OpenCount reports how many forwards are currently tracked
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}
