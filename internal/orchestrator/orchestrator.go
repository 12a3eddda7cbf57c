package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranraj/sredeploy/internal/command"
	"github.com/kiranraj/sredeploy/internal/config"
	"github.com/kiranraj/sredeploy/internal/minikube"
	"github.com/kiranraj/sredeploy/internal/plan"
	"github.com/kiranraj/sredeploy/internal/readiness"
	"github.com/kiranraj/sredeploy/internal/tunnel"
	"github.com/kiranraj/sredeploy/internal/util"
)

// Stage identifies how far a deployment run progressed
type Stage string

const (
	StageBuild       Stage = "build"
	StageCluster     Stage = "cluster"
	StageNamespaces  Stage = "namespaces"
	StageMonitoring  Stage = "monitoring"
	StageApplication Stage = "application"
	StageReadiness   Stage = "readiness"
	StageTunnels     Stage = "tunnels"
	StageDone        Stage = "done"
)

// Options selects which parts of the deployment sequence run
type Options struct {
	// SkipBuild skips the artifact build and image load
	SkipBuild bool

	// SkipMonitoring skips the monitoring plan and its readiness wait
	SkipMonitoring bool

	// PortForward opens the configured tunnels after a successful deploy
	PortForward bool

	// PlanPath, when set, replaces the built-in application plan with one
	// loaded from a file
	PlanPath string
}

// RunSummary records the outcome of one deployment run
type RunSummary struct {
	// Stage is the furthest stage the run reached
	Stage Stage

	// Namespaces is the namespace plan report (nil when not reached)
	Namespaces *plan.Report

	// Monitoring is the monitoring plan report (nil when skipped or
	// not reached)
	Monitoring *plan.Report

	// Application is the application plan report (nil when not reached)
	Application *plan.Report

	// TunnelsOpen is how many port-forwards were opened
	TunnelsOpen int

	// Duration is the total run time
	Duration time.Duration

	// Err is the failure that stopped the run, nil on success. Best-effort
	// failures are recorded in the reports, not here.
	Err error
}

// OK returns true when no required stage failed
func (s *RunSummary) OK() bool {
	return s.Err == nil
}

// Reports returns the plan reports the run produced, in sequence order
func (s *RunSummary) Reports() []*plan.Report {
	var reports []*plan.Report
	for _, r := range []*plan.Report{s.Namespaces, s.Monitoring, s.Application} {
		if r != nil {
			reports = append(reports, r)
		}
	}
	return reports
}

// clusterController is the slice of the cluster lifecycle the orchestrator
// needs
type clusterController interface {
	State() minikube.State
	EnsureRunning(ctx context.Context, startTimeout time.Duration) error
	LoadImage(ctx context.Context, tag string) error
}

// tunnelManager is the slice of the tunnel lifecycle the orchestrator needs
type tunnelManager interface {
	Open(ctx context.Context, spec tunnel.Spec) (*tunnel.Handle, error)
	CloseAll() error
}

// contextChecker validates kubeconfig contexts before a run
type contextChecker interface {
	ContextExists(name string) (bool, error)
}

// Orchestrator composes the deployment sequence: build artifact, ensure
// cluster, create namespaces, apply monitoring, apply application, wait for
// readiness, optionally open tunnels.
type Orchestrator struct {
	cfg       *config.Config
	opts      Options
	runner    command.Runner
	cluster   clusterController
	sequencer *plan.Sequencer
	waiter    *readiness.Waiter
	tunnels   tunnelManager
	contexts  contextChecker
	logger    *slog.Logger
}

// New assembles an orchestrator from a configuration. All external commands
// go through the given runner.
func New(cfg *config.Config, opts Options, runner command.Runner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	cluster := minikube.NewController(runner, minikube.Options{
		Memory:       cfg.Cluster.Memory,
		CPUs:         cfg.Cluster.CPUs,
		Driver:       cfg.Cluster.Driver,
		PollInterval: cfg.Cluster.PollInterval,
	}, logger)

	sequencer := plan.NewSequencer(runner, plan.SequencerOptions{
		StepTimeout:  cfg.Retry.StepTimeout,
		StepAttempts: cfg.Retry.Attempts,
		Backoff:      cfg.Retry.Backoff,
	}, logger)

	return &Orchestrator{
		cfg:       cfg,
		opts:      opts,
		runner:    runner,
		cluster:   cluster,
		sequencer: sequencer,
		waiter:    readiness.NewWaiter(runner, logger),
		tunnels:   tunnel.NewManager(tunnel.Options{}, logger),
		contexts:  config.NewKubeconfigLoader(""),
		logger:    logger,
	}
}

// Deploy runs the full deployment sequence. The returned summary is non-nil
// even on failure and records the furthest stage reached. Tunnels opened by
// the run stay open until Shutdown is called; callers must pair every Deploy
// with a Shutdown on all exit paths.
func (o *Orchestrator) Deploy(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{Stage: StageBuild}

	defer func() {
		summary.Duration = time.Since(start)
	}()

	o.preflight()

	if !o.opts.SkipBuild {
		if err := o.buildImage(ctx); err != nil {
			summary.Err = err
			return summary, err
		}
	} else {
		o.logger.Info("skipping build")
	}

	summary.Stage = StageCluster
	if err := o.cluster.EnsureRunning(ctx, o.cfg.Cluster.StartTimeout); err != nil {
		summary.Err = fmt.Errorf("cluster not ready: %w", err)
		return summary, summary.Err
	}

	if !o.opts.SkipBuild {
		if err := o.cluster.LoadImage(ctx, o.cfg.Build.ImageTag); err != nil {
			summary.Err = fmt.Errorf("image load failed: %w", err)
			return summary, summary.Err
		}
	}

	summary.Stage = StageNamespaces
	report, err := o.sequencer.Apply(ctx, o.namespacePlan())
	summary.Namespaces = report
	if err != nil {
		summary.Err = err
		return summary, err
	}

	if !o.opts.SkipMonitoring {
		summary.Stage = StageMonitoring
		report, err := o.sequencer.Apply(ctx, plan.Monitoring(o.cfg.Paths.MonitoringDir))
		summary.Monitoring = report
		if err != nil {
			// The monitoring plan is best-effort throughout; Apply only
			// errors here on a cancelled context
			summary.Err = err
			return summary, err
		}
		o.waitForMonitoring(ctx)
	} else {
		o.logger.Info("skipping monitoring")
	}

	summary.Stage = StageApplication
	appPlan, err := o.applicationPlan()
	if err != nil {
		summary.Err = err
		return summary, err
	}
	report, err = o.sequencer.Apply(ctx, appPlan)
	summary.Application = report
	if err != nil {
		summary.Err = err
		return summary, err
	}

	summary.Stage = StageReadiness
	if err := o.waitForApplication(ctx); err != nil {
		summary.Err = err
		return summary, err
	}

	if o.opts.PortForward {
		summary.Stage = StageTunnels
		summary.TunnelsOpen = o.openTunnels(ctx)
	}

	summary.Stage = StageDone
	o.logger.Info("deployment complete",
		"environment", o.cfg.Environment,
		"duration", time.Since(start).Round(time.Second))

	return summary, nil
}

// Shutdown releases every resource the run acquired, in particular open
// tunnels. Safe to call multiple times.
func (o *Orchestrator) Shutdown() error {
	return o.tunnels.CloseAll()
}

// preflight runs cheap sanity checks that only warn; the deployment itself
// is the authoritative test
func (o *Orchestrator) preflight() {
	exists, err := o.contexts.ContextExists(o.cfg.Cluster.Context)
	if err != nil {
		o.logger.Warn("could not read kubeconfig", "error", err)
		return
	}
	if !exists {
		o.logger.Warn("kubeconfig context not found yet; it will be created on cluster start",
			"context", o.cfg.Cluster.Context)
	}
}

// buildImage builds the application artifact and packages it into the
// container image: npm install, npm build, docker build
func (o *Orchestrator) buildImage(ctx context.Context) error {
	o.logger.Info("building application", "tag", o.cfg.Build.ImageTag, "dir", o.cfg.Paths.ProjectDir)

	cmds := []command.Command{
		command.New("npm", "install", "--legacy-peer-deps"),
		command.New("npm", "run", "build"),
		command.New("docker", "build", "-t", o.cfg.Build.ImageTag, "."),
	}

	for _, cmd := range cmds {
		cmd = cmd.WithDir(o.cfg.Paths.ProjectDir).WithTimeout(o.cfg.Build.Timeout)
		if _, err := o.runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("build failed (%s): %w", cmd.String(), err)
		}
	}
	return nil
}

// namespacePlan lists the namespaces this run needs
func (o *Orchestrator) namespacePlan() plan.Plan {
	names := []string{o.cfg.Readiness.Namespace}
	if !o.opts.SkipMonitoring {
		names = append(names, o.cfg.Monitoring.Namespace)
	}
	return plan.Namespaces(names...)
}

// applicationPlan is either the built-in overlay plan or one loaded from a
// file
func (o *Orchestrator) applicationPlan() (plan.Plan, error) {
	if o.opts.PlanPath != "" {
		return plan.Load(o.opts.PlanPath)
	}
	return plan.Application(o.cfg.Paths.KubernetesDir, o.cfg.Environment), nil
}

// waitForMonitoring gives the monitoring stack a bounded chance to come up.
// Like the monitoring plan itself it is best-effort: a timeout is logged,
// not returned.
func (o *Orchestrator) waitForMonitoring(ctx context.Context) {
	deadline := time.Minute
	if o.cfg.Readiness.Deadline < deadline {
		deadline = o.cfg.Readiness.Deadline
	}

	check := readiness.Check{
		Name:      "monitoring",
		Query:     readiness.PodsQuery(o.cfg.Monitoring.Namespace, ""),
		Interval:  o.cfg.Readiness.Interval,
		Deadline:  deadline,
		Predicate: readiness.AllRunning(1),
	}

	if _, err := o.waiter.Wait(ctx, check); err != nil {
		o.logger.Warn("monitoring stack not ready, continuing", "error", err)
	}
}

// waitForApplication blocks until the application workload is ready
func (o *Orchestrator) waitForApplication(ctx context.Context) error {
	check := readiness.Check{
		Name:      "application",
		Query:     readiness.PodsQuery(o.cfg.Readiness.Namespace, o.cfg.Readiness.Selector),
		Interval:  o.cfg.Readiness.Interval,
		Deadline:  o.cfg.Readiness.Deadline,
		Predicate: readiness.AllRunning(o.cfg.Readiness.MinReplicas),
	}

	snap, err := o.waiter.Wait(ctx, check)
	if err != nil {
		if util.IsReadinessTimeout(err) && snap != nil {
			o.logger.Error("workload never became ready",
				"running", readiness.RunningCount(snap),
				"wanted", o.cfg.Readiness.MinReplicas)
		}
		return err
	}
	return nil
}

// openTunnels opens the configured port-forwards. Individual failures are
// logged and skipped so one bad forward does not tear down the others.
func (o *Orchestrator) openTunnels(ctx context.Context) int {
	tunnels := o.cfg.Tunnels
	if len(tunnels) == 0 {
		tunnels = config.DefaultTunnels(o.cfg.Environment)
	}

	open := 0
	for _, tc := range tunnels {
		if o.opts.SkipMonitoring && tc.Namespace == o.cfg.Monitoring.Namespace {
			continue
		}

		spec := tunnel.Spec{
			Name:       tc.Name,
			Namespace:  tc.Namespace,
			Target:     tc.Target,
			LocalPort:  tc.LocalPort,
			RemotePort: tc.RemotePort,
		}
		if _, err := o.tunnels.Open(ctx, spec); err != nil {
			o.logger.Warn("could not open tunnel", "tunnel", tc.Name, "error", err)
			continue
		}
		open++
	}
	return open
}
