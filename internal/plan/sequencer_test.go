package plan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/kiranraj/sredeploy/internal/command"
	"github.com/kiranraj/sredeploy/internal/util"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingRunner records commands and fails those whose line contains any
// configured substring
type recordingRunner struct {
	failOn []string
	calls  []command.Command
}

func (r *recordingRunner) Run(_ context.Context, cmd command.Command) (*command.Result, error) {
	r.calls = append(r.calls, cmd)
	line := cmd.String()
	for _, substr := range r.failOn {
		if strings.Contains(line, substr) {
			return nil, &command.RunError{Cmd: cmd, Attempts: cmd.Attempts}
		}
	}
	return &command.Result{Stdout: "applied", Attempts: 1}, nil
}

func (r *recordingRunner) lines() []string {
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.String()
	}
	return out
}

func fastOptions() SequencerOptions {
	return SequencerOptions{
		StepTimeout:  time.Second,
		StepAttempts: 3,
		Backoff:      time.Millisecond,
	}
}

func requiredStep(name, file string) Step {
	return Step{Name: name, File: file, Required: true}
}

func bestEffortStep(name, file string) Step {
	return Step{Name: name, File: file}
}

func TestStep_Validate(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr bool
	}{
		{
			name: "valid file step",
			step: Step{Name: "app", File: "app.yaml"},
		},
		{
			name: "valid namespace step",
			step: Step{Name: "ns", Namespace: "monitoring"},
		},
		{
			name:    "missing name",
			step:    Step{File: "app.yaml"},
			wantErr: true,
		},
		{
			name:    "neither file nor namespace",
			step:    Step{Name: "empty"},
			wantErr: true,
		},
		{
			name:    "both file and namespace",
			step:    Step{Name: "both", File: "a.yaml", Namespace: "x"},
			wantErr: true,
		},
		{
			name:    "negative attempts",
			step:    Step{Name: "neg", File: "a.yaml", Attempts: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, util.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSequencer_AllStepsSucceed(t *testing.T) {
	runner := &recordingRunner{}
	seq := NewSequencer(runner, fastOptions(), discardLogger())

	p := Plan{
		Name: "app",
		Steps: []Step{
			requiredStep("config", "config.yaml"),
			requiredStep("deployment", "deployment.yaml"),
			requiredStep("service", "service.yaml"),
		},
	}

	report, err := seq.Apply(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.OK() {
		t.Error("expected report OK")
	}
	if got := report.Count(StatusApplied); got != 3 {
		t.Errorf("expected 3 applied, got %d", got)
	}
	if len(runner.calls) != 3 {
		t.Errorf("expected 3 commands, got %d", len(runner.calls))
	}
	for i, line := range runner.lines() {
		if !strings.HasPrefix(line, "kubectl apply -f ") {
			t.Errorf("command %d is not an apply: %q", i, line)
		}
	}
}

// TestSequencer_RequiredFailureHalts verifies the sequencing invariant: once
// a required step fails, no later step is ever invoked and every later step
// is reported as skipped.
func TestSequencer_RequiredFailureHalts(t *testing.T) {
	runner := &recordingRunner{failOn: []string{"broken.yaml"}}
	seq := NewSequencer(runner, fastOptions(), discardLogger())

	p := Plan{
		Name: "app",
		Steps: []Step{
			requiredStep("first", "first.yaml"),
			requiredStep("broken", "broken.yaml"),
			requiredStep("after-1", "after1.yaml"),
			bestEffortStep("after-2", "after2.yaml"),
		},
	}

	report, err := seq.Apply(context.Background(), p)
	if err == nil {
		t.Fatal("expected error for halted plan")
	}
	if !errors.Is(err, util.ErrStepFailed) {
		t.Errorf("expected ErrStepFailed, got %v", err)
	}

	if report.OK() {
		t.Error("expected report not OK")
	}
	if !report.Halted() {
		t.Error("expected report halted")
	}

	wantStatuses := []StepStatus{StatusApplied, StatusFailedRequired, StatusSkipped, StatusSkipped}
	if len(report.Results) != len(wantStatuses) {
		t.Fatalf("expected %d results, got %d", len(wantStatuses), len(report.Results))
	}
	for i, want := range wantStatuses {
		if report.Results[i].Status != want {
			t.Errorf("result %d: expected %s, got %s", i, want, report.Results[i].Status)
		}
	}

	// No command after the abort point is ever invoked
	for _, line := range runner.lines() {
		if strings.Contains(line, "after1.yaml") || strings.Contains(line, "after2.yaml") {
			t.Errorf("step after abort point was invoked: %q", line)
		}
	}
}

// TestSequencer_BestEffortFailureContinues verifies that a best-effort step's
// failure does not prevent subsequent steps, including required ones.
func TestSequencer_BestEffortFailureContinues(t *testing.T) {
	runner := &recordingRunner{failOn: []string{"autoscaler.yaml"}}
	seq := NewSequencer(runner, fastOptions(), discardLogger())

	p := Plan{
		Name: "addons",
		Steps: []Step{
			bestEffortStep("autoscaler", "autoscaler.yaml"),
			requiredStep("app", "app.yaml"),
		},
	}

	report, err := seq.Apply(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.OK() {
		t.Error("best-effort failure must not mark the report as failed")
	}
	if report.Results[0].Status != StatusFailedBestEffort {
		t.Errorf("expected failed-best-effort, got %s", report.Results[0].Status)
	}
	if report.Results[1].Status != StatusApplied {
		t.Errorf("expected required step applied after best-effort failure, got %s", report.Results[1].Status)
	}
}

// Scenario C from the deployment contract: the monitoring plan's single
// best-effort step fails all attempts while the application's required steps
// succeed; the overall outcome is success.
func TestSequencer_ScenarioMonitoringFailsAppSucceeds(t *testing.T) {
	runner := &recordingRunner{failOn: []string{"prometheus-k8s.yaml"}}
	seq := NewSequencer(runner, fastOptions(), discardLogger())

	monitoring := Plan{
		Name:  "monitoring",
		Steps: []Step{bestEffortStep("prometheus", "monitoring/prometheus-k8s.yaml")},
	}
	app := Plan{
		Name: "application",
		Steps: []Step{
			requiredStep("config", "config.yaml"),
			requiredStep("app", "app.yaml"),
		},
	}

	monReport, err := seq.Apply(context.Background(), monitoring)
	if err != nil {
		t.Fatalf("best-effort plan must not return an error: %v", err)
	}
	if monReport.Count(StatusFailedBestEffort) != 1 {
		t.Errorf("expected monitoring step failed-best-effort, got %s", monReport.Summary())
	}

	appReport, err := seq.Apply(context.Background(), app)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appReport.Count(StatusApplied) != 2 {
		t.Errorf("expected both application steps applied, got %s", appReport.Summary())
	}
}

func TestSequencer_NamespaceStep(t *testing.T) {
	runner := &recordingRunner{}
	seq := NewSequencer(runner, fastOptions(), discardLogger())

	p := Namespaces("react-sre-app", "monitoring")

	report, err := seq.Apply(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Count(StatusApplied) != 2 {
		t.Errorf("expected 2 namespaces applied, got %s", report.Summary())
	}

	// Each namespace needs a dry-run generation followed by a piped apply
	lines := runner.lines()
	if len(lines) != 4 {
		t.Fatalf("expected 4 commands (2 per namespace), got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "create namespace react-sre-app --dry-run=client") {
		t.Errorf("unexpected first command: %q", lines[0])
	}
	if lines[1] != "kubectl apply -f -" {
		t.Errorf("expected piped apply, got %q", lines[1])
	}
	if runner.calls[1].Stdin == "" {
		t.Error("expected the piped apply to carry the generated manifest on stdin")
	}
}

func TestSequencer_KustomizeStep(t *testing.T) {
	runner := &recordingRunner{}
	seq := NewSequencer(runner, fastOptions(), discardLogger())

	p := Application("kubernetes", "dev")

	if _, err := seq.Apply(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	line := runner.lines()[0]
	if !strings.Contains(line, "apply -k kubernetes/overlays/dev") {
		t.Errorf("expected kustomize apply, got %q", line)
	}
	if runner.calls[0].Timeout != 60*time.Second {
		t.Errorf("expected step timeout override of 60s, got %s", runner.calls[0].Timeout)
	}
}

func TestSequencer_StepDefaults(t *testing.T) {
	runner := &recordingRunner{}
	seq := NewSequencer(runner, fastOptions(), discardLogger())

	p := Plan{Name: "one", Steps: []Step{requiredStep("app", "app.yaml")}}
	if _, err := seq.Apply(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cmd := runner.calls[0]
	if cmd.Timeout != time.Second {
		t.Errorf("expected sequencer default timeout, got %s", cmd.Timeout)
	}
	if cmd.Attempts != 3 {
		t.Errorf("expected sequencer default attempts, got %d", cmd.Attempts)
	}
}

func TestSequencer_InvalidPlan(t *testing.T) {
	seq := NewSequencer(&recordingRunner{}, fastOptions(), discardLogger())

	_, err := seq.Apply(context.Background(), Plan{Name: "empty"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSequencer_ContextCancellation(t *testing.T) {
	runner := &recordingRunner{}
	seq := NewSequencer(runner, fastOptions(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Plan{Name: "app", Steps: []Step{requiredStep("app", "app.yaml")}}
	_, err := seq.Apply(ctx, p)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !util.IsCancelled(err) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("expected no commands after cancellation, got %d", len(runner.calls))
	}
}
