package plan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranraj/sredeploy/internal/command"
	"github.com/kiranraj/sredeploy/internal/util"
)

// SequencerOptions holds the defaults applied to steps that don't override them
type SequencerOptions struct {
	// StepTimeout bounds a single apply attempt
	StepTimeout time.Duration

	// StepAttempts is the total tries per step
	StepAttempts int

	// Backoff is the fixed wait between failed attempts
	Backoff time.Duration
}

func (o *SequencerOptions) applyDefaults() {
	if o.StepTimeout == 0 {
		o.StepTimeout = 30 * time.Second
	}
	if o.StepAttempts == 0 {
		o.StepAttempts = 3
	}
	if o.Backoff == 0 {
		o.Backoff = command.DefaultBackoff
	}
}

// Sequencer applies deployment plans step by step through kubectl.
// Steps never run concurrently; ordering is a correctness invariant.
type Sequencer struct {
	runner command.Runner
	opts   SequencerOptions
	logger *slog.Logger
}

// NewSequencer creates a sequencer on top of a command runner
func NewSequencer(runner command.Runner, opts SequencerOptions, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()

	return &Sequencer{
		runner: runner,
		opts:   opts,
		logger: logger,
	}
}

// Apply processes the plan's steps strictly in order. A required step that
// exhausts its attempts halts the sequence: every later step is reported as
// skipped and never invoked. A best-effort step's failure is recorded and the
// sequence continues. The returned report has one entry per step regardless
// of outcome; the error is non-nil only for a halted sequence, a cancelled
// context, or an invalid plan.
//
// Re-running Apply against an already-applied cluster is safe: kubectl apply
// is declarative, so the sequencer performs no deduplication of its own.
func (s *Sequencer) Apply(ctx context.Context, p Plan) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("applying plan", "plan", p.Name, "steps", len(p.Steps))

	report := &Report{Plan: p.Name}
	halted := false

	for _, step := range p.Steps {
		if halted {
			report.Results = append(report.Results, StepResult{
				Step:   step,
				Status: StatusSkipped,
			})
			continue
		}

		select {
		case <-ctx.Done():
			return report, fmt.Errorf("%w: %v", util.ErrCancelled, ctx.Err())
		default:
		}

		start := time.Now()
		err := s.applyStep(ctx, step)
		elapsed := time.Since(start)

		result := StepResult{
			Step:     step,
			Err:      err,
			Duration: elapsed,
		}

		switch {
		case err == nil:
			result.Status = StatusApplied
			s.logger.Info("step applied",
				"plan", p.Name,
				"step", step.Name,
				"duration", elapsed.Round(time.Millisecond))

		case util.IsCancelled(err):
			report.Results = append(report.Results, result)
			return report, err

		case step.Required:
			result.Status = StatusFailedRequired
			halted = true
			s.logger.Error("required step failed, aborting plan",
				"plan", p.Name,
				"step", step.Name,
				"error", err)

		default:
			result.Status = StatusFailedBestEffort
			s.logger.Warn("best-effort step failed, continuing",
				"plan", p.Name,
				"step", step.Name,
				"error", err)
		}

		report.Results = append(report.Results, result)
	}

	s.logger.Info("plan finished", "summary", report.Summary())

	if halted {
		return report, fmt.Errorf("plan %s halted: %w", p.Name, util.ErrStepFailed)
	}
	return report, nil
}

// applyStep executes a single step through kubectl
func (s *Sequencer) applyStep(ctx context.Context, step Step) error {
	if step.Namespace != "" {
		return s.createNamespace(ctx, step)
	}

	timeout := step.Timeout.Std()
	if timeout == 0 {
		timeout = s.opts.StepTimeout
	}
	attempts := step.Attempts
	if attempts == 0 {
		attempts = s.opts.StepAttempts
	}

	flag := "-f"
	if step.Kustomize {
		flag = "-k"
	}

	cmd := command.New("kubectl", "apply", flag, step.File).
		WithTimeout(timeout).
		WithRetries(attempts, s.opts.Backoff)

	if _, err := s.runner.Run(ctx, cmd); err != nil {
		return util.WrapStepError(step.Name, err)
	}
	return nil
}

// createNamespace builds the namespace manifest with a client-side dry-run
// and pipes it back into apply, so an existing namespace is not an error
func (s *Sequencer) createNamespace(ctx context.Context, step Step) error {
	genCmd := command.New("kubectl", "create", "namespace", step.Namespace,
		"--dry-run=client", "-o", "yaml").
		WithTimeout(10 * time.Second)

	genRes, err := s.runner.Run(ctx, genCmd)
	if err != nil {
		return util.WrapStepError(step.Name, util.WrapErrorf(err, "generating namespace manifest"))
	}

	attempts := step.Attempts
	if attempts == 0 {
		attempts = s.opts.StepAttempts
	}

	applyCmd := command.New("kubectl", "apply", "-f", "-").
		WithStdin(genRes.Stdout).
		WithTimeout(s.opts.StepTimeout).
		WithRetries(attempts, s.opts.Backoff)

	if _, err := s.runner.Run(ctx, applyCmd); err != nil {
		return util.WrapStepError(step.Name, err)
	}
	return nil
}
