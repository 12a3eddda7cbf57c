package plan

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kiranraj/sredeploy/internal/util"
)

// Duration wraps time.Duration so plan files can use values like "30s"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Step is one deployment action in a plan. Exactly one of File or Namespace
// must be set: File points at a manifest (or, with Kustomize, an overlay
// directory) to apply; Namespace names a namespace to create.
type Step struct {
	// Name identifies the step in logs and reports
	Name string `yaml:"name"`

	// Description is a human-readable summary shown in reports
	Description string `yaml:"description,omitempty"`

	// File is the manifest file or kustomize directory to apply
	File string `yaml:"file,omitempty"`

	// Kustomize applies File as a kustomize directory (kubectl apply -k)
	Kustomize bool `yaml:"kustomize,omitempty"`

	// Namespace, when set, creates the named namespace instead of applying
	// a file. Creation goes through a client-side dry-run piped back into
	// apply so re-runs are idempotent.
	Namespace string `yaml:"namespace,omitempty"`

	// Required controls halt-vs-continue: a required step's final failure
	// aborts the remaining plan, a best-effort step's failure is only logged
	Required bool `yaml:"required"`

	// Timeout bounds a single apply attempt (0 means the sequencer default)
	Timeout Duration `yaml:"timeout,omitempty"`

	// Attempts is the total number of tries (0 means the sequencer default)
	Attempts int `yaml:"attempts,omitempty"`
}

// Validate checks the step is well-formed
func (s Step) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: step has no name", util.ErrInvalidConfig)
	}
	if s.File == "" && s.Namespace == "" {
		return fmt.Errorf("%w: step %q has neither file nor namespace", util.ErrInvalidConfig, s.Name)
	}
	if s.File != "" && s.Namespace != "" {
		return fmt.Errorf("%w: step %q has both file and namespace", util.ErrInvalidConfig, s.Name)
	}
	if s.Attempts < 0 {
		return fmt.Errorf("%w: step %q has negative attempts", util.ErrInvalidConfig, s.Name)
	}
	return nil
}

// Plan is an ordered list of steps. Ordering is a correctness invariant:
// namespaces must precede namespaced resources, ConfigMaps and Secrets must
// precede Deployments that reference them.
type Plan struct {
	// Name identifies the plan in logs and reports
	Name string `yaml:"name"`

	// Steps are processed strictly in list order
	Steps []Step `yaml:"steps"`
}

// Validate checks the plan and all of its steps
func (p Plan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: plan has no name", util.ErrInvalidConfig)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: plan %q has no steps", util.ErrInvalidConfig, p.Name)
	}
	for _, step := range p.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("plan %q: %w", p.Name, err)
		}
	}
	return nil
}

// StepStatus classifies the outcome of a step within a sequence run
type StepStatus string

const (
	// StatusApplied means the step succeeded
	StatusApplied StepStatus = "applied"

	// StatusFailedRequired means a required step exhausted its attempts,
	// halting the sequence
	StatusFailedRequired StepStatus = "failed-required"

	// StatusFailedBestEffort means a best-effort step exhausted its attempts
	// and the sequence continued
	StatusFailedBestEffort StepStatus = "failed-best-effort"

	// StatusSkipped means the step was never attempted because an earlier
	// required step halted the sequence
	StatusSkipped StepStatus = "skipped-after-abort"
)

// StepResult records the outcome of one step
type StepResult struct {
	Step     Step
	Status   StepStatus
	Err      error
	Duration time.Duration
}

// Report enumerates the outcome of every step of a plan, in order
type Report struct {
	// Plan is the name of the plan this report covers
	Plan string

	// Results has exactly one entry per plan step, in plan order
	Results []StepResult
}

// OK returns true when no required step failed
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if res.Status == StatusFailedRequired {
			return false
		}
	}
	return true
}

// Halted returns true when the sequence aborted before completing
func (r *Report) Halted() bool {
	return !r.OK()
}

// Count returns the number of results with the given status
func (r *Report) Count(status StepStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Summary returns a one-line overview for logging
func (r *Report) Summary() string {
	return fmt.Sprintf("plan %s: %d applied, %d failed-required, %d failed-best-effort, %d skipped",
		r.Plan,
		r.Count(StatusApplied),
		r.Count(StatusFailedRequired),
		r.Count(StatusFailedBestEffort),
		r.Count(StatusSkipped))
}
