package plan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiranraj/sredeploy/internal/util"
)

func TestLoad(t *testing.T) {
	t.Run("valid plan file", func(t *testing.T) {
		content := `
name: application
steps:
  - name: config
    file: kubernetes/base/configmap.yaml
    required: true
  - name: app
    file: kubernetes/overlays/dev
    kustomize: true
    required: true
    timeout: 60s
    attempts: 5
  - name: autoscaler
    file: kubernetes/addons/hpa.yaml
`
		path := writePlanFile(t, content)

		p, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if p.Name != "application" {
			t.Errorf("expected plan name 'application', got %q", p.Name)
		}
		if len(p.Steps) != 3 {
			t.Fatalf("expected 3 steps, got %d", len(p.Steps))
		}
		if !p.Steps[0].Required {
			t.Error("expected first step required")
		}
		if !p.Steps[1].Kustomize {
			t.Error("expected second step kustomize")
		}
		if p.Steps[1].Timeout.Std() != 60*time.Second {
			t.Errorf("expected 60s timeout, got %s", p.Steps[1].Timeout.Std())
		}
		if p.Steps[1].Attempts != 5 {
			t.Errorf("expected 5 attempts, got %d", p.Steps[1].Attempts)
		}
		if p.Steps[2].Required {
			t.Error("expected third step best-effort")
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		path := writePlanFile(t, `
name: bad
steps:
  - name: app
    file: app.yaml
    timeout: sixty seconds
`)
		if _, err := Load(path); err == nil {
			t.Fatal("expected error for invalid duration")
		}
	})

	t.Run("invalid plan fails validation", func(t *testing.T) {
		path := writePlanFile(t, "name: empty\nsteps: []\n")

		_, err := Load(path)
		if err == nil {
			t.Fatal("expected validation error")
		}
		if !errors.Is(err, util.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestBuiltinPlans(t *testing.T) {
	t.Run("namespaces", func(t *testing.T) {
		p := Namespaces("react-sre-app", "monitoring")
		if err := p.Validate(); err != nil {
			t.Fatalf("namespaces plan invalid: %v", err)
		}
		for _, step := range p.Steps {
			if !step.Required {
				t.Errorf("namespace step %q must be required", step.Name)
			}
		}
	})

	t.Run("monitoring is best-effort", func(t *testing.T) {
		p := Monitoring("monitoring")
		if err := p.Validate(); err != nil {
			t.Fatalf("monitoring plan invalid: %v", err)
		}
		for _, step := range p.Steps {
			if step.Required {
				t.Errorf("monitoring step %q must be best-effort", step.Name)
			}
		}
	})

	t.Run("application is required", func(t *testing.T) {
		p := Application("kubernetes", "prod")
		if err := p.Validate(); err != nil {
			t.Fatalf("application plan invalid: %v", err)
		}
		step := p.Steps[0]
		if !step.Required || !step.Kustomize {
			t.Errorf("application step must be required and kustomize, got %+v", step)
		}
		if step.File != filepath.Join("kubernetes", "overlays", "prod") {
			t.Errorf("unexpected overlay path: %q", step.File)
		}
	})
}

func writePlanFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write plan file: %v", err)
	}
	return path
}
