package output

import (
	"bytes"
	"testing"

	"github.com/kiranraj/sredeploy/internal/plan"
)

func TestNewColorScheme_NonTTY(t *testing.T) {
	// A bytes.Buffer is never a TTY, so colors are disabled even when
	// noColor is false
	cs := NewColorScheme(&bytes.Buffer{}, false)
	if !cs.Disabled {
		t.Error("expected colors disabled for non-TTY writer")
	}
	if got := cs.Success("ok"); got != "ok" {
		t.Errorf("disabled scheme should pass text through, got %q", got)
	}
}

func TestNewColorScheme_NoColorFlag(t *testing.T) {
	cs := NewColorScheme(&bytes.Buffer{}, true)
	if !cs.Disabled {
		t.Error("expected colors disabled with noColor set")
	}
}

func TestColorScheme_ForStatus(t *testing.T) {
	cs := NewColorScheme(&bytes.Buffer{}, true)

	tests := []struct {
		status plan.StepStatus
		text   string
	}{
		{plan.StatusApplied, "applied"},
		{plan.StatusFailedRequired, "failed-required"},
		{plan.StatusFailedBestEffort, "failed-best-effort"},
		{plan.StatusSkipped, "skipped-after-abort"},
	}

	// With colors disabled every status function passes text through
	for _, tt := range tests {
		fn := cs.ForStatus(tt.status)
		if fn == nil {
			t.Fatalf("no color function for status %s", tt.status)
		}
		if got := fn(tt.text); got != tt.text {
			t.Errorf("status %s: expected %q, got %q", tt.status, tt.text, got)
		}
	}
}
