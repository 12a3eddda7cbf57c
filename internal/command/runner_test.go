package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiranraj/sredeploy/internal/util"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCommandBuilders(t *testing.T) {
	cmd := New("kubectl", "get", "pods").
		WithDir("/tmp").
		WithStdin("input").
		WithTimeout(10 * time.Second).
		WithRetries(3, time.Second)

	if cmd.String() != "kubectl get pods" {
		t.Errorf("unexpected command string: %q", cmd.String())
	}
	if cmd.Dir != "/tmp" {
		t.Errorf("expected dir /tmp, got %q", cmd.Dir)
	}
	if cmd.Stdin != "input" {
		t.Errorf("expected stdin set, got %q", cmd.Stdin)
	}
	if cmd.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cmd.Timeout)
	}
	if cmd.Attempts != 3 || cmd.Backoff != time.Second {
		t.Errorf("unexpected retry policy: attempts=%d backoff=%s", cmd.Attempts, cmd.Backoff)
	}

	// New applies defaults
	def := New("true")
	if def.Attempts != 1 {
		t.Errorf("expected 1 default attempt, got %d", def.Attempts)
	}
	if def.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %s", def.Timeout)
	}
}

func TestExecRunner_Success(t *testing.T) {
	runner := NewExecRunner(discardLogger())

	cmd := New("sh", "-c", "echo hello; echo oops >&2").WithTimeout(5 * time.Second)

	res, err := runner.Run(context.Background(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Stdout != "hello" {
		t.Errorf("expected stdout %q, got %q", "hello", res.Stdout)
	}
	if res.Stderr != "oops" {
		t.Errorf("expected stderr %q, got %q", "oops", res.Stderr)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}
}

func TestExecRunner_Stdin(t *testing.T) {
	runner := NewExecRunner(discardLogger())

	cmd := New("cat").WithStdin("piped manifest\n").WithTimeout(5 * time.Second)

	res, err := runner.Run(context.Background(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "piped manifest" {
		t.Errorf("expected stdin to round-trip, got %q", res.Stdout)
	}
}

func TestExecRunner_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	runner := NewExecRunner(discardLogger())

	res, err := runner.Run(context.Background(), New("pwd").WithDir(dir).WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Resolve symlinks to handle /tmp -> /private/tmp on some systems
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(res.Stdout)
	if got != want {
		t.Errorf("expected working dir %q, got %q", want, got)
	}
}

// TestExecRunner_RetryUntilSuccess verifies that a command failing on attempts
// 1..N-1 and succeeding on attempt N returns the successful result.
func TestExecRunner_RetryUntilSuccess(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "attempts")

	// Fails twice, succeeds on the third attempt
	script := fmt.Sprintf(`
		n=$(cat %[1]s 2>/dev/null || echo 0)
		n=$((n+1))
		echo $n > %[1]s
		if [ $n -lt 3 ]; then exit 1; fi
		echo "attempt $n"
	`, marker)

	runner := NewExecRunner(discardLogger())
	cmd := New("sh", "-c", script).
		WithTimeout(5 * time.Second).
		WithRetries(3, 10*time.Millisecond)

	res, err := runner.Run(context.Background(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "attempt 3" {
		t.Errorf("expected output from the successful attempt, got %q", res.Stdout)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", res.Attempts)
	}
}

// TestExecRunner_ExactAttemptCount verifies that an always-failing command is
// tried exactly N times, no more, no fewer.
func TestExecRunner_ExactAttemptCount(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "attempts")

	script := fmt.Sprintf(`
		n=$(cat %[1]s 2>/dev/null || echo 0)
		echo $((n+1)) > %[1]s
		echo "stderr from attempt" >&2
		exit 7
	`, marker)

	runner := NewExecRunner(discardLogger())
	cmd := New("sh", "-c", script).
		WithTimeout(5 * time.Second).
		WithRetries(3, 10*time.Millisecond)

	_, err := runner.Run(context.Background(), cmd)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}

	data, readErr := os.ReadFile(marker)
	if readErr != nil {
		t.Fatalf("failed to read attempt marker: %v", readErr)
	}
	if got := string(data); got != "3\n" {
		t.Errorf("expected exactly 3 attempts, marker shows %q", got)
	}

	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *RunError, got %T", err)
	}
	if runErr.TimedOut {
		t.Error("expected non-timeout failure")
	}
	if runErr.Attempts != 3 {
		t.Errorf("expected 3 attempts in error, got %d", runErr.Attempts)
	}
	if runErr.Last == nil {
		t.Fatal("expected last result to be captured")
	}
	if runErr.Last.ExitCode != 7 {
		t.Errorf("expected exit code 7, got %d", runErr.Last.ExitCode)
	}
	if runErr.Last.Stderr != "stderr from attempt" {
		t.Errorf("expected last stderr to be captured, got %q", runErr.Last.Stderr)
	}
	if !errors.Is(err, util.ErrStepFailed) {
		t.Error("expected error to unwrap to ErrStepFailed")
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	runner := NewExecRunner(discardLogger())

	cmd := New("sleep", "5").
		WithTimeout(50 * time.Millisecond).
		WithRetries(2, 10*time.Millisecond)

	start := time.Now()
	_, err := runner.Run(context.Background(), cmd)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error")
	}

	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *RunError, got %T", err)
	}
	if !runErr.TimedOut {
		t.Error("expected TimedOut to be true")
	}
	if !errors.Is(err, util.ErrTimeout) {
		t.Error("expected error to unwrap to ErrTimeout")
	}

	// Two 50ms attempts plus one 10ms backoff; well under the 5s sleep,
	// proving the process was killed rather than awaited
	if elapsed > 2*time.Second {
		t.Errorf("runner waited too long (%s), timed-out process may not have been killed", elapsed)
	}
}

func TestExecRunner_ContextCancellation(t *testing.T) {
	runner := NewExecRunner(discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, New("true").WithTimeout(time.Second))
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, util.ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

func TestExecRunner_Validation(t *testing.T) {
	runner := NewExecRunner(discardLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  Command
	}{
		{
			name: "no arguments",
			cmd:  Command{Timeout: time.Second, Attempts: 1},
		},
		{
			name: "zero attempts",
			cmd:  Command{Args: []string{"true"}, Timeout: time.Second},
		},
		{
			name: "zero timeout",
			cmd:  Command{Args: []string{"true"}, Attempts: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runner.Run(ctx, tt.cmd)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, util.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestExecRunner_CommandNotFound(t *testing.T) {
	runner := NewExecRunner(discardLogger())

	cmd := New("definitely-not-a-real-binary-xyz").
		WithTimeout(time.Second).
		WithRetries(2, 10*time.Millisecond)

	_, err := runner.Run(context.Background(), cmd)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}

	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *RunError, got %T", err)
	}
	if runErr.Last == nil || runErr.Last.Stderr == "" {
		t.Error("expected the start failure to be captured in the last result")
	}
}

func TestRunnerFunc(t *testing.T) {
	called := 0
	runner := RunnerFunc(func(ctx context.Context, cmd Command) (*Result, error) {
		called++
		return &Result{Stdout: "scripted"}, nil
	})

	res, err := runner.Run(context.Background(), New("anything"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "scripted" {
		t.Errorf("expected scripted result, got %q", res.Stdout)
	}
	if called != 1 {
		t.Errorf("expected function to be called once, got %d", called)
	}
}
