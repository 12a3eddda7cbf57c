package command

import (
	"strings"
	"time"
)

// Command describes a single external command invocation with its retry policy.
// It is immutable once constructed; build a new value per invocation.
type Command struct {
	// Args is the argument vector; Args[0] is the executable name
	Args []string

	// Dir is the working directory for the command (empty means inherit)
	Dir string

	// Stdin is written to the command's standard input when non-empty
	Stdin string

	// Timeout bounds a single attempt; must be > 0
	Timeout time.Duration

	// Attempts is the total number of tries; must be >= 1
	Attempts int

	// Backoff is the fixed interval to wait between failed attempts
	Backoff time.Duration
}

// New creates a Command with the default retry policy (one attempt,
// DefaultTimeout, DefaultBackoff).
func New(args ...string) Command {
	return Command{
		Args:     args,
		Timeout:  DefaultTimeout,
		Attempts: 1,
		Backoff:  DefaultBackoff,
	}
}

// WithDir returns a copy of the command with the working directory set
func (c Command) WithDir(dir string) Command {
	c.Dir = dir
	return c
}

// WithStdin returns a copy of the command with standard input content set
func (c Command) WithStdin(stdin string) Command {
	c.Stdin = stdin
	return c
}

// WithTimeout returns a copy of the command with the per-attempt timeout set
func (c Command) WithTimeout(timeout time.Duration) Command {
	c.Timeout = timeout
	return c
}

// WithRetries returns a copy of the command with the retry policy set
func (c Command) WithRetries(attempts int, backoff time.Duration) Command {
	c.Attempts = attempts
	c.Backoff = backoff
	return c
}

// String returns the command line for logging
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// Result captures the outcome of a successful command invocation
type Result struct {
	// Stdout is the captured standard output, trimmed of trailing whitespace
	Stdout string

	// Stderr is the captured standard error, trimmed of trailing whitespace
	Stderr string

	// ExitCode is the process exit status (0 on success)
	ExitCode int

	// Duration is how long the final attempt took
	Duration time.Duration

	// Attempts is the number of tries that were made, including the successful one
	Attempts int
}
