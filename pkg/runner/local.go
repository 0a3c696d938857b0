package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	nkerrors "github.com/computerscienceiscool/nodekit/internal/errors"
)

// LocalRunner runs commands directly on the host
type LocalRunner struct {
	Timeout time.Duration
}

// NewLocalRunner creates a host runner with a per-call timeout (0 disables it)
func NewLocalRunner(timeout time.Duration) *LocalRunner {
	return &LocalRunner{Timeout: timeout}
}

// Run executes name with args and captures stdout and stderr separately
func (r *LocalRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	startTime := time.Now()
	result := Result{}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Duration = time.Since(startTime)

	if err == nil {
		return result, nil
	}

	toolErr := &nkerrors.ExternalToolError{
		Command: CommandLine(name, args...),
		Stderr:  result.Stderr,
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.ExitCode = TimeoutExitCode
		toolErr.ExitCode = TimeoutExitCode
		toolErr.Err = ctx.Err()
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		toolErr.ExitCode = result.ExitCode
	default:
		result.ExitCode = -1
		toolErr.ExitCode = -1
		toolErr.Err = err
	}

	return result, toolErr
}
