package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	nkerrors "github.com/computerscienceiscool/nodekit/internal/errors"
)

// execAPI is the subset of the Docker client used for exec sessions
type execAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerExecCreate(ctx context.Context, container string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
	Close() error
}

// DockerRunner runs commands inside an already running container,
// for hosts where libvirt or the cluster CLI are containerised
type DockerRunner struct {
	Container string
	Timeout   time.Duration
	client    execAPI
}

// NewDockerRunner connects to the Docker daemon from the environment
func NewDockerRunner(container string, timeout time.Duration) (*DockerRunner, error) {
	if strings.TrimSpace(container) == "" {
		return nil, fmt.Errorf("container name cannot be empty")
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return newDockerRunner(cli, container, timeout), nil
}

func newDockerRunner(api execAPI, container string, timeout time.Duration) *DockerRunner {
	return &DockerRunner{
		Container: container,
		Timeout:   timeout,
		client:    api,
	}
}

// CheckAvailability verifies the Docker daemon answers
func (r *DockerRunner) CheckAvailability(ctx context.Context) error {
	if _, err := r.client.Ping(ctx); err != nil {
		return fmt.Errorf("Docker not available: %w", err)
	}
	return nil
}

// Close releases the Docker client
func (r *DockerRunner) Close() error {
	return r.client.Close()
}

// Run executes name with args in the container and waits for it to exit
func (r *DockerRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	startTime := time.Now()
	result := Result{}
	cmdline := CommandLine(name, args...)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	fail := func(code int, err error) (Result, error) {
		result.ExitCode = code
		result.Duration = time.Since(startTime)
		return result, &nkerrors.ExternalToolError{
			Command:  fmt.Sprintf("docker exec %s %s", r.Container, cmdline),
			ExitCode: code,
			Stderr:   result.Stderr,
			Err:      err,
		}
	}

	created, err := r.client.ContainerExecCreate(ctx, r.Container, types.ExecConfig{
		Cmd:          append([]string{name}, args...),
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return fail(-1, fmt.Errorf("failed to create exec: %w", err))
	}

	attached, err := r.client.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return fail(-1, fmt.Errorf("failed to attach to exec: %w", err))
	}
	defer attached.Close()

	var stdout, stderr strings.Builder
	done := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&stdout, &stderr, attached.Reader)
		done <- err
	}()

	select {
	case err := <-done:
		result.Stdout = stdout.String()
		result.Stderr = stderr.String()
		if err != nil {
			return fail(-1, fmt.Errorf("failed to read exec output: %w", err))
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fail(TimeoutExitCode, ctx.Err())
		}
		return fail(-1, ctx.Err())
	}

	inspect, err := r.client.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return fail(-1, fmt.Errorf("failed to inspect exec: %w", err))
	}

	result.ExitCode = inspect.ExitCode
	result.Duration = time.Since(startTime)

	if result.ExitCode != 0 {
		return fail(result.ExitCode, nil)
	}

	return result, nil
}
