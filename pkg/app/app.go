// Package app wires configuration, logging, tool runners and the audit store
// into the operations behind the hwreport and guestexec commands.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/computerscienceiscool/nodekit/pkg/audit"
	"github.com/computerscienceiscool/nodekit/pkg/config"
	"github.com/computerscienceiscool/nodekit/pkg/guest"
	"github.com/computerscienceiscool/nodekit/pkg/hardware"
	"github.com/computerscienceiscool/nodekit/pkg/runner"
)

// App represents one run of a node tool
type App struct {
	config    *config.Config
	log       *zerolog.Logger
	sessionID string
	audit     *audit.Store
	closers   []io.Closer

	out    io.Writer
	errOut io.Writer

	runner   runner.Runner
	bridge   guest.Bridge
	sleep    guest.SleepFunc
	hostname func(context.Context) (string, error)
	capacity func(context.Context) (hardware.Capacity, error)
	now      func() time.Time
}

// Close releases runners, the audit store and the log file, in reverse order of acquisition
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// GetConfig returns the app's configuration
func (a *App) GetConfig() *config.Config {
	return a.config
}

// SessionID identifies this run in the audit store and in log lines
func (a *App) SessionID() string {
	return a.sessionID
}

// Logger returns the session logger
func (a *App) Logger() zerolog.Logger {
	return *a.log
}

// runnerFor returns the runner for tools configured to live in container,
// or the host runner when container is empty
func (a *App) runnerFor(ctx context.Context, container string) (runner.Runner, error) {
	if a.runner != nil {
		return a.runner, nil
	}

	if container == "" {
		return runner.NewLocalRunner(a.config.Runner.Timeout), nil
	}

	dr, err := runner.NewDockerRunner(container, a.config.Runner.Timeout)
	if err != nil {
		return nil, err
	}
	if err := dr.CheckAvailability(ctx); err != nil {
		dr.Close()
		return nil, err
	}
	a.closers = append(a.closers, dr)
	a.log.Debug().Str("container", container).Msg("running tools through docker exec")
	return dr, nil
}

// record stores one audit entry; failures are logged, never returned
func (a *App) record(ctx context.Context, e audit.Entry) {
	if a.audit == nil {
		return
	}
	e.SessionID = a.sessionID
	e.Timestamp = a.now()
	if err := a.audit.Record(ctx, e); err != nil {
		a.log.Warn().Err(err).Str("tool", e.Tool).Msg("failed to record invocation")
	}
}

// History lists recent invocations of tool ("" for all tools)
func (a *App) History(ctx context.Context, tool string, limit int) ([]audit.Entry, error) {
	if a.audit == nil {
		return nil, fmt.Errorf("audit store is disabled, set audit.db_path")
	}
	return a.audit.Recent(ctx, tool, limit)
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
