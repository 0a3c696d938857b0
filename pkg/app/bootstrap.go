package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/computerscienceiscool/nodekit/pkg/audit"
	"github.com/computerscienceiscool/nodekit/pkg/config"
	"github.com/computerscienceiscool/nodekit/pkg/guest"
	"github.com/computerscienceiscool/nodekit/pkg/hardware"
	"github.com/computerscienceiscool/nodekit/pkg/logger"
	"github.com/computerscienceiscool/nodekit/pkg/runner"
)

// Option customises an App during Bootstrap
type Option func(*App)

// WithOutput redirects command output and diagnostics
func WithOutput(out, errOut io.Writer) Option {
	return func(a *App) {
		a.out = out
		a.errOut = errOut
	}
}

// WithLogger uses l instead of initialising the global logger from config
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.log = &l
	}
}

// WithRunner runs every external tool through r
func WithRunner(r runner.Runner) Option {
	return func(a *App) {
		a.runner = r
	}
}

// WithBridge sends guest agent commands through b
func WithBridge(b guest.Bridge) Option {
	return func(a *App) {
		a.bridge = b
	}
}

// WithSleep replaces the wait between guest status polls
func WithSleep(fn guest.SleepFunc) Option {
	return func(a *App) {
		a.sleep = fn
	}
}

// WithHostFacts replaces the host hostname and capacity lookups
func WithHostFacts(hostname func(context.Context) (string, error), capacity func(context.Context) (hardware.Capacity, error)) Option {
	return func(a *App) {
		a.hostname = hostname
		a.capacity = capacity
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// Bootstrap initializes logging and the audit store and returns a configured App
func Bootstrap(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		config:    cfg,
		sessionID: audit.NewSessionID(),
		out:       os.Stdout,
		errOut:    os.Stderr,
		hostname:  hardware.Hostname,
		capacity:  hardware.DetectCapacity,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.log == nil {
		closer, err := logger.Init(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
		a.closers = append(a.closers, closer)
		l := logger.GetLogger()
		a.log = &l
	}
	l := a.log.With().Str("session", a.sessionID).Logger()
	a.log = &l

	if cfg.Audit.DBPath != "" {
		store, err := audit.Open(ctx, cfg.Audit.DBPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		a.audit = store
		a.closers = append(a.closers, store)
	}

	return a, nil
}
