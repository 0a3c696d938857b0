package guest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	nkerrors "github.com/computerscienceiscool/nodekit/internal/errors"
	"github.com/computerscienceiscool/nodekit/pkg/config"
)

// Request is one command to run in a guest
type Request struct {
	Domain string
	Path   string
	Args   []string
}

// Result describes a finished (or abandoned) guest command
type Result struct {
	Pid      int
	Polls    int
	Exited   bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ParseCommandLine splits tokens into the guest program and its arguments
func ParseCommandLine(domain string, tokens []string) (Request, error) {
	if strings.TrimSpace(domain) == "" {
		return Request{}, &nkerrors.InvalidArgumentsError{Reason: "--domain is required"}
	}
	if len(tokens) == 0 || tokens[0] == "" {
		return Request{}, &nkerrors.InvalidArgumentsError{Reason: "no command given after --domain " + domain}
	}
	return Request{
		Domain: domain,
		Path:   tokens[0],
		Args:   append([]string{}, tokens[1:]...),
	}, nil
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Dispatcher starts a guest command and polls it to completion
type Dispatcher struct {
	bridge   Bridge
	interval time.Duration
	attempts int
	sleep    SleepFunc
	log      zerolog.Logger
}

// NewDispatcher creates a dispatcher with the configured polling budget
func NewDispatcher(bridge Bridge, cfg config.GuestConfig, log zerolog.Logger) *Dispatcher {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = config.DefaultMaxAttempts
	}
	return &Dispatcher{
		bridge:   bridge,
		interval: cfg.PollInterval,
		attempts: attempts,
		sleep:    sleepContext,
		log:      log,
	}
}

// WithSleep replaces the wait between polls
func (d *Dispatcher) WithSleep(fn SleepFunc) *Dispatcher {
	d.sleep = fn
	return d
}

// Dispatch issues guest-exec once, then polls guest-exec-status until the
// process exits or the attempt budget is spent. Only "not yet exited" is
// retried; any transport or agent error ends the dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	startTime := time.Now()
	result := Result{}
	log := d.log.With().Str("domain", req.Domain).Str("path", req.Path).Logger()

	var handle ExecHandle
	if err := d.send(ctx, req.Domain, NewExecCommand(req.Path, req.Args), &handle); err != nil {
		return result, err
	}
	result.Pid = handle.Pid
	log.Debug().Int("pid", handle.Pid).Msg("guest command started")

	var status ExecStatus
	for {
		status = ExecStatus{}
		if err := d.send(ctx, req.Domain, NewExecStatusCommand(handle.Pid), &status); err != nil {
			result.Duration = time.Since(startTime)
			return result, err
		}
		result.Polls++

		if status.Exited {
			break
		}

		log.Debug().Int("pid", handle.Pid).Int("attempt", result.Polls).Msg("guest command still running")

		if result.Polls >= d.attempts {
			result.Duration = time.Since(startTime)
			return result, &nkerrors.TimedOutError{
				Domain:   req.Domain,
				Pid:      handle.Pid,
				Attempts: result.Polls,
			}
		}

		if err := d.sleep(ctx, d.interval); err != nil {
			result.Duration = time.Since(startTime)
			return result, fmt.Errorf("waiting for pid %d on domain %s: %w", handle.Pid, req.Domain, err)
		}
	}

	result.Exited = true
	result.ExitCode = status.ExitCode
	result.Duration = time.Since(startTime)

	if status.OutTruncated {
		log.Warn().Int("pid", handle.Pid).Msg("guest agent truncated stdout")
	}
	if status.ErrTruncated {
		log.Warn().Int("pid", handle.Pid).Msg("guest agent truncated stderr")
	}

	if status.ExitCode == 0 {
		out, err := decodeData(status.OutData)
		if err != nil {
			return result, &nkerrors.RemoteCommunicationError{Domain: req.Domain, Command: CommandExecStatus, Err: err}
		}
		result.Stdout = out
		log.Debug().Int("pid", handle.Pid).Int("polls", result.Polls).Dur("duration", result.Duration).Msg("guest command finished")
		return result, nil
	}

	errOut, err := decodeData(status.ErrData)
	if err != nil {
		return result, &nkerrors.RemoteCommunicationError{Domain: req.Domain, Command: CommandExecStatus, Err: err}
	}
	result.Stderr = errOut

	log.Debug().Int("pid", handle.Pid).Int("exitcode", status.ExitCode).Msg("guest command failed")
	return result, &nkerrors.GuestCommandFailedError{Path: req.Path, ExitCode: status.ExitCode}
}

func (d *Dispatcher) send(ctx context.Context, domain string, cmd Command, v any) error {
	raw, err := d.bridge.Send(ctx, domain, cmd)
	if err != nil {
		return err
	}
	if err := decodeReturn(raw, v); err != nil {
		return &nkerrors.RemoteCommunicationError{Domain: domain, Command: cmd.Execute, Err: err}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
