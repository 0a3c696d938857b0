package app

import (
	"context"
	"errors"
	"fmt"

	nkerrors "github.com/computerscienceiscool/nodekit/internal/errors"
	"github.com/computerscienceiscool/nodekit/pkg/audit"
	"github.com/computerscienceiscool/nodekit/pkg/guest"
	"github.com/computerscienceiscool/nodekit/pkg/logger"
	"github.com/computerscienceiscool/nodekit/pkg/runner"
)

// RunGuestCommand runs tokens inside domain and prints the guest's stdout on
// success or its stderr on a non-zero exit
func (a *App) RunGuestCommand(ctx context.Context, domain string, tokens []string) (guest.Result, error) {
	result, err := a.runGuestCommand(ctx, domain, tokens)

	argument := ""
	if len(tokens) > 0 {
		argument = runner.CommandLine(tokens[0], tokens[1:]...)
	}
	a.record(ctx, audit.Entry{
		Tool:     audit.ToolGuestExec,
		Target:   domain,
		Argument: argument,
		Success:  err == nil,
		ExitCode: nkerrors.ExitCode(err),
		Message:  errorMessage(err),
	})

	return result, err
}

func (a *App) runGuestCommand(ctx context.Context, domain string, tokens []string) (guest.Result, error) {
	req, err := guest.ParseCommandLine(domain, tokens)
	if err != nil {
		return guest.Result{}, err
	}

	bridge := a.bridge
	if bridge == nil {
		r, err := a.runnerFor(ctx, a.config.Guest.Container)
		if err != nil {
			return guest.Result{}, err
		}
		bridge = guest.NewVirshBridge(r, a.config.Guest)
	}

	d := guest.NewDispatcher(bridge, a.config.Guest, logger.WithComponent(*a.log, "guest"))
	if a.sleep != nil {
		d.WithSleep(a.sleep)
	}

	result, err := d.Dispatch(ctx, req)

	var failed *nkerrors.GuestCommandFailedError
	switch {
	case err == nil:
		fmt.Fprintln(a.out, result.Stdout)
	case errors.As(err, &failed):
		fmt.Fprintln(a.errOut, result.Stderr)
	}

	return result, err
}
