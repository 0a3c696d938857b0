package app

import (
	"context"
	"fmt"
	"strings"

	nkerrors "github.com/computerscienceiscool/nodekit/internal/errors"
	"github.com/computerscienceiscool/nodekit/pkg/audit"
	"github.com/computerscienceiscool/nodekit/pkg/eru"
	"github.com/computerscienceiscool/nodekit/pkg/hardware"
	"github.com/computerscienceiscool/nodekit/pkg/logger"
	"github.com/computerscienceiscool/nodekit/pkg/publish"
)

// Hostname returns the registration hostname: eru.hostname when set,
// otherwise the OS hostname
func (a *App) Hostname(ctx context.Context) (string, error) {
	if h := strings.TrimSpace(a.config.ERU.Hostname); h != "" {
		return h, nil
	}
	h, err := a.hostname(ctx)
	if err != nil {
		return "", &nkerrors.InvalidArgumentsError{Reason: fmt.Sprintf("no hostname configured and %v", err)}
	}
	return h, nil
}

func (a *App) inventory(ctx context.Context) (*hardware.Inventory, error) {
	r, err := a.runnerFor(ctx, "")
	if err != nil {
		return nil, err
	}
	return hardware.NewInventory(r, a.config.Hardware), nil
}

// GPUs lists display devices as records
func (a *App) GPUs(ctx context.Context) ([]hardware.DeviceRecord, error) {
	inv, err := a.inventory(ctx)
	if err != nil {
		return nil, err
	}
	records, err := inv.FetchGPUInfo(ctx)
	a.record(ctx, audit.Entry{
		Tool:     audit.ToolHWReport,
		Target:   "localhost",
		Argument: "gpus",
		Success:  err == nil,
		ExitCode: nkerrors.ExitCode(err),
		Message:  errorMessage(err),
	})
	return records, err
}

// CPUs lists processor addresses, only the first socket unless all is set
func (a *App) CPUs(ctx context.Context, all bool) ([]hardware.DeviceRecord, error) {
	argument := "cpus"
	if all {
		argument = "cpus --all"
	}

	records, err := a.cpus(ctx, all)
	a.record(ctx, audit.Entry{
		Tool:     audit.ToolHWReport,
		Target:   "localhost",
		Argument: argument,
		Success:  err == nil,
		ExitCode: nkerrors.ExitCode(err),
		Message:  errorMessage(err),
	})
	return records, err
}

func (a *App) cpus(ctx context.Context, all bool) ([]hardware.DeviceRecord, error) {
	inv, err := a.inventory(ctx)
	if err != nil {
		return nil, err
	}
	return inv.FetchCPUInfo(ctx, all)
}

// RegisterGPUs discovers local GPUs and registers them as the node's extra
// resources, then announces the inventory on NATS when configured
func (a *App) RegisterGPUs(ctx context.Context) (eru.Registration, error) {
	hostname, err := a.Hostname(ctx)
	if err != nil {
		return eru.Registration{}, err
	}

	reg, err := a.registerGPUs(ctx, hostname)
	a.record(ctx, audit.Entry{
		Tool:     audit.ToolHWReport,
		Target:   hostname,
		Argument: reg.CommandLine,
		Success:  err == nil,
		ExitCode: nkerrors.ExitCode(err),
		Message:  errorMessage(err),
	})
	if err != nil {
		return reg, err
	}

	if !reg.DryRun {
		a.announce(ctx, reg)
	}
	return reg, nil
}

func (a *App) registerGPUs(ctx context.Context, hostname string) (eru.Registration, error) {
	inv, err := a.inventory(ctx)
	if err != nil {
		return eru.Registration{}, err
	}
	records, err := inv.FetchGPUInfo(ctx)
	if err != nil {
		return eru.Registration{}, err
	}
	a.log.Info().Str("hostname", hostname).Int("gpus", len(records)).Msg("discovered gpus")

	r, err := a.runnerFor(ctx, a.config.ERU.Container)
	if err != nil {
		return eru.Registration{}, err
	}

	registrar := eru.NewRegistrar(r, a.config.ERU, a.out, logger.WithComponent(*a.log, "eru"))
	if a.config.ERU.DetectCapacity {
		capacity, err := a.capacity(ctx)
		if err != nil {
			return eru.Registration{}, fmt.Errorf("failed to detect host capacity: %w", err)
		}
		a.log.Debug().Int("cpus", capacity.CPUs).Str("memory", capacity.MemoryQuantity()).Msg("detected host capacity")
		registrar.WithCapacity(capacity)
	}

	return registrar.RegisterGPUResources(ctx, hostname, records)
}

// announce publishes the registered inventory; failures only warn
func (a *App) announce(ctx context.Context, reg eru.Registration) {
	if a.config.NATS.URL == "" {
		return
	}

	pub, err := publish.Connect(a.config.NATS)
	if err != nil {
		a.log.Warn().Err(err).Msg("inventory not published")
		return
	}
	defer pub.Close()

	inv := publish.Inventory{
		Hostname:     reg.Hostname,
		GPUs:         reg.GPUs,
		RegisteredAt: a.now().UTC(),
	}
	if err := pub.PublishInventory(ctx, inv); err != nil {
		a.log.Warn().Err(err).Msg("inventory not published")
		return
	}
	a.log.Info().Str("subject", pub.Subject()).Int("gpus", len(reg.GPUs)).Msg("inventory published")
}
