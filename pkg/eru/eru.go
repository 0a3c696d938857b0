// Package eru registers node resources with the ERU cluster manager through eru-cli.
package eru

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	nkerrors "github.com/computerscienceiscool/nodekit/internal/errors"
	"github.com/computerscienceiscool/nodekit/pkg/config"
	"github.com/computerscienceiscool/nodekit/pkg/hardware"
	"github.com/computerscienceiscool/nodekit/pkg/runner"
)

// GPUResources is the gpu section of the extra-resources payload
type GPUResources struct {
	GPUMap map[string]hardware.DeviceRecord `json:"gpu_map"`
}

// ExtraResources is the JSON blob passed to --extra-resources
type ExtraResources struct {
	GPU GPUResources `json:"gpu"`
}

// NodeSpec holds the fixed quantities sent with every registration
type NodeSpec struct {
	Hostname string
	CPU      int
	Memory   string
	Storage  string
}

// Registration is the outcome of one node set call
type Registration struct {
	Hostname    string
	CommandLine string
	Output      string
	GPUs        []hardware.DeviceRecord
	DryRun      bool
	Duration    time.Duration
}

// BuildExtraResources keys records by address; a repeated address keeps the last record
func BuildExtraResources(records []hardware.DeviceRecord) ExtraResources {
	gpuMap := make(map[string]hardware.DeviceRecord, len(records))
	for _, r := range records {
		gpuMap[r.Address] = r
	}
	return ExtraResources{GPU: GPUResources{GPUMap: gpuMap}}
}

// NodeSetArgs builds the eru-cli argument vector for a node set call
func NodeSetArgs(node NodeSpec, payload ExtraResources) ([]string, error) {
	if strings.TrimSpace(node.Hostname) == "" {
		return nil, &nkerrors.InvalidArgumentsError{Reason: "hostname is required for resource registration"}
	}

	extra, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extra resources: %w", err)
	}

	return []string{
		"node", "set",
		"--cpu", strconv.Itoa(node.CPU),
		"--memory", node.Memory,
		"--storage", node.Storage,
		"--extra-resources", string(extra),
		node.Hostname,
	}, nil
}

// Registrar runs eru-cli node set
type Registrar struct {
	runner  runner.Runner
	cliPath string
	node    NodeSpec
	dryRun  bool
	out     io.Writer
	log     zerolog.Logger
}

// NewRegistrar creates a registrar that echoes commands and tool output to out
func NewRegistrar(r runner.Runner, cfg config.ERUConfig, out io.Writer, log zerolog.Logger) *Registrar {
	cliPath := cfg.CLIPath
	if cliPath == "" {
		cliPath = config.DefaultERUCLIPath
	}
	return &Registrar{
		runner:  r,
		cliPath: cliPath,
		node: NodeSpec{
			CPU:     cfg.CPU,
			Memory:  cfg.Memory,
			Storage: cfg.Storage,
		},
		dryRun: cfg.DryRun,
		out:    out,
		log:    log,
	}
}

// WithCapacity overrides the configured cpu and memory quantities
func (r *Registrar) WithCapacity(c hardware.Capacity) *Registrar {
	r.node.CPU = c.CPUs
	r.node.Memory = c.MemoryQuantity()
	return r
}

// RegisterGPUResources publishes records as the node's gpu extra resources.
// The remote reply is not interpreted and failures are not retried.
func (r *Registrar) RegisterGPUResources(ctx context.Context, hostname string, records []hardware.DeviceRecord) (Registration, error) {
	node := r.node
	node.Hostname = hostname

	args, err := NodeSetArgs(node, BuildExtraResources(records))
	if err != nil {
		return Registration{}, err
	}

	reg := Registration{
		Hostname:    hostname,
		CommandLine: runner.CommandLine(r.cliPath, args...),
		GPUs:        records,
		DryRun:      r.dryRun,
	}
	fmt.Fprintln(r.out, reg.CommandLine)

	if r.dryRun {
		r.log.Info().Str("hostname", hostname).Int("gpus", len(records)).Msg("dry run, registration skipped")
		return reg, nil
	}

	r.log.Debug().Str("hostname", hostname).Int("gpus", len(records)).Msg("registering gpu resources")

	result, err := r.runner.Run(ctx, r.cliPath, args...)
	reg.Output = result.Stdout
	reg.Duration = result.Duration
	if err != nil {
		return reg, fmt.Errorf("node set for %s failed: %w", hostname, err)
	}

	fmt.Fprintln(r.out, reg.Output)

	r.log.Info().
		Str("hostname", hostname).
		Int("gpus", len(records)).
		Dur("duration", reg.Duration).
		Msg("gpu resources registered")

	return reg, nil
}
