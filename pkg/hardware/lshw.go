// Package hardware enumerates local devices through lshw and reshapes them
// into the records registered with the cluster resource manager.
package hardware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	nkerrors "github.com/computerscienceiscool/nodekit/internal/errors"
	"github.com/computerscienceiscool/nodekit/pkg/config"
	"github.com/computerscienceiscool/nodekit/pkg/runner"
)

// Descriptor is one device object from lshw's JSON output.
// Pointer fields distinguish a missing key from an empty value.
type Descriptor struct {
	ID          string  `json:"id"`
	Class       string  `json:"class"`
	Description string  `json:"description,omitempty"`
	Handle      string  `json:"handle,omitempty"`
	Product     *string `json:"product,omitempty"`
	Vendor      *string `json:"vendor,omitempty"`
	BusInfo     *string `json:"businfo,omitempty"`
}

// Inventory lists devices by class
type Inventory struct {
	runner   runner.Runner
	lshwPath string
	gpuClass string
	cpuClass string
}

// NewInventory creates an inventory backed by r
func NewInventory(r runner.Runner, cfg config.HardwareConfig) *Inventory {
	inv := &Inventory{
		runner:   r,
		lshwPath: cfg.LshwPath,
		gpuClass: cfg.GPUClass,
		cpuClass: cfg.CPUClass,
	}
	if inv.lshwPath == "" {
		inv.lshwPath = config.DefaultLshwPath
	}
	if inv.gpuClass == "" {
		inv.gpuClass = config.DefaultGPUClass
	}
	if inv.cpuClass == "" {
		inv.cpuClass = config.DefaultCPUClass
	}
	return inv
}

// ListDevices runs lshw scoped to class ("" lists every device)
func (inv *Inventory) ListDevices(ctx context.Context, class string) ([]Descriptor, error) {
	args := []string{"-quiet", "-json"}
	if class != "" {
		args = append(args, "-C", class)
	}

	result, err := inv.runner.Run(ctx, inv.lshwPath, args...)
	if err != nil {
		return nil, err
	}

	descs, err := ParseDescriptors([]byte(result.Stdout))
	if err != nil {
		return nil, &nkerrors.ExternalToolError{
			Command: runner.CommandLine(inv.lshwPath, args...),
			Err:     err,
		}
	}

	return descs, nil
}

// FetchGPUInfo lists display devices as GPU records
func (inv *Inventory) FetchGPUInfo(ctx context.Context) ([]DeviceRecord, error) {
	descs, err := inv.ListDevices(ctx, inv.gpuClass)
	if err != nil {
		return nil, err
	}
	return ExtractGPURecords(descs)
}

// FetchCPUInfo lists processors as address-only records. Unless all is set
// only the first processor is reported.
func (inv *Inventory) FetchCPUInfo(ctx context.Context, all bool) ([]DeviceRecord, error) {
	descs, err := inv.ListDevices(ctx, inv.cpuClass)
	if err != nil {
		return nil, err
	}
	if all {
		return ExtractAllCPURecords(descs)
	}
	return ExtractCPURecords(descs)
}

// ParseDescriptors decodes lshw JSON output. Newer lshw prints an array;
// older releases print bare objects, comma separated or back to back.
// Blank or null output means no device matched the class.
func ParseDescriptors(data []byte) ([]Descriptor, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []Descriptor{}, nil
	}

	if data[0] == '[' {
		descs := []Descriptor{}
		if err := json.Unmarshal(data, &descs); err != nil {
			return nil, fmt.Errorf("invalid lshw output: %w", err)
		}
		return descs, nil
	}

	wrapped := make([]byte, 0, len(data)+2)
	wrapped = append(wrapped, '[')
	wrapped = append(wrapped, data...)
	wrapped = append(wrapped, ']')

	descs := []Descriptor{}
	if err := json.Unmarshal(wrapped, &descs); err == nil {
		return descs, nil
	}

	descs = descs[:0]
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var d Descriptor
		err := dec.Decode(&d)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid lshw output: %w", err)
		}
		descs = append(descs, d)
	}

	return descs, nil
}
