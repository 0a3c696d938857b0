package hardware

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Capacity is the schedulable size of this host
type Capacity struct {
	CPUs        int
	MemoryBytes uint64
}

// MemoryQuantity renders memory in whole GiB the way eru-cli expects, e.g. "62G"
func (c Capacity) MemoryQuantity() string {
	return fmt.Sprintf("%dG", c.MemoryBytes>>30)
}

// Hostname returns the OS hostname
func Hostname(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read host info: %w", err)
	}
	name := strings.TrimSpace(info.Hostname)
	if name == "" {
		return "", fmt.Errorf("host reports an empty hostname")
	}
	return name, nil
}

// DetectCapacity reads logical CPU count and total memory
func DetectCapacity(ctx context.Context) (Capacity, error) {
	cpus, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return Capacity{}, fmt.Errorf("failed to count cpus: %w", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Capacity{}, fmt.Errorf("failed to read memory: %w", err)
	}

	return Capacity{CPUs: cpus, MemoryBytes: vm.Total}, nil
}
