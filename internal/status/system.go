package status

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemInfo holds host statistics for the status page.
type SystemInfo struct {
	Load1      float64
	Load5      float64
	Load15     float64
	HostUptime time.Duration
	// Memory used by applications, excluding page cache.
	MemUsedMB  float64
	MemTotalMB float64
	// Resident memory of this process.
	ProcessRSSMB float64
}

const mb = 1024.0 * 1024.0

// CollectSystem reads host statistics. Individual failures leave their
// fields zero; the first error is returned alongside the partial result.
func CollectSystem() (*SystemInfo, error) {
	var (
		info  SystemInfo
		first error
	)
	keep := func(err error) {
		if first == nil {
			first = err
		}
	}

	if avg, err := load.Avg(); err == nil {
		info.Load1, info.Load5, info.Load15 = avg.Load1, avg.Load5, avg.Load15
	} else {
		keep(fmt.Errorf("load average: %w", err))
	}

	if secs, err := host.Uptime(); err == nil {
		info.HostUptime = time.Duration(secs) * time.Second
	} else {
		keep(fmt.Errorf("host uptime: %w", err))
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		// Total - Available; Used would count the page cache on Linux.
		info.MemUsedMB = float64(vm.Total-vm.Available) / mb
		info.MemTotalMB = float64(vm.Total) / mb
	} else {
		keep(fmt.Errorf("virtual memory: %w", err))
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			info.ProcessRSSMB = float64(mi.RSS) / mb
		} else {
			keep(fmt.Errorf("process memory: %w", err))
		}
	} else {
		keep(fmt.Errorf("process: %w", err))
	}

	return &info, first
}
