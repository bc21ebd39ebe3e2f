package diagnostics

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMetrics holds host resource usage. Fields the platform cannot
// report stay zero.
type SystemMetrics struct {
	CPUModel   string `json:"cpu_model"`
	CPUCores   int    `json:"cpu_cores"`
	CPUThreads int    `json:"cpu_threads"`

	// Memory (in MB)
	MemTotalMB float64 `json:"mem_total_mb"`
	MemUsedMB  float64 `json:"mem_used_mb"`
	MemPercent float64 `json:"mem_percent"`

	// Disk holding DiskPath (in GB)
	DiskPath    string  `json:"disk_path"`
	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskFreeGB  float64 `json:"disk_free_gb"`
	DiskPercent float64 `json:"disk_percent"`

	// Load Average (Unix)
	LoadAvg1  float64 `json:"load_avg_1"`
	LoadAvg5  float64 `json:"load_avg_5"`
	LoadAvg15 float64 `json:"load_avg_15"`

	// GPUs lists graphics cards by name, best-effort.
	GPUs []string `json:"gpus,omitempty"`
}

// CollectSystem gathers host statistics for the filesystem holding path.
// An empty path means the root filesystem.
func CollectSystem(path string) SystemMetrics {
	if path == "" {
		path = rootDiskPath()
	}
	stats := SystemMetrics{DiskPath: path}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		stats.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if cores, err := cpu.Counts(false); err == nil {
		stats.CPUCores = cores
	}
	if threads, err := cpu.Counts(true); err == nil {
		stats.CPUThreads = threads
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemTotalMB = float64(vm.Total) / 1024 / 1024
		stats.MemUsedMB = float64(vm.Used) / 1024 / 1024
		stats.MemPercent = vm.UsedPercent
	}

	if usage, err := disk.Usage(path); err == nil {
		stats.DiskTotalGB = float64(usage.Total) / 1024 / 1024 / 1024
		stats.DiskFreeGB = float64(usage.Free) / 1024 / 1024 / 1024
		stats.DiskPercent = usage.UsedPercent
	}

	if avg, err := load.Avg(); err == nil {
		stats.LoadAvg1 = avg.Load1
		stats.LoadAvg5 = avg.Load5
		stats.LoadAvg15 = avg.Load15
	}

	stats.GPUs = gpuNames()
	return stats
}

// gpuNames reports the graphics cards ghw can see.
func gpuNames() []string {
	info, err := ghw.GPU()
	if err != nil || info == nil || len(info.GraphicsCards) == 0 {
		return nil
	}
	var names []string
	for _, card := range info.GraphicsCards {
		name := ""
		if card.DeviceInfo != nil {
			switch {
			case card.DeviceInfo.Vendor != nil && card.DeviceInfo.Product != nil:
				name = card.DeviceInfo.Vendor.Name + " " + card.DeviceInfo.Product.Name
			case card.DeviceInfo.Product != nil:
				name = card.DeviceInfo.Product.Name
			case card.DeviceInfo.Vendor != nil:
				name = card.DeviceInfo.Vendor.Name
			}
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("GPU %d", card.Index)
		}
		names = append(names, name)
	}
	return names
}

func rootDiskPath() string {
	if runtime.GOOS == "windows" {
		drive := os.Getenv("SystemDrive")
		if drive == "" {
			drive = "C:"
		}
		return drive + "\\"
	}
	return "/"
}
