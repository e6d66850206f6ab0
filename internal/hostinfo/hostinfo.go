// Package hostinfo gathers host facts shown by the doctor command.
package hostinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info describes the machine and the launcher installation.
type Info struct {
	OS            string `json:"os" yaml:"os"`
	Arch          string `json:"arch" yaml:"arch"`
	CPUModel      string `json:"cpu_model" yaml:"cpu_model"`
	CPUThreads    int    `json:"cpu_threads" yaml:"cpu_threads"`
	RAMTotalBytes uint64 `json:"ram_total_bytes" yaml:"ram_total_bytes"`
	RAMFreeBytes  uint64 `json:"ram_available_bytes" yaml:"ram_available_bytes"`
	Executable    string `json:"executable" yaml:"executable"`
	ExecutableDir string `json:"executable_dir" yaml:"executable_dir"`
	WorkDir       string `json:"workdir" yaml:"workdir"`
}

// Collect gathers host facts. Facts that cannot be read are left zero.
func Collect() *Info {
	info := &Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if threads, err := cpu.Counts(true); err == nil {
		info.CPUThreads = threads
	} else {
		info.CPUThreads = runtime.NumCPU()
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		info.CPUModel = infos[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.RAMTotalBytes = vm.Total
		info.RAMFreeBytes = vm.Available
	}

	if exe, err := os.Executable(); err == nil {
		info.Executable = exe
		info.ExecutableDir = filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		info.WorkDir = wd
	}
	return info
}

// FormatBytes renders a byte count in GiB/MiB.
func FormatBytes(b uint64) string {
	const gib = 1 << 30
	const mib = 1 << 20
	switch {
	case b >= gib:
		return fmt.Sprintf("%.1f GiB", float64(b)/gib)
	case b >= mib:
		return fmt.Sprintf("%.1f MiB", float64(b)/mib)
	default:
		return fmt.Sprintf("%d B", b)
	}
}
