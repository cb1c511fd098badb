package server

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// resourceUsage reports CPU and RAM usage percentages for the health panel.
// The CPU sample window is kept short (100ms) so the health endpoint stays
// fast.
func resourceUsage() (cpuPct, memPct float64, err error) {
	pcts, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, 0, err
	}
	if len(pcts) > 0 {
		cpuPct = pcts[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return cpuPct, 0, err
	}
	return cpuPct, vm.UsedPercent, nil
}
