//go:build linux

package concurrency

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// linuxSensors reads /sys/class/thermal zone temperatures and
// /proc/meminfo for available memory. Linux exposes no standard
// low-power-mode signal equivalent to macOS's NSProcessInfo
// .isLowPowerModeEnabled, so LowPowerMode is approximated from the
// cpufreq "powersave" governor being active on every online CPU — a
// reasonable proxy, not a literal equivalent; a true reading would need a
// desktop-environment-specific D-Bus call, which varies enough across
// distributions that it isn't worth chasing here.
type linuxSensors struct{}

// NewSensors returns the platform's Sensors implementation.
func NewSensors() Sensors { return linuxSensors{} }

func (linuxSensors) Sample() (Reading, error) {
	r := Reading{
		ProcessorCount:    runtime.NumCPU(),
		AvailableMemoryMB: readAvailableMemoryMB(),
		Thermal:           readThermalState(),
		LowPowerMode:      readPowersaveGovernor(),
	}
	return r, nil
}

func readAvailableMemoryMB() int {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return -1
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return -1
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return -1
		}
		return int(kb / 1024)
	}
	return -1
}

// thermalZoneCritical/Serious/Fair are millidegree-Celsius thresholds
// approximating macOS's thermalState buckets on commodity hardware; real
// throttling points vary by chip, so these are deliberately conservative.
const (
	thermalZoneFairMilliC     = 75000
	thermalZoneSeriousMilliC  = 85000
	thermalZoneCriticalMilliC = 95000
)

func readThermalState() ThermalState {
	zones, err := filepath.Glob("/sys/class/thermal/thermal_zone*/temp")
	if err != nil || len(zones) == 0 {
		return ThermalNominal
	}

	maxMilliC := 0
	for _, zone := range zones {
		data, err := os.ReadFile(zone)
		if err != nil {
			continue
		}
		milliC, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			continue
		}
		if milliC > maxMilliC {
			maxMilliC = milliC
		}
	}

	switch {
	case maxMilliC >= thermalZoneCriticalMilliC:
		return ThermalCritical
	case maxMilliC >= thermalZoneSeriousMilliC:
		return ThermalSerious
	case maxMilliC >= thermalZoneFairMilliC:
		return ThermalFair
	default:
		return ThermalNominal
	}
}

func readPowersaveGovernor() bool {
	govs, err := filepath.Glob("/sys/devices/system/cpu/cpu*/cpufreq/scaling_governor")
	if err != nil || len(govs) == 0 {
		return false
	}
	for _, gov := range govs {
		data, err := os.ReadFile(gov)
		if err != nil {
			return false
		}
		if strings.TrimSpace(string(data)) != "powersave" {
			return false
		}
	}
	return true
}
