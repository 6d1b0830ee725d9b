//go:build !linux

package concurrency

import "runtime"

// fallbackSensors reports nominal pressure everywhere Go has no portable
// way to read it, the same degraded-but-documented posture as
// internal/volume's mounts_other.go no-op lister.
type fallbackSensors struct{}

// NewSensors returns the platform's Sensors implementation.
func NewSensors() Sensors { return fallbackSensors{} }

func (fallbackSensors) Sample() (Reading, error) {
	return Reading{
		Thermal:           ThermalNominal,
		AvailableMemoryMB: -1,
		ProcessorCount:    runtime.NumCPU(),
		LowPowerMode:      false,
	}, nil
}
