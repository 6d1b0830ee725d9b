package concurrency

import (
	"sync"
	"time"

	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/metrics"
)

// DefaultSampleInterval matches the 5s resource-sampling cadence.
const DefaultSampleInterval = 5 * time.Second

// ResourceMonitor samples Sensors on an interval and turns the reading into
// a concurrency recommendation, calling back whenever that recommendation
// changes so the scheduler can retune its semaphore. Shaped like the
// teacher's internal/memory.Monitor: a ticker-driven goroutine guarded by a
// stop channel, with the current state behind a mutex.
type ResourceMonitor struct {
	sensors  Sensors
	interval time.Duration
	onChange func(recommended int)

	mu          sync.RWMutex
	mode        Mode
	lastReading Reading
	lastResult  int
	stopChan    chan struct{}
	stoppedOnce sync.Once
}

// NewResourceMonitor creates a monitor with an initial desired mode.
func NewResourceMonitor(sensors Sensors, interval time.Duration, mode Mode, onChange func(recommended int)) *ResourceMonitor {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &ResourceMonitor{
		sensors:  sensors,
		interval: interval,
		onChange: onChange,
		mode:     mode,
		stopChan: make(chan struct{}),
	}
}

// Start samples once immediately, then begins the periodic sampling loop.
func (m *ResourceMonitor) Start() {
	m.sample()
	go m.loop()
}

// Stop ends the sampling loop. Safe to call more than once.
func (m *ResourceMonitor) Stop() {
	m.stoppedOnce.Do(func() { close(m.stopChan) })
}

func (m *ResourceMonitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sample()
		case <-m.stopChan:
			return
		}
	}
}

func (m *ResourceMonitor) sample() {
	reading, err := m.sensors.Sample()
	if err != nil {
		logging.Warn("resource monitor: sample failed: %v", err)
		return
	}

	m.mu.Lock()
	mode := m.mode
	previous := m.lastResult
	m.lastReading = reading
	result := Recommend(mode, reading)
	changed := result != previous
	m.lastResult = result
	m.mu.Unlock()

	metrics.ResourceMonitorRecommendedConcurrency.Set(float64(result))
	metrics.ResourceMonitorThermalState.Set(float64(reading.Thermal))
	metrics.ResourceMonitorAvailableMemoryMB.Set(float64(reading.AvailableMemoryMB))

	if changed {
		logging.Info("resource monitor: recommended concurrency %d -> %d (thermal=%s memory=%dMB low_power=%v)",
			previous, result, reading.Thermal, reading.AvailableMemoryMB, reading.LowPowerMode)
		if m.onChange != nil {
			m.onChange(result)
		}
	}
}

// SetMode changes the desired concurrency profile; the next sample applies
// it (immediately re-sampled so the change takes effect without waiting a
// full interval).
func (m *ResourceMonitor) SetMode(mode Mode) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
	m.sample()
}

// Recommended returns the most recently computed recommendation.
func (m *ResourceMonitor) Recommended() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastResult
}

// LastReading returns the most recent sensor reading.
func (m *ResourceMonitor) LastReading() Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastReading
}
