package concurrency

import (
	"sync"
	"testing"
	"time"
)

type fakeSensors struct {
	mu      sync.Mutex
	reading Reading
}

func (f *fakeSensors) Sample() (Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reading, nil
}

func (f *fakeSensors) set(r Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading = r
}

func TestResourceMonitorNotifiesOnChange(t *testing.T) {
	sensors := &fakeSensors{reading: Reading{Thermal: ThermalNominal, AvailableMemoryMB: -1, ProcessorCount: 8}}

	var mu sync.Mutex
	var seen []int
	mon := NewResourceMonitor(sensors, 10*time.Millisecond, ModeFullSpeed, func(recommended int) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, recommended)
	})
	mon.Start()
	defer mon.Stop()

	time.Sleep(20 * time.Millisecond)
	sensors.set(Reading{Thermal: ThermalCritical, AvailableMemoryMB: -1, ProcessorCount: 8})
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 {
		t.Fatalf("expected at least 2 callback invocations (initial + after thermal change), got %v", seen)
	}
	if seen[len(seen)-1] != 1 {
		t.Fatalf("expected final recommendation 1 under critical thermal, got %d", seen[len(seen)-1])
	}
}

func TestResourceMonitorSetModeResamplesImmediately(t *testing.T) {
	sensors := &fakeSensors{reading: Reading{Thermal: ThermalNominal, AvailableMemoryMB: -1, ProcessorCount: 8}}
	mon := NewResourceMonitor(sensors, time.Hour, ModeFullSpeed, nil)
	mon.Start()
	defer mon.Stop()

	if got := mon.Recommended(); got != 6 {
		t.Fatalf("expected initial recommendation 6, got %d", got)
	}

	mon.SetMode(ModeBackground)
	if got := mon.Recommended(); got != 2 {
		t.Fatalf("expected recommendation 2 after SetMode(background), got %d", got)
	}
}
