// Package concurrency provides a fair, dynamically resizable counting
// semaphore and a resource monitor that turns thermal, memory, and power
// readings into a concurrency recommendation. Together they let the
// indexing scheduler (internal/scheduler) throttle itself under pressure
// instead of running every stage flat-out regardless of system load.
//
// Both types follow the goroutine-plus-ticker shape of the teacher's
// internal/memory.Monitor, generalized from a single memory-pressure signal
// to the broader thermal/memory/power model spec.md describes.
package concurrency
