// Package monitor keeps a time window of filtered samples, tracks output statistics
// and notifies subscribers about new and changed values.
package monitor

import (
	"sync"
	"time"

	"github.com/itohio/responsive/pkg/config"
	"github.com/itohio/responsive/pkg/sample"
)

var _ SampleMonitor = (*Monitor)(nil)

// Stats summarises everything processed since the monitor was created.
type Stats struct {
	Samples  int // Samples processed
	Changes  int // Samples whose value differed from the previous one
	Sleeping int // Samples processed while the filter output was frozen
	Min, Max int // Output range seen
	Last     sample.Sample
}

// SampleMonitor processes filtered samples and exposes the recent history.
type SampleMonitor interface {
	ProcessSamples(input <-chan sample.Sample)
	Samples() []sample.Sample               // Samples within the window, oldest first
	Stats() Stats                           // Counters since creation
	OnUpdate(func(samples []sample.Sample)) // Called for every processed sample with the window
	OnChange(func(s sample.Sample))         // Called for every sample that changed the output
}

// Monitor implements SampleMonitor.
// The window is trimmed by timestamp, not by sample count.
type Monitor struct {
	windowDuration time.Duration

	mu      sync.RWMutex
	samples []sample.Sample
	stats   Stats

	cbMu            sync.RWMutex
	updateCallbacks []func(samples []sample.Sample)
	changeCallbacks []func(s sample.Sample)

	// Set when the input channel closes, suppresses further callbacks
	shutdown bool
}

// New creates a monitor using the measurement window from cfg.
func New(cfg *config.Config) *Monitor {
	return &Monitor{
		windowDuration: time.Duration(cfg.Measurement.WindowSeconds * float64(time.Second)),
		samples:        make([]sample.Sample, 0),
	}
}

// ProcessSamples consumes input until it closes.
func (m *Monitor) ProcessSamples(input <-chan sample.Sample) {
	for s := range input {
		m.processSample(s)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// processSample records s, trims the window and notifies callbacks.
func (m *Monitor) processSample(s sample.Sample) {
	m.mu.Lock()

	m.samples = append(m.samples, s)

	cutoffTime := s.Timestamp.Add(-m.windowDuration)
	cutoffIndex := 0
	for cutoffIndex < len(m.samples)-1 && !m.samples[cutoffIndex].Timestamp.After(cutoffTime) {
		cutoffIndex++
	}
	if cutoffIndex > 0 {
		m.samples = append(m.samples[:0], m.samples[cutoffIndex:]...)
	}

	if m.stats.Samples == 0 || s.Value < m.stats.Min {
		m.stats.Min = s.Value
	}
	if m.stats.Samples == 0 || s.Value > m.stats.Max {
		m.stats.Max = s.Value
	}
	m.stats.Samples++
	if s.Changed {
		m.stats.Changes++
	}
	if s.Sleeping {
		m.stats.Sleeping++
	}
	m.stats.Last = s

	notify := !m.shutdown
	var window []sample.Sample
	if notify {
		window = make([]sample.Sample, len(m.samples))
		copy(window, m.samples)
	}

	m.mu.Unlock()

	if notify {
		m.notifyCallbacks(s, window)
	}
}

// Samples returns a copy of the current window.
func (m *Monitor) Samples() []sample.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]sample.Sample, len(m.samples))
	copy(result, m.samples)
	return result
}

// Stats returns the counters.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// OnUpdate registers a callback invoked for every processed sample.
// The callback should copy what it needs and return quickly.
func (m *Monitor) OnUpdate(callback func(samples []sample.Sample)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.updateCallbacks = append(m.updateCallbacks, callback)
}

// OnChange registers a callback invoked when the filtered value changes.
func (m *Monitor) OnChange(callback func(s sample.Sample)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.changeCallbacks = append(m.changeCallbacks, callback)
}

// notifyCallbacks invokes the callbacks without holding any locks.
func (m *Monitor) notifyCallbacks(s sample.Sample, window []sample.Sample) {
	m.cbMu.RLock()
	updates := make([]func(samples []sample.Sample), len(m.updateCallbacks))
	copy(updates, m.updateCallbacks)
	var changes []func(s sample.Sample)
	if s.Changed {
		changes = make([]func(s sample.Sample), len(m.changeCallbacks))
		copy(changes, m.changeCallbacks)
	}
	m.cbMu.RUnlock()

	for _, cb := range updates {
		if cb != nil {
			cb(window)
		}
	}
	for _, cb := range changes {
		if cb != nil {
			cb(s)
		}
	}
}
