// Package adc provides sources of raw analog readings: a serial-attached
// microcontroller, a simulated potentiometer and recorded WAV captures.
package adc

import "time"

// RawSample is a single unfiltered reading.
type RawSample struct {
	Timestamp time.Time
	Value     int // ADC counts
}

// Device defines the interface for sample sources (real, mocked or replayed).
type Device interface {
	Connect() error
	Close() error
	Samples() <-chan RawSample
	IsConnected() bool
}

var (
	_ Device = (*Serial)(nil)
	_ Device = (*Mock)(nil)
	_ Device = (*WAV)(nil)
)
