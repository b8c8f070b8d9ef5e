package adc

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/responsive/pkg/config"
)

// Mock simulates a noisy potentiometer being swept back and forth.
type Mock struct {
	cfg *config.MockConfig

	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	closed    bool
	done      chan struct{}

	startTime time.Time
	rng       *rand.Rand
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			Center:     512,
			Amplitude:  400,
			NoiseLevel: 3,
			Period:     20 * time.Second,
			SampleRate: 20 * time.Millisecond,
			Resolution: 1024,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:     cfg,
		samples: make(chan RawSample, DefaultBufferSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		rng:     rand.New(rand.NewSource(1)),
	}
}

// Connect starts generating samples.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	if m.closed {
		return fmt.Errorf("device closed")
	}

	m.connected = true
	m.startTime = time.Now()

	go m.generateSamples()

	return nil
}

// Close stops the mocked device and waits for the generator to exit.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	m.closed = true
	m.mu.Unlock()

	<-m.done
	return nil
}

// Samples returns the channel for reading samples. It is closed after Close.
func (m *Mock) Samples() <-chan RawSample {
	return m.samples
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Mock) generateSamples() {
	defer close(m.done)
	defer close(m.samples)

	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			sample := m.generateSample(now.Sub(m.startTime))
			sample.Timestamp = now
			select {
			case m.samples <- sample:
			case <-m.ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// generateSample returns the simulated reading elapsed after start.
func (m *Mock) generateSample(elapsed time.Duration) RawSample {
	level := float32(m.cfg.Center)
	if m.cfg.Period > 0 {
		phase := float32(elapsed.Seconds() / m.cfg.Period.Seconds())
		level += float32(m.cfg.Amplitude) * math32.Sin(2*math32.Pi*phase)
	}
	level += float32(m.cfg.NoiseLevel) * (2*m.rng.Float32() - 1)

	hi := float32(m.cfg.Resolution - 1)
	level = math32.Max(0, math32.Min(hi, level))

	return RawSample{Value: int(level + 0.5)}
}
