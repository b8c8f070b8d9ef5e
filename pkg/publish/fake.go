package publish

import (
	"sync"

	"github.com/itohio/responsive/pkg/sample"
)

var (
	_ Publisher        = (*Fake)(nil)
	_ ConnectionStatus = (*Fake)(nil)
)

// Fake records published samples for test assertions.
type Fake struct {
	mu sync.Mutex

	// Samples contains all samples that were published.
	Samples []sample.Sample

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFake creates a Fake publisher.
func NewFake() *Fake {
	return &Fake{}
}

// Publish records the sample.
func (f *Fake) Publish(s sample.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(s)
	if err != nil {
		return err
	}
	f.Samples = append(f.Samples, s)
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports true until Close is called.
func (f *Fake) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.Closed
}

// Published returns a copy of the recorded samples.
func (f *Fake) Published() []sample.Sample {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sample.Sample, len(f.Samples))
	copy(out, f.Samples)
	return out
}
