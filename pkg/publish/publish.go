// Package publish sends filtered values to an MQTT broker, with a fake for testing.
package publish

import (
	"encoding/json"
	"time"

	"github.com/itohio/responsive/pkg/sample"
)

// Publisher publishes filtered samples.
type Publisher interface {
	// Publish sends a sample. Failures are returned, never fatal.
	Publish(s sample.Sample) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Payload is the JSON message published for every changed value.
type Payload struct {
	Timestamp string `json:"timestamp"`
	Value     int    `json:"value"`
	Raw       int    `json:"raw"`
	Sleeping  bool   `json:"sleeping"`
}

// FormatPayload creates the JSON payload for a sample.
func FormatPayload(s sample.Sample) ([]byte, error) {
	return json.Marshal(Payload{
		Timestamp: s.Timestamp.UTC().Format(time.RFC3339Nano),
		Value:     s.Value,
		Raw:       s.Raw,
		Sleeping:  s.Sleeping,
	})
}
