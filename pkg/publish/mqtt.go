package publish

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/itohio/responsive/pkg/config"
	"github.com/itohio/responsive/pkg/sample"
)

var (
	_ Publisher        = (*MQTT)(nil)
	_ ConnectionStatus = (*MQTT)(nil)
)

// MQTT publishes to an actual broker. Values are retained so that late
// subscribers immediately see the current position.
type MQTT struct {
	client paho.Client
	topic  string
}

// NewMQTT connects to the broker in cfg.
func NewMQTT(cfg config.MQTTConfig) (*MQTT, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &MQTT{
		client: client,
		topic:  cfg.Topic,
	}, nil
}

// Publish sends the sample with QoS 0.
func (p *MQTT) Publish(s sample.Sample) error {
	payload, err := FormatPayload(s)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	token := p.client.Publish(p.topic, 0, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// IsConnected reports the client connection state.
func (p *MQTT) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *MQTT) Close() error {
	p.client.Disconnect(1000)
	return nil
}
