package mqtt

import (
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/gridseis/gridseis/internal/sample"
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
}

// NewRealPublisher creates a publisher connected to the given broker,
// e.g. "tcp://192.168.1.50:1883".
func NewRealPublisher(broker string) (*RealPublisher, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "capture"
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("gridseis-" + hostname).
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

	return &RealPublisher{client: client}, nil
}

// PublishSample sends one measurement to the board's sample topic.
func (p *RealPublisher) PublishSample(rec sample.Record) error {
	payload, err := FormatSamplePayload(rec)
	if err != nil {
		return fmt.Errorf("format sample payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained: boards emit a sample every
	// second, so a dropped message is recovered by the next one.
	token := p.client.Publish(SampleTopic(rec.Board), 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// PublishSystem sends a capture lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	token := p.client.Publish(TopicSystem, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}

	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
