package mqtt

import (
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/micro-nova/templog/internal/models"
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string

	// ConnectTimeout bounds the initial connect; zero selects 10s.
	ConnectTimeout time.Duration
}

// newClient is a variable so tests can substitute the paho client.
var newClient = paho.NewClient

// StatusTopic returns the retained online/offline topic for a sample topic.
func StatusTopic(topic string) string { return topic + "/status" }

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	topic  string
}

// NewRealPublisher creates a publisher connected to the given broker. The
// broker keeps a retained "offline" will on the status topic; "online" is
// published on every (re)connect. If the first connect does not complete
// within the timeout the client is disconnected, which also stops its
// background connect retries.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	status := StatusTopic(o.Topic)
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(status, "offline", 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			c.Publish(status, 1, true, "online")
			slog.Info("mqtt: connected", "broker", o.Broker)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt: connection lost", "err", err)
		})
	if o.Username != "" {
		opts.SetUsername(o.Username).SetPassword(o.Password)
	}

	client := newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(o.ConnectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt: connection timeout after %s", o.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt: connect to broker: %w", err)
	}

	return &RealPublisher{
		client: client,
		topic:  o.Topic,
	}, nil
}

// Publish sends a sample to the MQTT broker.
func (p *RealPublisher) Publish(s models.Sample) error {
	payload, err := FormatPayload(s)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close marks the device offline and disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Publish(StatusTopic(p.topic), 1, true, "offline").WaitTimeout(time.Second)
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

var _ Publisher = (*RealPublisher)(nil)
