package control

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher carries a command payload to the device listening on topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// MQTTPublisher publishes retained QoS 1 messages so a device that
// reconnects picks up its last command.
type MQTTPublisher struct {
	client  mqtt.Client
	timeout time.Duration
}

func ConnectMQTT(broker, clientID string, timeout time.Duration) (*MQTTPublisher, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("WARN: MQTT connection to %s lost: %v", broker, err)
	})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, err)
	}
	log.Printf("INFO: Connected to MQTT broker %s as %s", broker, clientID)
	return &MQTTPublisher{client: c, timeout: timeout}, nil
}

func (p *MQTTPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// LogPublisher stands in for a broker in local runs.
type LogPublisher struct{}

func (LogPublisher) Publish(topic string, payload []byte) error {
	log.Printf("INFO: [no broker] %s <- %s", topic, payload)
	return nil
}
