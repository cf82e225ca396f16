package config

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// NewMQTT connects with auto-reconnect enabled. The connectivity
// callbacks drive the delivery queue's online/offline state so retries
// fire eagerly the moment the broker comes back.
func NewMQTT(cfg *Config, onConnect func(), onLost func(error)) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true)

	if onConnect != nil {
		opts.SetOnConnectHandler(func(mqtt.Client) { onConnect() })
	}
	if onLost != nil {
		opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) { onLost(err) })
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}
