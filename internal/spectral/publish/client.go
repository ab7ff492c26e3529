package publish

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/spectrack/internal/monitoring"
)

// ClientConfig holds the broker connection settings.
type ClientConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Username string
	Password string
	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration
}

// NewClientOptions translates cfg into paho options with automatic
// reconnection enabled.
func NewClientOptions(cfg ClientConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "spectrack"
	}
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOrderMatters(true)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		monitoring.Logf("MQTT connection lost (%v), auto-reconnect will retry", err)
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		monitoring.Logf("MQTT reconnecting...")
	})
	return opts
}

// Connect dials the broker and waits for the first connection. The
// caller owns the returned client and must Disconnect it.
func Connect(cfg ClientConfig) (mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("no broker configured")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := mqtt.NewClient(NewClientOptions(cfg))
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connecting to %s: timed out after %v", cfg.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Broker, err)
	}
	monitoring.Logf("connected to MQTT broker %s", cfg.Broker)
	return client, nil
}
