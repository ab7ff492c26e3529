package publish

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mockToken implements mqtt.Token.
type mockToken struct {
	err      error
	complete bool
}

func (t *mockToken) Wait() bool                     { return t.complete }
func (t *mockToken) WaitTimeout(time.Duration) bool { return t.complete }
func (t *mockToken) Error() error                   { return t.err }
func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.complete {
		close(ch)
	}
	return ch
}

type mockMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// mockClient implements mqtt.Client and records every publish.
type mockClient struct {
	mu           sync.Mutex
	connected    bool
	publishError error
	stall        bool
	published    []mockMessage
}

func newMockClient() *mockClient { return &mockClient{connected: true} }

func (c *mockClient) messages() []mockMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]mockMessage(nil), c.published...)
}

func (c *mockClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *mockClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *mockClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return &mockToken{complete: true}
}

func (c *mockClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stall {
		return &mockToken{}
	}
	if c.publishError != nil {
		return &mockToken{err: c.publishError, complete: true}
	}
	c.published = append(c.published, mockMessage{Topic: topic, Payload: payload.([]byte), QoS: qos, Retain: retained})
	return &mockToken{complete: true}
}

func (c *mockClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	return &mockToken{complete: true}
}

func (c *mockClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &mockToken{complete: true}
}

func (c *mockClient) Unsubscribe(...string) mqtt.Token { return &mockToken{complete: true} }

func (c *mockClient) AddRoute(string, mqtt.MessageHandler) {}

func (c *mockClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

var _ mqtt.Client = (*mockClient)(nil)
