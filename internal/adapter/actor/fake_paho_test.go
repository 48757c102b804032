package actor

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakePahoClient records publications in memory. Methods the actor does not
// use fall through to the embedded nil interface.
type fakePahoClient struct {
	pahomqtt.Client
	mu        sync.Mutex
	connected bool
	published map[string]string
	retained  map[string]bool
	handler   pahomqtt.MessageHandler
	subTopic  string
}

func newFakePahoClient() *fakePahoClient {
	return &fakePahoClient{
		published: map[string]string{},
		retained:  map[string]bool{},
	}
}

func (c *fakePahoClient) Connect() pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return fakeToken{}
}

func (c *fakePahoClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakePahoClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *fakePahoClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch p := payload.(type) {
	case []byte:
		c.published[topic] = string(p)
	default:
		c.published[topic] = fmt.Sprint(p)
	}
	c.retained[topic] = retained
	return fakeToken{}
}

func (c *fakePahoClient) Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = callback
	c.subTopic = topic
	return fakeToken{}
}

func (c *fakePahoClient) value(topic string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.published[topic]
	return v, ok
}

func (c *fakePahoClient) subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler != nil
}

func (c *fakePahoClient) deliver(topic, payload string) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	handler(c, fakeMessage{topic: topic, payload: []byte(payload)})
}

type fakeMessage struct {
	pahomqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

func (c *fakePahoClient) subscription() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subTopic
}
