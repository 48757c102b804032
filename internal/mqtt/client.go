package mqtt

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/berfenger/evccdisplay/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	MQTT_PAYLOAD_ON      = "on"
	MQTT_PAYLOAD_OFF     = "off"
)

const (
	kindSensor       = "sensor"
	kindBinarySensor = "binary_sensor"
	kindSwitch       = "switch"
)

var ErrInvalidCommand = errors.New("invalid switch command")

// OptsFromConfig builds broker options with a retained offline last will on
// the bridge state topic.
func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port)).
		SetClientID(fmt.Sprintf("evccdisplay_%04d", rand.IntN(10000))).
		SetBinaryWill(bridgeStateTopic(cfg.MQTT.BaseTopic), []byte(MQTT_PAYLOAD_OFFLINE), 0, true)
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username).SetPassword(cfg.MQTT.Password)
	}
	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnect mqtt.OnConnectHandler,
	onConnectionLost mqtt.ConnectionLostHandler) *MQTTClient {
	if onConnect != nil {
		opts.SetOnConnectHandler(onConnect)
	}
	if onConnectionLost != nil {
		opts.SetConnectionLostHandler(onConnectionLost)
	}
	return NewMQTTClient(mqtt.NewClient(opts), cfg.MQTT)
}

func NewMQTTClient(client mqtt.Client, cfg config.MQTTConfig) *MQTTClient {
	return &MQTTClient{
		client:         client,
		cfg:            cfg,
		switchCommands: switchCommandExtractor(cfg.BaseTopic),
	}
}

// MQTTClient wraps a paho client with the display's topic layout. Every
// broker operation reports its outcome through a continuation, which runs
// on its own goroutine.
type MQTTClient struct {
	client         mqtt.Client
	cfg            config.MQTTConfig
	switchCommands *regexp.Regexp
}

// ParsedMQTTCommand is an inbound switch command.
type ParsedMQTTCommand struct {
	DeviceId string
	Command  string
	Payload  string
}

func (c *MQTTClient) entityTopic(kind string, id string, leaf string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.cfg.BaseTopic, kind, id, leaf)
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.cfg.BaseTopic)
}

func (c *MQTTClient) SensorStateTopic(sensorId string) string {
	return c.entityTopic(kindSensor, sensorId, "state")
}

func (c *MQTTClient) BinarySensorStateTopic(sensorId string) string {
	return c.entityTopic(kindBinarySensor, sensorId, "state")
}

func (c *MQTTClient) SwitchStateTopic(switchId string) string {
	return c.entityTopic(kindSwitch, switchId, "state")
}

func (c *MQTTClient) SwitchCommandTopic(switchId string) string {
	return c.entityTopic(kindSwitch, switchId, "command")
}

func (c *MQTTClient) HADiscoveryTopic() string {
	return c.cfg.HADiscoveryTopic
}

func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	return c.parseSwitchCommand(msg.Topic(), msg.Payload())
}

func (c *MQTTClient) parseSwitchCommand(topic string, payload []byte) (*ParsedMQTTCommand, error) {
	m := c.switchCommands.FindStringSubmatch(topic)
	if len(m) != 2 {
		return nil, fmt.Errorf("%w: topic %q", ErrInvalidCommand, topic)
	}
	return &ParsedMQTTCommand{
		DeviceId: m[1],
		Command:  kindSwitch,
		Payload:  string(payload),
	}, nil
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	await("publish", c.client.Publish(topic, qos, retain, payload), continuation, timeout)
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	await("subscribe", c.client.Subscribe(topic, qos, handler), continuation, timeout)
}

// SubscribeToCommandTopic listens on the command topic of every switch.
func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.SwitchCommandTopic("+"), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Unsubscribe(topic string, continuation func(error), timeout time.Duration) {
	await("unsubscribe", c.client.Unsubscribe(topic), continuation, timeout)
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	await("connect", c.client.Connect(), continuation, timeout)
}

func (c *MQTTClient) IsConnected() bool {
	return c.client.IsConnected()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func await(op string, token mqtt.Token, continuation func(error), timeout time.Duration) {
	go func() {
		if !token.WaitTimeout(timeout) {
			continuation(fmt.Errorf("MQTT %s timed out after %s", op, timeout))
			return
		}
		continuation(token.Error())
	}()
}

func switchCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(baseTopic) + "/" + kindSwitch + "/([a-zA-Z0-9_]+)/command$")
}

func bridgeStateTopic(baseTopic string) string {
	return baseTopic + "/bridge/state"
}
