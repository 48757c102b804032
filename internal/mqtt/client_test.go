package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/berfenger/evccdisplay/internal/config"
	"github.com/berfenger/evccdisplay/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *MQTTClient {
	return NewMQTTClient(nil, config.MQTTConfig{BaseTopic: "evccdisplay", HADiscoveryTopic: "homeassistant"})
}

func TestSwitchCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/my_device/command"
	r := switchCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "my_device", "device extract")
}

func TestSwitchCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	r := switchCommandExtractor("loremTopic")

	assert.Len(r.FindAllStringSubmatch("loremTopic/switch/my_device/state", 1), 0, "state topic")
	assert.Len(r.FindAllStringSubmatch("other/loremTopic/switch/my_device/command", 1), 0, "foreign prefix")
}

func TestParseMQTTCommand(t *testing.T) {
	c := testClient()

	cmd, err := c.parseSwitchCommand("evccdisplay/switch/debug_log/command", []byte("on"))
	require.NoError(t, err)
	assert.Equal(t, domain.SWITCH_ID_DEBUG_LOG, cmd.DeviceId)
	assert.Equal(t, "switch", cmd.Command)
	assert.Equal(t, "on", cmd.Payload)

	_, err = c.parseSwitchCommand("evccdisplay/sensor/grid_power/state", []byte("12"))
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestOptsFromConfig(t *testing.T) {
	cfg := &config.Config{MQTT: config.MQTTConfig{Host: "broker", Port: 1883, BaseTopic: "evccdisplay", Username: "u", Password: "p"}}
	opts := OptsFromConfig(cfg)

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://broker:1883", opts.Servers[0].String())
	assert.True(t, opts.WillEnabled)
	assert.True(t, opts.WillRetained)
	assert.Equal(t, "evccdisplay/bridge/state", opts.WillTopic)
	assert.Equal(t, []byte(MQTT_PAYLOAD_OFFLINE), opts.WillPayload)
	assert.Equal(t, "u", opts.Username)
	assert.Regexp(t, `^evccdisplay_\d{4}$`, opts.ClientID)
}

func TestTopics(t *testing.T) {
	c := testClient()

	assert.Equal(t, "evccdisplay/bridge/state", c.BridgeStateTopic())
	assert.Equal(t, "evccdisplay/sensor/grid_power/state", c.SensorStateTopic(domain.SENSOR_ID_GRID_POWER))
	assert.Equal(t, "evccdisplay/binary_sensor/loadpoint1_charging/state", c.BinarySensorStateTopic(domain.LoadpointChargingSensorId(1)))
	assert.Equal(t, "evccdisplay/switch/debug_log/command", c.SwitchCommandTopic(domain.SWITCH_ID_DEBUG_LOG))
}

func TestHADiscoveryMessages(t *testing.T) {
	c := testClient()
	dev := domain.DisplayDevice("evccdisplay")

	sensors := domain.SiteSensors(dev)
	grid := GenericSensorToHADiscoveryMessage(c, sensors[0])
	assert.Equal(t, "evccdisplay/sensor/grid_power/state", grid.StateTopic)
	require.Len(t, grid.Availability, 1)
	assert.Equal(t, "evccdisplay/bridge/state", grid.Availability[0].Topic)
	assert.Equal(t, MQTT_PAYLOAD_OFFLINE, grid.Availability[0].PayloadNotAvailable)
	assert.Equal(t, "W", grid.UnitOfMeasurement)
	require.NotNil(t, grid.DisplayPrecision)
	assert.Equal(t, 0, *grid.DisplayPrecision)
	assert.Equal(t, []string{dev.Id}, grid.Device.Id)
	assert.Equal(t, dev.Manufacturer, grid.Device.Manufacturer)
	assert.Equal(t, "homeassistant/sensor/"+dev.Id+"/grid_power/config", HADiscoverySensorTopic(c.HADiscoveryTopic(), sensors[0]))

	bridge := GenericSensorToHADiscoveryMessage(c, domain.BridgeSensors(dev)[0])
	assert.Equal(t, MQTT_PAYLOAD_ONLINE, bridge.PayloadOn)
	assert.Equal(t, MQTT_PAYLOAD_OFFLINE, bridge.PayloadOff)
	assert.Empty(t, bridge.Availability)

	var charging domain.GenericSensor
	for _, s := range sensors {
		if s.Id == domain.LoadpointChargingSensorId(2) {
			charging = s
		}
	}
	binary := GenericSensorToHADiscoveryMessage(c, charging)
	assert.Equal(t, "evccdisplay/binary_sensor/loadpoint2_charging/state", binary.StateTopic)
	assert.Equal(t, MQTT_PAYLOAD_ON, binary.PayloadOn)

	var plugged domain.GenericSensor
	for _, s := range sensors {
		if s.Id == domain.LoadpointPluggedSensorId(1) {
			plugged = s
		}
	}
	pluggedMsg := GenericSensorToHADiscoveryMessage(c, plugged)
	assert.Equal(t, "evccdisplay/binary_sensor/loadpoint1_plugged/state", pluggedMsg.StateTopic)
	assert.Equal(t, domain.DEVICE_CLASS_PLUG, pluggedMsg.DeviceClass)

	sw := domain.DisplaySwitches(dev)[0]
	swMsg := GenericSwitchToHADiscoveryMessage(c, sw)
	assert.Equal(t, "evccdisplay/switch/debug_log/command", swMsg.CommandTopic)
	assert.Equal(t, "homeassistant/switch/"+dev.Id+"/debug_log/config", HADiscoverySwitchTopic(c.HADiscoveryTopic(), sw))

	raw, err := json.Marshal(swMsg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"platform":"mqtt"`)
	assert.Contains(t, string(raw), `"origin":{"name":"evccdisplay"`)
	assert.NotContains(t, string(raw), "state_class")
}
