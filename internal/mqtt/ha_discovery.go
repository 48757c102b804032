package mqtt

import (
	"fmt"

	"github.com/berfenger/evccdisplay/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

// HADiscoveryConfig is the retained config payload of one Home Assistant
// MQTT entity.
type HADiscoveryConfig struct {
	Device            HADiscoveryDevice `json:"device"`
	Origin            HADiscoveryOrigin `json:"origin"`
	Availability      []HAAvailability  `json:"availability,omitempty"`
	Platform          string            `json:"platform"`
	Name              string            `json:"name"`
	UniqueId          string            `json:"unique_id"`
	Icon              string            `json:"icon,omitempty"`
	StateTopic        string            `json:"state_topic"`
	CommandTopic      string            `json:"command_topic,omitempty"`
	PayloadOn         string            `json:"payload_on,omitempty"`
	PayloadOff        string            `json:"payload_off,omitempty"`
	StateClass        string            `json:"state_class,omitempty"`
	DeviceClass       string            `json:"device_class,omitempty"`
	UnitOfMeasurement string            `json:"unit_of_measurement,omitempty"`
	DisplayPrecision  *int              `json:"suggested_display_precision,omitempty"`
	EntityCategory    string            `json:"entity_category,omitempty"`
	EnabledByDefault  *bool             `json:"enabled_by_default,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Name         string   `json:"name,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
}

type HADiscoveryOrigin struct {
	Name    string `json:"name"`
	Version string `json:"sw_version,omitempty"`
}

type HAAvailability struct {
	Topic               string `json:"topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
}

func HADiscoverySensorTopic(prefix string, sensor domain.GenericSensor) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", prefix, sensor.SensorType, sensor.Device.Id, sensor.Id)
}

func HADiscoverySwitchTopic(prefix string, sw domain.GenericSwitch) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", prefix, kindSwitch, sw.Device.Id, sw.Id)
}

// entityConfig fills the fields shared by every entity. All entities follow
// the bridge state, so they turn unavailable with the last will.
func entityConfig(client *MQTTClient, dev domain.Device, name, uniqueId, icon string) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device: HADiscoveryDevice{
			Id:           []string{dev.Id},
			Name:         dev.Name,
			Manufacturer: dev.Manufacturer,
			Model:        dev.Model,
			Version:      dev.Version,
		},
		Origin: HADiscoveryOrigin{Name: "evccdisplay", Version: versioninfo.Short()},
		Availability: []HAAvailability{{
			Topic:               client.BridgeStateTopic(),
			PayloadAvailable:    MQTT_PAYLOAD_ONLINE,
			PayloadNotAvailable: MQTT_PAYLOAD_OFFLINE,
		}},
		Platform: "mqtt",
		Name:     name,
		UniqueId: uniqueId,
		Icon:     icon,
	}
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	cfg := entityConfig(client, sensor.Device, sensor.Name, sensor.UniqueId, sensor.Icon)
	cfg.StateClass = sensor.StateClass
	cfg.DeviceClass = sensor.DeviceClass
	cfg.UnitOfMeasurement = sensor.UnitOfMeasurement
	cfg.DisplayPrecision = sensor.DisplayPrecision
	cfg.EntityCategory = sensor.EntityCategory
	cfg.EnabledByDefault = sensor.EnabledByDefault

	switch {
	case sensor.Id == domain.SENSOR_ID_BRIDGE_STATE:
		// the bridge itself must stay available to report offline
		cfg.Availability = nil
		cfg.StateTopic = client.BridgeStateTopic()
		cfg.PayloadOn = MQTT_PAYLOAD_ONLINE
		cfg.PayloadOff = MQTT_PAYLOAD_OFFLINE
	case sensor.SensorType == domain.SENSOR_TYPE_BINARY:
		cfg.StateTopic = client.BinarySensorStateTopic(sensor.Id)
		cfg.PayloadOn = MQTT_PAYLOAD_ON
		cfg.PayloadOff = MQTT_PAYLOAD_OFF
	default:
		cfg.StateTopic = client.SensorStateTopic(sensor.Id)
	}
	return cfg
}

func GenericSwitchToHADiscoveryMessage(client *MQTTClient, sw domain.GenericSwitch) HADiscoveryConfig {
	cfg := entityConfig(client, sw.Device, sw.Name, sw.UniqueId, sw.Icon)
	cfg.StateTopic = client.SwitchStateTopic(sw.Id)
	cfg.CommandTopic = client.SwitchCommandTopic(sw.Id)
	cfg.PayloadOn = MQTT_PAYLOAD_ON
	cfg.PayloadOff = MQTT_PAYLOAD_OFF
	return cfg
}
