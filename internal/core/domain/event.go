package domain

import "strconv"

const (
	STATE_ON  = "on"
	STATE_OFF = "off"
)

type SensorUpdateEventMixIn struct {
	Id string
}

// SensorUpdateEvent is one entity value mirrored over MQTT.
type SensorUpdateEvent interface {
	SensorId() string
	// State is the payload published on the entity state topic.
	State() string
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

func (e FloatSensorUpdateEvent) State() string {
	return strconv.FormatFloat(e.Value, 'f', int(e.Decimals), 64)
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

func (e BinarySensorUpdateEvent) State() string {
	return onOff(e.Value)
}

// SwitchSensorUpdateEvent reports the state of a switch entity; it is retained.
type SwitchSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

func (e SwitchSensorUpdateEvent) State() string {
	return onOff(e.Value)
}

func onOff(b bool) string {
	if b {
		return STATE_ON
	}
	return STATE_OFF
}
