package domain

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_POLLER       = "poller"
	ACTOR_ID_DISPLAY      = "display"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// TelemetryUpdated carries a successfully decoded snapshot. It is sent to the
// display actor and published on the event stream.
type TelemetryUpdated struct {
	Snapshot TelemetrySnapshot
}

// PollFailed is published on the event stream after every failed poll.
type PollFailed struct {
	Error               error
	ConsecutiveFailures int
}

type GetTelemetryRequest struct {
	ActorRequestMixIn
}

type GetTelemetryResponse struct {
	ActorResponseMixIn
	Snapshot TelemetrySnapshot
	// Active is the loadpoint shown on the vehicle panel (1 or 2).
	Active int
}

type GetPollerStateRequest struct {
	ActorRequestMixIn
}

type GetPollerStateResponse struct {
	ActorResponseMixIn
	State               string
	ConsecutiveFailures int
	PollsOK             uint64
	PollsFailed         uint64
	PollsSkipped        uint64
}

// RestartRequest asks the master to restart the whole process.
type RestartRequest struct {
	ActorRequestMixIn
	Reason string
}

// SetDebugRequest switches verbose console diagnostics on or off.
type SetDebugRequest struct {
	ActorRequestMixIn
	Enable bool
}

type SetDebugResponse struct {
	ActorResponseMixIn
	Enabled bool
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors  []GenericSensor
	Switches []GenericSwitch
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
	// Unhealthy lists failing children, sorted. Only the master fills it.
	Unhealthy []string
}
