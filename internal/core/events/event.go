package events

import (
	. "github.com/berfenger/evccdisplay/internal/core/domain"
)

// TelemetryToUpdateEvents maps a snapshot to the sensor updates mirrored over
// MQTT. Unknown optionals produce no event so the last published value stays.
func TelemetryToUpdateEvents(s *TelemetrySnapshot) []SensorUpdateEvent {
	var events []SensorUpdateEvent

	events = append(events, power(SENSOR_ID_GRID_POWER, s.GridPower))
	events = append(events, power(SENSOR_ID_PV_POWER, s.PVPower))
	events = append(events, power(SENSOR_ID_HOME_POWER, s.HomePower))
	events = append(events, power(SENSOR_ID_BATTERY_POWER, s.BatteryPower))
	if s.BatterySoc.Valid {
		events = append(events, percent(SENSOR_ID_BATTERY_SOC, s.BatterySoc.Value))
	}
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SOLAR_FORECAST_TODAY,
		},
		Value:    s.ScaledSolarForecast(),
		Decimals: 0,
	})

	for i := range s.Loadpoints {
		events = append(events, LoadpointToUpdateEvents(i+1, &s.Loadpoints[i])...)
	}
	return events
}

func LoadpointToUpdateEvents(lp int, l *LoadpointSnapshot) []SensorUpdateEvent {
	var events []SensorUpdateEvent

	events = append(events, power(LoadpointPowerSensorId(lp), l.ChargePower))
	if l.Soc.Valid {
		events = append(events, percent(LoadpointSocSensorId(lp), l.Soc.Value))
	}
	events = append(events, binary(LoadpointChargingSensorId(lp), l.Charging))
	events = append(events, binary(LoadpointPluggedSensorId(lp), l.Plugged))
	return events
}

func PollFailuresUpdateEvent(failures int) FloatSensorUpdateEvent {
	return FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_POLL_FAILURES,
		},
		Value:    float64(failures),
		Decimals: 0,
	}
}

func DebugLogSwitchUpdateEvent(enabled bool) SwitchSensorUpdateEvent {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_DEBUG_LOG,
		},
		Value: enabled,
	}
}

func power(id string, watts float64) FloatSensorUpdateEvent {
	return FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: id,
		},
		Value:    watts,
		Decimals: 1,
	}
}

func binary(id string, value bool) BinarySensorUpdateEvent {
	return BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: id,
		},
		Value: value,
	}
}

func percent(id string, value float64) FloatSensorUpdateEvent {
	return FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: id,
		},
		Value:    value,
		Decimals: 0,
	}
}
