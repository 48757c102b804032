package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE         = "bridge"
	SENSOR_ID_GRID_POWER           = "grid_power"
	SENSOR_ID_PV_POWER             = "pv_power"
	SENSOR_ID_HOME_POWER           = "home_power"
	SENSOR_ID_BATTERY_POWER        = "battery_power"
	SENSOR_ID_BATTERY_SOC          = "battery_soc"
	SENSOR_ID_SOLAR_FORECAST_TODAY = "solar_forecast_today"
	SENSOR_ID_POLL_FAILURES        = "poll_failures"
	SENSOR_ID_LOADPOINT_POWER_FMT  = "loadpoint%d_charge_power"
	SENSOR_ID_LOADPOINT_SOC_FMT    = "loadpoint%d_soc"
	SENSOR_ID_LOADPOINT_CHARGING   = "loadpoint%d_charging"
	SENSOR_ID_LOADPOINT_PLUGGED    = "loadpoint%d_plugged"
	SWITCH_ID_DEBUG_LOG            = "debug_log"
	STATE_CLASS_MEASUREMENT        = "measurement"
	STATE_CLASS_TOTAL_INCREASING   = "total_increasing"
	DEVICE_CLASS_BATTERY           = "battery"
	DEVICE_CLASS_ENERGY            = "energy"
	DEVICE_CLASS_POWER             = "power"
	DEVICE_CLASS_CONNECTIVITY      = "connectivity"
	DEVICE_CLASS_BATTERY_CHARGING  = "battery_charging"
	DEVICE_CLASS_PLUG              = "plug"
	ENTITY_CLASS_DIAGNOSTIC        = "diagnostic"
	SENSOR_TYPE_SENSOR             = "sensor"
	SENSOR_TYPE_BINARY             = "binary_sensor"
)

func LoadpointPowerSensorId(lp int) string {
	return fmt.Sprintf(SENSOR_ID_LOADPOINT_POWER_FMT, lp)
}

func LoadpointSocSensorId(lp int) string {
	return fmt.Sprintf(SENSOR_ID_LOADPOINT_SOC_FMT, lp)
}

func LoadpointChargingSensorId(lp int) string {
	return fmt.Sprintf(SENSOR_ID_LOADPOINT_CHARGING, lp)
}

func LoadpointPluggedSensorId(lp int) string {
	return fmt.Sprintf(SENSOR_ID_LOADPOINT_PLUGGED, lp)
}

func DisplayDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("evccdisplay_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "evcc display",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("evcc display %s", md5HashShort(baseTopic)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(device Device) []GenericSensor {
	return []GenericSensor{{
		Device:         device,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(device.Id, SENSOR_ID_BRIDGE_STATE),
	}}
}

// SiteSensors are the mirrored telemetry values. Only the first sensor carries
// the full device description; the rest reference it by id.
func SiteSensors(device Device) []GenericSensor {
	var sensors []GenericSensor

	power := func(id, name string) GenericSensor {
		return GenericSensor{
			Device:            IdDevice(device),
			Id:                id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              name,
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_POWER,
			UnitOfMeasurement: "W",
			DisplayPrecision:  optionalInt(0),
			UniqueId:          uniqueId(device.Id, id),
		}
	}

	sensors = append(sensors, power(SENSOR_ID_GRID_POWER, "Grid power"))
	sensors[0].Device = device
	sensors = append(sensors, power(SENSOR_ID_PV_POWER, "PV power"))
	sensors = append(sensors, power(SENSOR_ID_HOME_POWER, "Home power"))
	sensors = append(sensors, power(SENSOR_ID_BATTERY_POWER, "Battery power"))

	sensors = append(sensors, GenericSensor{
		Device:            IdDevice(device),
		Id:                SENSOR_ID_BATTERY_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_BATTERY_SOC),
	})

	sensors = append(sensors, GenericSensor{
		Device:            IdDevice(device),
		Id:                SENSOR_ID_SOLAR_FORECAST_TODAY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Solar forecast today",
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "Wh",
		DisplayPrecision:  optionalInt(0),
		Icon:              "mdi:solar-power-variant",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_SOLAR_FORECAST_TODAY),
	})

	sensors = append(sensors, GenericSensor{
		Device:           IdDevice(device),
		Id:               SENSOR_ID_POLL_FAILURES,
		SensorType:       SENSOR_TYPE_SENSOR,
		Name:             "Consecutive poll failures",
		StateClass:       STATE_CLASS_MEASUREMENT,
		EntityCategory:   ENTITY_CLASS_DIAGNOSTIC,
		EnabledByDefault: optionalBool(false),
		Icon:             "mdi:lan-disconnect",
		UniqueId:         uniqueId(device.Id, SENSOR_ID_POLL_FAILURES),
	})

	for lp := 1; lp <= 2; lp++ {
		sensors = append(sensors, power(LoadpointPowerSensorId(lp), fmt.Sprintf("Loadpoint %d charge power", lp)))
		sensors = append(sensors, GenericSensor{
			Device:            IdDevice(device),
			Id:                LoadpointSocSensorId(lp),
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("Loadpoint %d vehicle SoC", lp),
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_BATTERY,
			UnitOfMeasurement: "%",
			UniqueId:          uniqueId(device.Id, LoadpointSocSensorId(lp)),
		})
		sensors = append(sensors, GenericSensor{
			Device:      IdDevice(device),
			Id:          LoadpointChargingSensorId(lp),
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        fmt.Sprintf("Loadpoint %d charging", lp),
			DeviceClass: DEVICE_CLASS_BATTERY_CHARGING,
			UniqueId:    uniqueId(device.Id, LoadpointChargingSensorId(lp)),
		})
		sensors = append(sensors, GenericSensor{
			Device:      IdDevice(device),
			Id:          LoadpointPluggedSensorId(lp),
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        fmt.Sprintf("Loadpoint %d vehicle plugged", lp),
			DeviceClass: DEVICE_CLASS_PLUG,
			UniqueId:    uniqueId(device.Id, LoadpointPluggedSensorId(lp)),
		})
	}

	return sensors
}

func DisplaySwitches(device Device) []GenericSwitch {
	return []GenericSwitch{{
		Device:   IdDevice(device),
		Id:       SWITCH_ID_DEBUG_LOG,
		Name:     "Debug log",
		UniqueId: uniqueId(device.Id, SWITCH_ID_DEBUG_LOG),
		Icon:     "mdi:bug",
	}}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}

func optionalInt(value int) *int {
	return &value
}
