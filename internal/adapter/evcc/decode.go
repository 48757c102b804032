package evcc

import (
	"encoding/json"
	"errors"

	"github.com/berfenger/evccdisplay/internal/core/domain"
)

type object = map[string]any

// Decode parses the projected state document into dst. Missing or mistyped
// fields take their defaults and both loadpoints are rebuilt from scratch.
// On error dst is left untouched.
func Decode(body []byte, dst *domain.TelemetrySnapshot) error {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return &domain.DecodeError{Err: err}
	}
	root, ok := doc.(object)
	if !ok {
		return &domain.DecodeError{Err: errors.New("document is not a JSON object")}
	}

	next := *dst
	next.GridPower = number(root, "gridPower", 0)
	next.PVPower = number(root, "pvPower", 0)
	next.HomePower = number(root, "homePower", 0)
	next.BatteryPower = number(root, "batteryPower", 0)
	next.BatterySoc = domain.NonNegative(number(root, "batterySoc", -1))

	solar, _ := root["solar"].(object)
	next.SolarForecastScale = number(solar, "scale", 1.0)
	next.SolarForecastTodayEnergy = number(solar, "todayEnergy", 0)

	loadpoints, _ := root["loadpoints"].([]any)
	for i := range next.Loadpoints {
		next.Loadpoints[i] = domain.NewLoadpointSnapshot()
		if i < len(loadpoints) {
			if lp, ok := loadpoints[i].(object); ok {
				decodeLoadpoint(lp, &next.Loadpoints[i])
			}
		}
	}
	next.Updated = true

	*dst = next
	return nil
}

func decodeLoadpoint(src object, lp *domain.LoadpointSnapshot) {
	lp.Soc = domain.NonNegative(number(src, "soc", -1))
	lp.ChargePower = number(src, "chargePower", 0)
	lp.Title = bounded(str(src, "title"), domain.MaxTitleLength)
	vehicleTitle := str(src, "vehicletitle")
	if vehicleTitle == "" {
		vehicleTitle = str(src, "vehicleTitle")
	}
	lp.VehicleTitle = bounded(vehicleTitle, domain.MaxVehicleTitleLength)
	lp.Charging = boolean(src, "charging")
	lp.Plugged = boolean(src, "plugged")
	lp.VehicleRange = domain.NonNegative(number(src, "vehicleRange", -1))
	lp.EffectivePlanTime = bounded(str(src, "effectivePlanTime"), domain.MaxTimestampLength)
	lp.EffectivePlanSoc = domain.NonNegative(number(src, "effectivePlanSoc", -1))
	lp.EffectiveLimitSoc = domain.NonNegative(number(src, "effectiveLimitSoc", -1))
	lp.PlanProjectedStart = bounded(str(src, "planProjectedStart"), domain.MaxTimestampLength)
	lp.MaxCurrent = number(src, "maxCurrent", 0)
	lp.OfferedCurrent = number(src, "offeredCurrent", 0)
	lp.PhasesActive = int(number(src, "phasesActive", 0))
	lp.ChargedEnergy = number(src, "chargedEnergy", 0)
	lp.ChargeRemainingDuration = domain.NonNegative(number(src, "chargeRemainingDuration", -1))

	currents, _ := src["chargeCurrents"].([]any)
	for i := 0; i < domain.PhaseCount && i < len(currents); i++ {
		if v, ok := currents[i].(float64); ok {
			lp.ChargeCurrents[i] = v
		}
	}
}

// number returns the float at key, or def when it is absent, null or not a number.
func number(src object, key string, def float64) float64 {
	if v, ok := src[key].(float64); ok {
		return v
	}
	return def
}

func str(src object, key string) string {
	s, _ := src[key].(string)
	return s
}

func boolean(src object, key string) bool {
	b, _ := src[key].(bool)
	return b
}

func bounded(s string, maxRunes int) string {
	if len(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
