package server

import "github.com/berfenger/evccdisplay/internal/core/domain"

// Optional values are reported as -1 when unknown, the convention of the evcc API.

type statusResponse struct {
	Uptime              int64         `json:"uptime"`
	HeapInUse           uint64        `json:"heapInUse"`
	DebugEnabled        bool          `json:"debugEnabled"`
	Version             string        `json:"version"`
	LogBufferSize       int           `json:"logBufferSize"`
	Log                 logStatus     `json:"log"`
	Poller              *pollerStatus `json:"poller,omitempty"`
	ConsecutiveFailures int           `json:"consecutiveFailures"`
	Evcc                *evccStatus   `json:"evcc,omitempty"`
}

type logStatus struct {
	Total      uint64 `json:"total"`
	Count      int    `json:"count"`
	Overwrites uint64 `json:"overwrites"`
	Dropped    uint64 `json:"dropped"`
	MinLevel   string `json:"minLevel"`
}

type pollerStatus struct {
	State        string `json:"state"`
	PollsOK      uint64 `json:"pollsOk"`
	PollsFailed  uint64 `json:"pollsFailed"`
	PollsSkipped uint64 `json:"pollsSkipped"`
	// ConsecutiveFailures counts failed polls since the last success.
	ConsecutiveFailures int `json:"consecutiveFailures"`
}

type evccStatus struct {
	GridPower                float64           `json:"gridPower"`
	PVPower                  float64           `json:"pvPower"`
	HomePower                float64           `json:"homePower"`
	BatteryPower             float64           `json:"batteryPower"`
	BatterySoc               float64           `json:"batterySoc"`
	SolarForecastScale       float64           `json:"solarForecastScale"`
	SolarForecastTodayEnergy float64           `json:"solarForecastTodayEnergy"`
	LastUpdate               uint32            `json:"lastUpdate"`
	Updated                  bool              `json:"updated"`
	ActiveLoadpoint          int               `json:"activeLoadpoint"`
	ConsecutiveFailures      int               `json:"consecutiveFailures"`
	Loadpoints               []loadpointStatus `json:"loadpoints"`
}

type loadpointStatus struct {
	Title                   string     `json:"title"`
	VehicleTitle            string     `json:"vehicleTitle"`
	Soc                     float64    `json:"soc"`
	ChargePower             float64    `json:"chargePower"`
	Charging                bool       `json:"charging"`
	Plugged                 bool       `json:"plugged"`
	VehicleRange            float64    `json:"vehicleRange"`
	EffectivePlanTime       string     `json:"effectivePlanTime"`
	EffectivePlanSoc        float64    `json:"effectivePlanSoc"`
	EffectiveLimitSoc       float64    `json:"effectiveLimitSoc"`
	PlanProjectedStart      string     `json:"planProjectedStart"`
	ChargeCurrents          [3]float64 `json:"chargeCurrents"`
	MaxCurrent              float64    `json:"maxCurrent"`
	OfferedCurrent          float64    `json:"offeredCurrent"`
	PhasesActive            int        `json:"phasesActive"`
	ChargedEnergy           float64    `json:"chargedEnergy"`
	ChargeRemainingDuration float64    `json:"chargeRemainingDuration"`
}

func newEvccStatus(s domain.TelemetrySnapshot, active int) evccStatus {
	out := evccStatus{
		GridPower:                s.GridPower,
		PVPower:                  s.PVPower,
		HomePower:                s.HomePower,
		BatteryPower:             s.BatteryPower,
		BatterySoc:               s.BatterySoc.OrElse(-1),
		SolarForecastScale:       s.SolarForecastScale,
		SolarForecastTodayEnergy: s.SolarForecastTodayEnergy,
		LastUpdate:               uint32(s.LastUpdate),
		Updated:                  s.Updated,
		ActiveLoadpoint:          active,
	}
	for _, lp := range s.Loadpoints {
		out.Loadpoints = append(out.Loadpoints, loadpointStatus{
			Title:                   lp.Title,
			VehicleTitle:            lp.VehicleTitle,
			Soc:                     lp.Soc.OrElse(-1),
			ChargePower:             lp.ChargePower,
			Charging:                lp.Charging,
			Plugged:                 lp.Plugged,
			VehicleRange:            lp.VehicleRange.OrElse(-1),
			EffectivePlanTime:       lp.EffectivePlanTime,
			EffectivePlanSoc:        lp.EffectivePlanSoc.OrElse(-1),
			EffectiveLimitSoc:       lp.EffectiveLimitSoc.OrElse(-1),
			PlanProjectedStart:      lp.PlanProjectedStart,
			ChargeCurrents:          lp.ChargeCurrents,
			MaxCurrent:              lp.MaxCurrent,
			OfferedCurrent:          lp.OfferedCurrent,
			PhasesActive:            lp.PhasesActive,
			ChargedEnergy:           lp.ChargedEnergy,
			ChargeRemainingDuration: lp.ChargeRemainingDuration.OrElse(-1),
		})
	}
	return out
}
