package domain

// Opt is a value that may be unknown. The upstream API encodes "unknown" with
// negative sentinels; inside the process it is always explicit.
type Opt[T any] struct {
	Value T
	Valid bool
}

func Some[T any](value T) Opt[T] {
	return Opt[T]{Value: value, Valid: true}
}

func None[T any]() Opt[T] {
	return Opt[T]{}
}

func (o Opt[T]) OrElse(fallback T) T {
	if o.Valid {
		return o.Value
	}
	return fallback
}

// NonNegative maps the API sentinel convention (value < 0 means unknown) to an Opt.
func NonNegative(value float64) Opt[float64] {
	if value < 0 {
		return None[float64]()
	}
	return Some(value)
}

const (
	MaxTitleLength        = 16
	MaxVehicleTitleLength = 32
	MaxTimestampLength    = 32
	PhaseCount            = 3
)

type LoadpointSnapshot struct {
	Soc                     Opt[float64]
	ChargePower             float64
	Title                   string
	VehicleTitle            string
	Charging                bool
	Plugged                 bool
	VehicleRange            Opt[float64]
	EffectivePlanTime       string
	EffectivePlanSoc        Opt[float64]
	EffectiveLimitSoc       Opt[float64]
	PlanProjectedStart      string
	ChargeCurrents          [PhaseCount]float64
	MaxCurrent              float64
	OfferedCurrent          float64
	PhasesActive            int
	ChargedEnergy           float64
	ChargeRemainingDuration Opt[float64]
}

// NewLoadpointSnapshot returns the "fully unknown" loadpoint.
func NewLoadpointSnapshot() LoadpointSnapshot {
	return LoadpointSnapshot{}
}

type TelemetrySnapshot struct {
	GridPower                float64
	PVPower                  float64
	HomePower                float64
	BatteryPower             float64
	BatterySoc               Opt[float64]
	SolarForecastScale       float64
	SolarForecastTodayEnergy float64
	Loadpoints               [2]LoadpointSnapshot
	LastUpdate               Millis
	Updated                  bool
	ConsecutiveFailures      int
}

func NewTelemetrySnapshot() TelemetrySnapshot {
	return TelemetrySnapshot{
		SolarForecastScale: 1.0,
		Loadpoints:         [2]LoadpointSnapshot{NewLoadpointSnapshot(), NewLoadpointSnapshot()},
	}
}

// LP1 and LP2 address the loadpoints by their display number.
func (s *TelemetrySnapshot) LP1() *LoadpointSnapshot {
	return &s.Loadpoints[0]
}

func (s *TelemetrySnapshot) LP2() *LoadpointSnapshot {
	return &s.Loadpoints[1]
}

func (s *TelemetrySnapshot) TotalChargePower() float64 {
	return s.Loadpoints[0].ChargePower + s.Loadpoints[1].ChargePower
}

// ScaledSolarForecast is today's forecast energy corrected by the forecast scale.
func (s *TelemetrySnapshot) ScaledSolarForecast() float64 {
	return s.SolarForecastTodayEnergy * s.SolarForecastScale
}

type RotationState struct {
	// CurrentLoadpoint is true while LP1 is shown.
	CurrentLoadpoint bool
	LastRotation     Millis
}

func NewRotationState() RotationState {
	return RotationState{CurrentLoadpoint: true}
}
