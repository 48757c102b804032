package service

import (
	"math"
	"time"

	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/core/format"
	"github.com/berfenger/evccdisplay/internal/core/port"

	"go.uber.org/zap"
)

var (
	inBarLabels   = []string{"pv", "bat", "grid"}
	outBarLabels  = []string{"home", "chg", "bat", "grid"}
	overlayColors = []domain.Color{
		domain.COLOR_BAR_GENERATION,
		domain.COLOR_BAR_BATTERY_OUT,
		domain.COLOR_BAR_GRID_IN,
		domain.COLOR_BAR_GRID_OUT,
	}
)

// Dashboard maps a telemetry snapshot onto the widget tree. It keeps only the
// state needed for idempotent updates; the view is never rebuilt.
type Dashboard struct {
	View           port.View
	Selector       *LoadpointSelector
	PowerThreshold float64
	Logger         *zap.Logger

	striped bool
	active  int
}

func NewDashboard(view port.View, selector *LoadpointSelector, powerThreshold float64, logger *zap.Logger) *Dashboard {
	return &Dashboard{
		View:           view,
		Selector:       selector,
		PowerThreshold: powerThreshold,
		Logger:         logger,
		active:         1,
	}
}

// Active is the loadpoint number shown by the last Render.
func (d *Dashboard) Active() int {
	return d.active
}

func (d *Dashboard) Render(s *domain.TelemetrySnapshot, now time.Time) {
	d.renderEnergyRows(s)
	d.renderBars(s)
	lp, idx := d.Selector.Select(s)
	d.active = idx
	d.renderVehicle(lp, now)
}

func (d *Dashboard) activityColor(watts float64) domain.Color {
	if math.Abs(watts) < d.PowerThreshold {
		return domain.COLOR_TEXT_SECONDARY
	}
	return domain.COLOR_TEXT_VALUE
}

func (d *Dashboard) colorAll(color domain.Color, ids ...domain.WidgetID) {
	for _, id := range ids {
		d.View.SetColor(id, color)
	}
}

func (d *Dashboard) renderEnergyRows(s *domain.TelemetrySnapshot) {
	v := d.View

	v.SetText(domain.WIDGET_GENERATION_VALUE2, format.Power(s.PVPower))
	v.SetText(domain.WIDGET_GENERATION_VALUE1, format.Energy(s.ScaledSolarForecast()))
	d.colorAll(d.activityColor(s.PVPower),
		domain.WIDGET_GENERATION_DESC, domain.WIDGET_GENERATION_VALUE1, domain.WIDGET_GENERATION_VALUE2)

	v.SetText(domain.WIDGET_CONSUMPTION_VALUE2, format.Power(s.HomePower))
	d.colorAll(d.activityColor(s.HomePower), domain.WIDGET_CONSUMPTION_DESC, domain.WIDGET_CONSUMPTION_VALUE2)

	// battery: positive discharges, negative charges
	soc := format.Percentage(s.BatterySoc.OrElse(-1))
	v.SetText(domain.WIDGET_BATTERY_DISCHARGE_VALUE1, soc)
	v.SetText(domain.WIDGET_BATTERY_CHARGE_VALUE1, soc)
	discharge, charge := splitFlow(s.BatteryPower, d.PowerThreshold)
	v.SetText(domain.WIDGET_BATTERY_DISCHARGE_VALUE2, format.Power(discharge))
	v.SetText(domain.WIDGET_BATTERY_CHARGE_VALUE2, format.Power(charge))
	d.colorAll(d.activityColor(discharge),
		domain.WIDGET_BATTERY_DISCHARGE_DESC, domain.WIDGET_BATTERY_DISCHARGE_VALUE1, domain.WIDGET_BATTERY_DISCHARGE_VALUE2)
	d.colorAll(d.activityColor(charge),
		domain.WIDGET_BATTERY_CHARGE_DESC, domain.WIDGET_BATTERY_CHARGE_VALUE1, domain.WIDGET_BATTERY_CHARGE_VALUE2)

	// grid: positive imports, negative exports
	gridImport, gridExport := splitFlow(s.GridPower, d.PowerThreshold)
	v.SetText(domain.WIDGET_GRID_IMPORT_VALUE2, format.Power(gridImport))
	v.SetText(domain.WIDGET_GRID_EXPORT_VALUE2, format.Power(gridExport))
	d.colorAll(d.activityColor(gridImport), domain.WIDGET_GRID_IMPORT_DESC, domain.WIDGET_GRID_IMPORT_VALUE2)
	d.colorAll(d.activityColor(gridExport), domain.WIDGET_GRID_EXPORT_DESC, domain.WIDGET_GRID_EXPORT_VALUE2)

	total := s.TotalChargePower()
	v.SetText(domain.WIDGET_LOADPOINT_VALUE2, format.Power(total))
	d.colorAll(d.activityColor(total), domain.WIDGET_LOADPOINT_DESC, domain.WIDGET_LOADPOINT_VALUE2)
}

// splitFlow separates a signed flow into its two directions. Only a flow above
// the threshold is shown; the other direction is always zero.
func splitFlow(signed, threshold float64) (positive, negative float64) {
	switch {
	case signed > threshold:
		return signed, 0
	case signed < -threshold:
		return 0, -signed
	default:
		return 0, 0
	}
}

func positive(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

func (d *Dashboard) renderBars(s *domain.TelemetrySnapshot) {
	lpTotal := s.TotalChargePower()

	in := []float64{positive(s.PVPower), positive(s.BatteryPower), positive(s.GridPower)}
	d.applyAbbreviatedBar(domain.WIDGET_IN_BAR, in, inBarLabels)

	out := []float64{positive(s.HomePower), positive(lpTotal), positive(-s.BatteryPower), positive(-s.GridPower)}
	d.applyAbbreviatedBar(domain.WIDGET_OUT_BAR, out, outBarLabels)

	d.applyValueBar(domain.WIDGET_OVERLAY_BAR, OverlayValues(s))
}

// OverlayValues splits total consumption (home plus loadpoints) into the part
// covered by PV, by the battery and by the grid, followed by the PV export.
func OverlayValues(s *domain.TelemetrySnapshot) []float64 {
	consumption := positive(s.HomePower) + positive(s.TotalChargePower())
	selfPV := math.Min(positive(s.PVPower), consumption)
	selfBattery := math.Min(positive(s.BatteryPower), consumption-selfPV)
	return []float64{selfPV, selfBattery, positive(s.GridPower), positive(-s.GridPower)}
}

func (d *Dashboard) applyAbbreviatedBar(bar domain.WidgetID, values []float64, labels []string) {
	width, height := d.View.Size(bar)
	minWidths := make([]int, len(values))
	for i := range values {
		minWidths[i] = d.View.TextWidth(domain.BarLabel(bar, i), labels[i]) + domain.ABBREV_LABEL_PAD_PX
	}
	layout := LayoutBar(values, width, minWidths)
	d.applyLayout(bar, layout, height, func(i int) (string, domain.Color) {
		return labels[i], domain.COLOR_TEXT_DARK
	})
}

func (d *Dashboard) applyValueBar(bar domain.WidgetID, values []float64) {
	width, height := d.View.Size(bar)
	minWidths := make([]int, len(values))
	for i := range minWidths {
		minWidths[i] = domain.VALUE_LABEL_MIN_PX
	}
	layout := LayoutBar(values, width, minWidths)
	d.applyLayout(bar, layout, height, func(i int) (string, domain.Color) {
		return format.Power(values[i]), domain.ContrastTextColor(overlayColors[i])
	})
}

func (d *Dashboard) applyLayout(bar domain.WidgetID, layout BarLayout, height int, label func(i int) (string, domain.Color)) {
	v := d.View
	v.SetVisible(bar, layout.Visible)
	for i, seg := range layout.Segments {
		segId := domain.BarSegment(bar, i)
		labelId := domain.BarLabel(bar, i)
		if !seg.Visible {
			v.SetVisible(segId, false)
			v.SetVisible(labelId, false)
			continue
		}
		v.SetGeometry(segId, domain.Rect{X: seg.X, Y: 0, W: seg.Width, H: height})
		v.SetVisible(segId, true)
		if seg.LabelVisible {
			text, color := label(i)
			v.SetText(labelId, text)
			v.SetColor(labelId, color)
			v.SetVisible(labelId, true)
		} else {
			v.SetVisible(labelId, false)
		}
	}
}

func (d *Dashboard) renderVehicle(lp *domain.LoadpointSnapshot, now time.Time) {
	v := d.View

	switch {
	case lp.Charging:
		v.SetText(domain.WIDGET_CAR_POWER, format.Power(lp.ChargePower))
	case lp.Plugged:
		v.SetText(domain.WIDGET_CAR_POWER, "Verbunden")
	default:
		v.SetText(domain.WIDGET_CAR_POWER, "Nicht verbunden")
	}

	if lp.Soc.Valid {
		v.SetValue(domain.WIDGET_CAR_SOC_BAR, int(lp.Soc.Value))
		v.SetText(domain.WIDGET_CAR_SOC_VALUE, format.Percentage(lp.Soc.Value))
		d.applyStripes(lp.Charging)
	} else {
		// bar and stripes keep their last state
		v.SetText(domain.WIDGET_CAR_SOC_VALUE, format.UnknownPercent)
	}

	d.renderPhases(lp)
	d.renderMarkers(lp)

	v.SetText(domain.WIDGET_CAR_RANGE_VALUE, format.Distance(lp.VehicleRange.OrElse(-1)))
	if lp.VehicleTitle != "" {
		v.SetText(domain.WIDGET_CAR_VEHICLE, lp.VehicleTitle)
	}
	if lp.Title != "" {
		v.SetText(domain.WIDGET_CAR_TITLE, lp.Title)
	}

	if lp.EffectivePlanTime != "" {
		v.SetText(domain.WIDGET_CAR_PLAN_VALUE, format.PlanTime(lp.EffectivePlanTime, now))
		if lp.EffectivePlanSoc.Valid {
			v.SetText(domain.WIDGET_CAR_PLAN_SOC_VALUE, format.Percentage(lp.EffectivePlanSoc.Value))
		} else {
			v.SetText(domain.WIDGET_CAR_PLAN_SOC_VALUE, "")
		}
	} else {
		v.SetText(domain.WIDGET_CAR_PLAN_VALUE, format.NoPlan)
		v.SetText(domain.WIDGET_CAR_PLAN_SOC_VALUE, "")
	}

	v.SetText(domain.WIDGET_CAR_LIMIT_VALUE, format.Percentage(lp.EffectiveLimitSoc.OrElse(-1)))
	v.SetText(domain.WIDGET_CAR_PROJECTED, format.PlanStart(lp.PlanProjectedStart, now))

	if lp.Charging || lp.ChargedEnergy > 0 {
		v.SetText(domain.WIDGET_CAR_CHARGED_VALUE, format.Energy(lp.ChargedEnergy))
	} else {
		v.SetText(domain.WIDGET_CAR_CHARGED_VALUE, "")
	}
	if lp.Charging && lp.ChargeRemainingDuration.Valid {
		remaining := time.Duration(lp.ChargeRemainingDuration.Value * float64(time.Second))
		v.SetText(domain.WIDGET_CAR_DURATION_VALUE, format.Duration(remaining))
	} else {
		v.SetText(domain.WIDGET_CAR_DURATION_VALUE, format.UnknownTime)
	}
}

func (d *Dashboard) applyStripes(charging bool) {
	if charging == d.striped {
		return
	}
	d.View.SetStriped(domain.WIDGET_CAR_SOC_BAR, charging)
	d.striped = charging
	if d.Logger != nil {
		if charging {
			d.Logger.Debug("applied stripe pattern (charging)")
		} else {
			d.Logger.Debug("removed stripe pattern (not charging)")
		}
	}
}

// PhaseWidth is the pixel width of a current relative to the maximum current,
// at least 1px for any non-zero current.
func PhaseWidth(current, maxCurrent float64, barWidth int) int {
	if maxCurrent <= 0 || current <= 0 {
		return 0
	}
	ratio := math.Min(current/maxCurrent, 1)
	w := int(math.Round(ratio * float64(barWidth)))
	if w < 1 {
		w = 1
	}
	return w
}

func (d *Dashboard) renderPhases(lp *domain.LoadpointSnapshot) {
	v := d.View
	for i := 0; i < domain.PhaseCount; i++ {
		bg, offered, actual := domain.PhaseBackground(i), domain.PhaseOffered(i), domain.PhaseActual(i)
		if !lp.Charging || i >= lp.PhasesActive || lp.MaxCurrent <= 0 {
			v.SetVisible(bg, false)
			v.SetVisible(offered, false)
			v.SetVisible(actual, false)
			continue
		}
		x := i * (domain.PHASE_BAR_WIDTH + domain.PHASE_BAR_SPACING)
		v.SetVisible(bg, true)

		offeredWidth := PhaseWidth(lp.OfferedCurrent, lp.MaxCurrent, domain.PHASE_BAR_WIDTH)
		v.SetGeometry(offered, domain.Rect{X: x, Y: domain.PHASE_BAR_Y, W: offeredWidth, H: domain.PHASE_BAR_HEIGHT})
		v.SetVisible(offered, offeredWidth > 0)

		actualWidth := PhaseWidth(lp.ChargeCurrents[i], lp.MaxCurrent, domain.PHASE_BAR_WIDTH)
		if actualWidth > 0 {
			v.SetGeometry(actual, domain.Rect{X: x, Y: domain.PHASE_BAR_Y, W: actualWidth, H: domain.PHASE_BAR_HEIGHT})
			v.SetVisible(actual, true)
		} else {
			v.SetVisible(actual, false)
		}
	}
}

// MarkerX centers a marker of markerWidth on pct percent of barWidth and keeps
// it inside the bar.
func MarkerX(pct float64, barWidth, markerWidth int) int {
	x := int(math.Round(pct/100*float64(barWidth))) - markerWidth/2
	if x > barWidth-markerWidth {
		x = barWidth - markerWidth
	}
	if x < 0 {
		x = 0
	}
	return x
}

func (d *Dashboard) renderMarkers(lp *domain.LoadpointSnapshot) {
	v := d.View
	barWidth, _ := v.Size(domain.WIDGET_CAR_SOC_BAR)

	if lp.EffectivePlanSoc.Valid && lp.EffectivePlanSoc.Value > 0 {
		x := MarkerX(lp.EffectivePlanSoc.Value, barWidth, domain.PLAN_MARKER_WIDTH)
		v.SetGeometry(domain.WIDGET_CAR_PLAN_MARKER, domain.Rect{
			X: x, Y: domain.PLAN_MARKER_Y, W: domain.PLAN_MARKER_WIDTH, H: domain.PLAN_MARKER_HEIGHT,
		})
		v.SetVisible(domain.WIDGET_CAR_PLAN_MARKER, true)
	} else {
		v.SetVisible(domain.WIDGET_CAR_PLAN_MARKER, false)
	}

	if lp.EffectiveLimitSoc.Valid {
		x := MarkerX(lp.EffectiveLimitSoc.Value, barWidth, domain.LIMIT_MARKER_WIDTH)
		v.SetGeometry(domain.WIDGET_CAR_LIMIT_MARKER, domain.Rect{
			X: x, Y: domain.LIMIT_MARKER_Y, W: domain.LIMIT_MARKER_WIDTH, H: domain.LIMIT_MARKER_HEIGHT,
		})
		v.SetVisible(domain.WIDGET_CAR_LIMIT_MARKER, true)
	} else {
		v.SetVisible(domain.WIDGET_CAR_LIMIT_MARKER, false)
	}
}
