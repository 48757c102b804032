package canvas

import (
	"github.com/berfenger/evccdisplay/internal/core/domain"
)

const (
	ScreenWidth  = 480
	ScreenHeight = 320

	padding      = 4
	upperHeight  = ScreenHeight / 2
	lowerHeight  = ScreenHeight - upperHeight
	columnWidth  = (ScreenWidth - 3*padding) / 2
	barWidth     = columnWidth - 2*padding - 5
	barHeight    = 16
	socBarWidth  = ScreenWidth - 4*padding - 16
	carLabelW    = 120
	carRightX    = socBarWidth - carLabelW
	lineHeight   = 13
	rowSpacing   = 20
	firstRowY    = 22
	valueOneX    = 110
	valueOneW    = 65
	valueTwoX    = 161
	valueTwoW    = 60
	columnBarY   = 104
	overlayBarY  = 134
	overlayWidth = ScreenWidth - 4*padding
)

type energyRow struct {
	desc   string
	ids    [3]domain.WidgetID
	value1 string
	value2 string
}

var inRows = []energyRow{
	{"Erzeugung", [3]domain.WidgetID{domain.WIDGET_GENERATION_DESC, domain.WIDGET_GENERATION_VALUE1, domain.WIDGET_GENERATION_VALUE2}, "0Wh", "0W"},
	{"Batterie", [3]domain.WidgetID{domain.WIDGET_BATTERY_DISCHARGE_DESC, domain.WIDGET_BATTERY_DISCHARGE_VALUE1, domain.WIDGET_BATTERY_DISCHARGE_VALUE2}, "---", "0W"},
	{"Netzbezug", [3]domain.WidgetID{domain.WIDGET_GRID_IMPORT_DESC, "", domain.WIDGET_GRID_IMPORT_VALUE2}, "", "0W"},
}

var outRows = []energyRow{
	{"Verbrauch", [3]domain.WidgetID{domain.WIDGET_CONSUMPTION_DESC, "", domain.WIDGET_CONSUMPTION_VALUE2}, "", "0W"},
	{"Ladepunkte", [3]domain.WidgetID{domain.WIDGET_LOADPOINT_DESC, "", domain.WIDGET_LOADPOINT_VALUE2}, "", "0W"},
	{"Batterie", [3]domain.WidgetID{domain.WIDGET_BATTERY_CHARGE_DESC, domain.WIDGET_BATTERY_CHARGE_VALUE1, domain.WIDGET_BATTERY_CHARGE_VALUE2}, "---", "0W"},
	{"Einspeisung", [3]domain.WidgetID{domain.WIDGET_GRID_EXPORT_DESC, "", domain.WIDGET_GRID_EXPORT_VALUE2}, "", "0W"},
}

var (
	inBarColors      = []domain.Color{domain.COLOR_BAR_GENERATION, domain.COLOR_BAR_BATTERY_OUT, domain.COLOR_BAR_GRID_IN}
	outBarColors     = []domain.Color{domain.COLOR_BAR_CONSUMPTION, domain.COLOR_BAR_LOADPOINT, domain.COLOR_BAR_BATTERY_IN, domain.COLOR_BAR_GRID_OUT}
	overlayBarColors = []domain.Color{domain.COLOR_BAR_GENERATION, domain.COLOR_BAR_BATTERY_OUT, domain.COLOR_BAR_GRID_IN, domain.COLOR_BAR_GRID_OUT}
)

// buildDashboard creates the full widget tree once. Everything the render step
// does later is a property change on these nodes.
func buildDashboard() *node {
	root := box("", domain.Rect{W: ScreenWidth, H: ScreenHeight}, domain.COLOR_GRID_BG)

	left := root.add(box("", domain.Rect{X: padding, Y: padding, W: columnWidth, H: upperHeight - 2*padding}, domain.COLOR_PANEL_BG))
	right := root.add(box("", domain.Rect{X: 2*padding + columnWidth, Y: padding, W: columnWidth, H: upperHeight - 2*padding}, domain.COLOR_PANEL_BG))

	buildColumn(left, "IN", inRows, domain.WIDGET_IN_BAR, inBarColors)
	buildColumn(right, "OUT", outRows, domain.WIDGET_OUT_BAR, outBarColors)

	// the overlay spans both columns below the column bars
	buildCompositeBar(root, domain.WIDGET_OVERLAY_BAR,
		domain.Rect{X: 2 * padding, Y: overlayBarY, W: overlayWidth, H: barHeight}, overlayBarColors)

	buildCarSection(root)
	return root
}

func buildColumn(column *node, title string, rows []energyRow, bar domain.WidgetID, colors []domain.Color) {
	inner := column.add(box("", domain.Rect{X: padding, Y: padding, W: columnWidth - 2*padding, H: upperHeight - 4*padding}, domain.COLOR_PANEL_BG))
	inner.add(label("", 0, 0, 60, title, domain.COLOR_TEXT_PRIMARY, alignLeft))
	for i, row := range rows {
		y := firstRowY + i*rowSpacing
		inner.add(label(row.ids[0], 0, y, 100, row.desc, domain.COLOR_TEXT_PRIMARY, alignLeft))
		if row.ids[1] != "" {
			inner.add(label(row.ids[1], valueOneX, y, valueOneW, row.value1, domain.COLOR_TEXT_VALUE, alignRight))
		}
		inner.add(label(row.ids[2], valueTwoX, y, valueTwoW, row.value2, domain.COLOR_TEXT_VALUE, alignRight))
	}
	buildCompositeBar(inner, bar, domain.Rect{X: 0, Y: columnBarY - padding, W: barWidth, H: barHeight}, colors)
}

func buildCompositeBar(parent *node, bar domain.WidgetID, rect domain.Rect, colors []domain.Color) {
	container := parent.add(box(bar, rect, domain.COLOR_BAR_BACKGROUND))
	container.visible = false
	for i, c := range colors {
		segment := container.add(box(domain.BarSegment(bar, i), domain.Rect{H: rect.H}, c))
		segment.visible = false
		l := segment.add(label(domain.BarLabel(bar, i), 0, 0, 0, "", domain.ContrastTextColor(c), alignCenter))
		l.rect.H = 0
		l.valign = alignCenter
		l.visible = false
	}
}

func buildCarSection(root *node) {
	panel := root.add(box("", domain.Rect{X: padding, Y: upperHeight, W: ScreenWidth - 2*padding, H: lowerHeight - 2*padding}, domain.COLOR_PANEL_BG))
	car := panel.add(box("", domain.Rect{X: padding, Y: padding, W: socBarWidth + 8, H: lowerHeight - 4*padding}, domain.COLOR_PANEL_BG))

	car.add(label(domain.WIDGET_CAR_TITLE, 0, 0, 200, "Ladepunkt", domain.COLOR_TEXT_PRIMARY, alignLeft))
	car.add(label(domain.WIDGET_CAR_VEHICLE, carRightX, 0, carLabelW, "", domain.COLOR_TEXT_SECONDARY, alignRight))
	car.add(label(domain.WIDGET_CAR_POWER, 0, 25, 120, "0W", domain.COLOR_TEXT_SECONDARY, alignLeft))
	car.add(label(domain.WIDGET_CAR_CHARGED_VALUE, 150, 25, 70, "", domain.COLOR_TEXT_SECONDARY, alignCenter))
	car.add(label(domain.WIDGET_CAR_DURATION_VALUE, 230, 25, 70, "--:--", domain.COLOR_TEXT_SECONDARY, alignCenter))
	car.add(label(domain.WIDGET_CAR_PROJECTED, carRightX, 25, carLabelW, "--:--", domain.COLOR_TEXT_SECONDARY, alignRight))

	for i := 0; i < domain.PhaseCount; i++ {
		x := i * (domain.PHASE_BAR_WIDTH + domain.PHASE_BAR_SPACING)
		rect := domain.Rect{X: x, Y: domain.PHASE_BAR_Y, W: domain.PHASE_BAR_WIDTH, H: domain.PHASE_BAR_HEIGHT}
		bg := car.add(box(domain.PhaseBackground(i), rect, domain.COLOR_BAR_BACKGROUND))
		bg.visible = false
		offered := car.add(box(domain.PhaseOffered(i), rect, domain.COLOR_PHASE_OFFERED))
		offered.opacity = 102
		offered.visible = false
		rect.W = 0
		actual := car.add(box(domain.PhaseActual(i), rect, domain.COLOR_BAR_GENERATION))
		actual.visible = false
	}

	car.add(&node{
		id:      domain.WIDGET_CAR_SOC_BAR,
		kind:    kindProgress,
		rect:    domain.Rect{X: 0, Y: domain.SOC_BAR_Y, W: socBarWidth, H: domain.SOC_BAR_HEIGHT},
		color:   domain.COLOR_BAR_BACKGROUND,
		fill:    domain.COLOR_BAR_GENERATION,
		opacity: 255,
		visible: true,
	})

	plan := car.add(box(domain.WIDGET_CAR_PLAN_MARKER,
		domain.Rect{Y: domain.PLAN_MARKER_Y, W: domain.PLAN_MARKER_WIDTH, H: domain.PLAN_MARKER_HEIGHT}, domain.COLOR_MARKER_PLAN))
	plan.visible = false
	limit := car.add(box(domain.WIDGET_CAR_LIMIT_MARKER,
		domain.Rect{Y: domain.LIMIT_MARKER_Y, W: domain.LIMIT_MARKER_WIDTH, H: domain.LIMIT_MARKER_HEIGHT}, domain.COLOR_MARKER_LIMIT))
	limit.visible = false

	car.add(label("", 0, 90, carLabelW, "LADESTAND", domain.COLOR_TEXT_SECONDARY, alignLeft))
	car.add(label("", 180, 90, carLabelW, "PLAN", domain.COLOR_TEXT_SECONDARY, alignCenter))
	car.add(label("", carRightX, 90, carLabelW, "LADELIMIT", domain.COLOR_TEXT_SECONDARY, alignRight))

	car.add(label(domain.WIDGET_CAR_SOC_VALUE, 0, 110, carLabelW, "0%", domain.COLOR_TEXT_PRIMARY, alignLeft))
	car.add(label(domain.WIDGET_CAR_PLAN_VALUE, 180, 110, carLabelW, "keiner", domain.COLOR_TEXT_PRIMARY, alignCenter))
	car.add(label(domain.WIDGET_CAR_LIMIT_VALUE, carRightX, 110, carLabelW, "---", domain.COLOR_TEXT_PRIMARY, alignRight))
	car.add(label(domain.WIDGET_CAR_PLAN_SOC_VALUE, 180, 130, carLabelW, "", domain.COLOR_TEXT_SECONDARY, alignCenter))
	car.add(label(domain.WIDGET_CAR_RANGE_VALUE, 0, 130, carLabelW, "-- km", domain.COLOR_TEXT_SECONDARY, alignLeft))
}
