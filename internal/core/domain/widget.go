package domain

// WidgetID names one node of the retained dashboard tree.
type WidgetID string

// Color is a 0xRRGGBB value.
type Color uint32

func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Luminance is the BT.709 relative luminance in [0,1].
func (c Color) Luminance() float64 {
	r, g, b := c.RGB()
	return (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 255.0
}

const (
	COLOR_GRID_BG         Color = 0xf3f3f7
	COLOR_PANEL_BG        Color = 0xFFFFFF
	COLOR_PANEL_BORDER    Color = 0xe0e0e0
	COLOR_TEXT_PRIMARY    Color = 0x000000
	COLOR_TEXT_SECONDARY  Color = 0x93949e
	COLOR_TEXT_VALUE      Color = 0x333333
	COLOR_TEXT_DARK       Color = 0x343a40
	COLOR_TEXT_LIGHT      Color = 0xFFFFFF
	COLOR_PULSE_BORDER    Color = 0xFF9800
	COLOR_BAR_GENERATION  Color = 0x4CAF50
	COLOR_BAR_BATTERY_OUT Color = 0xFF9800
	COLOR_BAR_GRID_IN     Color = 0xF44336
	COLOR_BAR_CONSUMPTION Color = 0x2196F3
	COLOR_BAR_LOADPOINT   Color = 0x9C27B0
	COLOR_BAR_BATTERY_IN  Color = 0xFFEB3B
	COLOR_BAR_GRID_OUT    Color = 0x00BCD4
	COLOR_BAR_BACKGROUND  Color = 0xE0E0E0
	COLOR_PHASE_OFFERED   Color = 0x8BC34A
	COLOR_MARKER_PLAN     Color = 0x333333
	COLOR_MARKER_LIMIT    Color = 0x4CAF50
)

// ContrastTextColor picks dark or light text for a segment background.
func ContrastTextColor(background Color) Color {
	if background.Luminance() > 0.5 {
		return COLOR_TEXT_DARK
	}
	return COLOR_TEXT_LIGHT
}

// Energy rows. Each row has a description and up to two values.
const (
	WIDGET_GENERATION_DESC          WidgetID = "generation.desc"
	WIDGET_GENERATION_VALUE1        WidgetID = "generation.value1"
	WIDGET_GENERATION_VALUE2        WidgetID = "generation.value2"
	WIDGET_BATTERY_DISCHARGE_DESC   WidgetID = "battery_discharge.desc"
	WIDGET_BATTERY_DISCHARGE_VALUE1 WidgetID = "battery_discharge.value1"
	WIDGET_BATTERY_DISCHARGE_VALUE2 WidgetID = "battery_discharge.value2"
	WIDGET_GRID_IMPORT_DESC         WidgetID = "grid_import.desc"
	WIDGET_GRID_IMPORT_VALUE2       WidgetID = "grid_import.value2"
	WIDGET_CONSUMPTION_DESC         WidgetID = "consumption.desc"
	WIDGET_CONSUMPTION_VALUE2       WidgetID = "consumption.value2"
	WIDGET_LOADPOINT_DESC           WidgetID = "loadpoint.desc"
	WIDGET_LOADPOINT_VALUE2         WidgetID = "loadpoint.value2"
	WIDGET_BATTERY_CHARGE_DESC      WidgetID = "battery_charge.desc"
	WIDGET_BATTERY_CHARGE_VALUE1    WidgetID = "battery_charge.value1"
	WIDGET_BATTERY_CHARGE_VALUE2    WidgetID = "battery_charge.value2"
	WIDGET_GRID_EXPORT_DESC         WidgetID = "grid_export.desc"
	WIDGET_GRID_EXPORT_VALUE2       WidgetID = "grid_export.value2"
)

// Composite bars.
const (
	WIDGET_IN_BAR      WidgetID = "in_bar"
	WIDGET_OUT_BAR     WidgetID = "out_bar"
	WIDGET_OVERLAY_BAR WidgetID = "overlay_bar"
)

// Vehicle panel.
const (
	WIDGET_CAR_TITLE          WidgetID = "car.title"
	WIDGET_CAR_VEHICLE        WidgetID = "car.vehicle"
	WIDGET_CAR_POWER          WidgetID = "car.power"
	WIDGET_CAR_PROJECTED      WidgetID = "car.projected_start"
	WIDGET_CAR_SOC_BAR        WidgetID = "car.soc_bar"
	WIDGET_CAR_PLAN_MARKER    WidgetID = "car.plan_marker"
	WIDGET_CAR_LIMIT_MARKER   WidgetID = "car.limit_marker"
	WIDGET_CAR_SOC_VALUE      WidgetID = "car.soc_value"
	WIDGET_CAR_RANGE_VALUE    WidgetID = "car.range_value"
	WIDGET_CAR_PLAN_VALUE     WidgetID = "car.plan_value"
	WIDGET_CAR_PLAN_SOC_VALUE WidgetID = "car.plan_soc_value"
	WIDGET_CAR_LIMIT_VALUE    WidgetID = "car.limit_value"
	WIDGET_CAR_CHARGED_VALUE  WidgetID = "car.charged_value"
	WIDGET_CAR_DURATION_VALUE WidgetID = "car.duration_value"
)

// BarSegment returns the id of segment i of a composite bar.
func BarSegment(bar WidgetID, i int) WidgetID {
	return WidgetID(string(bar) + ".segment." + string(rune('0'+i)))
}

// BarLabel returns the id of the label inside segment i of a composite bar.
func BarLabel(bar WidgetID, i int) WidgetID {
	return WidgetID(string(bar) + ".label." + string(rune('0'+i)))
}

// PhaseBackground, PhaseOffered and PhaseActual are the three layers of phase i.
func PhaseBackground(i int) WidgetID {
	return WidgetID("car.phase." + string(rune('0'+i)) + ".bg")
}

func PhaseOffered(i int) WidgetID {
	return WidgetID("car.phase." + string(rune('0'+i)) + ".offered")
}

func PhaseActual(i int) WidgetID {
	return WidgetID("car.phase." + string(rune('0'+i)) + ".actual")
}

// Rect is a widget geometry relative to its parent.
type Rect struct {
	X, Y, W, H int
}

// Fixed vehicle panel geometry, relative to the panel.
const (
	PHASE_BAR_WIDTH     = 30
	PHASE_BAR_HEIGHT    = 4
	PHASE_BAR_SPACING   = 2
	PHASE_BAR_Y         = 50
	SOC_BAR_Y           = 65
	SOC_BAR_HEIGHT      = 20
	PLAN_MARKER_WIDTH   = 2
	PLAN_MARKER_HEIGHT  = 20
	PLAN_MARKER_Y       = 65
	LIMIT_MARKER_WIDTH  = 6
	LIMIT_MARKER_HEIGHT = 28
	LIMIT_MARKER_Y      = 61
	VALUE_LABEL_MIN_PX  = 40
	ABBREV_LABEL_PAD_PX = 4
)
