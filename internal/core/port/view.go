package port

import "github.com/berfenger/evccdisplay/internal/core/domain"

// View is the retained widget tree the dashboard is drawn into. Widgets are
// created once by the implementation; callers only mutate their properties.
// Unknown ids are ignored.
type View interface {
	SetText(id domain.WidgetID, text string)
	// SetColor sets the text color of labels and the fill color of boxes.
	SetColor(id domain.WidgetID, color domain.Color)
	SetVisible(id domain.WidgetID, visible bool)
	SetGeometry(id domain.WidgetID, rect domain.Rect)
	// SetValue sets the fill of a progress bar in percent.
	SetValue(id domain.WidgetID, value int)
	SetStriped(id domain.WidgetID, striped bool)
	Size(id domain.WidgetID) (width, height int)
	TextWidth(id domain.WidgetID, text string) int
}

// Screen is a View that is presented in frames.
type Screen interface {
	View
	// Flush redraws the frame when a widget changed since the last flush.
	Flush() (bool, error)
}
