package service

import (
	"github.com/berfenger/evccdisplay/internal/core/domain"
)

type fakeView struct {
	texts       map[domain.WidgetID]string
	colors      map[domain.WidgetID]domain.Color
	visible     map[domain.WidgetID]bool
	geometry    map[domain.WidgetID]domain.Rect
	values      map[domain.WidgetID]int
	striped     map[domain.WidgetID]bool
	stripeCalls int
	sizes       map[domain.WidgetID][2]int
}

func newFakeView() *fakeView {
	return &fakeView{
		texts:    map[domain.WidgetID]string{},
		colors:   map[domain.WidgetID]domain.Color{},
		visible:  map[domain.WidgetID]bool{},
		geometry: map[domain.WidgetID]domain.Rect{},
		values:   map[domain.WidgetID]int{},
		striped:  map[domain.WidgetID]bool{},
		sizes: map[domain.WidgetID][2]int{
			domain.WIDGET_IN_BAR:      {221, 16},
			domain.WIDGET_OUT_BAR:     {221, 16},
			domain.WIDGET_OVERLAY_BAR: {221, 16},
			domain.WIDGET_CAR_SOC_BAR: {448, 20},
		},
	}
}

func (v *fakeView) SetText(id domain.WidgetID, text string) { v.texts[id] = text }

func (v *fakeView) SetColor(id domain.WidgetID, color domain.Color) { v.colors[id] = color }

func (v *fakeView) SetVisible(id domain.WidgetID, visible bool) { v.visible[id] = visible }

func (v *fakeView) SetGeometry(id domain.WidgetID, rect domain.Rect) { v.geometry[id] = rect }

func (v *fakeView) SetValue(id domain.WidgetID, value int) { v.values[id] = value }

func (v *fakeView) SetStriped(id domain.WidgetID, striped bool) {
	v.striped[id] = striped
	v.stripeCalls++
}

func (v *fakeView) Size(id domain.WidgetID) (int, int) {
	s := v.sizes[id]
	return s[0], s[1]
}

// 7px per character, like the fixed raster font.
func (v *fakeView) TextWidth(_ domain.WidgetID, text string) int {
	return 7 * len(text)
}
