package canvas

import (
	"github.com/berfenger/evccdisplay/internal/core/domain"
)

type nodeKind int

const (
	kindBox nodeKind = iota
	kindLabel
	kindProgress
)

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

// node is one retained widget. Geometry is relative to the parent.
type node struct {
	id       domain.WidgetID
	kind     nodeKind
	rect     domain.Rect
	color    domain.Color
	opacity  uint8
	border   domain.Color
	text     string
	align    align
	valign   align
	visible  bool
	value    int
	striped  bool
	fill     domain.Color
	parent   *node
	children []*node
}

func (n *node) add(child *node) *node {
	child.parent = n
	n.children = append(n.children, child)
	return child
}

// absolute returns the node rectangle in screen coordinates. A label with a
// zero size spans its parent.
func (n *node) absolute() domain.Rect {
	r := n.rect
	if n.parent != nil {
		p := n.parent.absolute()
		if r.W == 0 && r.H == 0 && n.kind == kindLabel {
			r.W, r.H = p.W, p.H
		}
		r.X += p.X
		r.Y += p.Y
	}
	return r
}

func box(id domain.WidgetID, rect domain.Rect, color domain.Color) *node {
	return &node{id: id, kind: kindBox, rect: rect, color: color, opacity: 255, visible: true}
}

func label(id domain.WidgetID, x, y, w int, text string, color domain.Color, a align) *node {
	return &node{id: id, kind: kindLabel, rect: domain.Rect{X: x, Y: y, W: w, H: lineHeight}, text: text, color: color, align: a, visible: true}
}
