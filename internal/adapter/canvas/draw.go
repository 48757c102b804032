package canvas

import (
	"image"
	"image/color"

	"github.com/berfenger/evccdisplay/internal/core/domain"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const stripeSpacing = 8

func rgba(c domain.Color, alpha uint8) color.NRGBA {
	r, g, b := c.RGB()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}
}

func toRect(r domain.Rect) image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

func (c *Canvas) draw(n *node) {
	if !n.visible {
		return
	}
	r := toRect(n.absolute())
	switch n.kind {
	case kindBox:
		if n.opacity > 0 {
			c.fill(r, n.color, n.opacity)
		}
	case kindProgress:
		c.fill(r, n.color, 255)
		filled := r
		filled.Max.X = r.Min.X + r.Dx()*n.value/100
		c.fill(filled, n.fill, 255)
		if n.striped {
			c.stripes(filled)
		}
	case kindLabel:
		c.text(r, n)
	}
	for _, child := range n.children {
		c.draw(child)
	}
}

func (c *Canvas) fill(r image.Rectangle, col domain.Color, alpha uint8) {
	op := draw.Src
	if alpha < 255 {
		op = draw.Over
	}
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(rgba(col, alpha)), image.Point{}, op)
}

// stripes draws light diagonal lines across r.
func (c *Canvas) stripes(r image.Rectangle) {
	light := rgba(domain.COLOR_PANEL_BG, 90)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if (x+y)%stripeSpacing < 2 {
				dst := c.img.RGBAAt(x, y)
				c.img.Set(x, y, blend(dst, light))
			}
		}
	}
}

func blend(dst color.RGBA, src color.NRGBA) color.RGBA {
	a := uint32(src.A)
	mix := func(d, s uint8) uint8 {
		return uint8((uint32(s)*a + uint32(d)*(255-a)) / 255)
	}
	return color.RGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: 255}
}

func (c *Canvas) text(r image.Rectangle, n *node) {
	if n.text == "" {
		return
	}
	width := font.MeasureString(c.face, n.text).Ceil()
	x := r.Min.X
	switch n.align {
	case alignCenter:
		x += (r.Dx() - width) / 2
	case alignRight:
		x = r.Max.X - width
	}
	metrics := c.face.Metrics()
	ascent := metrics.Ascent.Ceil()
	y := r.Min.Y + ascent
	if n.valign == alignCenter {
		y = r.Min.Y + (r.Dy()-metrics.Height.Ceil())/2 + ascent
	}
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(rgba(n.color, 255)),
		Face: c.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(n.text)
}
