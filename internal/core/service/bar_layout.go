package service

import (
	"math"
	"sort"
)

type SegmentLayout struct {
	X            int
	Width        int
	Visible      bool
	LabelVisible bool
}

type BarLayout struct {
	Visible  bool
	Segments []SegmentLayout
}

// LayoutBar splits width pixels across the positive values, left to right in
// input order. Every shown segment is at least 1px wide and the widths never
// add up to more than width. A label is shown when its segment is at least
// minLabelWidths[i] wide; a minimum of 0 (or a missing entry) never shows it.
func LayoutBar(values []float64, width int, minLabelWidths []int) BarLayout {
	layout := BarLayout{Segments: make([]SegmentLayout, len(values))}

	total := 0.0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	if total < 1 || width <= 0 {
		return layout
	}
	layout.Visible = true

	widths := make([]int, len(values))
	var shown []int
	sum := 0
	for i, v := range values {
		if v <= 0 {
			continue
		}
		w := int(math.Round(v / total * float64(width)))
		if w < 1 {
			w = 1
		}
		widths[i] = w
		sum += w
		shown = append(shown, i)
	}

	// more segments than pixels: drop trailing segments
	for len(shown) > width {
		last := shown[len(shown)-1]
		sum -= widths[last]
		widths[last] = 0
		shown = shown[:len(shown)-1]
	}

	// take rounding excess from the widest segments; among equal widths the
	// smaller magnitude gives first so widths stay ordered like the values
	if sum > width {
		byWidth := append([]int(nil), shown...)
		for sum > width {
			sort.SliceStable(byWidth, func(a, b int) bool {
				ia, ib := byWidth[a], byWidth[b]
				if widths[ia] != widths[ib] {
					return widths[ia] > widths[ib]
				}
				return values[ia] < values[ib]
			})
			widest := byWidth[0]
			if widths[widest] <= 1 {
				break
			}
			widths[widest]--
			sum--
		}
	}

	x := 0
	for i := range values {
		if widths[i] == 0 {
			continue
		}
		minWidth := 0
		if i < len(minLabelWidths) {
			minWidth = minLabelWidths[i]
		}
		layout.Segments[i] = SegmentLayout{
			X:            x,
			Width:        widths[i],
			Visible:      true,
			LabelVisible: minWidth > 0 && widths[i] >= minWidth,
		}
		x += widths[i]
	}
	return layout
}
