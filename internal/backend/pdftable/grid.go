package pdftable

import (
	"math"
	"sort"

	"github.com/ledongthuc/pdf"
)

// rule is a ruling line. For vertical rules pos is x and the span runs along y;
// for horizontal rules pos is y and the span runs along x.
type rule struct {
	pos      float64
	from, to float64
}

func (r rule) covers(v, tolerance float64) bool {
	return v >= r.from-tolerance && v <= r.to+tolerance
}

// rulesOf turns drawn rectangles into ruling lines. Thin rectangles are lines themselves;
// any other rectangle contributes its four edges.
func rulesOf(rects []pdf.Rect, thickness float64) (vertical, horizontal []rule) {
	for _, r := range rects {
		minX, maxX := math.Min(r.Min.X, r.Max.X), math.Max(r.Min.X, r.Max.X)
		minY, maxY := math.Min(r.Min.Y, r.Max.Y), math.Max(r.Min.Y, r.Max.Y)
		w, h := maxX-minX, maxY-minY

		switch {
		case w <= thickness && h <= thickness:
			continue
		case w <= thickness:
			vertical = append(vertical, rule{pos: (minX + maxX) / 2, from: minY, to: maxY})
		case h <= thickness:
			horizontal = append(horizontal, rule{pos: (minY + maxY) / 2, from: minX, to: maxX})
		default:
			vertical = append(vertical,
				rule{pos: minX, from: minY, to: maxY},
				rule{pos: maxX, from: minY, to: maxY})
			horizontal = append(horizontal,
				rule{pos: minY, from: minX, to: maxX},
				rule{pos: maxY, from: minX, to: maxX})
		}
	}
	return vertical, horizontal
}

// distinct returns the sorted positions with values closer than tolerance merged.
func distinct(values []float64, tolerance float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	out := []float64{sorted[0]}
	for _, v := range sorted[1:] {
		if v-out[len(out)-1] > tolerance {
			out = append(out, v)
		}
	}
	return out
}

// tableRows fills the ruled grid of a page with glyph text. Rows run top to bottom between
// consecutive horizontal rules; each row is split by the vertical rules crossing its middle.
// Rows whose cells are all blank are dropped.
func (e *Extractor) tableRows(glyphs []glyph, rects []pdf.Rect) [][]string {
	vertical, horizontal := rulesOf(rects, e.RuleThickness)
	if len(vertical) < 2 || len(horizontal) < 2 {
		return nil
	}

	ys := make([]float64, len(horizontal))
	for i, r := range horizontal {
		ys[i] = r.pos
	}
	ys = distinct(ys, e.SnapTolerance)
	if len(ys) < 2 {
		return nil
	}

	var rows [][]string
	// PDF y grows upwards; walk bands from the top of the page down
	for i := len(ys) - 1; i > 0; i-- {
		top, bottom := ys[i], ys[i-1]
		mid := (top + bottom) / 2

		var xs []float64
		for _, v := range vertical {
			if v.covers(mid, e.SnapTolerance) {
				xs = append(xs, v.pos)
			}
		}
		xs = distinct(xs, e.SnapTolerance)
		if len(xs) < 2 {
			continue
		}

		cells := make([][]glyph, len(xs)-1)
		for _, g := range glyphs {
			cy := g.centerY()
			if cy < bottom || cy > top {
				continue
			}
			cx := g.centerX()
			col := sort.SearchFloat64s(xs, cx) - 1
			if col < 0 || col >= len(cells) {
				continue
			}
			cells[col] = append(cells[col], g)
		}

		row := make([]string, len(cells))
		blank := true
		for c, cellGlyphs := range cells {
			row[c] = linesText(groupLines(cellGlyphs, e.LineTolerance), e.GapFactor, " ")
			if row[c] != "" {
				blank = false
			}
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows
}
