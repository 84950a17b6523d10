package pdftable

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// glyph is one positioned character of a page. x, y is the baseline origin.
type glyph struct {
	x, y  float64
	width float64
	size  float64
	s     string
}

func (g glyph) centerX() float64 {
	return g.x + g.width/2
}

// centerY approximates the vertical middle of the glyph box from its baseline.
func (g glyph) centerY() float64 {
	return g.y + g.size*0.3
}

func (g glyph) isSpace() bool {
	return strings.TrimFunc(g.s, unicode.IsSpace) == ""
}

func glyphsOf(texts []pdf.Text) []glyph {
	glyphs := make([]glyph, 0, len(texts))
	for _, t := range texts {
		if t.S == "" || t.S == "\n" || t.S == "\r" {
			continue
		}
		glyphs = append(glyphs, glyph{x: t.X, y: t.Y, width: t.W, size: t.FontSize, s: t.S})
	}
	return glyphs
}

// textLine is a run of glyphs sharing a baseline, ordered left to right.
type textLine struct {
	y      float64
	glyphs []glyph
}

// groupLines clusters glyphs into lines top to bottom. Glyphs whose baseline is within
// tolerance of a line's first glyph belong to that line. Content stream order is kept
// for glyphs at equal positions.
func groupLines(glyphs []glyph, tolerance float64) []textLine {
	if len(glyphs) == 0 {
		return nil
	}

	sorted := append([]glyph(nil), glyphs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].y > sorted[j].y
	})

	var lines []textLine
	current := textLine{y: sorted[0].y, glyphs: []glyph{sorted[0]}}
	for _, g := range sorted[1:] {
		tol := math.Max(tolerance, g.size*0.3)
		if math.Abs(g.y-current.y) <= tol {
			current.glyphs = append(current.glyphs, g)
			continue
		}
		lines = append(lines, current)
		current = textLine{y: g.y, glyphs: []glyph{g}}
	}
	lines = append(lines, current)

	for i := range lines {
		gs := lines[i].glyphs
		sort.SliceStable(gs, func(a, b int) bool {
			return gs[a].x < gs[b].x
		})
	}
	return lines
}

// text renders the line, inserting a single space for whitespace glyphs and for
// horizontal gaps wider than gapFactor times the font size.
func (l textLine) text(gapFactor float64) string {
	var b strings.Builder
	pendingSpace := false
	prevEnd := math.Inf(-1)
	for _, g := range l.glyphs {
		if g.isSpace() {
			pendingSpace = true
			prevEnd = math.Max(prevEnd, g.x+g.width)
			continue
		}
		if b.Len() > 0 && (pendingSpace || g.x-prevEnd > gapFactor*g.size) {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteString(g.s)
		prevEnd = math.Max(prevEnd, g.x+g.width)
	}
	return b.String()
}

func linesText(lines []textLine, gapFactor float64, sep string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := l.text(gapFactor); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, sep)
}
