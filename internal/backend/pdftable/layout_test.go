package pdftable

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
)

func word(x, y float64, s string) []glyph {
	glyphs := make([]glyph, 0, len(s))
	for i, r := range s {
		glyphs = append(glyphs, glyph{x: x + float64(i)*5, y: y, width: 5, size: 10, s: string(r)})
	}
	return glyphs
}

func TestGroupLines(t *testing.T) {
	var glyphs []glyph
	glyphs = append(glyphs, word(120, 500.5, "world")...)
	glyphs = append(glyphs, word(50, 500, "hello")...)
	glyphs = append(glyphs, word(50, 480, "next")...)

	lines := groupLines(glyphs, 2)

	assert.Len(t, lines, 2)
	assert.Equal(t, "hello world", lines[0].text(0.2))
	assert.Equal(t, "next", lines[1].text(0.2))
	assert.Equal(t, "hello world\nnext", linesText(lines, 0.2, "\n"))
}

func TestLineText_WhitespaceGlyphs(t *testing.T) {
	glyphs := word(10, 100, "a  b")
	line := groupLines(glyphs, 2)[0]
	assert.Equal(t, "a b", line.text(0.2))
}

func TestGlyphsOf_SkipsLineBreaks(t *testing.T) {
	glyphs := glyphsOf([]pdf.Text{
		{S: "a", X: 1, Y: 2, W: 3, FontSize: 10},
		{S: "\n"},
		{S: ""},
	})
	assert.Equal(t, []glyph{{x: 1, y: 2, width: 3, size: 10, s: "a"}}, glyphs)
}

func TestRulesOf(t *testing.T) {
	rects := []pdf.Rect{
		{Min: pdf.Point{X: 10, Y: 10}, Max: pdf.Point{X: 10.5, Y: 100}},
		{Min: pdf.Point{X: 10, Y: 50}, Max: pdf.Point{X: 200, Y: 50.5}},
		{Min: pdf.Point{X: 0, Y: 0}, Max: pdf.Point{X: 1, Y: 1}},
		{Min: pdf.Point{X: 20, Y: 20}, Max: pdf.Point{X: 40, Y: 30}},
	}

	vertical, horizontal := rulesOf(rects, 2)

	assert.Equal(t, []rule{
		{pos: 10.25, from: 10, to: 100},
		{pos: 20, from: 20, to: 30},
		{pos: 40, from: 20, to: 30},
	}, vertical)
	assert.Equal(t, []rule{
		{pos: 50.25, from: 10, to: 200},
		{pos: 20, from: 20, to: 40},
		{pos: 30, from: 20, to: 40},
	}, horizontal)
}

func TestDistinct(t *testing.T) {
	assert.Nil(t, distinct(nil, 1))
	assert.Equal(t, []float64{1, 5, 9}, distinct([]float64{9, 1, 1.5, 5, 9.8}, 1))
}

func TestTableRows_NeedsGrid(t *testing.T) {
	e := NewExtractor()
	glyphs := word(10, 100, "12 x")
	rects := []pdf.Rect{{Min: pdf.Point{X: 0, Y: 0}, Max: pdf.Point{X: 0.5, Y: 200}}}

	assert.Nil(t, e.tableRows(glyphs, rects))
	assert.Nil(t, e.tableRows(glyphs, nil))
}

func TestTableRows_DropsBlankRows(t *testing.T) {
	e := NewExtractor()
	var rects []pdf.Rect
	for _, x := range []float64{0, 50, 100} {
		rects = append(rects, pdf.Rect{Min: pdf.Point{X: x, Y: 0}, Max: pdf.Point{X: x + 0.5, Y: 60}})
	}
	for _, y := range []float64{0, 20, 40, 60} {
		rects = append(rects, pdf.Rect{Min: pdf.Point{X: 0, Y: y}, Max: pdf.Point{X: 100, Y: y + 0.5}})
	}

	var glyphs []glyph
	glyphs = append(glyphs, word(5, 45, "a")...)
	glyphs = append(glyphs, word(55, 45, "b")...)
	glyphs = append(glyphs, word(55, 5, "c")...)

	assert.Equal(t, [][]string{{"a", "b"}, {"", "c"}}, e.tableRows(glyphs, rects))
}
