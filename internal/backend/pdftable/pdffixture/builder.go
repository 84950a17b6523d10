// Package pdffixture assembles small uncompressed PDF documents with positioned text
// and ruling lines for tests.
package pdffixture

import (
	"bytes"
	"fmt"
	"strings"
)

// RuleWidth is the thickness of the lines drawn by Grid.
const RuleWidth = 0.5

// glyphWidth is the advance of every character in the embedded font, in 1/1000 em.
const glyphWidth = 500

// Single byte codes of the non-ASCII characters the font can show. Codes 0x80-0xBF
// map to А..я; the rest are listed in extraCodes.
const (
	cyrillicFirst = 0x80
	lastCode      = 0xC3
)

var extraCodes = map[rune]byte{
	'Ё':      0xC0,
	'ё':      0xC1,
	'№':      0xC2,
	'\u00ad': 0xC3,
}

// toUnicode maps the font's codes back to text.
const toUnicode = `begincmap
1 begincodespacerange <00> <FF> endcodespacerange
2 beginbfrange
<20> <7E> <0020>
<80> <BF> <0410>
endbfrange
4 beginbfchar
<C0> <0401>
<C1> <0451>
<C2> <2116>
<C3> <00AD>
endbfchar
endcmap`

// Page collects the content stream operators of one page.
type Page struct {
	ops []string
}

// NewPage creates an empty page.
func NewPage() *Page {
	return &Page{}
}

// Text places s with its baseline origin at (x, y).
func (p *Page) Text(x, y, size float64, s string) *Page {
	p.ops = append(p.ops, fmt.Sprintf("BT /F1 %g Tf %g %g Td (%s) Tj ET", size, x, y, encode(s)))
	return p
}

// Rect fills a rectangle.
func (p *Page) Rect(x, y, w, h float64) *Page {
	p.ops = append(p.ops, fmt.Sprintf("%g %g %g %g re f", x, y, w, h))
	return p
}

// Grid draws a ruled table with vertical lines at xs and horizontal lines at ys.
func (p *Page) Grid(xs, ys []float64) *Page {
	minX, maxX := bounds(xs)
	minY, maxY := bounds(ys)
	for _, x := range xs {
		p.Rect(x, minY, RuleWidth, maxY-minY)
	}
	for _, y := range ys {
		p.Rect(minX, y, maxX-minX, RuleWidth)
	}
	return p
}

// CharWidth returns the advance of one character at the given font size.
func CharWidth(size float64) float64 {
	return glyphWidth * size / 1000
}

// Build serializes the pages into a PDF file with a valid cross-reference table.
func Build(pages ...*Page) []byte {
	// 1 catalog, 2 page tree, 3 font, 4 its ToUnicode map, then a page object and its
	// content stream per page
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"",
		fontObject(4),
		stream(toUnicode),
	}

	kids := make([]string, 0, len(pages))
	for _, page := range pages {
		pageNum := len(objects) + 1
		contentNum := pageNum + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))

		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentNum),
			stream(strings.Join(page.ops, "\n")))
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func fontObject(toUnicodeNum int) string {
	widths := make([]string, lastCode-32+1)
	for i := range widths {
		widths[i] = fmt.Sprint(glyphWidth)
	}
	return fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /ToUnicode %d 0 R "+
		"/FirstChar 32 /LastChar %d /Widths [%s] >>", toUnicodeNum, lastCode, strings.Join(widths, " "))
}

func stream(content string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content)+1, content)
}

// encode renders s as a PDF literal string body in the font's single byte encoding.
// Characters the font cannot show become '?'.
func encode(s string) string {
	var b strings.Builder
	for _, r := range s {
		var code byte
		switch {
		case r >= 32 && r <= 126:
			code = byte(r)
		case r >= 'А' && r <= 'я':
			code = byte(cyrillicFirst + (r - 'А'))
		default:
			c, ok := extraCodes[r]
			if !ok {
				c = '?'
			}
			code = c
		}

		switch {
		case code == '(' || code == ')' || code == '\\':
			b.WriteByte('\\')
			b.WriteByte(code)
		case code > 126:
			fmt.Fprintf(&b, "\\%03o", code)
		default:
			b.WriteByte(code)
		}
	}
	return b.String()
}

func bounds(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}
