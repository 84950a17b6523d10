package pdftable

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/jo-hoe/qrsheet/internal/backend/model"
)

// textRowPattern matches a line that starts with a sequence number followed by another token.
var textRowPattern = regexp.MustCompile(`^\d+\s+\S+`)

// Extractor pulls candidate parcel rows and the transfer date out of PDF transfer documents.
type Extractor struct {
	// LineTolerance is the minimum baseline distance, in points, still treated as the same line.
	LineTolerance float64
	// GapFactor times the font size is the horizontal gap that separates two words.
	GapFactor float64
	// RuleThickness is the maximum extent of a rectangle that is drawn as a line.
	RuleThickness float64
	// SnapTolerance merges ruling lines that are this close.
	SnapTolerance float64
}

// NewExtractor creates an extractor with default layout tolerances.
func NewExtractor() *Extractor {
	return &Extractor{
		LineTolerance: 2.0,
		GapFactor:     0.2,
		RuleThickness: 2.0,
		SnapTolerance: 2.0,
	}
}

// page is the layout of one page.
type page struct {
	lines []textLine
	table [][]string
	text  string
}

// Extract reads the document and returns its transfer date ("" if none) and raw rows.
// Per page, table rows come first, then text rows. A document that cannot be opened
// yields a *ParseError; unreadable pages are skipped.
func (e *Extractor) Extract(data []byte, sourceID string) (string, []model.RawRow, error) {
	reader, err := e.open(data, sourceID)
	if err != nil {
		return "", nil, err
	}

	numPages := reader.NumPage()
	slog.Debug("TableExtractor: document opened", "source", sourceID, "pages", numPages)

	documentDate := ""
	var rows []model.RawRow
	tableCount, textCount := 0, 0

	for i := 1; i <= numPages; i++ {
		p, err := e.readPage(reader, i)
		if err != nil {
			slog.Warn("TableExtractor: skipping unreadable page", "source", sourceID, "page", i, "error", err)
			continue
		}

		if documentDate == "" {
			documentDate = findDocumentDate(p.text)
		}

		for _, cells := range p.table {
			rows = append(rows, model.RawRow{Cells: cells, SourceDocumentID: sourceID})
			tableCount++
		}
		for _, line := range p.lines {
			if t := strings.TrimSpace(line.text(e.GapFactor)); textRowPattern.MatchString(t) {
				rows = append(rows, model.RawRow{Text: t, SourceDocumentID: sourceID})
				textCount++
			}
		}
	}

	// the date may only appear on a later page
	for i := range rows {
		rows[i].DocumentDate = documentDate
	}

	slog.Info("TableExtractor: extracted rows",
		"source", sourceID,
		"document_date", documentDate,
		"table_rows", tableCount,
		"text_rows", textCount)
	return documentDate, rows, nil
}

// open reads the document, rewriting it once through pdfcpu when the first attempt fails.
func (e *Extractor) open(data []byte, sourceID string) (*pdf.Reader, error) {
	reader, err := newReader(data)
	if err == nil {
		return reader, nil
	}

	slog.Debug("TableExtractor: document unreadable, attempting repair", "source", sourceID, "error", err)
	repaired, repairErr := repair(data)
	if repairErr != nil {
		return nil, &ParseError{SourceID: sourceID, Err: errors.Join(err, repairErr)}
	}

	reader, err = newReader(repaired)
	if err != nil {
		return nil, &ParseError{SourceID: sourceID, Err: fmt.Errorf("repaired document still unreadable: %w", err)}
	}
	slog.Info("TableExtractor: document repaired", "source", sourceID)
	return reader, nil
}

func newReader(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader, err = nil, fmt.Errorf("panic while opening PDF: %v", r)
		}
	}()
	if len(data) == 0 {
		return nil, errors.New("document is empty")
	}
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// repair rewrites the document with pdfcpu in relaxed validation mode.
func repair(data []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic while repairing PDF: %v", r)
		}
	}()

	conf := pdfcpumodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfcpumodel.ValidationRelaxed

	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &buf, conf); err != nil {
		return nil, fmt.Errorf("failed to repair PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// readPage lays out one page from its positioned content. When the content stream
// cannot be interpreted, the library's plain text is used for the text path only.
func (e *Extractor) readPage(reader *pdf.Reader, num int) (p page, err error) {
	pg := reader.Page(num)
	if pg.V.IsNull() {
		return page{}, fmt.Errorf("invalid page %d", num)
	}

	content, contentErr := pageContent(pg)
	if contentErr == nil {
		glyphs := glyphsOf(content.Text)
		p.lines = groupLines(glyphs, e.LineTolerance)
		p.table = e.tableRows(glyphs, content.Rect)
		p.text = linesText(p.lines, e.GapFactor, "\n")
		return p, nil
	}

	plain, err := pg.GetPlainText(nil)
	if err != nil {
		return page{}, errors.Join(contentErr, err)
	}
	for _, raw := range strings.Split(plain, "\n") {
		p.lines = append(p.lines, plainLine(raw))
	}
	p.text = plain
	return p, nil
}

func pageContent(pg pdf.Page) (content pdf.Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while reading page content: %v", r)
		}
	}()
	return pg.Content(), nil
}

// plainLine wraps an already rendered line so it can flow through the text path.
func plainLine(s string) textLine {
	return textLine{glyphs: []glyph{{s: s}}}
}
