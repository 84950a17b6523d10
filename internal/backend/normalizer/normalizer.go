// Package normalizer maps raw table and text rows onto the fixed store schema.
package normalizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jo-hoe/qrsheet/internal/backend/model"
)

const (
	cellSeparator = " | "
	softHyphen    = "\u00ad"
	minTableCells = 3
	minTextTokens = 4
)

// headerPattern is matched against case folded text, so its literals are folded too.
var headerPattern = regexp.MustCompile(`№\s*п/п|номер места|вес|заказ`)

var whitespace = regexp.MustCompile(`\s+`)

// Normalize maps one raw row to the store schema. It reports false for header rows
// and for rows that do not carry enough fields. UploadTimestamp is left empty.
func Normalize(row model.RawRow) (model.NormalizedRow, bool) {
	flat := row.Text
	if flat == "" {
		flat = strings.Join(row.Cells, cellSeparator)
	}
	flat = cleanField(flat)

	if isHeader(flat) {
		return model.NormalizedRow{}, false
	}

	out := model.NormalizedRow{
		SourceDocumentID: row.SourceDocumentID,
		DocumentDate:     row.DocumentDate,
	}

	if row.IsTable() {
		if len(row.Cells) < minTableCells {
			return model.NormalizedRow{}, false
		}
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = cleanField(c)
		}
		out.Seq, out.PlaceNumber, out.Weight = cells[0], cells[1], cells[2]
		out.Order = stripWhitespace(strings.Join(cells[3:], " "))
		return out, true
	}

	tokens := whitespace.Split(flat, -1)
	if len(tokens) < minTextTokens {
		return model.NormalizedRow{}, false
	}
	out.Seq, out.PlaceNumber, out.Weight = tokens[0], tokens[1], tokens[2]
	out.Order = stripWhitespace(strings.Join(tokens[3:], " "))
	return out, true
}

// NormalizeAll normalizes rows in order, stamps every kept row with uploadTimestamp
// and drops the skipped ones.
func NormalizeAll(rows []model.RawRow, uploadTimestamp string) []model.NormalizedRow {
	out := make([]model.NormalizedRow, 0, len(rows))
	for _, raw := range rows {
		row, ok := Normalize(raw)
		if !ok {
			continue
		}
		row.UploadTimestamp = uploadTimestamp
		out = append(out, row)
	}
	return out
}

func isHeader(s string) bool {
	return headerPattern.MatchString(cases.Fold().String(s))
}

func cleanField(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, softHyphen, "-"))
}

func stripWhitespace(s string) string {
	return whitespace.ReplaceAllString(s, "")
}
