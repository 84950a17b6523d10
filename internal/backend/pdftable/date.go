package pdftable

import "regexp"

const dateTimePattern = `\d{2}\.\d{2}\.\d{4}\s+\d{2}:\d{2}:\d{2}`

var (
	// "Дата приёма-передачи: DD.MM.YYYY HH:MM:SS"; the hyphen may be a soft hyphen or a line break
	labelledDatePattern = regexp.MustCompile(`(?i)Дата\s+при[её]ма[-\x{00AD}\s]*передачи[:\s]+(` + dateTimePattern + `)`)
	genericDatePattern  = regexp.MustCompile(dateTimePattern)
)

// findDocumentDate returns the transfer date of a page: the labelled date if present,
// else the first date-time on the page, else "". The date is returned as written.
func findDocumentDate(pageText string) string {
	if m := labelledDatePattern.FindStringSubmatch(pageText); m != nil {
		return m[1]
	}
	if m := genericDatePattern.FindString(pageText); m != "" {
		return m
	}
	return ""
}
