package model

import (
	"strings"
	"time"
)

// UploadTimestampLayout is the layout of the upload timestamp stamped on every row of a batch.
const UploadTimestampLayout = "02.01.2006 15:04:05"

// Column positions of the store schema.
const (
	ColumnUploadedDate = iota
	ColumnDocumentDate
	ColumnSourceDocument
	ColumnSeq
	ColumnPlaceNumber
	ColumnWeight
	ColumnOrder
	ColumnCount
)

// Header is written as the first row when a store is populated for the first time.
var Header = []string{
	"Дата загрузки",
	"Дата приема-передачи",
	"Источник PDF",
	"№ п/п",
	"Номер места",
	"Вес",
	"Заказ",
}

// RawImage is an uploaded image together with its original file name.
type RawImage struct {
	Filename string
	Data     []byte
}

// RawRow is one candidate record pulled out of a transfer document.
// Exactly one of Cells or Text is populated.
type RawRow struct {
	Cells            []string
	Text             string
	SourceDocumentID string
	DocumentDate     string
}

// IsTable reports whether the row came from a detected table.
func (r RawRow) IsTable() bool {
	return r.Cells != nil
}

// NormalizedRow is a row in the fixed seven column store schema.
type NormalizedRow struct {
	UploadTimestamp  string `json:"uploaded_date"`
	DocumentDate     string `json:"pdf_date"`
	SourceDocumentID string `json:"source_pdf"`
	Seq              string `json:"seq"`
	PlaceNumber      string `json:"place_number" validate:"required"`
	Weight           string `json:"weight"`
	Order            string `json:"order"`
}

// Values returns the row's columns in store order.
func (r NormalizedRow) Values() []string {
	return []string{
		r.UploadTimestamp,
		r.DocumentDate,
		r.SourceDocumentID,
		r.Seq,
		r.PlaceNumber,
		r.Weight,
		r.Order,
	}
}

// Key returns the compound key used for duplicate detection.
func (r NormalizedRow) Key() RowKey {
	return RowKey{PlaceNumber: r.PlaceNumber, Order: r.Order}
}

// RowKey identifies a record for duplicate detection.
type RowKey struct {
	PlaceNumber string
	Order       string
}

// StoreRow is a row as read back from a store.
type StoreRow []string

// KeyOf reads the duplicate key of a stored row by fixed column position.
// Short rows yield empty key parts.
func KeyOf(row StoreRow) RowKey {
	var key RowKey
	if len(row) > ColumnPlaceNumber {
		key.PlaceNumber = row[ColumnPlaceNumber]
	}
	if len(row) > ColumnOrder {
		key.Order = row[ColumnOrder]
	}
	return key
}

// IsHeader reports whether a stored row is the header row.
func IsHeader(row StoreRow) bool {
	if len(row) < len(Header) {
		return false
	}
	for i, h := range Header {
		if strings.TrimSpace(row[i]) != h {
			return false
		}
	}
	return true
}

// URLError records why a single URL of an image contributed no rows.
type URLError struct {
	Index   int    `json:"index"`
	URL     string `json:"url"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Stages a URL can fail in.
const (
	StageFetch = "fetch"
	StageParse = "parse"
)

// Per-image status values.
const (
	StatusSuccess = "success"
	StatusNoQR    = "no_qr"
	StatusError   = "error"
)

// ImageResult is the outcome of processing one image.
type ImageResult struct {
	File      string
	Success   bool
	QRCount   int
	Rows      []NormalizedRow
	Error     string
	URLErrors []URLError
	Duration  time.Duration
}

// Status classifies the result the way the per-file report shows it.
func (r ImageResult) Status() string {
	switch {
	case !r.Success:
		return StatusError
	case r.QRCount == 0:
		return StatusNoQR
	default:
		return StatusSuccess
	}
}

// Summary totals a batch of image results.
type Summary struct {
	Files      int `json:"files"`
	Successful int `json:"successful"`
	QRCodes    int `json:"qr_codes"`
	Rows       int `json:"rows"`
}

// Summarize totals the given results.
func Summarize(results []ImageResult) Summary {
	s := Summary{Files: len(results)}
	for _, r := range results {
		if r.Success {
			s.Successful++
		}
		s.QRCodes += r.QRCount
		s.Rows += len(r.Rows)
	}
	return s
}
