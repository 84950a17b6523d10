package model

import (
	"testing"
)

func TestKeyOf(t *testing.T) {
	tests := []struct {
		name string
		row  StoreRow
		want RowKey
	}{
		{
			name: "full row",
			row:  StoreRow{"01.01.2024 10:00:00", "02.01.2024 11:00:00", "a.png_QR1.pdf", "1", "P-100", "12,5", "ORD42"},
			want: RowKey{PlaceNumber: "P-100", Order: "ORD42"},
		},
		{
			name: "row without order column",
			row:  StoreRow{"", "", "", "1", "P-100", "3"},
			want: RowKey{PlaceNumber: "P-100"},
		},
		{
			name: "short row",
			row:  StoreRow{"only"},
			want: RowKey{},
		},
		{
			name: "empty row",
			row:  nil,
			want: RowKey{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyOf(tt.row); got != tt.want {
				t.Errorf("KeyOf() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizedRow_ValuesMatchKeyPositions(t *testing.T) {
	row := NormalizedRow{
		UploadTimestamp:  "01.01.2024 10:00:00",
		DocumentDate:     "02.01.2024 11:00:00",
		SourceDocumentID: "a.png_QR1.pdf",
		Seq:              "1",
		PlaceNumber:      "P-100",
		Weight:           "12,5",
		Order:            "ORD42",
	}

	values := row.Values()
	if len(values) != ColumnCount {
		t.Fatalf("Expected %d values, got %d", ColumnCount, len(values))
	}
	if got := KeyOf(StoreRow(values)); got != row.Key() {
		t.Errorf("Expected stored key %+v to equal row key %+v", got, row.Key())
	}
}

func TestIsHeader(t *testing.T) {
	if !IsHeader(StoreRow(Header)) {
		t.Error("Expected header row to be recognized")
	}
	if IsHeader(StoreRow{"01.01.2024 10:00:00", "", "", "1", "P-100", "3", "O1"}) {
		t.Error("Expected data row not to be recognized as header")
	}
	if IsHeader(StoreRow{"Дата загрузки"}) {
		t.Error("Expected short row not to be recognized as header")
	}
}

func TestImageResult_Status(t *testing.T) {
	tests := []struct {
		name   string
		result ImageResult
		want   string
	}{
		{"failed", ImageResult{Success: false, Error: "boom"}, StatusError},
		{"no codes", ImageResult{Success: true}, StatusNoQR},
		{"codes without rows", ImageResult{Success: true, QRCount: 2}, StatusSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Status(); got != tt.want {
				t.Errorf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	results := []ImageResult{
		{Success: true, QRCount: 2, Rows: make([]NormalizedRow, 3)},
		{Success: true},
		{Success: false, Error: "decode"},
	}

	got := Summarize(results)
	want := Summary{Files: 3, Successful: 2, QRCodes: 2, Rows: 3}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}
