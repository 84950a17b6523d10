package core

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/jo-hoe/qrsheet/internal/backend/commands"
	"github.com/jo-hoe/qrsheet/internal/backend/commandstructure"
	"github.com/jo-hoe/qrsheet/internal/backend/model"
	"github.com/jo-hoe/qrsheet/internal/backend/pdftable/pdffixture"
	"github.com/jo-hoe/qrsheet/internal/backend/store"
	"github.com/jo-hoe/qrsheet/internal/backend/syncer"
)

const testTimestamp = "17.10.2026 09:30:00"

var testClock = func() time.Time {
	return time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
}

// transferDocument is a one page transfer document with a header row and one
// five column data row inside a ruled table.
func transferDocument() []byte {
	xs := []float64{50, 90, 200, 280, 380, 500}
	ys := []float64{660, 680, 700}
	page := pdffixture.NewPage().
		Text(50, 780, 10, "Печать 01.01.2024 08:00:00").
		Text(50, 760, 10, "Дата приема-передачи: 05.03.2024 10:15:00").
		Grid(xs, ys)

	header := []string{"№ п/п", "Номер места", "Вес", "Заказ", "Часть"}
	data := []string{"1", "PL-001", "12.5", "ORD", "77"}
	for c := range header {
		page.Text(xs[c]+3, 685, 10, header[c])
		page.Text(xs[c]+3, 665, 10, data[c])
	}
	return pdffixture.Build(page)
}

// textDocument lists rows as plain text lines.
func textDocument(lines ...string) []byte {
	page := pdffixture.NewPage()
	for i, line := range lines {
		page.Text(50, 700-float64(i)*20, 10, line)
	}
	return pdffixture.Build(page)
}

func newDocumentServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/doc1.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(transferDocument())
	})
	mux.HandleFunc("/doc2.pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(textDocument("2 PL-002 3.0 ORD 78", "3 PL-003 1.0 ORD79"))
	})
	mux.HandleFunc("/garbage.pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// renderCodes draws one QR code per content side by side and returns PNG bytes.
func renderCodes(t *testing.T, contents ...string) []byte {
	t.Helper()
	const size = 240
	width := size * max(len(contents), 1)
	canvas := image.NewRGBA(image.Rect(0, 0, width, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	writer := qrcode.NewQRCodeWriter()
	for i, content := range contents {
		matrix, err := writer.Encode(content, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
		if err != nil {
			t.Fatalf("failed to encode QR code: %v", err)
		}
		draw.Draw(canvas, image.Rect(i*size, 0, (i+1)*size, size), matrix, image.Point{}, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

type recordingArchiver struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (a *recordingArchiver) Archive(_ context.Context, name string, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.names = append(a.names, name)
	return a.err
}

func (a *recordingArchiver) Close() error { return nil }

func testConfig() *ServiceConfig {
	config := DefaultConfig()
	config.Store = store.Config{Type: store.TypeSQLite, ConnectionString: ":memory:"}
	config.Fetcher.TimeoutSeconds = 5
	config.Decoder.Commands = []commandstructure.CommandConfig{
		{Name: commands.IdentityCommandName},
		{Name: commands.CropCommandName, Params: map[string]any{"region": commands.CropLeft}},
		{Name: commands.CropCommandName, Params: map[string]any{"region": commands.CropRight}},
	}
	return config
}

func newTestCoreService(t *testing.T, config *ServiceConfig, opts ...Option) *CoreService {
	t.Helper()
	opts = append([]Option{WithClock(testClock)}, opts...)
	service, err := NewCoreService(context.Background(), config, opts...)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = service.Close() })
	return service
}

func TestProcessImage_EndToEnd(t *testing.T) {
	srv := newDocumentServer(t)
	archiver := &recordingArchiver{}
	service := newTestCoreService(t, testConfig(), WithArchiver(archiver))

	result := service.ProcessImage(context.Background(), "photo.png", renderCodes(t, srv.URL+"/doc1.pdf"), testTimestamp)

	if result.Status() != model.StatusSuccess {
		t.Fatalf("status = %s, error = %q", result.Status(), result.Error)
	}
	if result.QRCount != 1 {
		t.Errorf("QRCount = %d, want 1", result.QRCount)
	}
	want := model.NormalizedRow{
		UploadTimestamp:  testTimestamp,
		DocumentDate:     "05.03.2024 10:15:00",
		SourceDocumentID: "photo.png_QR1.pdf",
		Seq:              "1",
		PlaceNumber:      "PL-001",
		Weight:           "12.5",
		Order:            "ORD77",
	}
	if len(result.Rows) != 1 || result.Rows[0] != want {
		t.Fatalf("Rows = %+v, want [%+v]", result.Rows, want)
	}
	if len(archiver.names) != 1 || archiver.names[0] != "photo.png_QR1.pdf" {
		t.Errorf("archived %v", archiver.names)
	}
}

func TestProcessImage_FailingURLDoesNotStopSiblings(t *testing.T) {
	srv := newDocumentServer(t)
	config := testConfig()
	config.Concurrency.URLWorkers = 2
	service := newTestCoreService(t, config)

	img := renderCodes(t, srv.URL+"/missing.pdf", srv.URL+"/doc2.pdf")
	result := service.ProcessImage(context.Background(), "shelf.jpg", img, testTimestamp)

	if result.Status() != model.StatusSuccess {
		t.Fatalf("status = %s, error = %q", result.Status(), result.Error)
	}
	if result.QRCount != 2 {
		t.Fatalf("QRCount = %d, want 2", result.QRCount)
	}

	// URLs are numbered in sorted order, so doc2 is QR1
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", result.Rows)
	}
	for i, place := range []string{"PL-002", "PL-003"} {
		if result.Rows[i].PlaceNumber != place || result.Rows[i].SourceDocumentID != "shelf.jpg_QR1.pdf" {
			t.Errorf("row %d = %+v", i, result.Rows[i])
		}
	}
	if result.Rows[0].Order != "ORD78" {
		t.Errorf("order whitespace not removed: %q", result.Rows[0].Order)
	}

	if len(result.URLErrors) != 1 {
		t.Fatalf("expected 1 URL error, got %+v", result.URLErrors)
	}
	urlErr := result.URLErrors[0]
	if urlErr.Index != 2 || urlErr.Stage != model.StageFetch || urlErr.URL != srv.URL+"/missing.pdf" {
		t.Errorf("URL error = %+v", urlErr)
	}
}

func TestProcessImage_UnparseableDocument(t *testing.T) {
	srv := newDocumentServer(t)
	service := newTestCoreService(t, testConfig())

	result := service.ProcessImage(context.Background(), "a.png", renderCodes(t, srv.URL+"/garbage.pdf"), testTimestamp)

	if result.Status() != model.StatusSuccess || len(result.Rows) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.URLErrors) != 1 || result.URLErrors[0].Stage != model.StageParse {
		t.Fatalf("expected parse error, got %+v", result.URLErrors)
	}
}

func TestProcessImage_NoCodes(t *testing.T) {
	service := newTestCoreService(t, testConfig())

	tests := []struct {
		name string
		data []byte
	}{
		{"blank image", renderCodes(t)},
		{"not an image", []byte("definitely not an image")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := service.ProcessImage(context.Background(), "empty.png", tt.data, testTimestamp)
			if result.Status() != model.StatusNoQR {
				t.Errorf("status = %s, want %s", result.Status(), model.StatusNoQR)
			}
			if len(result.Rows) != 0 || result.Error != "" {
				t.Errorf("unexpected result %+v", result)
			}
		})
	}
}

func TestProcessImage_ArchiveFailureIsIgnored(t *testing.T) {
	srv := newDocumentServer(t)
	archiver := &recordingArchiver{err: errors.New("bucket gone")}
	service := newTestCoreService(t, testConfig(), WithArchiver(archiver))

	result := service.ProcessImage(context.Background(), "a.png", renderCodes(t, srv.URL+"/doc2.pdf"), testTimestamp)
	if len(result.Rows) != 2 || len(result.URLErrors) != 0 {
		t.Fatalf("archive failure must not affect extraction: %+v", result)
	}
}

func TestProcessImages_BatchTimestampAndDedup(t *testing.T) {
	srv := newDocumentServer(t)
	config := testConfig()
	config.Concurrency.ImageWorkers = 2
	service := newTestCoreService(t, config)

	code := renderCodes(t, srv.URL+"/doc2.pdf")
	images := []model.RawImage{
		{Filename: "same.png", Data: code},
		{Filename: "same.png", Data: code},
		{Filename: "blank.png", Data: renderCodes(t)},
	}

	results, rows, summary := service.ProcessImages(context.Background(), images)

	if len(results) != 3 || results[2].File != "blank.png" {
		t.Fatalf("results out of order: %+v", results)
	}
	wantSummary := model.Summary{Files: 3, Successful: 3, QRCodes: 2, Rows: 4}
	if summary != wantSummary {
		t.Errorf("summary = %+v, want %+v", summary, wantSummary)
	}
	if len(rows) != 2 {
		t.Fatalf("expected identical rows of both images to collapse to 2, got %d", len(rows))
	}
	for _, r := range rows {
		if r.UploadTimestamp != testTimestamp {
			t.Errorf("UploadTimestamp = %q, want %q", r.UploadTimestamp, testTimestamp)
		}
	}
}

func TestDedupRows(t *testing.T) {
	a := model.NormalizedRow{Seq: "1", PlaceNumber: "A", Order: "O"}
	b := model.NormalizedRow{Seq: "2", PlaceNumber: "A", Order: "O"}

	got := DedupRows([]model.NormalizedRow{a, b, a, a, b})
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("DedupRows = %+v", got)
	}
	if got := DedupRows(nil); len(got) != 0 {
		t.Errorf("DedupRows(nil) = %+v", got)
	}
}

func TestSync_Sqlite(t *testing.T) {
	service := newTestCoreService(t, testConfig())
	rows := []model.NormalizedRow{
		{UploadTimestamp: testTimestamp, Seq: "1", PlaceNumber: "P1", Order: "O1"},
		{UploadTimestamp: testTimestamp, Seq: "2", PlaceNumber: "P2", Order: "O2"},
	}

	url, report, err := service.Sync(context.Background(), rows)
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if url != "sqlite://:memory:" || !report.Created || report.Appended != 2 {
		t.Errorf("url = %q, report = %+v", url, report)
	}

	_, report, err = service.Sync(context.Background(), rows)
	if err != nil {
		t.Fatalf("second Sync error: %v", err)
	}
	if report.Appended != 0 || report.Duplicates != 2 {
		t.Errorf("second report = %+v", report)
	}
}

func TestSync_StoreFailure(t *testing.T) {
	config := testConfig()
	config.Store.ConnectionString = t.TempDir() + "/missing/dir/rows.db"
	service := newTestCoreService(t, config)

	_, _, err := service.Sync(context.Background(), []model.NormalizedRow{{PlaceNumber: "P1"}})
	var storeErr *syncer.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *syncer.StoreError, got %v", err)
	}
	if storeErr.Op != syncer.OpOpen {
		t.Errorf("Op = %q, want %q", storeErr.Op, syncer.OpOpen)
	}
}

func TestSync_UnsupportedStore(t *testing.T) {
	config := testConfig()
	config.Store.Type = "csv"
	service := newTestCoreService(t, config)

	_, _, err := service.Sync(context.Background(), nil)
	var storeErr *syncer.StoreError
	if !errors.As(err, &storeErr) || storeErr.Op != OpConnect {
		t.Fatalf("expected connect StoreError, got %v", err)
	}
}

func TestNewCoreService_InvalidBattery(t *testing.T) {
	config := testConfig()
	config.Decoder.Commands = []commandstructure.CommandConfig{{Name: "NoSuchCommand"}}

	if _, err := NewCoreService(context.Background(), config); err == nil {
		t.Fatalf("expected error for unknown decoder command")
	}
}

func TestUploadTimestamp(t *testing.T) {
	service := newTestCoreService(t, testConfig())
	if got := service.UploadTimestamp(); got != testTimestamp {
		t.Errorf("UploadTimestamp = %q, want %q", got, testTimestamp)
	}
}
