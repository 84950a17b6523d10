package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/qrsheet/internal/backend/model"
	"github.com/jo-hoe/qrsheet/internal/backend/syncer"
	"github.com/jo-hoe/qrsheet/internal/core"
)

// ImagesField is the multipart field carrying uploaded photos.
const ImagesField = "images"

type APIService struct {
	coreService *core.CoreService
}

func NewAPIService(coreService *core.CoreService) *APIService {
	return &APIService{coreService: coreService}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", s.probeHandler)

	api := e.Group("/api")
	api.POST("/scan", s.scanHandler)
	api.POST("/sync", s.syncHandler)
}

// ImageReport is the per-file entry of a scan response.
type ImageReport struct {
	File           string           `json:"file"`
	Status         string           `json:"status"`
	QRCount        int              `json:"qr_count"`
	RowsCount      int              `json:"rows_count"`
	Error          string           `json:"error,omitempty"`
	URLErrors      []model.URLError `json:"url_errors,omitempty"`
	DurationMillis int64            `json:"duration_ms"`
}

type ScanResponse struct {
	UploadedDate string                `json:"uploaded_date"`
	Results      []ImageReport         `json:"results"`
	Rows         []model.NormalizedRow `json:"rows"`
	Summary      model.Summary         `json:"summary"`
	StoreURL     string                `json:"store_url,omitempty"`
	Sync         *syncer.SyncReport    `json:"sync,omitempty"`
	SyncError    string                `json:"sync_error,omitempty"`
}

type SyncRequest struct {
	Rows []model.NormalizedRow `json:"rows" validate:"required,min=1,dive"`
}

type SyncResponse struct {
	StoreURL string `json:"store_url"`
	syncer.SyncReport
}

func (s *APIService) probeHandler(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "ok")
}

func (s *APIService) scanHandler(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("expected multipart form: %v", err))
	}
	headers := form.File[ImagesField]
	if len(headers) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("no files in field %q", ImagesField))
	}

	images := make([]model.RawImage, 0, len(headers))
	for _, header := range headers {
		data, err := readUpload(header)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("could not read %s: %v", header.Filename, err))
		}
		images = append(images, model.RawImage{Filename: header.Filename, Data: data})
	}

	requestCtx := ctx.Request().Context()
	uploadTimestamp := s.coreService.UploadTimestamp()
	results, rows, summary := s.coreService.ProcessBatch(requestCtx, images, uploadTimestamp)
	slog.Info("APIService: scanned batch", "files", summary.Files, "successful", summary.Successful, "rows", len(rows))

	response := ScanResponse{
		UploadedDate: uploadTimestamp,
		Results:      make([]ImageReport, 0, len(results)),
		Rows:         rows,
		Summary:      summary,
	}
	if response.Rows == nil {
		response.Rows = []model.NormalizedRow{}
	}
	for _, result := range results {
		response.Results = append(response.Results, NewImageReport(result))
	}

	if !wantsSync(ctx) {
		return ctx.JSON(http.StatusOK, response)
	}

	storeURL, report, err := s.coreService.Sync(requestCtx, rows)
	if err != nil {
		slog.Error("APIService: sync after scan failed", "error", err)
		response.SyncError = err.Error()
		return ctx.JSON(http.StatusBadGateway, response)
	}
	response.StoreURL = storeURL
	response.Sync = &report
	return ctx.JSON(http.StatusOK, response)
}

func (s *APIService) syncHandler(ctx echo.Context) error {
	request := new(SyncRequest)
	if err := ctx.Bind(request); err != nil {
		return err
	}
	if err := ctx.Validate(request); err != nil {
		return err
	}

	storeURL, report, err := s.coreService.Sync(ctx.Request().Context(), request.Rows)
	if err != nil {
		var storeErr *syncer.StoreError
		if errors.As(err, &storeErr) {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return ctx.JSON(http.StatusOK, SyncResponse{StoreURL: storeURL, SyncReport: report})
}

func wantsSync(ctx echo.Context) bool {
	value := ctx.QueryParam("sync")
	if value == "" {
		return false
	}
	enabled, err := strconv.ParseBool(value)
	return err == nil && enabled
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// NewImageReport converts a processing result into its report entry.
func NewImageReport(result model.ImageResult) ImageReport {
	return ImageReport{
		File:           result.File,
		Status:         result.Status(),
		QRCount:        result.QRCount,
		RowsCount:      len(result.Rows),
		Error:          result.Error,
		URLErrors:      result.URLErrors,
		DurationMillis: result.Duration.Milliseconds(),
	}
}
