package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/jo-hoe/qrsheet/internal/backend/archive"
	"github.com/jo-hoe/qrsheet/internal/backend/fetcher"
	"github.com/jo-hoe/qrsheet/internal/backend/lock"
	"github.com/jo-hoe/qrsheet/internal/backend/model"
	"github.com/jo-hoe/qrsheet/internal/backend/normalizer"
	"github.com/jo-hoe/qrsheet/internal/backend/pdftable"
	"github.com/jo-hoe/qrsheet/internal/backend/qrdecode"
	"github.com/jo-hoe/qrsheet/internal/backend/store"
	"github.com/jo-hoe/qrsheet/internal/backend/syncer"
)

// OpConnect is the StoreError step reported when the store cannot be created.
const OpConnect = "connect"

// CoreService runs the image to rows pipeline and syncs rows into the store.
type CoreService struct {
	config    *ServiceConfig
	decoder   *qrdecode.Decoder
	fetcher   *fetcher.Fetcher
	extractor *pdftable.Extractor
	archiver  archive.Archiver
	now       func() time.Time

	redis *redis.Client

	syncMu sync.Mutex
	store  store.Store
	engine *syncer.Engine
}

// Option customizes a CoreService.
type Option func(*CoreService)

// WithStore makes the service sync into s instead of the configured store.
func WithStore(s store.Store) Option {
	return func(service *CoreService) {
		service.store = s
	}
}

// WithArchiver replaces the configured archiver.
func WithArchiver(a archive.Archiver) Option {
	return func(service *CoreService) {
		service.archiver = a
	}
}

// WithClock replaces the clock used for upload timestamps.
func WithClock(now func() time.Time) Option {
	return func(service *CoreService) {
		service.now = now
	}
}

func NewCoreService(ctx context.Context, config *ServiceConfig, opts ...Option) (*CoreService, error) {
	decoder, err := qrdecode.NewDecoderFromConfig(config.Decoder.Commands)
	if err != nil {
		return nil, err
	}

	service := &CoreService{
		config:    config,
		decoder:   decoder,
		fetcher:   fetcher.NewFetcher(config.FetcherSettings()),
		extractor: pdftable.NewExtractor(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}

	if service.archiver == nil {
		service.archiver, err = newArchiver(ctx, config.Archive)
		if err != nil {
			return nil, err
		}
	}

	if config.Lock.RedisAddress != "" {
		service.redis = redis.NewClient(&redis.Options{Addr: config.Lock.RedisAddress})
	}

	slog.Info("CoreService: initialized",
		"store", config.Store.Type,
		"archive", config.Archive.Bucket != "",
		"redis_lock", config.Lock.RedisAddress != "",
		"image_workers", config.Concurrency.ImageWorkers,
		"url_workers", config.Concurrency.URLWorkers)
	return service, nil
}

func newArchiver(ctx context.Context, config ArchiveConfig) (archive.Archiver, error) {
	if config.Bucket == "" {
		return archive.NoopArchiver{}, nil
	}
	archiver, err := archive.NewGCSArchiver(ctx, config.Bucket, config.Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive: %w", err)
	}
	return archiver, nil
}

// UploadTimestamp formats the current time as stamped on uploaded rows.
func (service *CoreService) UploadTimestamp() string {
	return service.now().Format(model.UploadTimestampLayout)
}

// ProcessImage decodes the QR codes of one image and turns every linked document into
// rows. A failing URL is recorded and skipped; the image only fails as a whole when
// decoding itself breaks.
func (service *CoreService) ProcessImage(ctx context.Context, filename string, data []byte, uploadTimestamp string) (result model.ImageResult) {
	start := time.Now()
	result.File = filename

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CoreService: image processing panicked", "file", filename, "panic", r)
			result = model.ImageResult{File: filename, Error: fmt.Sprintf("internal error: %v", r)}
		}
		result.Duration = time.Since(start)
	}()

	urls := service.decoder.Decode(ctx, data)
	result.QRCount = len(urls)
	result.Success = true
	if len(urls) == 0 {
		slog.Info("CoreService: no QR codes found", "file", filename)
		return result
	}

	type urlOutcome struct {
		rows []model.NormalizedRow
		err  *model.URLError
	}
	outcomes := make([]urlOutcome, len(urls))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(service.config.Concurrency.URLWorkers)
	for i, url := range urls {
		i, url := i, url
		group.Go(func() error {
			rows, urlErr := service.processURL(groupCtx, filename, i+1, url, uploadTimestamp)
			outcomes[i] = urlOutcome{rows: rows, err: urlErr}
			return nil
		})
	}
	_ = group.Wait()

	for _, outcome := range outcomes {
		if outcome.err != nil {
			result.URLErrors = append(result.URLErrors, *outcome.err)
			continue
		}
		result.Rows = append(result.Rows, outcome.rows...)
	}
	// table and text lines of one document often describe the same record
	result.Rows = DedupRows(result.Rows)

	slog.Info("CoreService: image processed",
		"file", filename,
		"qr_count", result.QRCount,
		"rows", len(result.Rows),
		"url_errors", len(result.URLErrors))
	return result
}

// processURL fetches, archives, extracts and normalizes the document behind one QR code.
// index is 1-based and names the document.
func (service *CoreService) processURL(ctx context.Context, filename string, index int, url, uploadTimestamp string) (rows []model.NormalizedRow, urlErr *model.URLError) {
	sourceID := fmt.Sprintf("%s_QR%d.pdf", filename, index)
	fail := func(stage string, err error) *model.URLError {
		slog.Warn("CoreService: failed to process QR code", "file", filename, "qr", index, "url", url, "stage", stage, "error", err)
		return &model.URLError{Index: index, URL: url, Stage: stage, Message: err.Error()}
	}

	defer func() {
		if r := recover(); r != nil {
			rows, urlErr = nil, fail(model.StageParse, fmt.Errorf("panic: %v", r))
		}
	}()

	data, err := service.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fail(model.StageFetch, err)
	}

	if err := service.archiver.Archive(ctx, sourceID, data); err != nil {
		slog.Warn("CoreService: failed to archive document", "source", sourceID, "error", err)
	}

	_, raw, err := service.extractor.Extract(data, sourceID)
	if err != nil {
		return nil, fail(model.StageParse, err)
	}

	return normalizer.NormalizeAll(raw, uploadTimestamp), nil
}

// ProcessImages processes a batch stamped with the current time. Rows are returned
// in image order with exact duplicates removed.
func (service *CoreService) ProcessImages(ctx context.Context, images []model.RawImage) ([]model.ImageResult, []model.NormalizedRow, model.Summary) {
	return service.ProcessBatch(ctx, images, service.UploadTimestamp())
}

// ProcessBatch is ProcessImages with an explicit upload timestamp shared by every image.
func (service *CoreService) ProcessBatch(ctx context.Context, images []model.RawImage, uploadTimestamp string) ([]model.ImageResult, []model.NormalizedRow, model.Summary) {
	results := make([]model.ImageResult, len(images))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(service.config.Concurrency.ImageWorkers)
	for i, img := range images {
		i, img := i, img
		group.Go(func() error {
			results[i] = service.ProcessImage(groupCtx, img.Filename, img.Data, uploadTimestamp)
			return nil
		})
	}
	_ = group.Wait()

	var rows []model.NormalizedRow
	for _, r := range results {
		rows = append(rows, r.Rows...)
	}
	rows = DedupRows(rows)

	summary := model.Summarize(results)
	slog.Info("CoreService: batch processed",
		"files", summary.Files,
		"successful", summary.Successful,
		"qr_codes", summary.QRCodes,
		"rows", len(rows))
	return results, rows, summary
}

// DedupRows removes rows identical in every column, keeping the first occurrence.
func DedupRows(rows []model.NormalizedRow) []model.NormalizedRow {
	seen := make(map[model.NormalizedRow]struct{}, len(rows))
	out := make([]model.NormalizedRow, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row]; ok {
			continue
		}
		seen[row] = struct{}{}
		out = append(out, row)
	}
	return out
}

// Sync appends rows to the store and returns its URL.
func (service *CoreService) Sync(ctx context.Context, rows []model.NormalizedRow) (string, syncer.SyncReport, error) {
	engine, err := service.syncEngine(ctx)
	if err != nil {
		return "", syncer.SyncReport{Candidates: len(rows)}, err
	}
	return engine.Sync(ctx, rows)
}

// syncEngine connects to the store on first use so that processing without syncing
// needs no store credentials.
func (service *CoreService) syncEngine(ctx context.Context) (*syncer.Engine, error) {
	service.syncMu.Lock()
	defer service.syncMu.Unlock()

	if service.engine != nil {
		return service.engine, nil
	}

	if service.store == nil {
		s, err := store.NewStore(ctx, service.config.Store)
		if err != nil {
			return nil, &syncer.StoreError{Op: OpConnect, Err: err}
		}
		service.store = s
	}

	var locker syncer.Locker
	if service.redis != nil {
		ttl := time.Duration(service.config.Lock.TTLSeconds) * time.Second
		locker = lock.NewRedisLocker(service.redis, service.config.Lock.Key, ttl)
	}
	service.engine = syncer.NewEngine(service.store, locker)
	return service.engine, nil
}

func (service *CoreService) Close() error {
	var errs []error
	service.syncMu.Lock()
	if service.store != nil {
		errs = append(errs, service.store.Close())
	}
	service.syncMu.Unlock()
	if service.redis != nil {
		errs = append(errs, service.redis.Close())
	}
	if service.archiver != nil {
		errs = append(errs, service.archiver.Close())
	}
	return errors.Join(errs...)
}
