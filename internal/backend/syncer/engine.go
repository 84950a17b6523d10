// Package syncer appends normalized rows to a store, skipping rows whose key is already stored.
package syncer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jo-hoe/qrsheet/internal/backend/lock"
	"github.com/jo-hoe/qrsheet/internal/backend/model"
	"github.com/jo-hoe/qrsheet/internal/backend/store"
)

// Steps reported in StoreError.Op.
const (
	OpLock         = "lock"
	OpOpen         = "open"
	OpRead         = "read"
	OpWriteFromTop = "write"
	OpAppend       = "append"
)

// Locker guards a sync against writers in other processes.
type Locker interface {
	Acquire(ctx context.Context) (lock.ReleaseFunc, error)
}

// SyncReport describes what a sync did.
type SyncReport struct {
	Existing   int  `json:"existing"`
	Candidates int  `json:"candidates"`
	Appended   int  `json:"appended"`
	Duplicates int  `json:"duplicates"`
	Created    bool `json:"created"`
}

// Engine serializes syncs against one store.
type Engine struct {
	store  store.Store
	locker Locker
	mu     sync.Mutex
}

// NewEngine creates an engine for s. locker may be nil.
func NewEngine(s store.Store, locker Locker) *Engine {
	return &Engine{store: s, locker: locker}
}

// Sync opens the store and writes rows. An empty store receives the header followed
// by the rows; otherwise the rows are appended. Either way a row is written only if
// its key is neither stored nor used by an earlier row of the batch, and input order
// is kept. The store URL is returned even if nothing was written.
func (e *Engine) Sync(ctx context.Context, rows []model.NormalizedRow) (string, SyncReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := SyncReport{Candidates: len(rows)}

	if e.locker != nil {
		release, err := e.locker.Acquire(ctx)
		if err != nil {
			return "", report, &StoreError{Op: OpLock, Err: err}
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("SyncEngine: failed to release lock", "error", err)
			}
		}()
	}

	if err := e.store.Open(ctx); err != nil {
		return "", report, &StoreError{Op: OpOpen, Err: err}
	}
	url := e.store.URL()

	existing, err := e.store.ReadAll(ctx)
	if err != nil {
		return url, report, &StoreError{Op: OpRead, Err: err}
	}

	if len(existing) == 0 {
		fresh := newRows(rows, nil, &report)
		batch := make([][]string, 0, len(fresh)+1)
		batch = append(batch, model.Header)
		batch = append(batch, fresh...)
		if err := e.store.WriteFromTop(ctx, batch); err != nil {
			return url, report, &StoreError{Op: OpWriteFromTop, Err: err}
		}
		report.Created = true
		report.Appended = len(fresh)
		slog.Info("SyncEngine: populated empty store", "rows", len(fresh), "duplicates", report.Duplicates, "url", url)
		return url, report, nil
	}

	stored := existing
	if model.IsHeader(stored[0]) {
		stored = stored[1:]
	}
	report.Existing = len(stored)

	batch := newRows(rows, stored, &report)

	if len(batch) > 0 {
		if err := e.store.Append(ctx, batch); err != nil {
			return url, report, &StoreError{Op: OpAppend, Err: err}
		}
	}
	report.Appended = len(batch)

	slog.Info("SyncEngine: synced",
		"existing", report.Existing,
		"candidates", report.Candidates,
		"appended", report.Appended,
		"duplicates", report.Duplicates,
		"url", url)
	return url, report, nil
}

// newRows returns the values of rows whose key is neither stored nor taken by an
// earlier row of the same batch, in input order, counting the rest as duplicates.
func newRows(rows []model.NormalizedRow, stored []model.StoreRow, report *SyncReport) [][]string {
	seen := make(map[model.RowKey]struct{}, len(stored)+len(rows))
	for _, row := range stored {
		seen[model.KeyOf(row)] = struct{}{}
	}

	var batch [][]string
	for _, row := range rows {
		key := row.Key()
		if _, ok := seen[key]; ok {
			report.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		batch = append(batch, row.Values())
	}
	return batch
}
