// Package poller follows a file's processing status until the backend
// reports a terminal state.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BerylCAtieno/brdflow/internal/clock"
	"github.com/BerylCAtieno/brdflow/internal/models"
	"github.com/BerylCAtieno/brdflow/internal/utils"
)

const DefaultInterval = 2 * time.Second

// FileFetcher is the part of the API client the watcher needs.
type FileFetcher interface {
	GetFile(ctx context.Context, fileID string) (*models.FileRecord, error)
}

// ProcessingError is returned when the backend reports that processing failed.
type ProcessingError struct {
	FileID  string
	Message string
}

func (e *ProcessingError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("processing of file %s failed", e.FileID)
	}
	return e.Message
}

type Watcher struct {
	fetcher  FileFetcher
	interval time.Duration
	clock    clock.Clock
	logger   *utils.Logger
}

type Option func(*Watcher)

func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

func NewWatcher(fetcher FileFetcher, logger *utils.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		fetcher:  fetcher,
		interval: DefaultInterval,
		clock:    clock.Real(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) Interval() time.Duration {
	return w.interval
}

// Watch fetches the file record, then keeps re-fetching it every interval
// while its status is uploading or transcribing. Every fetched record is
// passed to onUpdate, which may be nil.
//
// Watch returns the last record once the status leaves the pending set.
// It stops with an error on the first failed fetch, on a record that
// reports a processing error, or when ctx is cancelled. A cancelled
// context also aborts the fetch in flight. There is no attempt limit.
func (w *Watcher) Watch(ctx context.Context, fileID string, onUpdate func(*models.FileRecord)) (*models.FileRecord, error) {
	return w.loop(ctx, fileID, false, onUpdate)
}

// Resume is Watch for a caller that has just fetched a pending record
// itself: it waits one interval before the first fetch.
func (w *Watcher) Resume(ctx context.Context, fileID string, onUpdate func(*models.FileRecord)) (*models.FileRecord, error) {
	return w.loop(ctx, fileID, true, onUpdate)
}

func (w *Watcher) loop(ctx context.Context, fileID string, waitFirst bool, onUpdate func(*models.FileRecord)) (*models.FileRecord, error) {
	var last *models.FileRecord

	for attempt := 1; ; attempt++ {
		if waitFirst || attempt > 1 {
			select {
			case <-ctx.Done():
				w.logger.Debug("File poll cancelled", "file_id", fileID, "attempt", attempt)
				return last, ctx.Err()
			case <-w.clock.After(w.interval):
			}
		}

		rec, err := w.fetcher.GetFile(ctx, fileID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return last, ctxErr
			}
			w.logger.Warn("File poll failed", "file_id", fileID, "attempt", attempt, "error", err)
			return nil, err
		}
		last = rec

		if onUpdate != nil {
			onUpdate(rec)
		}

		if rec.Failed() {
			w.logger.Info("File processing failed", "file_id", fileID, "attempt", attempt, "error", rec.Error)
			return rec, &ProcessingError{FileID: fileID, Message: rec.Error}
		}

		if !rec.Status.Pending() {
			w.logger.Debug("File reached terminal status", "file_id", fileID, "status", rec.Status, "attempt", attempt)
			return rec, nil
		}
	}
}

// IsCancelled reports whether err ended a watch because its context went away.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
