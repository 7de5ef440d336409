package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/receipto/console/model"
)

var (
	// ErrItemNotFound indicates no queue item has the given id
	ErrItemNotFound = errors.New("upload item not found")
	// ErrItemNotRemovable indicates the item is mid-upload or already uploaded
	ErrItemNotRemovable = errors.New("upload item cannot be removed in its current status")
)

// Uploader is the slice of the backend client the queue needs. BackendService
// satisfies it; tests substitute their own.
type Uploader interface {
	UploadReceipt(ctx context.Context, filename, contentType string, data io.Reader) (*UploadResponse, error)
}

// IncomingFile is a file handed to the queue by the upload surface
type IncomingFile struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// UploadQueue owns the ordered collection of upload items for one session.
// All mutation goes through the queue; callers only see snapshots.
type UploadQueue struct {
	mu           sync.Mutex
	items        []*model.UploadItem
	uploader     Uploader
	notifier     Notifier
	cleanupDelay time.Duration
	cleanupTimer *time.Timer
	submitting   bool
}

// NewUploadQueue creates an empty queue. cleanupDelay is how long a fully
// succeeded session stays visible before it is cleared.
func NewUploadQueue(uploader Uploader, notifier Notifier, cleanupDelay time.Duration) *UploadQueue {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &UploadQueue{
		uploader:     uploader,
		notifier:     notifier,
		cleanupDelay: cleanupDelay,
	}
}

// Add appends one pending item per file, in the supplied order. Duplicate
// names are independent uploads; existing items are untouched. Adding while
// a cleanup is pending cancels the cleanup so new work is not swept away.
func (q *UploadQueue) Add(files []IncomingFile) []model.UploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.cancelCleanupLocked()

	added := make([]model.UploadItem, 0, len(files))
	for _, f := range files {
		item := &model.UploadItem{
			ID:          uuid.New().String(),
			Filename:    f.Filename,
			Size:        f.Size,
			ContentType: f.ContentType,
			Data:        f.Data,
			Status:      model.StatusPending,
			AddedAt:     time.Now(),
		}
		q.items = append(q.items, item)
		added = append(added, *item)
	}

	slog.Debug("files added to upload queue", "count", len(files), "total", len(q.items))
	return added
}

// Remove deletes the item with the given id. Items that are uploading or
// already uploaded are not removable.
func (q *UploadQueue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID != id {
			continue
		}
		if !item.CanRemove() {
			return fmt.Errorf("%w: %s is %s", ErrItemNotRemovable, item.Filename, item.Status)
		}
		q.items = append(q.items[:i], q.items[i+1:]...)
		return nil
	}
	return ErrItemNotFound
}

// Items returns a snapshot of the session in insertion order
func (q *UploadQueue) Items() []model.UploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]model.UploadItem, len(q.items))
	for i, item := range q.items {
		snapshot[i] = *item
	}
	return snapshot
}

// Count returns the number of items in the session
func (q *UploadQueue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// SubmitAll drives every pending or failed item through the backend,
// sequentially and in queue order. One item failing never stops the pass.
// A call while a previous pass is still running is a no-op, which keeps two
// passes from racing on the same pending item.
//
// The eligible set is claimed up front; a claimed item that is Removed before
// its turn is still uploaded (and notified) from the claimed snapshot, it just
// no longer appears in the session.
func (q *UploadQueue) SubmitAll(ctx context.Context) {
	q.mu.Lock()
	if q.submitting {
		q.mu.Unlock()
		slog.Debug("submit ignored, pass already in flight")
		return
	}
	q.submitting = true

	eligible := make([]*model.UploadItem, 0, len(q.items))
	for _, item := range q.items {
		if item.Eligible() {
			eligible = append(eligible, item)
		}
	}
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.submitting = false
		q.scheduleCleanupLocked()
		q.mu.Unlock()
	}()

	if len(eligible) == 0 {
		return
	}

	for _, item := range eligible {
		q.uploadOne(ctx, item)
	}
}

// uploadOne performs the pending -> uploading -> terminal transition for a
// single item
func (q *UploadQueue) uploadOne(ctx context.Context, item *model.UploadItem) {
	q.mu.Lock()
	item.Status = model.StatusUploading
	item.ErrorMsg = ""
	filename := item.Filename
	contentType := item.ContentType
	data := item.Data
	q.mu.Unlock()

	resp, err := q.uploader.UploadReceipt(ctx, filename, contentType, bytes.NewReader(data))

	q.mu.Lock()
	if err != nil {
		item.Status = model.StatusError
		item.ErrorMsg = err.Error()
		if item.ErrorMsg == "" {
			item.ErrorMsg = "Upload failed"
		}
		q.mu.Unlock()

		slog.Warn("receipt upload failed", "filename", filename, "error", err)
		q.notifier.Notify(NotifyError, fmt.Sprintf("Failed to upload %s: %s", filename, item.ErrorMsg))
		return
	}

	item.Status = model.StatusSuccess
	item.ReceiptID = resp.ReceiptID
	q.mu.Unlock()

	slog.Info("receipt uploaded", "filename", filename, "receipt_id", resp.ReceiptID)
	q.notifier.Notify(NotifySuccess, fmt.Sprintf("Uploaded %s", filename))
}

// scheduleCleanupLocked arms the delayed sweep when every item in the session
// succeeded. Any error item keeps the session on screen. Must be called with
// the lock held.
func (q *UploadQueue) scheduleCleanupLocked() {
	if len(q.items) == 0 {
		return
	}
	for _, item := range q.items {
		if item.Status != model.StatusSuccess {
			return
		}
	}

	q.cancelCleanupLocked()
	q.cleanupTimer = time.AfterFunc(q.cleanupDelay, q.cleanupSucceeded)
}

// cleanupSucceeded removes every success item, leaving anything added since
// the timer was armed
func (q *UploadQueue) cleanupSucceeded() {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	removed := 0
	for _, item := range q.items {
		if item.Status == model.StatusSuccess {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept

	if removed > 0 {
		slog.Debug("cleared uploaded files from session", "removed", removed)
	}
}

// cancelCleanupLocked stops a pending sweep. Must be called with the lock held.
func (q *UploadQueue) cancelCleanupLocked() {
	if q.cleanupTimer != nil {
		q.cleanupTimer.Stop()
		q.cleanupTimer = nil
	}
}

// Close cancels any pending cleanup. Call on teardown.
func (q *UploadQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelCleanupLocked()
}
