package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kem-osh/write-wellspring/internal/core/domain"
	"github.com/kem-osh/write-wellspring/internal/core/ports"
)

// QueueConfig bounds what Submit accepts and how many items run at once.
type QueueConfig struct {
	MaxConcurrent     int
	MaxFileSizeBytes  int64
	AllowedExtensions []string
}

func (c QueueConfig) normalize() QueueConfig {
	out := c
	if out.MaxConcurrent <= 0 {
		out.MaxConcurrent = 3
	}
	if out.MaxFileSizeBytes <= 0 {
		out.MaxFileSizeBytes = 10 << 20
	}
	return out
}

// PipelineMetrics receives pipeline lifecycle observations.
type PipelineMetrics interface {
	FileSubmitted(accepted bool)
	ItemStarted()
	ItemFinished(status domain.Status, category domain.Category, duration time.Duration)
	RetryRequested()
	QueueDepth(depth int)
}

type noopMetrics struct{}

func (noopMetrics) FileSubmitted(bool) {}
func (noopMetrics) ItemStarted()       {}
func (noopMetrics) ItemFinished(domain.Status, domain.Category, time.Duration) {}
func (noopMetrics) RetryRequested() {}
func (noopMetrics) QueueDepth(int)  {}

// queueItem is the queue's private record for one submitted file. documentID
// survives embedding-stage failures so a retry resumes instead of creating a
// second document row.
type queueItem struct {
	view       domain.UploadItem
	stagingKey string
	documentID string
}

// UploadQueue owns the batch state. Every mutation happens under mu, so
// snapshots are always internally consistent; processing itself runs on
// worker goroutines admitted from a FIFO of pending item ids.
type UploadQueue struct {
	cfg       QueueConfig
	staging   ports.UploadStaging
	processor *FileProcessor
	publisher ports.UploadEventPublisher
	metrics   PipelineMetrics
	logger    *slog.Logger

	mu       sync.Mutex
	started  bool
	draining bool
	runCtx   context.Context
	items    []*queueItem
	byID     map[string]*queueItem
	pending  []string
	active   int

	subs    map[int]chan domain.UploadState
	nextSub int

	events      []domain.UploadEvent
	eventSignal chan struct{}

	wg sync.WaitGroup
}

func NewUploadQueue(cfg QueueConfig, staging ports.UploadStaging, processor *FileProcessor, publisher ports.UploadEventPublisher, metrics PipelineMetrics, logger *slog.Logger) *UploadQueue {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadQueue{
		cfg:         cfg.normalize(),
		staging:     staging,
		processor:   processor,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
		byID:        make(map[string]*queueItem),
		subs:        make(map[int]chan domain.UploadState),
		eventSignal: make(chan struct{}, 1),
	}
}

// Start begins admitting queued items. Submissions are accepted before Start,
// but nothing runs until it is called. ctx bounds all processing.
func (q *UploadQueue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.runCtx = ctx
	q.fillLocked()
	q.mu.Unlock()

	if q.publisher != nil {
		go q.dispatchEvents(ctx)
	}
}

// Submit validates, stages and enqueues each file. Files that fail validation
// become error items immediately and never occupy a processing slot. The
// returned ids are in submission order, one per input file.
func (q *UploadQueue) Submit(ctx context.Context, files []domain.RawFile) ([]string, error) {
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit uploads", errors.New("no files provided"))
	}

	ids := make([]string, 0, len(files))
	created := make([]*queueItem, 0, len(files))
	for i := range files {
		item := q.buildItem(ctx, files[i])
		created = append(created, item)
		ids = append(ids, item.view.ID)
		q.metrics.FileSubmitted(item.view.Status == domain.StatusQueued)
	}

	q.mu.Lock()
	for _, item := range created {
		q.items = append(q.items, item)
		q.byID[item.view.ID] = item
		if item.view.Status == domain.StatusQueued {
			q.pending = append(q.pending, item.view.ID)
		}
		q.appendEventLocked(item)
	}
	q.fillLocked()
	q.notifyLocked()
	q.mu.Unlock()

	return ids, nil
}

func (q *UploadQueue) buildItem(ctx context.Context, file domain.RawFile) *queueItem {
	item := &queueItem{
		view: domain.UploadItem{
			ID: uuid.NewString(),
			SourceFile: domain.SourceFile{
				Name:        file.Name,
				Size:        file.Size,
				ContentType: file.ContentType,
			},
			Status:     domain.StatusQueued,
			EnqueuedAt: time.Now().UTC(),
		},
	}

	if reason := q.rejectReason(file); reason != "" {
		q.markRejected(item, reason)
		return item
	}

	// Stage at most one byte over the limit so oversize streams are detected
	// without buffering them whole.
	staged, err := q.staging.Stage(ctx, item.view.ID, io.LimitReader(file.Content, q.cfg.MaxFileSizeBytes+1))
	if err != nil {
		q.logger.Warn("stage_upload_failed", "item_id", item.view.ID, "filename", file.Name, "error", err)
		q.markRejected(item, fmt.Sprintf("file staging failed: %v", err))
		return item
	}
	item.stagingKey = item.view.ID
	item.view.SourceFile.Size = staged

	if staged == 0 {
		q.discardStaged(ctx, item)
		q.markRejected(item, "file is empty")
		return item
	}
	if staged > q.cfg.MaxFileSizeBytes {
		q.discardStaged(ctx, item)
		q.markRejected(item, fmt.Sprintf("file size exceeds the %d byte limit", q.cfg.MaxFileSizeBytes))
		return item
	}
	return item
}

func (q *UploadQueue) rejectReason(file domain.RawFile) string {
	if len(q.cfg.AllowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(file.Name))
		allowed := false
		for _, candidate := range q.cfg.AllowedExtensions {
			if strings.EqualFold(candidate, ext) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Sprintf("unsupported file type %q", ext)
		}
	}
	if file.Size > q.cfg.MaxFileSizeBytes {
		return fmt.Sprintf("file size exceeds the %d byte limit", q.cfg.MaxFileSizeBytes)
	}
	return ""
}

func (q *UploadQueue) markRejected(item *queueItem, reason string) {
	item.view.Status = domain.StatusError
	item.view.Failure = domain.FailureFromMessage(reason)
	item.view.FinishedAt = time.Now().UTC()
}

func (q *UploadQueue) discardStaged(ctx context.Context, item *queueItem) {
	if item.stagingKey == "" {
		return
	}
	if err := q.staging.Remove(ctx, item.stagingKey); err != nil {
		q.logger.Warn("remove_staged_file", "item_id", item.view.ID, "error", err)
	}
	item.stagingKey = ""
}

// fillLocked admits pending items while slots are free. Caller holds mu.
func (q *UploadQueue) fillLocked() {
	if q.started && !q.draining {
		for q.active < q.cfg.MaxConcurrent && len(q.pending) > 0 {
			id := q.pending[0]
			q.pending = q.pending[1:]
			item := q.byID[id]
			if item == nil || item.view.Status != domain.StatusQueued {
				continue
			}
			q.active++
			q.wg.Add(1)
			go q.run(id)
		}
	}
	q.metrics.QueueDepth(len(q.pending))
}

func (q *UploadQueue) run(id string) {
	defer q.wg.Done()
	start := time.Now()
	q.metrics.ItemStarted()

	q.mu.Lock()
	item := q.byID[id]
	if item == nil {
		q.active--
		q.fillLocked()
		q.mu.Unlock()
		return
	}
	job := processJob{
		itemID:     id,
		source:     item.view.SourceFile,
		stagingKey: item.stagingKey,
		documentID: item.documentID,
	}
	q.mu.Unlock()

	if err := q.processor.Process(q.runCtx, job, q); err != nil {
		q.markFailed(id, err)
	}

	q.mu.Lock()
	status := domain.StatusError
	var category domain.Category
	if current := q.byID[id]; current != nil {
		status = current.view.Status
		if current.view.Failure != nil {
			category = current.view.Failure.Category
		}
	}
	q.active--
	q.fillLocked()
	q.mu.Unlock()

	q.metrics.ItemFinished(status, category, time.Since(start))
}

// Retry re-queues a single failed item at the back of the FIFO.
func (q *UploadQueue) Retry(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item := q.byID[id]
	if item == nil {
		return domain.WrapError(domain.ErrNotFound, "retry upload", fmt.Errorf("unknown item %s", id))
	}
	if item.view.Status != domain.StatusError {
		return domain.WrapError(domain.ErrRetryNotAllowed, "retry upload", fmt.Errorf("item %s is %s", id, item.view.Status))
	}
	if item.view.Failure != nil && !item.view.Failure.Retryable {
		return domain.WrapError(domain.ErrRetryNotAllowed, "retry upload", fmt.Errorf("%s failure is not retryable", item.view.Failure.Category))
	}

	q.requeueLocked(item)
	q.fillLocked()
	q.notifyLocked()
	return nil
}

// RetryFailed re-queues every retryable failed item in submission order and
// returns how many were re-queued.
func (q *UploadQueue) RetryFailed() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	retried := 0
	for _, item := range q.items {
		if item.view.Status != domain.StatusError {
			continue
		}
		if item.view.Failure != nil && !item.view.Failure.Retryable {
			continue
		}
		q.requeueLocked(item)
		retried++
	}
	if retried > 0 {
		q.fillLocked()
		q.notifyLocked()
	}
	return retried
}

func (q *UploadQueue) requeueLocked(item *queueItem) {
	item.view.Status = domain.StatusQueued
	item.view.Progress = domain.ProgressQueued
	item.view.Failure = nil
	item.view.FinishedAt = time.Time{}
	q.pending = append(q.pending, item.view.ID)
	q.appendEventLocked(item)
	q.metrics.RetryRequested()
}

// ClearCompleted removes completed items. Fails while any item is running.
func (q *UploadQueue) ClearCompleted() (int, error) {
	return q.clear("clear completed uploads", func(item *queueItem) bool {
		return item.view.Status == domain.StatusComplete
	})
}

// ClearAll removes every item. Fails while any item is running.
func (q *UploadQueue) ClearAll() (int, error) {
	return q.clear("clear all uploads", func(*queueItem) bool {
		return true
	})
}

func (q *UploadQueue) clear(operation string, shouldRemove func(*queueItem) bool) (int, error) {
	q.mu.Lock()
	if q.active > 0 {
		q.mu.Unlock()
		return 0, domain.WrapError(domain.ErrBusy, operation, fmt.Errorf("%d items still processing", q.active))
	}

	kept := q.items[:0]
	var removed []*queueItem
	for _, item := range q.items {
		if shouldRemove(item) {
			removed = append(removed, item)
			delete(q.byID, item.view.ID)
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept
	if len(removed) > 0 {
		q.rebuildPendingLocked()
		q.notifyLocked()
	}
	q.mu.Unlock()

	for _, item := range removed {
		if item.stagingKey == "" {
			continue
		}
		if err := q.staging.Remove(context.Background(), item.stagingKey); err != nil {
			q.logger.Warn("remove_staged_file", "item_id", item.view.ID, "error", err)
		}
	}
	return len(removed), nil
}

func (q *UploadQueue) rebuildPendingLocked() {
	kept := q.pending[:0]
	for _, id := range q.pending {
		if _, ok := q.byID[id]; ok {
			kept = append(kept, id)
		}
	}
	q.pending = kept
	q.metrics.QueueDepth(len(q.pending))
}

// State returns a consistent snapshot of the batch.
func (q *UploadQueue) State() domain.UploadState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Subscribe returns a coalescing snapshot channel primed with the current
// state. A slow reader only ever misses intermediate snapshots, never the
// latest one. The cancel func releases the subscription.
func (q *UploadQueue) Subscribe() (<-chan domain.UploadState, func()) {
	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	ch := make(chan domain.UploadState, 1)
	q.subs[id] = ch
	ch <- q.snapshotLocked()
	q.mu.Unlock()

	cancel := func() {
		q.mu.Lock()
		if existing, ok := q.subs[id]; ok {
			delete(q.subs, id)
			close(existing)
		}
		q.mu.Unlock()
	}
	return ch, cancel
}

// Drain stops admission and waits for in-flight items to settle.
func (q *UploadQueue) Drain(ctx context.Context) error {
	q.mu.Lock()
	q.draining = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *UploadQueue) snapshotLocked() domain.UploadState {
	items := make([]domain.UploadItem, 0, len(q.items))
	for _, item := range q.items {
		view := item.view
		if view.Failure != nil {
			failure := *view.Failure
			view.Failure = &failure
		}
		items = append(items, view)
	}
	return BuildState(items)
}

func (q *UploadQueue) notifyLocked() {
	if len(q.subs) == 0 {
		return
	}
	snapshot := q.snapshotLocked()
	for _, ch := range q.subs {
		select {
		case ch <- snapshot:
			continue
		default:
		}
		// Drop the stale snapshot, then deliver the fresh one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func advanceProgress(current, target int) int {
	if target > current {
		return target
	}
	return current
}

func (q *UploadQueue) markUploading(itemID string) {
	q.applyTransition(itemID, func(item *queueItem) {
		item.view.Status = domain.StatusUploading
		item.view.Progress = advanceProgress(item.view.Progress, domain.ProgressUploading)
	})
}

func (q *UploadQueue) markProcessing(itemID string) {
	q.applyTransition(itemID, func(item *queueItem) {
		item.view.Status = domain.StatusProcessing
		item.view.Progress = advanceProgress(item.view.Progress, domain.ProgressProcessing)
	})
}

func (q *UploadQueue) markPersisted(itemID, documentID string) {
	q.applyTransition(itemID, func(item *queueItem) {
		item.documentID = documentID
		item.view.Progress = advanceProgress(item.view.Progress, domain.ProgressPersisted)
	})
}

func (q *UploadQueue) markComplete(itemID, documentID string) {
	q.applyTransition(itemID, func(item *queueItem) {
		item.view.Status = domain.StatusComplete
		item.view.Progress = domain.ProgressComplete
		item.view.DocumentID = documentID
		item.view.Failure = nil
		item.view.FinishedAt = time.Now().UTC()
	})
}

func (q *UploadQueue) markFailed(itemID string, err error) {
	q.applyTransition(itemID, func(item *queueItem) {
		item.view.Status = domain.StatusError
		item.view.Failure = domain.FailureFromError(err)
		item.view.FinishedAt = time.Now().UTC()
	})
	cls := domain.Classify(err)
	q.logger.Warn("upload_item_failed",
		"item_id", itemID,
		"category", string(cls.Category),
		"retryable", cls.Retryable,
		"error", err,
	)
}

func (q *UploadQueue) applyTransition(itemID string, mutate func(*queueItem)) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item := q.byID[itemID]
	if item == nil {
		return
	}
	mutate(item)
	q.appendEventLocked(item)
	q.notifyLocked()
}

// appendEventLocked records a transition event for the dispatcher. Caller
// holds mu.
func (q *UploadQueue) appendEventLocked(item *queueItem) {
	if q.publisher == nil {
		return
	}
	event := domain.UploadEvent{
		ItemID:     item.view.ID,
		FileName:   item.view.SourceFile.Name,
		Status:     item.view.Status,
		Progress:   item.view.Progress,
		DocumentID: item.view.DocumentID,
		OccurredAt: time.Now().UTC(),
	}
	if item.view.Failure != nil {
		event.Category = item.view.Failure.Category
	}
	q.events = append(q.events, event)
	select {
	case q.eventSignal <- struct{}{}:
	default:
	}
}

// dispatchEvents publishes transition events off the lock path. Publish
// failures are logged and never affect the pipeline.
func (q *UploadQueue) dispatchEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			q.flushEvents(flushCtx)
			cancel()
			return
		case <-q.eventSignal:
			q.flushEvents(ctx)
		}
	}
}

func (q *UploadQueue) flushEvents(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.events) == 0 {
			q.mu.Unlock()
			return
		}
		batch := q.events
		q.events = nil
		q.mu.Unlock()

		for _, event := range batch {
			if err := q.publisher.PublishUploadEvent(ctx, event); err != nil {
				q.logger.Warn("publish_upload_event",
					"item_id", event.ItemID,
					"status", string(event.Status),
					"error", err,
				)
			}
		}
	}
}
