package queries

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ifcquery/internal/blob"
	"ifcquery/internal/core"
	"ifcquery/pkg/queryapi"

	"github.com/google/uuid"
)

// ExportStatus is the lifecycle stage of an export.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ErrQueueFull is returned when the export queue has no free slot.
var ErrQueueFull = errors.New("export queue full")

// DefaultURLExpiry bounds presigned artifact links.
const DefaultURLExpiry = 15 * time.Minute

// ExportArtifact is one stored rendering of an export.
type ExportArtifact struct {
	Key         string          `json:"key"`
	Format      queryapi.Format `json:"format"`
	ContentType string          `json:"content_type"`
	SizeBytes   int64           `json:"size_bytes"`
	ETag        string          `json:"etag,omitempty"`
	URL         string          `json:"url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ExportRecord tracks an export request and its artifacts.
type ExportRecord struct {
	ID          string            `json:"id"`
	ModelID     string            `json:"model_id"`
	Request     queryapi.Request  `json:"request"`
	Formats     []queryapi.Format `json:"formats"`
	Status      ExportStatus      `json:"status"`
	Error       string            `json:"error,omitempty"`
	Artifacts   []ExportArtifact  `json:"artifacts,omitempty"`
	RequestedBy string            `json:"requested_by,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// ExportInput is an enqueue request.
type ExportInput struct {
	ModelID     string
	Request     queryapi.Request
	Formats     []queryapi.Format
	RequestedBy string
}

// Querier runs queries for the worker. *core.Service satisfies it.
type Querier interface {
	Model(id string) (core.Model, error)
	Validate(req queryapi.Request) (queryapi.Request, error)
	Query(ctx context.Context, modelID string, req queryapi.Request) (queryapi.Result, error)
}

// ExportScheduler queues exports and reports their state.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
	OpenArtifact(ctx context.Context, id string, format queryapi.Format) (ExportArtifact, []byte, error)
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithQueueSize sets the number of exports that may wait for the worker.
func WithQueueSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

// WithWorkerLogger sets the worker's logger.
func WithWorkerLogger(logger core.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWorkerClock overrides the worker's time source.
func WithWorkerClock(clock core.ClockFunc) WorkerOption {
	return func(w *Worker) {
		if clock != nil {
			w.now = clock
		}
	}
}

// Worker renders query results asynchronously and stores them in the blob
// store under exports/.
type Worker struct {
	querier   Querier
	store     blob.Store
	logger    core.Logger
	now       core.ClockFunc
	queueSize int

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs a worker. Call Start to begin processing.
func NewWorker(q Querier, store blob.Store, opts ...WorkerOption) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		querier:   q,
		store:     store,
		logger:    nopLogger{},
		now:       func() time.Time { return time.Now().UTC() },
		queueSize: 32,
		jobs:      make(map[string]*ExportRecord),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.queue = make(chan string, w.queueSize)
	return w
}

// Start begins processing queued exports.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop halts the worker and waits for the running export, if any.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// EnqueueExport validates input and queues it. Invalid requests and unknown
// models are rejected before anything is queued.
func (w *Worker) EnqueueExport(_ context.Context, input ExportInput) (ExportRecord, error) {
	if w.querier == nil || w.store == nil {
		return ExportRecord{}, fmt.Errorf("export worker not configured")
	}
	if _, err := w.querier.Model(input.ModelID); err != nil {
		return ExportRecord{}, err
	}
	req, err := w.querier.Validate(input.Request)
	if err != nil {
		return ExportRecord{}, err
	}
	formats, err := uniqueFormats(input.Formats)
	if err != nil {
		return ExportRecord{}, err
	}

	now := w.now()
	record := &ExportRecord{
		ID:          uuid.NewString(),
		ModelID:     input.ModelID,
		Request:     req,
		Formats:     formats,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	select {
	case w.queue <- record.ID:
		w.jobs[record.ID] = record
	default:
		w.mu.Unlock()
		return ExportRecord{}, ErrQueueFull
	}
	queued := record.copy()
	w.mu.Unlock()

	w.logger.Info("export queued", "export", record.ID, "model", record.ModelID, "query_type", string(req.QueryType))
	return queued, nil
}

func uniqueFormats(formats []queryapi.Format) ([]queryapi.Format, error) {
	if len(formats) == 0 {
		return []queryapi.Format{queryapi.FormatJSON, queryapi.FormatCSV}, nil
	}
	out := make([]queryapi.Format, 0, len(formats))
	seen := make(map[queryapi.Format]bool, len(formats))
	for _, f := range formats {
		if !f.Valid() {
			return nil, fmt.Errorf("%w: unsupported export format %q", queryapi.ErrInvalidQuery, f)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// GetExport returns a copy of an export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

// OpenArtifact reads one stored artifact of a finished export.
func (w *Worker) OpenArtifact(ctx context.Context, id string, format queryapi.Format) (ExportArtifact, []byte, error) {
	record, ok := w.GetExport(id)
	if !ok {
		return ExportArtifact{}, nil, blob.ErrNotFound
	}
	for _, art := range record.Artifacts {
		if art.Format != format {
			continue
		}
		_, rc, err := w.store.Get(ctx, art.Key)
		if err != nil {
			return ExportArtifact{}, nil, err
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return ExportArtifact{}, nil, fmt.Errorf("read artifact %s: %w", art.Key, err)
		}
		return art, buf.Bytes(), nil
	}
	return ExportArtifact{}, nil, blob.ErrNotFound
}

func (w *Worker) process(id string) {
	w.mu.RLock()
	record, ok := w.jobs[id]
	var input ExportRecord
	if ok {
		input = record.copy()
	}
	w.mu.RUnlock()
	if !ok {
		return
	}

	w.update(id, func(r *ExportRecord) { r.Status = ExportStatusRunning })

	result, err := w.querier.Query(w.ctx, input.ModelID, input.Request)
	if err != nil {
		w.fail(id, fmt.Errorf("query failed: %w", err))
		return
	}

	artifacts := make([]ExportArtifact, 0, len(input.Formats))
	for _, format := range input.Formats {
		rendered, err := Render(result, format)
		if err != nil {
			w.fail(id, err)
			return
		}
		art, err := w.put(id, input, rendered)
		if err != nil {
			w.fail(id, err)
			return
		}
		artifacts = append(artifacts, art)
	}

	w.update(id, func(r *ExportRecord) {
		now := w.now()
		r.Status = ExportStatusSucceeded
		r.Error = ""
		r.Artifacts = artifacts
		r.CompletedAt = &now
	})
	w.logger.Info("export succeeded", "export", id, "artifacts", len(artifacts))
}

func (w *Worker) put(id string, record ExportRecord, rendered Rendered) (ExportArtifact, error) {
	key := blob.ExportKey(id, string(rendered.Format))
	info, err := w.store.Put(w.ctx, key, bytes.NewReader(rendered.Payload), blob.PutOptions{
		ContentType: rendered.ContentType,
		Metadata: map[string]string{
			"model":      record.ModelID,
			"query_type": string(record.Request.QueryType),
		},
	})
	if err != nil {
		return ExportArtifact{}, fmt.Errorf("store artifact %s: %w", key, err)
	}
	art := ExportArtifact{
		Key:         key,
		Format:      rendered.Format,
		ContentType: rendered.ContentType,
		SizeBytes:   info.Size,
		ETag:        info.ETag,
		CreatedAt:   w.now(),
	}
	url, err := w.store.URL(w.ctx, key, DefaultURLExpiry)
	switch {
	case err == nil:
		art.URL = url
	case !errors.Is(err, blob.ErrUnsupported):
		w.logger.Warn("artifact link unavailable", "export", id, "key", key, "error", err)
	}
	return art, nil
}

func (w *Worker) update(id string, mutate func(*ExportRecord)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if record, ok := w.jobs[id]; ok {
		mutate(record)
		record.UpdatedAt = w.now()
	}
}

func (w *Worker) fail(id string, err error) {
	w.update(id, func(r *ExportRecord) {
		now := w.now()
		r.Status = ExportStatusFailed
		r.Error = err.Error()
		r.CompletedAt = &now
	})
	w.logger.Warn("export failed", "export", id, "error", err)
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]queryapi.Format(nil), r.Formats...)
	dup.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		dup.CompletedAt = &at
	}
	return dup
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
