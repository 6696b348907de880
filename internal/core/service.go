// Package core owns the loaded models. Each model is one immutable engine
// session built from an uploaded graph document; queries run against it
// concurrently. Optional blob and snapshot stores keep the uploaded document
// and the resolved storey assignment of every model.
package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"ifcquery/internal/blob"
	"ifcquery/internal/engine"
	"ifcquery/internal/persistence"
	"ifcquery/internal/query"
	"ifcquery/pkg/graph"
	"ifcquery/pkg/queryapi"
)

// Operation names reported to the audit, metrics and trace sinks.
const (
	OpLoadModel     = "load_model"
	OpUnloadModel   = "unload_model"
	OpQuery         = "query"
	OpRestoreModels = "restore_models"
	OpSnapshot      = "snapshot"
)

// Model describes a loaded model.
type Model struct {
	ID         string        `json:"id"`
	Project    graph.Project `json:"project"`
	Stats      graph.Stats   `json:"stats"`
	Storeys    int           `json:"storeys"`
	Unassigned int           `json:"unassigned_products"`
	LoadedAt   time.Time     `json:"loaded_at"`
}

// ElementType is one concrete product type present in a model.
type ElementType struct {
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Count       int    `json:"count"`
}

// Storey is a storey listing entry. Products counts the products whose
// resolved storey is this one.
type Storey struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Elevation        *float64 `json:"elevation,omitempty"`
	MissingElevation bool     `json:"missing_elevation"`
	Products         int      `json:"products"`
}

type loadedModel struct {
	info    Model
	session *engine.Session
}

// Service registers models and answers queries against them.
type Service struct {
	mu     sync.RWMutex
	models map[string]*loadedModel

	executor    *query.Executor
	sessionOpts engine.Options
	snapshots   persistence.Store
	blobs       blob.Store

	now     ClockFunc
	newID   func() string
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
}

// NewService constructs a service with no models loaded.
func NewService(opts ...Option) *Service {
	s := &Service{
		models:   make(map[string]*loadedModel),
		executor: query.NewExecutor(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    newUUID,
		logger:   noopLogger{},
		audit:    noopAuditRecorder{},
		metrics:  noopMetricsRecorder{},
		tracer:   noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run wraps an operation with a trace span, a metrics observation and an
// audit entry. fn may fill in entry.ModelID and entry.Detail.
func (s *Service) run(ctx context.Context, op string, entry *AuditEntry, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	started := s.now()
	err := fn(ctx)
	elapsed := s.now().Sub(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)

	entry.Operation = op
	entry.Duration = elapsed
	entry.Timestamp = started
	entry.Status = AuditStatusSuccess
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Warn("operation failed", "operation", op, "model", entry.ModelID, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", op, "model", entry.ModelID, "duration", elapsed)
	}
	s.audit.Record(ctx, *entry)
	return err
}

// LoadModelJSON decodes a graph document from r and loads it.
func (s *Service) LoadModelJSON(ctx context.Context, r io.Reader) (Model, error) {
	doc, err := graph.DecodeDocument(r)
	if err != nil {
		return Model{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return s.LoadModel(ctx, doc)
}

// LoadModel builds the graph of doc, derives its session and registers it
// under a new id. Integrity failures are returned unchanged so callers can
// match graph.ErrGraphIntegrity.
func (s *Service) LoadModel(ctx context.Context, doc graph.Document) (Model, error) {
	var model Model
	entry := AuditEntry{}
	err := s.run(ctx, OpLoadModel, &entry, func(ctx context.Context) error {
		id := s.newID()
		entry.ModelID = id
		var err error
		model, err = s.load(ctx, id, doc, true)
		return err
	})
	return model, err
}

func (s *Service) load(ctx context.Context, id string, doc graph.Document, store bool) (Model, error) {
	g, err := doc.Build()
	if err != nil {
		return Model{}, err
	}
	session, err := engine.NewSession(ctx, g, s.sessionOpts)
	if err != nil {
		return Model{}, err
	}
	loadedAt := s.now()
	model := describe(id, session, loadedAt)

	if store && s.blobs != nil {
		if err := s.putDocument(ctx, id, doc); err != nil {
			return Model{}, err
		}
	}
	if s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(ctx, persistence.FromSession(id, session, loadedAt)); err != nil {
			if store && s.blobs != nil {
				_, _ = s.blobs.Delete(ctx, blob.ModelKey(id))
			}
			return Model{}, fmt.Errorf("persist snapshot %s: %w", id, err)
		}
	}

	s.mu.Lock()
	s.models[id] = &loadedModel{info: model, session: session}
	s.mu.Unlock()
	s.publishModelCount()
	s.logger.Info("model loaded", "model", id, "project", model.Project.Name,
		"products", model.Stats.Products, "storeys", model.Storeys, "unassigned", model.Unassigned)
	return model, nil
}

func (s *Service) putDocument(ctx context.Context, id string, doc graph.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode model %s: %w", id, err)
	}
	_, err = s.blobs.Put(ctx, blob.ModelKey(id), bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"project": doc.Project.Name},
		Overwrite:   true,
	})
	if err != nil {
		return fmt.Errorf("store model %s: %w", id, err)
	}
	return nil
}

func describe(id string, session *engine.Session, loadedAt time.Time) Model {
	g := session.Graph()
	model := Model{
		ID:       id,
		Project:  g.Project(),
		Stats:    g.Stats(),
		Storeys:  len(session.Storeys()),
		LoadedAt: loadedAt,
	}
	for _, b := range session.BucketByStorey(g.Products()) {
		if b.Unassigned() {
			model.Unassigned = b.Count()
		}
	}
	return model
}

// RestoreModels loads every graph document found in the blob store that is
// not already loaded, keeping its stored id. Documents that fail to load are
// logged and skipped. It returns the number of models restored.
func (s *Service) RestoreModels(ctx context.Context) (int, error) {
	if s.blobs == nil {
		return 0, nil
	}
	restored := 0
	entry := AuditEntry{}
	err := s.run(ctx, OpRestoreModels, &entry, func(ctx context.Context) error {
		infos, err := s.blobs.List(ctx, blob.ModelPrefix)
		if err != nil {
			return fmt.Errorf("list stored models: %w", err)
		}
		for _, info := range infos {
			id, ok := blob.ModelIDFromKey(info.Key)
			if !ok || s.loaded(id) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.restore(ctx, id, info.Key); err != nil {
				s.logger.Warn("skipping stored model", "model", id, "error", err)
				continue
			}
			restored++
		}
		entry.Detail = fmt.Sprintf("%d restored", restored)
		return nil
	})
	return restored, err
}

func (s *Service) restore(ctx context.Context, id, key string) error {
	_, rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()
	doc, err := graph.DecodeDocument(rc)
	if err != nil {
		return err
	}
	_, err = s.load(ctx, id, doc, false)
	return err
}

// modelGauge is implemented by metrics recorders that track the number of
// loaded models.
type modelGauge interface {
	SetModels(n int)
}

func (s *Service) publishModelCount() {
	gauge, ok := s.metrics.(modelGauge)
	if !ok {
		return
	}
	s.mu.RLock()
	n := len(s.models)
	s.mu.RUnlock()
	gauge.SetModels(n)
}

func (s *Service) loaded(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.models[id]
	return ok
}

// Models lists loaded models in load order.
func (s *Service) Models() []Model {
	s.mu.RLock()
	out := make([]Model, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m.info)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LoadedAt.Equal(out[j].LoadedAt) {
			return out[i].LoadedAt.Before(out[j].LoadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Model returns a loaded model.
func (s *Service) Model(id string) (Model, error) {
	m, err := s.lookup(id)
	if err != nil {
		return Model{}, err
	}
	return m.info, nil
}

// Session returns the engine session of a loaded model.
func (s *Service) Session(id string) (*engine.Session, error) {
	m, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return m.session, nil
}

func (s *Service) lookup(id string) (*loadedModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	if !ok {
		return nil, modelNotFound(id)
	}
	return m, nil
}

// UnloadModel drops a model together with its stored document and snapshot.
func (s *Service) UnloadModel(ctx context.Context, id string) error {
	entry := AuditEntry{ModelID: id}
	return s.run(ctx, OpUnloadModel, &entry, func(ctx context.Context) error {
		s.mu.Lock()
		_, ok := s.models[id]
		delete(s.models, id)
		s.mu.Unlock()
		if !ok {
			return modelNotFound(id)
		}
		s.publishModelCount()
		var errs []error
		if s.blobs != nil {
			if _, err := s.blobs.Delete(ctx, blob.ModelKey(id)); err != nil {
				errs = append(errs, fmt.Errorf("delete stored model %s: %w", id, err))
			}
		}
		if s.snapshots != nil {
			if _, err := s.snapshots.DeleteSnapshot(ctx, id); err != nil {
				errs = append(errs, fmt.Errorf("delete snapshot %s: %w", id, err))
			}
		}
		if len(errs) == 0 {
			s.logger.Info("model unloaded", "model", id)
		}
		return errors.Join(errs...)
	})
}

// Catalogue lists the supported query types.
func (s *Service) Catalogue() []queryapi.Descriptor {
	return s.executor.Catalogue()
}

// Describe returns the catalogue entry of one query type.
func (s *Service) Describe(queryType queryapi.QueryType) (queryapi.Descriptor, bool) {
	return s.executor.Describe(queryType)
}

// Validate checks req against the catalogue without running it.
func (s *Service) Validate(req queryapi.Request) (queryapi.Request, error) {
	return s.executor.Validate(req)
}

// Query runs req against a loaded model.
func (s *Service) Query(ctx context.Context, modelID string, req queryapi.Request) (queryapi.Result, error) {
	var result queryapi.Result
	entry := AuditEntry{ModelID: modelID, Detail: string(req.QueryType)}
	err := s.run(ctx, OpQuery, &entry, func(ctx context.Context) error {
		m, err := s.lookup(modelID)
		if err != nil {
			return err
		}
		result, err = s.executor.Execute(ctx, m.session, req)
		return err
	})
	return result, err
}

// ElementTypes lists the concrete product types of a model with their
// counts, sorted by type name.
func (s *Service) ElementTypes(modelID string) ([]ElementType, error) {
	m, err := s.lookup(modelID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, p := range m.session.Graph().Products() {
		counts[p.Type]++
	}
	types := m.session.AvailableElementTypes()
	out := make([]ElementType, 0, len(types))
	for _, t := range types {
		out = append(out, ElementType{Type: t, DisplayName: m.session.ElementDisplayName(t), Count: counts[t]})
	}
	return out, nil
}

// Storeys lists the storeys of a model in elevation order.
func (s *Service) Storeys(modelID string) ([]Storey, error) {
	m, err := s.lookup(modelID)
	if err != nil {
		return nil, err
	}
	counts := make(map[graph.ID]int)
	for _, b := range m.session.BucketByStorey(m.session.Graph().Products()) {
		if !b.Unassigned() {
			counts[b.Storey.ID] = b.Count()
		}
	}
	storeys := m.session.Storeys()
	out := make([]Storey, 0, len(storeys))
	for _, st := range storeys {
		out = append(out, Storey{
			ID:               string(st.ID),
			Name:             st.DisplayName(),
			Elevation:        st.Elevation,
			MissingElevation: st.Elevation == nil,
			Products:         counts[st.ID],
		})
	}
	return out, nil
}

// Snapshot returns the resolved snapshot of a model. With a snapshot store
// the stored copy is returned, which also covers models persisted by an
// earlier process; otherwise it is derived from the loaded session.
func (s *Service) Snapshot(ctx context.Context, modelID string) (persistence.Snapshot, error) {
	var snap persistence.Snapshot
	entry := AuditEntry{ModelID: modelID}
	err := s.run(ctx, OpSnapshot, &entry, func(ctx context.Context) error {
		if s.snapshots != nil {
			stored, err := s.snapshots.LoadSnapshot(ctx, modelID)
			if err == nil {
				snap = stored
				return nil
			}
			if !errors.Is(err, persistence.ErrSnapshotNotFound) {
				return err
			}
		}
		m, err := s.lookup(modelID)
		if err != nil {
			return err
		}
		snap = persistence.FromSession(modelID, m.session, m.info.LoadedAt)
		return nil
	})
	return snap, err
}

// Snapshots lists the stored snapshots. Without a snapshot store it lists
// the loaded models.
func (s *Service) Snapshots(ctx context.Context) ([]persistence.Summary, error) {
	if s.snapshots != nil {
		return s.snapshots.ListSnapshots(ctx)
	}
	models := s.Models()
	out := make([]persistence.Summary, 0, len(models))
	for _, m := range models {
		out = append(out, persistence.Summary{
			ModelID:     m.ID,
			ProjectName: m.Project.Name,
			Storeys:     m.Storeys,
			Products:    m.Stats.Products,
			CreatedAt:   m.LoadedAt,
		})
	}
	return out, nil
}
