// Package queries exposes loaded models, the query catalogue and result
// exports over HTTP.
package queries

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"ifcquery/internal/blob"
	"ifcquery/internal/core"
	"ifcquery/internal/persistence"
	"ifcquery/pkg/graph"
	"ifcquery/pkg/queryapi"
)

// DefaultMaxUpload bounds the size of an uploaded graph document.
const DefaultMaxUpload = 64 << 20

// ModelService is the part of core.Service the handler drives.
type ModelService interface {
	LoadModelJSON(ctx context.Context, r io.Reader) (core.Model, error)
	Models() []core.Model
	Model(id string) (core.Model, error)
	UnloadModel(ctx context.Context, id string) error
	Catalogue() []queryapi.Descriptor
	Query(ctx context.Context, modelID string, req queryapi.Request) (queryapi.Result, error)
	ElementTypes(modelID string) ([]core.ElementType, error)
	Storeys(modelID string) ([]core.Storey, error)
	Snapshot(ctx context.Context, modelID string) (persistence.Snapshot, error)
}

// Handler serves the /api/v1 routes.
type Handler struct {
	Service   ModelService
	Exports   ExportScheduler
	Logger    core.Logger
	MaxUpload int64

	mux *http.ServeMux
}

// NewHandler builds the handler. exports may be nil, which disables the
// export routes.
func NewHandler(svc ModelService, exports ExportScheduler, logger core.Logger) *Handler {
	if logger == nil {
		logger = nopLogger{}
	}
	h := &Handler{Service: svc, Exports: exports, Logger: logger, MaxUpload: DefaultMaxUpload}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/queries", h.handleCatalogue)
	mux.HandleFunc("POST /api/v1/models", h.handleLoad)
	mux.HandleFunc("GET /api/v1/models", h.handleList)
	mux.HandleFunc("GET /api/v1/models/{id}", h.handleGet)
	mux.HandleFunc("DELETE /api/v1/models/{id}", h.handleDelete)
	mux.HandleFunc("GET /api/v1/models/{id}/element-types", h.handleElementTypes)
	mux.HandleFunc("GET /api/v1/models/{id}/storeys", h.handleStoreys)
	mux.HandleFunc("GET /api/v1/models/{id}/floors", h.handleFloors)
	mux.HandleFunc("GET /api/v1/models/{id}/floors/{floor}", h.handleFloor)
	mux.HandleFunc("POST /api/v1/models/{id}/query", h.handleQuery)
	mux.HandleFunc("POST /api/v1/models/{id}/exports", h.handleExportCreate)
	mux.HandleFunc("GET /api/v1/exports/{id}", h.handleExportGet)
	mux.HandleFunc("GET /api/v1/exports/{id}/{format}", h.handleArtifact)
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "model service not configured")
		return
	}
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleCatalogue(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"queries": h.Service.Catalogue()})
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, h.MaxUpload)
	model, err := h.Service.LoadModelJSON(r.Context(), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "graph document too large")
			return
		}
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"model": model})
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": h.Service.Models()})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	model, err := h.Service.Model(r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"model": model})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.UnloadModel(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleElementTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Service.ElementTypes(r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"element_types": types})
}

func (h *Handler) handleStoreys(w http.ResponseWriter, r *http.Request) {
	storeys, err := h.Service.Storeys(r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"storeys": storeys})
}

// handleFloors answers from the resolved snapshot: one summary per storey,
// then the unassigned bucket when it holds products.
func (h *Handler) handleFloors(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	floors := snap.FloorSummaries()
	unassigned := 0
	for _, tc := range snap.UnassignedTypes() {
		unassigned += tc.Count
	}
	if unassigned > 0 {
		floors = append(floors, persistence.FloorSummary{Name: persistence.UnassignedFloor, Products: unassigned})
	}
	writeJSON(w, http.StatusOK, map[string]any{"floors": floors})
}

type floorResponse struct {
	Floor    string                        `json:"floor"`
	Types    []persistence.TypeCount       `json:"types"`
	Products []persistence.ProductLocation `json:"products,omitempty"`
	Count    int                           `json:"count"`
}

// handleFloor lists the types on one floor, matched by storey id or name or
// the unassigned label. With ?type= it lists the products of that type.
func (h *Handler) handleFloor(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	elementType := strings.TrimSpace(r.URL.Query().Get("type"))
	resp := floorResponse{Floor: persistence.UnassignedFloor, Types: []persistence.TypeCount{}}
	if floor := r.PathValue("floor"); strings.EqualFold(floor, persistence.UnassignedFloor) {
		if elementType != "" {
			for _, loc := range snap.ProductsOfType(elementType, "") {
				if loc.Floor == persistence.UnassignedFloor {
					resp.Products = append(resp.Products, loc)
				}
			}
		} else {
			resp.Types = snap.UnassignedTypes()
		}
	} else {
		storey, ok := snap.FindStorey(floor)
		if !ok {
			writeError(w, http.StatusNotFound, "floor not found")
			return
		}
		resp.Floor = storey.Name
		if elementType != "" {
			resp.Products = snap.ProductsOfType(elementType, storey.ID)
		} else {
			resp.Types = snap.TypesOnFloor(storey.ID)
		}
	}
	if elementType != "" {
		resp.Count = len(resp.Products)
	}
	for _, tc := range resp.Types {
		resp.Count += tc.Count
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryapi.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query request payload")
		return
	}
	format, ok := negotiateFormat(r)
	if !ok {
		writeError(w, http.StatusNotAcceptable, "requested format not supported")
		return
	}
	result, err := h.Service.Query(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	if format == queryapi.FormatJSON {
		writeJSON(w, http.StatusOK, map[string]any{"result": queryapi.Wrap(result)})
		return
	}
	rendered, err := Render(result, format)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", rendered.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered.Payload)
}

type exportRequest struct {
	Request     queryapi.Request `json:"request"`
	Formats     []string         `json:"formats"`
	RequestedBy string           `json:"requested_by"`
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	if h.Exports == nil {
		http.NotFound(w, r)
		return
	}
	var req exportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}
	formats := make([]queryapi.Format, 0, len(req.Formats))
	for _, f := range req.Formats {
		formats = append(formats, queryapi.Format(strings.ToLower(strings.TrimSpace(f))))
	}
	record, err := h.Exports.EnqueueExport(r.Context(), ExportInput{
		ModelID:     r.PathValue("id"),
		Request:     req.Request,
		Formats:     formats,
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (h *Handler) handleExportGet(w http.ResponseWriter, r *http.Request) {
	if h.Exports == nil {
		http.NotFound(w, r)
		return
	}
	record, ok := h.Exports.GetExport(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

func (h *Handler) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if h.Exports == nil {
		http.NotFound(w, r)
		return
	}
	art, payload, err := h.Exports.OpenArtifact(r.Context(), r.PathValue("id"), queryapi.Format(r.PathValue("format")))
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", art.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// fail maps err to a status code. Server-side failures are logged.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, queryapi.ErrInvalidQuery),
		errors.Is(err, queryapi.ErrMissingParameter),
		errors.Is(err, core.ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrModelNotFound),
		errors.Is(err, persistence.ErrSnapshotNotFound),
		errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrGraphIntegrity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrQueueFull):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func negotiateFormat(r *http.Request) (queryapi.Format, bool) {
	wanted := queryapi.Format(strings.ToLower(r.URL.Query().Get("format")))
	if wanted == "" {
		switch accept := r.Header.Get("Accept"); {
		case strings.Contains(accept, "text/csv"):
			wanted = queryapi.FormatCSV
		case strings.Contains(accept, "text/html"):
			wanted = queryapi.FormatHTML
		default:
			wanted = queryapi.FormatJSON
		}
	}
	return wanted, wanted.Valid()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
