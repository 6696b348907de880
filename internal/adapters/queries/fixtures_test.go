package queries

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ifcquery/internal/core"
	blobmemory "ifcquery/internal/infra/blob/memory"
	"ifcquery/pkg/graph"
)

func num(v float64) *float64 { return &v }

// siteDocument: Ground holds two outlets and a wall, First holds one outlet
// through space 1.01, and one outlet has no spatial link.
func siteDocument(t *testing.T) []byte {
	t.Helper()
	g, err := graph.NewBuilder(graph.Project{ID: "p", Name: "Site Office", Schema: "IFC4"}).
		AddSpatial(graph.SpatialNode{ID: "bldg", Kind: graph.SpatialBuilding, Name: "Building"}).
		AddSpatial(graph.SpatialNode{ID: "ground", Kind: graph.SpatialStorey, Name: "Ground", Elevation: num(0)}).
		AddSpatial(graph.SpatialNode{ID: "first", Kind: graph.SpatialStorey, Name: "First", Elevation: num(3)}).
		AddSpatial(graph.SpatialNode{ID: "r1", Kind: graph.SpatialSpace, Name: "1.01", Usage: "Office", Area: num(12)}).
		AddProduct(graph.Product{ID: "o1", Type: "IfcOutlet", Name: "Outlet 1"}).
		AddProduct(graph.Product{ID: "o2", Type: "IfcOutlet", Name: "Outlet 2"}).
		AddProduct(graph.Product{ID: "o3", Type: "IfcOutlet", Name: "Outlet <3>"}).
		AddProduct(graph.Product{ID: "o4", Type: "IfcOutlet", Name: "Outlet 4"}).
		AddProduct(graph.Product{ID: "w1", Type: "IfcWallStandardCase", Name: "Wall"}).
		Relate(graph.RelAggregatesInto, "ground", "bldg").
		Relate(graph.RelAggregatesInto, "first", "bldg").
		Relate(graph.RelAggregatesInto, "r1", "first").
		Relate(graph.RelContainedIn, "o1", "ground").
		Relate(graph.RelContainedIn, "o2", "ground").
		Relate(graph.RelContainedIn, "w1", "ground").
		Relate(graph.RelContainedIn, "o3", "r1").
		Build()
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	payload, err := json.Marshal(g.Document())
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return payload
}

type testEnv struct {
	svc     *core.Service
	worker  *Worker
	blobs   *blobmemory.Store
	handler *Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	blobs := blobmemory.New()
	svc := core.NewService(core.WithBlobStore(blobs))
	worker := NewWorker(svc, blobs, WithQueueSize(4))
	worker.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = worker.Stop(ctx)
	})
	return &testEnv{svc: svc, worker: worker, blobs: blobs, handler: NewHandler(svc, worker, nil)}
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) load(t *testing.T) core.Model {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/models", siteDocument(t))
	if rec.Code != http.StatusCreated {
		t.Fatalf("load model: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Model core.Model `json:"model"`
	}
	decode(t, rec, &resp)
	return resp.Model
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func waitForExport(t *testing.T, w *Worker, id string) ExportRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		record, ok := w.GetExport(id)
		if !ok {
			t.Fatalf("export %s vanished", id)
		}
		if record.Status == ExportStatusSucceeded || record.Status == ExportStatusFailed {
			return record
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("export %s did not finish", id)
	return ExportRecord{}
}
