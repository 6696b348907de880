package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ifcquery/pkg/graph"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type captureLogger struct {
	warnings []string
	infos    []string
}

func (l *captureLogger) Debug(string, ...any)        {}
func (l *captureLogger) Info(msg string, _ ...any)   { l.infos = append(l.infos, msg) }
func (l *captureLogger) Warn(msg string, _ ...any)   { l.warnings = append(l.warnings, msg) }
func (l *captureLogger) Error(msg string, kv ...any) { l.Warn(msg, kv...) }

func fixedClock() ClockFunc {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("model-%d", n)
	}
}

func num(v float64) *float64 { return &v }

// officeDocument has two elevated storeys, one storey without elevation and
// an outlet with no spatial link:
//   - o1, o2 contained in Ground
//   - o3 contained in space 1.01 on First
//   - o4 unassigned
func officeDocument(t *testing.T) graph.Document {
	t.Helper()
	g, err := graph.NewBuilder(graph.Project{ID: "p", Name: "Office", Schema: "IFC4"}).
		AddSpatial(graph.SpatialNode{ID: "bldg", Kind: graph.SpatialBuilding, Name: "Building"}).
		AddSpatial(graph.SpatialNode{ID: "ground", Kind: graph.SpatialStorey, Name: "Ground", Elevation: num(0)}).
		AddSpatial(graph.SpatialNode{ID: "first", Kind: graph.SpatialStorey, Name: "First", Elevation: num(3.2)}).
		AddSpatial(graph.SpatialNode{ID: "roof", Kind: graph.SpatialStorey, Name: "Roof"}).
		AddSpatial(graph.SpatialNode{ID: "r1", Kind: graph.SpatialSpace, Name: "1.01", Usage: "Office", Area: num(18)}).
		AddProduct(graph.Product{ID: "o1", Type: "IfcOutlet", Name: "Outlet 1"}).
		AddProduct(graph.Product{ID: "o2", Type: "IfcOutlet", Name: "Outlet 2"}).
		AddProduct(graph.Product{ID: "o3", Type: "IfcOutlet", Name: "Outlet 3"}).
		AddProduct(graph.Product{ID: "o4", Type: "IfcOutlet", Name: "Outlet 4"}).
		AddProduct(graph.Product{ID: "w1", Type: "IfcWallStandardCase", Name: "Wall"}).
		Relate(graph.RelAggregatesInto, "ground", "bldg").
		Relate(graph.RelAggregatesInto, "first", "bldg").
		Relate(graph.RelAggregatesInto, "roof", "bldg").
		Relate(graph.RelAggregatesInto, "r1", "first").
		Relate(graph.RelContainedIn, "o1", "ground").
		Relate(graph.RelContainedIn, "o2", "ground").
		Relate(graph.RelContainedIn, "o3", "r1").
		Relate(graph.RelContainedIn, "w1", "ground").
		Build()
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return g.Document()
}
