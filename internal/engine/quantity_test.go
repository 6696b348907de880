package engine

import (
	"encoding/json"
	"math"
	"testing"

	"ifcquery/pkg/graph"
)

func quantityFixture() *graph.Builder {
	return graph.NewBuilder(graph.Project{ID: "p"}).
		AddProduct(graph.Product{ID: "pipe", Type: "IfcPipeSegment"}).
		AddProduct(graph.Product{ID: "duct", Type: "IfcDuctSegment"}).
		AddProduct(graph.Product{ID: "cable", Type: "IfcCableSegment"}).
		AddProduct(graph.Product{ID: "zero", Type: "IfcPipeSegment"}).
		AddProduct(graph.Product{ID: "none", Type: "IfcPipeSegment"}).
		AddProduct(graph.Product{ID: "slab", Type: "IfcSlab"}).
		AddContainer(graph.MeasurementContainer{ID: "qa", Kind: graph.ContainerQuantitySet, Name: "Qto_A", Quantities: []graph.Quantity{
			{Name: "Length", Kind: graph.DimensionLength, Value: 4.2},
		}}).
		AddContainer(graph.MeasurementContainer{ID: "qb", Kind: graph.ContainerQuantitySet, Name: "Qto_B", Quantities: []graph.Quantity{
			{Name: "Length", Kind: graph.DimensionLength, Value: 9.0},
		}}).
		AddContainer(graph.MeasurementContainer{ID: "qduct", Kind: graph.ContainerQuantitySet, Quantities: []graph.Quantity{
			{Name: "CustomRun", Kind: graph.DimensionLength, Value: 1.5},
			{Name: "NominalLength", Kind: graph.DimensionLength, Value: 2.5},
			{Name: "GrossCrossSectionArea", Kind: graph.DimensionArea, Value: 0.1},
		}}).
		AddContainer(graph.MeasurementContainer{ID: "pscable", Kind: graph.ContainerPropertySet, Properties: []graph.Property{
			{Name: "Colour", Value: "red"},
			{Name: "TotalLength", Value: "12.75"},
			{Name: "Length", Value: "n/a"},
		}}).
		AddContainer(graph.MeasurementContainer{ID: "qzero", Kind: graph.ContainerQuantitySet, Quantities: []graph.Quantity{
			{Name: "Length", Kind: graph.DimensionLength, Value: 0},
		}}).
		AddContainer(graph.MeasurementContainer{ID: "qslab", Kind: graph.ContainerQuantitySet, Quantities: []graph.Quantity{
			{Name: "GrossArea", Kind: graph.DimensionArea, Value: 30},
			{Name: "NetArea", Kind: graph.DimensionArea, Value: 28},
			{Name: "NetVolume", Kind: graph.DimensionVolume, Value: 6},
		}}).
		AddContainer(graph.MeasurementContainer{ID: "psslab", Kind: graph.ContainerPropertySet, Properties: []graph.Property{
			{Name: "Area", Value: 99.0},
		}}).
		Relate(graph.RelDefinesProperties, "pipe", "qa").
		Relate(graph.RelDefinesProperties, "pipe", "qb").
		Relate(graph.RelDefinesProperties, "duct", "qduct").
		Relate(graph.RelDefinesProperties, "cable", "pscable").
		Relate(graph.RelDefinesProperties, "zero", "qzero").
		Relate(graph.RelDefinesProperties, "slab", "psslab").
		Relate(graph.RelDefinesProperties, "slab", "qslab")
}

func TestExtractFirstMatchAcrossContainers(t *testing.T) {
	e := NewExtractor(mustGraph(t, quantityFixture()))
	m := e.Extract("pipe", graph.DimensionLength)
	if !m.Present || m.Value != 4.2 || m.Source != "qa" {
		t.Fatalf("expected 4.2 from the first quantity set, got %+v", m)
	}
	again := e.Extract("pipe", graph.DimensionLength)
	if again != m {
		t.Fatalf("expected deterministic extraction, got %+v then %+v", m, again)
	}
	if m.Shadowed != 1 {
		t.Fatalf("expected the second length set to be reported as shadowed, got %d", m.Shadowed)
	}
	sum := e.SumQuantity([]graph.ID{"pipe", "pipe"}, graph.DimensionLength)
	if sum.Total != 8.4 || sum.Shadowed != 2 || sum.Missing != 0 {
		t.Fatalf("unexpected sum %+v", sum)
	}
}

func TestExtractCascade(t *testing.T) {
	e := NewExtractor(mustGraph(t, quantityFixture()))
	cases := []struct {
		id      graph.ID
		dim     graph.Dimension
		value   float64
		present bool
		name    string
		pset    bool
	}{
		{"duct", graph.DimensionLength, 2.5, true, "NominalLength", false},
		{"duct", graph.DimensionArea, 0.1, true, "GrossCrossSectionArea", false},
		{"duct", graph.DimensionVolume, 0, false, "", false},
		{"cable", graph.DimensionLength, 12.75, true, "TotalLength", true},
		{"zero", graph.DimensionLength, 0, true, "Length", false},
		{"none", graph.DimensionLength, 0, false, "", false},
		{"slab", graph.DimensionArea, 28, true, "NetArea", false},
		{"slab", graph.DimensionVolume, 6, true, "NetVolume", false},
		{"slab", graph.DimensionCount, 0, false, "", false},
	}
	for _, tc := range cases {
		m := e.Extract(tc.id, tc.dim)
		if m.Present != tc.present || m.Value != tc.value || m.Name != tc.name || m.PropertySet != tc.pset {
			t.Fatalf("%s/%s: unexpected measurement %+v", tc.id, tc.dim, m)
		}
	}
}

func TestSumQuantityCountsMissing(t *testing.T) {
	g := mustGraph(t, quantityFixture())
	e := NewExtractor(g)
	ids := []graph.ID{"pipe", "zero", "none", "cable"}
	sum := e.SumQuantity(ids, graph.DimensionLength)
	if math.Abs(sum.Total-16.95) > 1e-9 {
		t.Fatalf("unexpected total %v", sum.Total)
	}
	if sum.Counted != 3 || sum.Missing != 1 {
		t.Fatalf("unexpected counts %+v", sum)
	}
	if sum.Total < 0 {
		t.Fatalf("expected non-negative total")
	}

	s := mustSession(t, g, Options{})
	sessionSum := s.SumQuantity(g.ByType("IfcFlowSegment"), graph.DimensionLength)
	if math.Abs(sessionSum.Total-19.45) > 1e-9 || sessionSum.Missing != 1 || sessionSum.Counted != 4 {
		t.Fatalf("unexpected session sum %+v", sessionSum)
	}
}

func TestNonFinitePropertiesCountAsMissing(t *testing.T) {
	g := mustGraph(t, quantityFixture().
		AddProduct(graph.Product{ID: "broken", Type: "IfcCableSegment"}).
		AddContainer(graph.MeasurementContainer{ID: "psbroken", Kind: graph.ContainerPropertySet, Properties: []graph.Property{
			{Name: "Length", Value: "NaN"},
			{Name: "TotalLength", Value: "+Inf"},
		}}).
		Relate(graph.RelDefinesProperties, "broken", "psbroken"))
	e := NewExtractor(g)
	if m := e.Extract("broken", graph.DimensionLength); m.Present {
		t.Fatalf("expected no measurement from non-finite values, got %+v", m)
	}
	sum := e.SumQuantity([]graph.ID{"cable", "broken"}, graph.DimensionLength)
	if sum.Total != 12.75 || sum.Counted != 1 || sum.Missing != 1 {
		t.Fatalf("unexpected sum %+v", sum)
	}
}

func TestPropertyNumberMatchesKeywords(t *testing.T) {
	g := mustGraph(t, graph.NewBuilder(graph.Project{ID: "p"}).
		AddProduct(graph.Product{ID: "tray", Type: "IfcCableCarrierSegment"}).
		AddContainer(graph.MeasurementContainer{ID: "ps", Kind: graph.ContainerPropertySet, Properties: []graph.Property{
			{Name: "Mounting Height", Value: "1.1"},
		}}).
		Relate(graph.RelDefinesProperties, "tray", "ps"))
	v, ok := NewExtractor(g).PropertyNumber("tray", "height")
	if !ok || v != 1.1 {
		t.Fatalf("expected height 1.1, got %v %v", v, ok)
	}
	if _, ok := NewExtractor(g).PropertyNumber("tray", "width"); ok {
		t.Fatalf("expected no width property")
	}
}

func TestNumericConversions(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{3.5, 3.5, true},
		{float32(2), 2, true},
		{7, 7, true},
		{int64(9), 9, true},
		{" 4.25 ", 4.25, true},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"-Inf", 0, false},
		{"1e400", 0, false},
		{math.NaN(), 0, false},
		{math.Inf(1), 0, false},
		{json.Number("2.5"), 2.5, true},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := numeric(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("numeric(%v) = %v %v, want %v %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
