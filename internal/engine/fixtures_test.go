package engine

import (
	"context"
	"testing"

	"ifcquery/pkg/graph"
)

func elev(v float64) *float64 { return &v }

// buildingFixture models two storeys with three office spaces and mixed
// containment styles:
//   - o1..o3 contained directly in Ground
//   - o4, o5 referenced in space r2, which aggregates into First
//   - r1, r2 and r3 are offices; only r2 holds outlets
func buildingFixture() *graph.Builder {
	return graph.NewBuilder(graph.Project{ID: "p", Name: "Fixture"}).
		AddSpatial(graph.SpatialNode{ID: "site", Kind: graph.SpatialSite, Name: "Site"}).
		AddSpatial(graph.SpatialNode{ID: "bldg", Kind: graph.SpatialBuilding, Name: "Building"}).
		AddSpatial(graph.SpatialNode{ID: "first", Kind: graph.SpatialStorey, Name: "First", Elevation: elev(3.5)}).
		AddSpatial(graph.SpatialNode{ID: "ground", Kind: graph.SpatialStorey, Name: "Ground", Elevation: elev(0)}).
		AddSpatial(graph.SpatialNode{ID: "r1", Kind: graph.SpatialSpace, Name: "G.01", Usage: "Office"}).
		AddSpatial(graph.SpatialNode{ID: "r2", Kind: graph.SpatialSpace, Name: "1.01", Usage: "Office", Area: elev(20)}).
		AddSpatial(graph.SpatialNode{ID: "r3", Kind: graph.SpatialSpace, Name: "1.02", Usage: "Office"}).
		AddProduct(graph.Product{ID: "o1", Type: "IfcOutlet"}).
		AddProduct(graph.Product{ID: "o2", Type: "IfcOutlet"}).
		AddProduct(graph.Product{ID: "o3", Type: "IfcOutlet"}).
		AddProduct(graph.Product{ID: "o4", Type: "IfcOutlet"}).
		AddProduct(graph.Product{ID: "o5", Type: "IfcOutlet"}).
		AddSystem(graph.System{ID: "c1", Kind: graph.SystemElectricalCircuit, Name: "Circuit 1"}).
		AddSystem(graph.System{ID: "hvac", Kind: graph.SystemDistribution, Name: "Supply Air"}).
		Relate(graph.RelAggregatesInto, "bldg", "site").
		Relate(graph.RelAggregatesInto, "ground", "bldg").
		Relate(graph.RelAggregatesInto, "first", "bldg").
		Relate(graph.RelAggregatesInto, "r1", "ground").
		Relate(graph.RelAggregatesInto, "r2", "first").
		Relate(graph.RelAggregatesInto, "r3", "first").
		Relate(graph.RelContainedIn, "o1", "ground").
		Relate(graph.RelContainedIn, "o2", "ground").
		Relate(graph.RelContainedIn, "o3", "ground").
		Relate(graph.RelReferencedIn, "o4", "r2").
		Relate(graph.RelReferencedIn, "o5", "r2").
		Relate(graph.RelGroupedBy, "o1", "c1").
		Relate(graph.RelGroupedBy, "o2", "c1").
		Relate(graph.RelGroupedBy, "o2", "hvac")
}

func mustGraph(t *testing.T, b *graph.Builder) *graph.Graph {
	t.Helper()
	g, err := b.Build()
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func mustSession(t *testing.T, g *graph.Graph, opts Options) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}
