package query

import (
	"context"
	"testing"

	"ifcquery/internal/engine"
	"ifcquery/pkg/graph"
)

func num(v float64) *float64 { return &v }

// officeFixture is a two-storey building with three office spaces:
//   - outlets o1..o3 contained directly in Ground
//   - o4 referenced in 1.01 and o5 in 1.02, both spaces on First
//   - G.01 on Ground holds no outlet
//
// Pipes, cable carriers, a hosted door, a pump and a distribution board
// cover the measurement, host, system and analysis queries.
func officeFixture() *graph.Builder {
	return graph.NewBuilder(graph.Project{ID: "p", Name: "Office Block", Schema: "IFC4"}).
		AddSpatial(graph.SpatialNode{ID: "site", Kind: graph.SpatialSite, Name: "Site"}).
		AddSpatial(graph.SpatialNode{ID: "bldg", Kind: graph.SpatialBuilding, Name: "Building"}).
		AddSpatial(graph.SpatialNode{ID: "first", Kind: graph.SpatialStorey, Name: "First", Elevation: num(3.5)}).
		AddSpatial(graph.SpatialNode{ID: "ground", Kind: graph.SpatialStorey, Name: "Ground", Elevation: num(0)}).
		AddSpatial(graph.SpatialNode{ID: "r1", Kind: graph.SpatialSpace, Name: "G.01", Usage: "Office"}).
		AddSpatial(graph.SpatialNode{ID: "r2", Kind: graph.SpatialSpace, Name: "1.01", Usage: "Office", Area: num(20)}).
		AddSpatial(graph.SpatialNode{ID: "r3", Kind: graph.SpatialSpace, Name: "1.02", Usage: "Office", Area: num(10)}).
		AddProduct(graph.Product{ID: "o1", Type: "IfcOutlet", Name: "Outlet 1"}).
		AddProduct(graph.Product{ID: "o2", Type: "IfcOutlet", Name: "Outlet 2"}).
		AddProduct(graph.Product{ID: "o3", Type: "IfcOutlet", Name: "Outlet 3"}).
		AddProduct(graph.Product{ID: "o4", Type: "IfcOutlet", Name: "Outlet 4"}).
		AddProduct(graph.Product{ID: "o5", Type: "IfcOutlet", Name: "Outlet 5"}).
		AddProduct(graph.Product{ID: "pipe1", Type: "IfcPipeSegment", Name: "Trinkwasser Kupfer 22"}).
		AddProduct(graph.Product{ID: "pipe2", Type: "IfcPipeSegment", Name: "Heizung VL"}).
		AddProduct(graph.Product{ID: "k1", Type: "IfcCableCarrierSegment", Name: "Brüstungskanal 1"}).
		AddProduct(graph.Product{ID: "k2", Type: "IfcCableCarrierSegment", Name: "Kanal 2"}).
		AddProduct(graph.Product{ID: "k3", Type: "IfcCableCarrierSegment", Name: "Tray 3"}).
		AddProduct(graph.Product{ID: "wall", Type: "IfcWallStandardCase", Name: "GKB Wand 100"}).
		AddProduct(graph.Product{ID: "open", Type: "IfcOpeningElement"}).
		AddProduct(graph.Product{ID: "door", Type: "IfcDoor", Name: "Door 1"}).
		AddProduct(graph.Product{ID: "pump", Type: "IfcPump", Name: "Pump 1"}).
		AddProduct(graph.Product{ID: "board", Type: "IfcElectricDistributionBoard"}).
		AddContainer(graph.MeasurementContainer{ID: "qs1", Kind: graph.ContainerQuantitySet, Name: "Qto_PipeSegmentBaseQuantities", Quantities: []graph.Quantity{{Name: "Length", Kind: graph.DimensionLength, Value: 4.2}}}).
		AddContainer(graph.MeasurementContainer{ID: "qs2", Kind: graph.ContainerQuantitySet, Name: "Custom", Quantities: []graph.Quantity{{Name: "Length", Kind: graph.DimensionLength, Value: 9.0}}}).
		AddContainer(graph.MeasurementContainer{ID: "ps1", Kind: graph.ContainerPropertySet, Name: "Pset_Install", Properties: []graph.Property{{Name: "Installation Height", Value: 1.1}}}).
		AddContainer(graph.MeasurementContainer{ID: "ps2", Kind: graph.ContainerPropertySet, Name: "Pset_Install", Properties: []graph.Property{{Name: "Installation Height", Value: 2.5}}}).
		AddContainer(graph.MeasurementContainer{ID: "qs3", Kind: graph.ContainerQuantitySet, Name: "Qto_CableCarrier", Quantities: []graph.Quantity{{Name: "Length", Kind: graph.DimensionLength, Value: 6}}}).
		AddSystem(graph.System{ID: "c1", Kind: graph.SystemElectricalCircuit, Name: "Circuit 1"}).
		AddSystem(graph.System{ID: "hvac", Kind: graph.SystemDistribution, Name: "Potable Water"}).
		AddSystem(graph.System{ID: "empty", Kind: graph.SystemGeneric, Name: "Spare"}).
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
		Relate(graph.RelReferencedIn, "o5", "r3").
		Relate(graph.RelContainedIn, "pipe1", "ground").
		Relate(graph.RelContainedIn, "pipe2", "first").
		Relate(graph.RelContainedIn, "k1", "r2").
		Relate(graph.RelContainedIn, "k2", "r2").
		Relate(graph.RelContainedIn, "k3", "r3").
		Relate(graph.RelContainedIn, "wall", "ground").
		Relate(graph.RelContainedIn, "door", "r1").
		Relate(graph.RelContainedIn, "board", "r1").
		Relate(graph.RelVoidsElement, "open", "wall").
		Relate(graph.RelFillsVoid, "door", "open").
		Relate(graph.RelDefinesProperties, "pipe1", "qs1").
		Relate(graph.RelDefinesProperties, "pipe1", "qs2").
		Relate(graph.RelDefinesProperties, "k1", "qs3").
		Relate(graph.RelDefinesProperties, "k2", "ps1").
		Relate(graph.RelDefinesProperties, "k3", "ps2").
		Relate(graph.RelGroupedBy, "o1", "c1").
		Relate(graph.RelGroupedBy, "o2", "c1").
		Relate(graph.RelGroupedBy, "board", "c1").
		Relate(graph.RelGroupedBy, "pipe1", "hvac")
}

func newSession(t *testing.T, opts engine.Options) *engine.Session {
	t.Helper()
	g, err := officeFixture().Build()
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	s, err := engine.NewSession(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}
