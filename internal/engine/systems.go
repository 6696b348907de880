package engine

import (
	"ifcquery/pkg/graph"
)

// DefaultMEPTypes lists the element types expected to belong to a system.
// Supertypes expand through graph.TypeMatches.
var DefaultMEPTypes = []string{
	"IfcFlowTerminal",
	"IfcFlowSegment",
	"IfcFlowFitting",
	"IfcFlowController",
	"IfcFlowMovingDevice",
	"IfcFlowStorageDevice",
	"IfcFlowTreatmentDevice",
	"IfcEnergyConversionDevice",
	"IfcDistributionControlElement",
}

// MaintainableTypes lists the device types counted for maintenance handover.
var MaintainableTypes = []string{
	"IfcElectricDistributionBoard",
	"IfcValve",
	"IfcPump",
	"IfcFan",
	"IfcBoiler",
	"IfcChiller",
	"IfcFilter",
	"IfcSensor",
	"IfcActuator",
	"IfcAlarm",
}

// SystemGroup holds the systems of one kind, in graph order.
type SystemGroup struct {
	Kind    graph.SystemKind
	Systems []*graph.System
}

// Grouper answers system membership questions.
type Grouper struct {
	graph *graph.Graph
}

// NewGrouper returns a grouper over g.
func NewGrouper(g *graph.Graph) *Grouper {
	return &Grouper{graph: g}
}

// SystemsOf returns the systems id is grouped by, in edge order and without
// duplicates. Membership is not exclusive.
func (g *Grouper) SystemsOf(id graph.ID) []*graph.System {
	var out []*graph.System
	seen := make(map[graph.ID]bool)
	for _, edge := range g.graph.RelationsOf(id, graph.RelGroupedBy) {
		if seen[edge.To] {
			continue
		}
		seen[edge.To] = true
		if sys, ok := g.graph.System(edge.To); ok {
			out = append(out, sys)
		}
	}
	return out
}

// MembersOf returns the products grouped by system id, in edge order.
func (g *Grouper) MembersOf(id graph.ID) []*graph.Product {
	var out []*graph.Product
	seen := make(map[graph.ID]bool)
	for _, edge := range g.graph.InboundRelations(id, graph.RelGroupedBy) {
		if seen[edge.From] {
			continue
		}
		seen[edge.From] = true
		if p, ok := g.graph.Product(edge.From); ok {
			out = append(out, p)
		}
	}
	return out
}

// UnassignedMEPProducts returns every product matching one of the whitelist
// types that belongs to no system. A nil whitelist uses DefaultMEPTypes.
func (g *Grouper) UnassignedMEPProducts(whitelist []string) []*graph.Product {
	if whitelist == nil {
		whitelist = DefaultMEPTypes
	}
	var out []*graph.Product
	for _, p := range g.graph.Products() {
		if !matchesAny(p.Type, whitelist) {
			continue
		}
		if len(g.graph.RelationsOf(p.ID, graph.RelGroupedBy)) == 0 {
			out = append(out, p)
		}
	}
	return out
}

// GroupSystemsByKind returns the non-empty system groups in
// graph.SystemKinds order.
func (g *Grouper) GroupSystemsByKind() []SystemGroup {
	byKind := make(map[graph.SystemKind][]*graph.System)
	for _, sys := range g.graph.Systems() {
		byKind[sys.Kind] = append(byKind[sys.Kind], sys)
	}
	var out []SystemGroup
	for _, kind := range graph.SystemKinds {
		if systems := byKind[kind]; len(systems) > 0 {
			out = append(out, SystemGroup{Kind: kind, Systems: systems})
		}
	}
	return out
}

func matchesAny(productType string, types []string) bool {
	for _, t := range types {
		if graph.TypeMatches(productType, t) {
			return true
		}
	}
	return false
}
