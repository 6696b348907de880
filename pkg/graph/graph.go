package graph

import (
	"sort"
)

// Graph is a read-only indexed view over a parsed model. All accessors return
// entities in insertion order and never mutate the graph, so a Graph may be
// shared freely across goroutines once built.
type Graph struct {
	project Project

	kinds      map[ID]EntityKind
	spatial    map[ID]*SpatialNode
	products   map[ID]*Product
	containers map[ID]*MeasurementContainer
	systems    map[ID]*System

	spatialOrder   []*SpatialNode
	productOrder   []*Product
	containerOrder []*MeasurementContainer
	systemOrder    []*System

	outbound  map[ID]map[RelationKind][]Edge
	inbound   map[ID]map[RelationKind][]Edge
	edgeOrder []Edge
}

// Project returns the root project metadata.
func (g *Graph) Project() Project { return g.project }

// Kind reports which variant id refers to.
func (g *Graph) Kind(id ID) (EntityKind, bool) {
	k, ok := g.kinds[id]
	return k, ok
}

// Has reports whether id exists in the graph.
func (g *Graph) Has(id ID) bool {
	_, ok := g.kinds[id]
	return ok
}

// Product returns the product with the given id.
func (g *Graph) Product(id ID) (*Product, bool) {
	p, ok := g.products[id]
	return p, ok
}

// SpatialNode returns the spatial node with the given id.
func (g *Graph) SpatialNode(id ID) (*SpatialNode, bool) {
	n, ok := g.spatial[id]
	return n, ok
}

// Container returns the measurement container with the given id.
func (g *Graph) Container(id ID) (*MeasurementContainer, bool) {
	c, ok := g.containers[id]
	return c, ok
}

// System returns the system with the given id.
func (g *Graph) System(id ID) (*System, bool) {
	s, ok := g.systems[id]
	return s, ok
}

// Products returns every product in insertion order.
func (g *Graph) Products() []*Product {
	return append([]*Product(nil), g.productOrder...)
}

// ByType returns every product whose concrete type equals typeName or is one
// of its known subtypes/aliases. An unknown or absent type yields an empty
// slice: absence of a type in a file is normal.
func (g *Graph) ByType(typeName string) []*Product {
	var out []*Product
	for _, p := range g.productOrder {
		if TypeMatches(p.Type, typeName) {
			out = append(out, p)
		}
	}
	return out
}

// AllSpatialNodes returns the spatial nodes of one kind in insertion order.
func (g *Graph) AllSpatialNodes(kind SpatialKind) []*SpatialNode {
	var out []*SpatialNode
	for _, n := range g.spatialOrder {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Containers returns every measurement container in insertion order.
func (g *Graph) Containers() []*MeasurementContainer {
	return append([]*MeasurementContainer(nil), g.containerOrder...)
}

// Systems returns every system in insertion order.
func (g *Graph) Systems() []*System {
	return append([]*System(nil), g.systemOrder...)
}

// RelationsOf returns the outbound edges of kind starting at id.
func (g *Graph) RelationsOf(id ID, kind RelationKind) []Edge {
	return append([]Edge(nil), g.outbound[id][kind]...)
}

// InboundRelations returns the edges of kind that end at id.
func (g *Graph) InboundRelations(id ID, kind RelationKind) []Edge {
	return append([]Edge(nil), g.inbound[id][kind]...)
}

// OutboundKinds returns the relationship kinds that leave id, in the order of
// RelationKinds.
func (g *Graph) OutboundKinds(id ID) []RelationKind {
	byKind := g.outbound[id]
	var out []RelationKind
	for _, kind := range RelationKinds {
		if len(byKind[kind]) > 0 {
			out = append(out, kind)
		}
	}
	return out
}

// ElementTypes returns the distinct concrete product types, sorted.
func (g *Graph) ElementTypes() []string {
	seen := make(map[string]struct{})
	for _, p := range g.productOrder {
		seen[p.Type] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Stats summarises entity and edge counts.
type Stats struct {
	SpatialNodes int `json:"spatial_nodes"`
	Products     int `json:"products"`
	Containers   int `json:"containers"`
	Systems      int `json:"systems"`
	Relations    int `json:"relations"`
}

// Stats returns entity and edge counts for the graph.
func (g *Graph) Stats() Stats {
	return Stats{
		SpatialNodes: len(g.spatialOrder),
		Products:     len(g.productOrder),
		Containers:   len(g.containerOrder),
		Systems:      len(g.systemOrder),
		Relations:    len(g.edgeOrder),
	}
}
