package graph

import (
	"fmt"
)

// Builder accumulates entities and edges and validates them into an immutable
// Graph. A Builder is not safe for concurrent use.
type Builder struct {
	project    Project
	spatial    []SpatialNode
	products   []Product
	containers []MeasurementContainer
	systems    []System
	edges      []Edge
}

// NewBuilder returns an empty builder for the given project.
func NewBuilder(project Project) *Builder {
	return &Builder{project: project}
}

// AddSpatial appends a spatial node.
func (b *Builder) AddSpatial(node SpatialNode) *Builder {
	b.spatial = append(b.spatial, node)
	return b
}

// AddProduct appends a product.
func (b *Builder) AddProduct(product Product) *Builder {
	b.products = append(b.products, product)
	return b
}

// AddContainer appends a measurement container.
func (b *Builder) AddContainer(container MeasurementContainer) *Builder {
	b.containers = append(b.containers, container)
	return b
}

// AddSystem appends a system.
func (b *Builder) AddSystem(system System) *Builder {
	b.systems = append(b.systems, system)
	return b
}

// Relate appends a directed edge.
func (b *Builder) Relate(kind RelationKind, from, to ID) *Builder {
	b.edges = append(b.edges, Edge{Kind: kind, From: from, To: to})
	return b
}

// Build validates identifiers and edge endpoints and returns the indexed
// graph. Any violation yields an IntegrityError naming the offending entity.
func (b *Builder) Build() (*Graph, error) {
	g := &Graph{
		project:    b.project,
		kinds:      make(map[ID]EntityKind),
		spatial:    make(map[ID]*SpatialNode, len(b.spatial)),
		products:   make(map[ID]*Product, len(b.products)),
		containers: make(map[ID]*MeasurementContainer, len(b.containers)),
		systems:    make(map[ID]*System, len(b.systems)),
		outbound:   make(map[ID]map[RelationKind][]Edge),
		inbound:    make(map[ID]map[RelationKind][]Edge),
	}

	register := func(id ID, kind EntityKind) error {
		if id == "" {
			return IntegrityError{Reason: fmt.Sprintf("%s with empty id", kind)}
		}
		if existing, ok := g.kinds[id]; ok {
			return IntegrityError{Entity: id, Reason: fmt.Sprintf("duplicate id (already a %s)", existing)}
		}
		g.kinds[id] = kind
		return nil
	}

	if b.project.ID != "" {
		if err := register(b.project.ID, KindProject); err != nil {
			return nil, err
		}
	}
	for i := range b.spatial {
		node := b.spatial[i]
		if !node.Kind.Valid() {
			return nil, IntegrityError{Entity: node.ID, Reason: fmt.Sprintf("unknown spatial kind %q", node.Kind)}
		}
		if err := register(node.ID, KindSpatial); err != nil {
			return nil, err
		}
		g.spatial[node.ID] = &node
		g.spatialOrder = append(g.spatialOrder, &node)
	}
	for i := range b.products {
		product := b.products[i]
		if product.Type == "" {
			return nil, IntegrityError{Entity: product.ID, Reason: "product without type"}
		}
		if err := register(product.ID, KindProduct); err != nil {
			return nil, err
		}
		g.products[product.ID] = &product
		g.productOrder = append(g.productOrder, &product)
	}
	for i := range b.containers {
		container := b.containers[i]
		if container.Kind != ContainerQuantitySet && container.Kind != ContainerPropertySet {
			return nil, IntegrityError{Entity: container.ID, Reason: fmt.Sprintf("unknown container kind %q", container.Kind)}
		}
		if err := register(container.ID, KindContainer); err != nil {
			return nil, err
		}
		g.containers[container.ID] = &container
		g.containerOrder = append(g.containerOrder, &container)
	}
	for i := range b.systems {
		system := b.systems[i]
		if err := validSystemKind(system.Kind); err != nil {
			return nil, IntegrityError{Entity: system.ID, Reason: err.Error()}
		}
		if err := register(system.ID, KindSystem); err != nil {
			return nil, err
		}
		g.systems[system.ID] = &system
		g.systemOrder = append(g.systemOrder, &system)
	}

	for _, edge := range b.edges {
		if err := g.checkEdge(edge); err != nil {
			return nil, err
		}
		g.link(edge)
	}
	return g, nil
}

func validSystemKind(kind SystemKind) error {
	for _, known := range SystemKinds {
		if kind == known {
			return nil
		}
	}
	return fmt.Errorf("unknown system kind %q", kind)
}

// checkEdge enforces that both endpoints exist and have the variant the
// relationship kind requires.
func (g *Graph) checkEdge(edge Edge) error {
	if !edge.Kind.Valid() {
		return IntegrityError{Entity: edge.From, Relation: edge.Kind, Target: edge.To, Reason: "unknown relationship kind"}
	}
	fromKind, ok := g.kinds[edge.From]
	if !ok {
		return IntegrityError{Entity: edge.From, Relation: edge.Kind, Target: edge.To, Reason: "source entity does not exist"}
	}
	toKind, ok := g.kinds[edge.To]
	if !ok {
		return IntegrityError{Entity: edge.From, Relation: edge.Kind, Target: edge.To, Reason: "target entity does not exist"}
	}

	var fromOK, toOK bool
	switch edge.Kind {
	case RelContainedIn, RelReferencedIn:
		fromOK = fromKind == KindProduct || fromKind == KindSpatial
		toOK = toKind == KindSpatial
	case RelAggregatesInto:
		fromOK = fromKind == KindProduct || fromKind == KindSpatial
		toOK = toKind == KindProduct || toKind == KindSpatial || toKind == KindProject
	case RelDefinesProperties:
		fromOK = fromKind == KindProduct || fromKind == KindSpatial
		toOK = toKind == KindContainer
	case RelGroupedBy:
		fromOK = fromKind == KindProduct
		toOK = toKind == KindSystem
	case RelFillsVoid, RelVoidsElement:
		fromOK = fromKind == KindProduct
		toOK = toKind == KindProduct
	}
	if !fromOK {
		return IntegrityError{Entity: edge.From, Relation: edge.Kind, Target: edge.To, Reason: fmt.Sprintf("source is a %s", fromKind)}
	}
	if !toOK {
		return IntegrityError{Entity: edge.From, Relation: edge.Kind, Target: edge.To, Reason: fmt.Sprintf("target is a %s", toKind)}
	}
	return nil
}

func (g *Graph) link(edge Edge) {
	if g.outbound[edge.From] == nil {
		g.outbound[edge.From] = make(map[RelationKind][]Edge)
	}
	if g.inbound[edge.To] == nil {
		g.inbound[edge.To] = make(map[RelationKind][]Edge)
	}
	g.outbound[edge.From][edge.Kind] = append(g.outbound[edge.From][edge.Kind], edge)
	g.inbound[edge.To][edge.Kind] = append(g.inbound[edge.To][edge.Kind], edge)
	g.edgeOrder = append(g.edgeOrder, edge)
}
