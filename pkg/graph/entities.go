// Package graph defines the building-model entity graph consumed by the query
// engine: spatial structure, products, measurement containers, systems and the
// relationship edges between them. A Graph is immutable once built.
package graph

import "fmt"

// ID is the stable identifier of an entity, unique within one model file.
type ID string

// EntityKind identifies which variant an ID refers to.
type EntityKind string

// Entity variants held by a Graph.
const (
	KindProject   EntityKind = "project"
	KindSpatial   EntityKind = "spatial"
	KindProduct   EntityKind = "product"
	KindContainer EntityKind = "container"
	KindSystem    EntityKind = "system"
)

// SpatialKind distinguishes the spatial structure levels.
type SpatialKind string

// Spatial structure levels, outermost first.
const (
	SpatialSite     SpatialKind = "site"
	SpatialBuilding SpatialKind = "building"
	SpatialStorey   SpatialKind = "storey"
	SpatialSpace    SpatialKind = "space"
)

// Valid reports whether k is a known spatial level.
func (k SpatialKind) Valid() bool {
	switch k {
	case SpatialSite, SpatialBuilding, SpatialStorey, SpatialSpace:
		return true
	}
	return false
}

// Dimension is the physical dimension of a quantity.
type Dimension string

// Quantity dimensions. DimensionCount is carried by source files but never
// extracted as a measurement.
const (
	DimensionLength Dimension = "length"
	DimensionArea   Dimension = "area"
	DimensionVolume Dimension = "volume"
	DimensionCount  Dimension = "count"
)

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionLength, DimensionArea, DimensionVolume, DimensionCount:
		return true
	}
	return false
}

// Unit returns the display unit for measurable dimensions.
func (d Dimension) Unit() string {
	switch d {
	case DimensionLength:
		return "m"
	case DimensionArea:
		return "m²"
	case DimensionVolume:
		return "m³"
	default:
		return "items"
	}
}

// ContainerKind distinguishes typed quantity sets from untyped property sets.
type ContainerKind string

// Measurement container variants.
const (
	ContainerQuantitySet ContainerKind = "quantity_set"
	ContainerPropertySet ContainerKind = "property_set"
)

// SystemKind distinguishes the logical system groupings.
type SystemKind string

// System variants, in reporting order.
const (
	SystemElectricalCircuit SystemKind = "electrical_circuit"
	SystemDistribution      SystemKind = "distribution_system"
	SystemGeneric           SystemKind = "generic_system"
)

// SystemKinds lists every system variant in reporting order.
var SystemKinds = []SystemKind{SystemElectricalCircuit, SystemDistribution, SystemGeneric}

// Label returns the heading used when presenting systems of this kind.
func (k SystemKind) Label() string {
	switch k {
	case SystemElectricalCircuit:
		return "Electrical Circuits"
	case SystemDistribution:
		return "Distribution Systems"
	case SystemGeneric:
		return "Systems"
	}
	return string(k)
}

// RelationKind identifies a relationship edge type.
type RelationKind string

// Relationship edge kinds. Edges are directed From -> To:
//   - ContainedIn, ReferencedIn: product or space -> spatial node
//   - AggregatesInto: child -> parent (spatial decomposition or element assembly)
//   - DefinesProperties: product or space -> measurement container
//   - GroupedBy: product -> system
//   - FillsVoid: element -> opening it fills
//   - VoidsElement: opening -> host element it cuts
const (
	RelContainedIn       RelationKind = "contained_in"
	RelReferencedIn      RelationKind = "referenced_in"
	RelAggregatesInto    RelationKind = "aggregates_into"
	RelDefinesProperties RelationKind = "defines_properties"
	RelGroupedBy         RelationKind = "grouped_by"
	RelFillsVoid         RelationKind = "fills_void"
	RelVoidsElement      RelationKind = "voids_element"
)

// RelationKinds lists every relationship kind.
var RelationKinds = []RelationKind{
	RelContainedIn, RelReferencedIn, RelAggregatesInto, RelDefinesProperties,
	RelGroupedBy, RelFillsVoid, RelVoidsElement,
}

// Valid reports whether k is a known relationship kind.
func (k RelationKind) Valid() bool {
	for _, candidate := range RelationKinds {
		if k == candidate {
			return true
		}
	}
	return false
}

// Spatial reports whether k links an entity into the spatial structure.
func (k RelationKind) Spatial() bool {
	return k == RelContainedIn || k == RelReferencedIn || k == RelAggregatesInto
}

// Project carries root metadata for display.
type Project struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Schema      string `json:"schema,omitempty"`
	Description string `json:"description,omitempty"`
}

// SpatialNode is a site, building, storey or space. Elevation is meaningful for
// storeys; Usage and Area for spaces.
type SpatialNode struct {
	ID        ID          `json:"id"`
	Kind      SpatialKind `json:"kind"`
	Name      string      `json:"name,omitempty"`
	LongName  string      `json:"long_name,omitempty"`
	Elevation *float64    `json:"elevation,omitempty"`
	Usage     string      `json:"usage,omitempty"`
	Area      *float64    `json:"area,omitempty"`
}

// IsStorey reports whether the node is a storey.
func (n *SpatialNode) IsStorey() bool { return n != nil && n.Kind == SpatialStorey }

// IsSpace reports whether the node is a space.
func (n *SpatialNode) IsSpace() bool { return n != nil && n.Kind == SpatialSpace }

// DisplayName returns Name, then LongName, then a synthesized label.
func (n *SpatialNode) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	if n.LongName != "" {
		return n.LongName
	}
	switch n.Kind {
	case SpatialStorey:
		return fmt.Sprintf("Storey #%s", n.ID)
	case SpatialSpace:
		return fmt.Sprintf("Space #%s", n.ID)
	}
	return fmt.Sprintf("%s #%s", n.Kind, n.ID)
}

// UsageLabel returns the classification label used for space-type matching,
// falling back to LongName and Name when the usage is not recorded.
func (n *SpatialNode) UsageLabel() string {
	if n.Usage != "" {
		return n.Usage
	}
	if n.LongName != "" {
		return n.LongName
	}
	return n.Name
}

// Product is a physical or distribution element. TypeName and TypeDescription
// come from the element's type object, when the source file declares one.
type Product struct {
	ID              ID     `json:"id"`
	Type            string `json:"type"`
	Name            string `json:"name,omitempty"`
	LongName        string `json:"long_name,omitempty"`
	TypeName        string `json:"type_name,omitempty"`
	TypeDescription string `json:"type_description,omitempty"`
}

// DisplayName returns Name, then LongName, then a synthesized label.
func (p *Product) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.LongName != "" {
		return p.LongName
	}
	return fmt.Sprintf("Element #%s", p.ID)
}

// Quantity is a typed measurement inside a quantity set.
type Quantity struct {
	Name  string    `json:"name"`
	Kind  Dimension `json:"kind"`
	Value float64   `json:"value"`
}

// Property is an untyped name/value pair inside a property set.
type Property struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// MeasurementContainer is a quantity set or a property set.
type MeasurementContainer struct {
	ID         ID            `json:"id"`
	Kind       ContainerKind `json:"kind"`
	Name       string        `json:"name,omitempty"`
	Quantities []Quantity    `json:"quantities,omitempty"`
	Properties []Property    `json:"properties,omitempty"`
}

// System is a logical grouping of products.
type System struct {
	ID       ID         `json:"id"`
	Kind     SystemKind `json:"kind"`
	Name     string     `json:"name,omitempty"`
	LongName string     `json:"long_name,omitempty"`
}

// DisplayName returns Name, then LongName, then a synthesized label.
func (s *System) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.LongName != "" {
		return s.LongName
	}
	if s.Kind == SystemElectricalCircuit {
		return fmt.Sprintf("Circuit #%s", s.ID)
	}
	return fmt.Sprintf("System #%s", s.ID)
}

// Edge is a directed relationship between two entities.
type Edge struct {
	Kind RelationKind `json:"kind"`
	From ID           `json:"from"`
	To   ID           `json:"to"`
}
