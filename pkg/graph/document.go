package graph

import (
	"encoding/json"
	"fmt"
	"io"
)

// Document is the JSON interchange form produced by the entity-graph reader.
// Array order is graph insertion order.
type Document struct {
	Project    Project                `json:"project"`
	Spatial    []SpatialNode          `json:"spatial"`
	Products   []Product              `json:"products"`
	Containers []MeasurementContainer `json:"containers"`
	Systems    []System               `json:"systems"`
	Relations  []Edge                 `json:"relations"`
}

// Build validates the document and returns its graph.
func (d Document) Build() (*Graph, error) {
	b := NewBuilder(d.Project)
	for _, node := range d.Spatial {
		b.AddSpatial(node)
	}
	for _, product := range d.Products {
		b.AddProduct(product)
	}
	for _, container := range d.Containers {
		b.AddContainer(container)
	}
	for _, system := range d.Systems {
		b.AddSystem(system)
	}
	for _, edge := range d.Relations {
		b.Relate(edge.Kind, edge.From, edge.To)
	}
	return b.Build()
}

// Decode reads a JSON document from r and builds its graph.
func Decode(r io.Reader) (*Graph, error) {
	doc, err := DecodeDocument(r)
	if err != nil {
		return nil, err
	}
	return doc.Build()
}

// DecodeDocument reads a JSON document from r without building it. Unknown
// fields are rejected so that typos in relation kinds surface early.
func DecodeDocument(r io.Reader) (Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode graph document: %w", err)
	}
	return doc, nil
}

// Document returns the interchange form of g. Building the result yields a
// graph equal to g.
func (g *Graph) Document() Document {
	doc := Document{Project: g.project}
	for _, n := range g.spatialOrder {
		doc.Spatial = append(doc.Spatial, *n)
	}
	for _, p := range g.productOrder {
		doc.Products = append(doc.Products, *p)
	}
	for _, c := range g.containerOrder {
		doc.Containers = append(doc.Containers, *c)
	}
	for _, s := range g.systemOrder {
		doc.Systems = append(doc.Systems, *s)
	}
	doc.Relations = append(doc.Relations, g.edgeOrder...)
	return doc
}
