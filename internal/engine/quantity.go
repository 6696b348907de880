package engine

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"ifcquery/pkg/graph"
)

// quantityNames lists, per dimension, the quantity names preferred when a
// container carries several entries of that dimension.
var quantityNames = map[graph.Dimension][]string{
	graph.DimensionLength: {"Length", "NominalLength", "TotalLength", "GrossLength", "NetLength"},
	graph.DimensionArea:   {"Area", "NetArea", "GrossArea", "TotalArea", "NetSideArea", "NetFloorArea", "GrossFloorArea"},
	graph.DimensionVolume: {"Volume", "NetVolume", "GrossVolume", "TotalVolume"},
}

// QuantityNames returns the priority list used for dimension d.
func QuantityNames(d graph.Dimension) []string {
	return append([]string(nil), quantityNames[d]...)
}

// Measurement is the outcome of quantity extraction. Present distinguishes
// "no data" from a measured zero. Source and Name identify the container and
// the entry that matched. Shadowed counts later quantity sets that also
// carried the dimension and were ignored.
type Measurement struct {
	Value       float64
	Present     bool
	Source      graph.ID
	Name        string
	PropertySet bool
	Shadowed    int
}

// Sum aggregates measurements over a product sequence. Missing counts the
// inputs without data; they contribute 0 to Total.
type Sum struct {
	Total   float64
	Counted int
	Missing int
	// Shadowed counts inputs whose value came from one of several quantity
	// sets carrying the dimension.
	Shadowed int
}

// Extractor reads measurements from a product's attached containers.
type Extractor struct {
	graph *graph.Graph
}

// NewExtractor returns an extractor over g.
func NewExtractor(g *graph.Graph) *Extractor {
	return &Extractor{graph: g}
}

// Extract returns the single measurement of dimension d for id. Containers
// are scanned in graph order and the first quantity set with a match wins;
// values in later containers are never added. Property sets are consulted
// only when no quantity set matched.
func (e *Extractor) Extract(id graph.ID, d graph.Dimension) Measurement {
	names, ok := quantityNames[d]
	if !ok {
		return Measurement{}
	}
	var (
		propertySets []*graph.MeasurementContainer
		found        Measurement
	)
	for _, edge := range e.graph.RelationsOf(id, graph.RelDefinesProperties) {
		container, ok := e.graph.Container(edge.To)
		if !ok {
			continue
		}
		if container.Kind == graph.ContainerPropertySet {
			propertySets = append(propertySets, container)
			continue
		}
		q, ok := pickQuantity(container.Quantities, d, names)
		switch {
		case !ok:
		case found.Present:
			found.Shadowed++
		default:
			found = Measurement{Value: q.Value, Present: true, Source: container.ID, Name: q.Name}
		}
	}
	if found.Present {
		return found
	}
	for _, container := range propertySets {
		for _, name := range names {
			for _, prop := range container.Properties {
				if prop.Name != name {
					continue
				}
				if v, ok := numeric(prop.Value); ok {
					return Measurement{Value: v, Present: true, Source: container.ID, Name: prop.Name, PropertySet: true}
				}
			}
		}
	}
	return Measurement{}
}

// pickQuantity prefers the priority names in order, then any other entry of
// the same dimension.
func pickQuantity(quantities []graph.Quantity, d graph.Dimension, names []string) (graph.Quantity, bool) {
	for _, name := range names {
		for _, q := range quantities {
			if q.Kind == d && q.Name == name {
				return q, true
			}
		}
	}
	for _, q := range quantities {
		if q.Kind == d {
			return q, true
		}
	}
	return graph.Quantity{}, false
}

// numeric converts an untyped property value to a finite number.
func numeric(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// SumQuantity sums Extract over ids, treating absent values as 0.
func (e *Extractor) SumQuantity(ids []graph.ID, d graph.Dimension) Sum {
	var s Sum
	for _, id := range ids {
		s.add(e.Extract(id, d))
	}
	return s
}

func (s *Sum) add(m Measurement) {
	if !m.Present {
		s.Missing++
		return
	}
	s.Counted++
	s.Total += m.Value
	if m.Shadowed > 0 {
		s.Shadowed++
	}
}

// PropertyNumber returns the first numeric property whose name contains any
// of the keywords, case-insensitively. Quantity sets are not consulted.
func (e *Extractor) PropertyNumber(id graph.ID, keywords ...string) (float64, bool) {
	for _, edge := range e.graph.RelationsOf(id, graph.RelDefinesProperties) {
		container, ok := e.graph.Container(edge.To)
		if !ok || container.Kind != graph.ContainerPropertySet {
			continue
		}
		for _, prop := range container.Properties {
			if !containsAny(prop.Name, keywords) {
				continue
			}
			if v, ok := numeric(prop.Value); ok {
				return v, true
			}
		}
	}
	return 0, false
}

func containsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
