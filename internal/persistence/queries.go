package persistence

import (
	"sort"
	"strings"
)

// UnassignedFloor labels products without a storey in floor listings.
const UnassignedFloor = "Unassigned"

// TypeCount is an element type with its count.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// FloorSummary is a storey with the number of products it holds.
type FloorSummary struct {
	Name      string   `json:"name"`
	Elevation *float64 `json:"elevation,omitempty"`
	Products  int      `json:"products"`
}

// ProductLocation names a product and the floor it resolved to.
type ProductLocation struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Floor string `json:"floor"`
}

// FindStorey matches a storey by id or by name, ignoring case.
func (s Snapshot) FindStorey(floor string) (Storey, bool) {
	floor = strings.TrimSpace(floor)
	for _, st := range s.Storeys {
		if st.ID == floor || strings.EqualFold(st.Name, floor) {
			return st, true
		}
	}
	return Storey{}, false
}

// Floors returns the storeys in elevation order, storeys without an
// elevation last.
func (s Snapshot) Floors() []Storey {
	out := append([]Storey(nil), s.Storeys...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// FloorSummaries counts products per floor in floor order. Floors without
// products are listed with zero.
func (s Snapshot) FloorSummaries() []FloorSummary {
	counts := make(map[string]int)
	for _, p := range s.Products {
		if p.StoreyID != "" {
			counts[p.StoreyID]++
		}
	}
	floors := s.Floors()
	out := make([]FloorSummary, 0, len(floors))
	for _, st := range floors {
		out = append(out, FloorSummary{Name: st.Name, Elevation: cloneFloat(st.Elevation), Products: counts[st.ID]})
	}
	return out
}

// CountOnFloor counts products of elementType on floor. Types compare
// without case.
func (s Snapshot) CountOnFloor(elementType, floor string) int {
	st, ok := s.FindStorey(floor)
	if !ok {
		return 0
	}
	n := 0
	for _, p := range s.Products {
		if p.StoreyID == st.ID && strings.EqualFold(p.Type, elementType) {
			n++
		}
	}
	return n
}

// TypesOnFloor counts each element type on floor, most frequent first.
func (s Snapshot) TypesOnFloor(floor string) []TypeCount {
	st, ok := s.FindStorey(floor)
	if !ok {
		return nil
	}
	return tally(s.Products, func(p Product) bool { return p.StoreyID == st.ID })
}

// TypeCounts counts each element type across the model, most frequent first.
func (s Snapshot) TypeCounts() []TypeCount {
	return tally(s.Products, func(Product) bool { return true })
}

// UnassignedTypes counts the element types of products without a storey.
func (s Snapshot) UnassignedTypes() []TypeCount {
	return tally(s.Products, func(p Product) bool { return p.StoreyID == "" })
}

// ProductsOfType lists products of elementType with their floor. A non-empty
// floor restricts the listing to that floor.
func (s Snapshot) ProductsOfType(elementType, floor string) []ProductLocation {
	names := make(map[string]string, len(s.Storeys))
	for _, st := range s.Storeys {
		names[st.ID] = st.Name
	}
	var only string
	if floor != "" {
		st, ok := s.FindStorey(floor)
		if !ok {
			return nil
		}
		only = st.ID
	}
	var out []ProductLocation
	for _, p := range s.Products {
		if !strings.EqualFold(p.Type, elementType) || (only != "" && p.StoreyID != only) {
			continue
		}
		label := UnassignedFloor
		if p.StoreyID != "" {
			label = names[p.StoreyID]
		}
		out = append(out, ProductLocation{ID: p.ID, Name: p.Name, Floor: label})
	}
	return out
}

func tally(products []Product, keep func(Product) bool) []TypeCount {
	counts := make(map[string]int)
	for _, p := range products {
		if keep(p) {
			counts[p.Type]++
		}
	}
	out := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TypeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}
