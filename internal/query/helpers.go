package query

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"ifcquery/internal/engine"
	"ifcquery/pkg/graph"
	"ifcquery/pkg/queryapi"
)

const (
	noSystemLabel = "No system"
	notAvailable  = "n/a"
)

// selectProducts returns the products of elementType, or every product when
// no type is given.
func selectProducts(s *engine.Session, elementType string) []*graph.Product {
	if elementType == "" {
		return s.Graph().Products()
	}
	return s.Graph().ByType(elementType)
}

func typeLabel(s *engine.Session, elementType, fallback string) string {
	if elementType == "" {
		return fallback
	}
	return s.ElementDisplayName(elementType)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func measure(v float64) string { return strconv.FormatFloat(round(v, 2), 'f', 2, 64) }

func density(v float64) string { return strconv.FormatFloat(round(v, 3), 'f', 3, 64) }

func count(n int) string { return strconv.Itoa(n) }

func dimensionOf(queryType queryapi.QueryType) graph.Dimension {
	switch queryType {
	case queryapi.SumAreaTotal:
		return graph.DimensionArea
	case queryapi.SumVolumeTotal:
		return graph.DimensionVolume
	}
	return graph.DimensionLength
}

func dimensionTitle(d graph.Dimension) string {
	switch d {
	case graph.DimensionArea:
		return "Area"
	case graph.DimensionVolume:
		return "Volume"
	}
	return "Length"
}

// matchingSpaces returns the spaces whose usage label satisfies filter under
// the session's policy. An empty filter selects every space.
func matchingSpaces(s *engine.Session, filter string) []*graph.SpatialNode {
	var out []*graph.SpatialNode
	for _, space := range s.Spaces() {
		if s.MatchSpaceType(space, filter) {
			out = append(out, space)
		}
	}
	return out
}

// spaceTally counts products per containing space, in first-seen order.
type spaceTally struct {
	space *graph.SpatialNode
	n     int
}

func tallyBySpace(s *engine.Session, products []*graph.Product) (tallies []spaceTally, outside int) {
	index := make(map[graph.ID]int)
	for _, p := range products {
		space := s.ProductSpace(p.ID)
		if space == nil {
			outside++
			continue
		}
		i, ok := index[space.ID]
		if !ok {
			i = len(tallies)
			index[space.ID] = i
			tallies = append(tallies, spaceTally{space: space})
		}
		tallies[i].n++
	}
	return tallies, outside
}

func sortTallies(tallies []spaceTally) {
	sort.SliceStable(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.n != b.n {
			return a.n > b.n
		}
		if na, nb := a.space.DisplayName(), b.space.DisplayName(); na != nb {
			return na < nb
		}
		return a.space.ID < b.space.ID
	})
}

func limitRows(rows [][]string, limit int) [][]string {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func containsFold(text, part string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(part))
}

// storeyNotes explains unassigned and unordered buckets so callers can audit
// a storey breakdown.
func storeyNotes(s *engine.Session, buckets []engine.Bucket) []string {
	var notes []string
	for _, b := range buckets {
		if b.MissingElevation() {
			notes = append(notes, "storey "+strconv.Quote(b.Label())+" has no elevation and is listed after elevated storeys")
		}
		if !b.Unassigned() {
			continue
		}
		linked := 0
		for _, p := range b.Products {
			if s.ResolveStoreyDiagnostic(p.ID).SpatialLink() {
				linked++
			}
		}
		if linked > 0 {
			notes = append(notes, count(linked)+" unassigned element(s) have spatial links that do not reach a storey")
		}
		if rest := b.Count() - linked; rest > 0 {
			notes = append(notes, count(rest)+" unassigned element(s) have no spatial link")
		}
	}
	return notes
}

// shadowNote flags elements whose quantity appears in more than one set;
// only the first set is read, so the total may undercount.
func shadowNote(shadowed int) []string {
	if shadowed == 0 {
		return nil
	}
	return []string{count(shadowed) + " element(s) carry this quantity in several sets; only the first was used"}
}

func missingNote(missing int, what string) []string {
	if missing == 0 {
		return nil
	}
	return []string{count(missing) + " element(s) without " + what + " contributed 0"}
}
