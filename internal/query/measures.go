package query

import (
	"fmt"
	"strings"

	"ifcquery/internal/engine"
	"ifcquery/pkg/graph"
	"ifcquery/pkg/queryapi"
)

func countTotal(s *engine.Session, req queryapi.Request) queryapi.Result {
	label := typeLabel(s, req.ElementType, "")
	return queryapi.ValueResult{
		Title: fmt.Sprintf("Total %s Count", label),
		Value: float64(len(s.Graph().ByType(req.ElementType))),
		Unit:  queryapi.UnitItems,
	}
}

func countByStorey(s *engine.Session, req queryapi.Request) queryapi.Result {
	buckets := s.BucketByStorey(s.Graph().ByType(req.ElementType))
	rows := make([][]string, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, []string{b.Label(), count(b.Count())})
	}
	return queryapi.TableResult{
		Title:   fmt.Sprintf("%s Count by Storey", typeLabel(s, req.ElementType, "")),
		Headers: []string{"Storey", "Count"},
		Rows:    rows,
		Notes:   storeyNotes(s, buckets),
	}
}

func sumTotal(s *engine.Session, req queryapi.Request) queryapi.Result {
	d := dimensionOf(req.QueryType)
	sum := s.SumQuantity(s.Graph().ByType(req.ElementType), d)
	return queryapi.ValueResult{
		Title:   fmt.Sprintf("Total %s of %s", dimensionTitle(d), typeLabel(s, req.ElementType, "")),
		Value:   round(sum.Total, 2),
		Unit:    d.Unit(),
		Missing: sum.Missing,
	}
}

func sumLengthByStorey(s *engine.Session, req queryapi.Request) queryapi.Result {
	buckets := s.BucketByStorey(s.Graph().ByType(req.ElementType))
	rows := make([][]string, 0, len(buckets))
	missing, shadowed := 0, 0
	for _, b := range buckets {
		sum := s.SumQuantity(b.Products, graph.DimensionLength)
		missing += sum.Missing
		shadowed += sum.Shadowed
		rows = append(rows, []string{b.Label(), measure(sum.Total)})
	}
	notes := append(storeyNotes(s, buckets), missingNote(missing, "a length")...)
	return queryapi.TableResult{
		Title:   fmt.Sprintf("%s Length by Storey", typeLabel(s, req.ElementType, "")),
		Headers: []string{"Storey", "Length (m)"},
		Rows:    rows,
		Notes:   append(notes, shadowNote(shadowed)...),
	}
}

func lengthBySystem(s *engine.Session, req queryapi.Request) queryapi.Result {
	rows := [][]string{}
	missing, shadowed := 0, 0
	for _, group := range s.GroupSystemsByKind() {
		for _, sys := range group.Systems {
			var members []*graph.Product
			for _, p := range s.MembersOf(sys.ID) {
				if graph.TypeMatches(p.Type, req.ElementType) {
					members = append(members, p)
				}
			}
			if len(members) == 0 {
				continue
			}
			sum := s.SumQuantity(members, graph.DimensionLength)
			missing += sum.Missing
			shadowed += sum.Shadowed
			rows = append(rows, []string{sys.DisplayName(), group.Kind.Label(), measure(sum.Total)})
		}
	}
	var loose []*graph.Product
	for _, p := range s.Graph().ByType(req.ElementType) {
		if len(s.SystemsOf(p.ID)) == 0 {
			loose = append(loose, p)
		}
	}
	if len(loose) > 0 {
		sum := s.SumQuantity(loose, graph.DimensionLength)
		missing += sum.Missing
		shadowed += sum.Shadowed
		rows = append(rows, []string{noSystemLabel, "-", measure(sum.Total)})
	}
	return queryapi.TableResult{
		Title:   fmt.Sprintf("%s Length by System", typeLabel(s, req.ElementType, "")),
		Headers: []string{"System", "System Kind", "Length (m)"},
		Rows:    rows,
		Notes:   append(missingNote(missing, "a length"), shadowNote(shadowed)...),
	}
}

// compoundFilteredCount intersects the element type with the storey and
// space-type filters. Either filter may be empty.
func compoundFilteredCount(s *engine.Session, req queryapi.Request) queryapi.Result {
	storey, spaceType := req.Filters.Storey, req.Filters.SpaceType
	n := 0
	for _, p := range s.Graph().ByType(req.ElementType) {
		if storey != "" && !engine.MatchStorey(s.ResolveStorey(p.ID), storey) {
			continue
		}
		if spaceType != "" && !s.MatchSpaceType(s.ProductSpace(p.ID), spaceType) {
			continue
		}
		n++
	}
	var title strings.Builder
	title.WriteString(typeLabel(s, req.ElementType, ""))
	if storey != "" {
		title.WriteString(" on " + storey)
	}
	if spaceType != "" {
		title.WriteString(" in " + spaceType + " spaces")
	}
	if storey == "" && spaceType == "" {
		title.WriteString(" total")
	}
	return queryapi.ValueResult{Title: title.String(), Value: float64(n), Unit: queryapi.UnitItems}
}
