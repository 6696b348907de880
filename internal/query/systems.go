package query

import (
	"fmt"
	"sort"
	"strconv"

	"ifcquery/internal/engine"
	"ifcquery/pkg/graph"
	"ifcquery/pkg/queryapi"
)

func systemSelected(sys *graph.System, filter string) bool {
	return filter == "" || string(sys.ID) == filter || containsFold(sys.DisplayName(), filter)
}

// systemMembershipListing renders one section per system kind. Each row is a
// system and one member type with its count.
func systemMembershipListing(s *engine.Session, req queryapi.Request) queryapi.Result {
	headers := []string{"System", "Element Type", "Count"}
	var sections []queryapi.TableSection
	for _, group := range s.GroupSystemsByKind() {
		rows := [][]string{}
		for _, sys := range group.Systems {
			if !systemSelected(sys, req.Filters.System) {
				continue
			}
			byType := make(map[string]int)
			for _, p := range s.MembersOf(sys.ID) {
				if req.ElementType == "" || graph.TypeMatches(p.Type, req.ElementType) {
					byType[p.Type]++
				}
			}
			if len(byType) == 0 {
				if req.ElementType == "" {
					rows = append(rows, []string{sys.DisplayName(), "-", "0"})
				}
				continue
			}
			types := make([]string, 0, len(byType))
			for t := range byType {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				rows = append(rows, []string{sys.DisplayName(), s.ElementDisplayName(t), count(byType[t])})
			}
		}
		if len(rows) > 0 {
			sections = append(sections, queryapi.TableSection{Title: group.Kind.Label(), Headers: headers, Rows: rows})
		}
	}
	var notes []string
	if len(sections) == 0 {
		notes = append(notes, "no matching systems in model")
	}
	return queryapi.TableResult{
		Title:    "Elements by System",
		Headers:  headers,
		Rows:     [][]string{},
		Sections: sections,
		Notes:    notes,
	}
}

func unassignedSystemProducts(s *engine.Session, req queryapi.Request) queryapi.Result {
	var whitelist []string
	if req.ElementType != "" {
		whitelist = []string{req.ElementType}
	}
	rows := [][]string{}
	for _, p := range s.UnassignedMEPProducts(whitelist) {
		rows = append(rows, []string{p.DisplayName(), p.Type, s.ResolveStoreyDiagnostic(p.ID).Label()})
	}
	return queryapi.TableResult{
		Title:   fmt.Sprintf("%s without System", typeLabel(s, req.ElementType, "MEP Elements")),
		Headers: []string{"Element", "Type", "Storey"},
		Rows:    rows,
	}
}

func elementsPerCircuit(s *engine.Session, req queryapi.Request) queryapi.Result {
	rows := [][]string{}
	for _, group := range s.GroupSystemsByKind() {
		if group.Kind != graph.SystemElectricalCircuit {
			continue
		}
		for _, sys := range group.Systems {
			n := 0
			for _, p := range s.MembersOf(sys.ID) {
				if graph.TypeMatches(p.Type, req.ElementType) {
					n++
				}
			}
			rows = append(rows, []string{sys.DisplayName(), count(n)})
		}
	}
	outside := 0
	for _, p := range s.Graph().ByType(req.ElementType) {
		inCircuit := false
		for _, sys := range s.SystemsOf(p.ID) {
			if sys.Kind == graph.SystemElectricalCircuit {
				inCircuit = true
				break
			}
		}
		if !inCircuit {
			outside++
		}
	}
	var notes []string
	if len(rows) == 0 {
		notes = append(notes, "no electrical circuits in model")
	}
	if outside > 0 {
		notes = append(notes, count(outside)+" element(s) are not on any circuit")
	}
	return queryapi.TableResult{
		Title:   fmt.Sprintf("%s per Circuit", typeLabel(s, req.ElementType, "")),
		Headers: []string{"Circuit", "Count"},
		Rows:    rows,
		Notes:   notes,
	}
}

// countMaintainable counts distinct devices across the maintainable types.
// With detail set it breaks the count down per type.
func countMaintainable(s *engine.Session, req queryapi.Request) queryapi.Result {
	seen := make(map[graph.ID]bool)
	rows := [][]string{}
	for _, t := range engine.MaintainableTypes {
		n := 0
		for _, p := range s.Graph().ByType(t) {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			n++
		}
		if n > 0 {
			rows = append(rows, []string{s.ElementDisplayName(t), count(n)})
		}
	}
	title := "Total Maintainable Devices"
	if req.Filters.Detail {
		return queryapi.TableResult{Title: title, Headers: []string{"Type", "Count"}, Rows: rows}
	}
	return queryapi.ValueResult{Title: title, Value: float64(len(seen)), Unit: queryapi.UnitDevices}
}

const distributionBoardType = "IfcElectricDistributionBoard"

func locateDistributionBoards(s *engine.Session, _ queryapi.Request) queryapi.Result {
	rows := [][]string{}
	for _, p := range s.Graph().ByType(distributionBoardType) {
		name := p.Name
		if name == "" {
			name = p.LongName
		}
		if name == "" {
			name = fmt.Sprintf("Board #%s", p.ID)
		}
		space := "Unknown"
		if sp := s.ProductSpace(p.ID); sp != nil {
			space = sp.DisplayName()
		}
		rows = append(rows, []string{name, s.ResolveStoreyDiagnostic(p.ID).Label(), space})
	}
	return queryapi.TableResult{
		Title:   "Distribution Board Locations",
		Headers: []string{"Name", "Storey", "Space"},
		Rows:    rows,
	}
}

func parapetCandidates(s *engine.Session, elementType string) []*graph.Product {
	if elementType != "" {
		return s.Graph().ByType(elementType)
	}
	var out []*graph.Product
	for _, p := range s.Graph().Products() {
		for _, t := range engine.ParapetCandidateTypes {
			if graph.TypeMatches(p.Type, t) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// parapetChannels lists cable carriers identified as parapet channels by a
// name keyword or an installation height inside the parapet band.
func parapetChannels(s *engine.Session, req queryapi.Request) queryapi.Result {
	rows := [][]string{}
	var found []*graph.Product
	candidates := parapetCandidates(s, req.ElementType)
	for _, p := range candidates {
		reason := s.DetectParapet(p)
		if !reason.Detected() {
			continue
		}
		found = append(found, p)
		signal := "height"
		switch {
		case reason.ByName && reason.ByHeight:
			signal = "name+height"
		case reason.ByName:
			signal = "name"
		}
		height := "-"
		if reason.HasHeight {
			height = strconv.FormatFloat(round(reason.Height, 2), 'f', 2, 64)
		}
		rows = append(rows, []string{p.DisplayName(), p.Type, s.ResolveStoreyDiagnostic(p.ID).Label(), signal, height})
	}
	notes := []string{fmt.Sprintf("%d of %d candidate(s) identified", len(found), len(candidates))}
	if len(found) > 0 {
		sum := s.SumQuantity(found, graph.DimensionLength)
		notes = append(notes, "total length: "+measure(sum.Total)+" m")
		notes = append(notes, missingNote(sum.Missing, "a length")...)
	}
	return queryapi.TableResult{
		Title:   "Parapet Channels",
		Headers: []string{"Element", "Type", "Storey", "Signal", "Height (m)"},
		Rows:    rows,
		Notes:   notes,
	}
}

const pipeSegmentType = "IfcPipeSegment"

// pipeClassification splits pipe segments into drinking water lines and
// others by name keywords, with the length of each class.
func pipeClassification(s *engine.Session, req queryapi.Request) queryapi.Result {
	elementType := req.ElementType
	if elementType == "" {
		elementType = pipeSegmentType
	}
	var potable, other []*graph.Product
	for _, p := range s.Graph().ByType(elementType) {
		if engine.IsPotableWater(p) {
			potable = append(potable, p)
		} else {
			other = append(other, p)
		}
	}
	rows := [][]string{}
	missing := 0
	for _, class := range []struct {
		label    string
		products []*graph.Product
	}{{"Drinking water", potable}, {"Other", other}} {
		sum := s.SumQuantity(class.products, graph.DimensionLength)
		missing += sum.Missing
		rows = append(rows, []string{class.label, count(len(class.products)), measure(sum.Total)})
	}
	return queryapi.TableResult{
		Title:   fmt.Sprintf("%s Classification", s.ElementDisplayName(elementType)),
		Headers: []string{"Class", "Count", "Length (m)"},
		Rows:    rows,
		Notes:   missingNote(missing, "a length"),
	}
}
