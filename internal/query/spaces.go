package query

import (
	"fmt"
	"sort"
	"strings"

	"ifcquery/internal/engine"
	"ifcquery/pkg/graph"
	"ifcquery/pkg/queryapi"
)

func elementsInSpaceType(s *engine.Session, req queryapi.Request) queryapi.Result {
	label := typeLabel(s, req.ElementType, "")
	title := fmt.Sprintf("%s in %s spaces", label, req.Filters.SpaceType)
	var matched []*graph.Product
	for _, p := range s.Graph().ByType(req.ElementType) {
		if s.MatchSpaceType(s.ProductSpace(p.ID), req.Filters.SpaceType) {
			matched = append(matched, p)
		}
	}
	if !req.Filters.Detail {
		return queryapi.ValueResult{Title: title, Value: float64(len(matched)), Unit: queryapi.UnitItems}
	}
	rows := make([][]string, 0, len(matched))
	for _, p := range matched {
		rows = append(rows, []string{p.DisplayName(), p.Type, s.ProductSpace(p.ID).DisplayName(), s.ResolveStoreyDiagnostic(p.ID).Label()})
	}
	return queryapi.TableResult{Title: title, Headers: []string{"Element", "Type", "Space", "Storey"}, Rows: rows}
}

// hostMatches accepts a host element type (with supertype expansion) or a
// host material name or label.
func hostMatches(host *graph.Product, material engine.HostMaterial, filter string) bool {
	if graph.TypeMatches(host.Type, filter) {
		return true
	}
	return strings.EqualFold(string(material), filter) || containsFold(material.Label(), filter)
}

func elementsInHost(s *engine.Session, req queryapi.Request) queryapi.Result {
	rows := [][]string{}
	unhosted := 0
	for _, p := range s.Graph().ByType(req.ElementType) {
		host, _ := s.Host(p.ID)
		if host == nil {
			unhosted++
			continue
		}
		material := engine.ClassifyHost(host)
		if !hostMatches(host, material, req.Filters.HostType) {
			continue
		}
		rows = append(rows, []string{p.DisplayName(), host.DisplayName(), host.Type, material.Label()})
	}
	var notes []string
	if unhosted > 0 {
		notes = append(notes, count(unhosted)+" element(s) do not fill an opening in any host")
	}
	return queryapi.TableResult{
		Title:   fmt.Sprintf("%s in %s", typeLabel(s, req.ElementType, ""), req.Filters.HostType),
		Headers: []string{"Element", "Host", "Host Type", "Host Material"},
		Rows:    rows,
		Notes:   notes,
	}
}

func elementsPerSpace(s *engine.Session, req queryapi.Request) queryapi.Result {
	tallies, outside := tallyBySpace(s, s.Graph().ByType(req.ElementType))
	sortTallies(tallies)
	rows := make([][]string, 0, len(tallies))
	for _, t := range tallies {
		rows = append(rows, []string{t.space.DisplayName(), s.ResolveStoreyDiagnostic(t.space.ID).Label(), count(t.n)})
	}
	var notes []string
	if outside > 0 {
		notes = append(notes, count(outside)+" element(s) are not in any space")
	}
	return queryapi.TableResult{
		Title:   fmt.Sprintf("%s per Space", typeLabel(s, req.ElementType, "")),
		Headers: []string{"Space", "Storey", "Count"},
		Rows:    limitRows(rows, req.Filters.Limit),
		Notes:   notes,
	}
}

func hostClassification(s *engine.Session, req queryapi.Request) queryapi.Result {
	counts := make(map[engine.HostMaterial]int)
	for _, p := range s.Graph().ByType(req.ElementType) {
		host, _ := s.Host(p.ID)
		counts[engine.ClassifyHost(host)]++
	}
	rows := [][]string{}
	for _, material := range engine.HostMaterials {
		if n := counts[material]; n > 0 {
			rows = append(rows, []string{material.Label(), count(n)})
		}
	}
	return queryapi.TableResult{
		Title:   fmt.Sprintf("%s by Host Material", typeLabel(s, req.ElementType, "")),
		Headers: []string{"Host Material", "Count"},
		Rows:    rows,
	}
}

func countRooms(s *engine.Session, req queryapi.Request) queryapi.Result {
	title := "Total Number of Rooms"
	if req.Filters.SpaceType != "" {
		title = fmt.Sprintf("Total Number of %s Rooms", req.Filters.SpaceType)
	}
	n := len(matchingSpaces(s, req.Filters.SpaceType))
	return queryapi.ValueResult{Title: title, Value: float64(n), Unit: queryapi.UnitRooms}
}

// netAreaPerStorey sums space areas per resolved storey, in storey order
// with unassigned spaces last.
func netAreaPerStorey(s *engine.Session, _ queryapi.Request) queryapi.Result {
	type total struct {
		rooms int
		area  float64
	}
	totals := make(map[graph.ID]*total)
	var unassigned total
	missing := 0
	for _, space := range s.Spaces() {
		area, ok := s.SpaceArea(space)
		if !ok {
			missing++
		}
		t := &unassigned
		if storey := s.ResolveStorey(space.ID); storey != nil {
			if totals[storey.ID] == nil {
				totals[storey.ID] = &total{}
			}
			t = totals[storey.ID]
		}
		t.rooms++
		t.area += area
	}
	rows := [][]string{}
	for _, storey := range s.Storeys() {
		if t := totals[storey.ID]; t != nil {
			rows = append(rows, []string{storey.DisplayName(), count(t.rooms), measure(t.area)})
		}
	}
	if unassigned.rooms > 0 {
		rows = append(rows, []string{engine.UnassignedLabel, count(unassigned.rooms), measure(unassigned.area)})
	}
	var notes []string
	if missing > 0 {
		notes = append(notes, count(missing)+" space(s) have no recorded area")
	}
	return queryapi.TableResult{
		Title:   "Net Area per Storey",
		Headers: []string{"Storey", "Rooms", "Net Area (m²)"},
		Rows:    rows,
		Notes:   notes,
	}
}

func spaceAreaSum(s *engine.Session, spaces []*graph.SpatialNode) (total float64, missing int) {
	for _, space := range spaces {
		area, ok := s.SpaceArea(space)
		if !ok {
			missing++
			continue
		}
		total += area
	}
	return total, missing
}

func areaBySpaceType(s *engine.Session, req queryapi.Request) queryapi.Result {
	total, missing := spaceAreaSum(s, matchingSpaces(s, req.Filters.SpaceType))
	return queryapi.ValueResult{
		Title:   fmt.Sprintf("Total Area of %s Spaces", req.Filters.SpaceType),
		Value:   round(total, 2),
		Unit:    graph.DimensionArea.Unit(),
		Missing: missing,
	}
}

// elementsPerArea divides the elements held by matching spaces by their
// combined area; a zero area yields zero.
func elementsPerArea(s *engine.Session, req queryapi.Request) queryapi.Result {
	area, missing := spaceAreaSum(s, matchingSpaces(s, req.Filters.SpaceType))
	n := 0
	for _, p := range s.Graph().ByType(req.ElementType) {
		if s.MatchSpaceType(s.ProductSpace(p.ID), req.Filters.SpaceType) {
			n++
		}
	}
	value := 0.0
	if area > 0 {
		value = round(float64(n)/area, 3)
	}
	return queryapi.ValueResult{
		Title:   fmt.Sprintf("%s per m² in %s", typeLabel(s, req.ElementType, ""), req.Filters.SpaceType),
		Value:   value,
		Unit:    queryapi.UnitDensity,
		Missing: missing,
	}
}

// complianceAllSpaces passes when every matching space holds at least one
// element of the type. With no matching spaces the rule holds vacuously.
func complianceAllSpaces(s *engine.Session, req queryapi.Request) queryapi.Result {
	label := typeLabel(s, req.ElementType, "")
	spaceType := req.Filters.SpaceType
	held := make(map[graph.ID]bool)
	for _, p := range s.Graph().ByType(req.ElementType) {
		if space := s.ProductSpace(p.ID); space != nil {
			held[space.ID] = true
		}
	}
	spaces := matchingSpaces(s, spaceType)
	failing := []string{}
	for _, space := range spaces {
		if !held[space.ID] {
			failing = append(failing, space.DisplayName())
		}
	}
	result := queryapi.ComplianceResult{
		Title:   fmt.Sprintf("All %s spaces have %s", spaceType, label),
		Passed:  len(failing) == 0,
		Details: failing,
	}
	switch {
	case len(spaces) == 0:
		result.Status = fmt.Sprintf("PASSED: no %s spaces in model", spaceType)
	case result.Passed:
		result.Status = fmt.Sprintf("PASSED: all %d %s spaces have %s", len(spaces), spaceType, label)
	default:
		result.Status = fmt.Sprintf("FAILED: %d of %d %s spaces missing %s", len(failing), len(spaces), spaceType, label)
	}
	return result
}

type rankEntry struct {
	label   string
	n       int
	area    float64
	hasArea bool
}

func (e rankEntry) density() float64 { return float64(e.n) / e.area }

// planningDensityRanking ranks storeys or spaces by element count, or by
// count per square metre when per_area is set. Groups without an area rank
// after those with one.
func planningDensityRanking(s *engine.Session, req queryapi.Request) queryapi.Result {
	label := typeLabel(s, req.ElementType, "Elements")
	products := selectProducts(s, req.ElementType)
	rankBy := req.Filters.RankBy
	if rankBy == "" {
		rankBy = queryapi.RankByStorey
	}

	var entries []rankEntry
	var notes []string
	heading := "Storey"
	if rankBy == queryapi.RankBySpace {
		heading = "Space"
		tallies, outside := tallyBySpace(s, products)
		for _, t := range tallies {
			area, ok := s.SpaceArea(t.space)
			entries = append(entries, rankEntry{label: t.space.DisplayName(), n: t.n, area: area, hasArea: ok && area > 0})
		}
		if outside > 0 {
			notes = append(notes, count(outside)+" element(s) are not in any space and are not ranked")
		}
	} else {
		areas := make(map[graph.ID]float64)
		for _, space := range s.Spaces() {
			storey := s.ResolveStorey(space.ID)
			if area, ok := s.SpaceArea(space); ok && storey != nil {
				areas[storey.ID] += area
			}
		}
		for _, b := range s.BucketByStorey(products) {
			e := rankEntry{label: b.Label(), n: b.Count()}
			if !b.Unassigned() {
				e.area = areas[b.Storey.ID]
				e.hasArea = e.area > 0
			}
			entries = append(entries, e)
		}
	}

	perArea := req.Filters.PerArea
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if perArea {
			if a.hasArea != b.hasArea {
				return a.hasArea
			}
			if a.hasArea && a.density() != b.density() {
				return a.density() > b.density()
			}
		}
		if a.n != b.n {
			return a.n > b.n
		}
		return a.label < b.label
	})

	headers := []string{heading, "Count"}
	if perArea {
		headers = append(headers, "Area (m²)", "Per m²")
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{e.label, count(e.n)}
		if perArea {
			if e.hasArea {
				row = append(row, measure(e.area), density(e.density()))
			} else {
				row = append(row, notAvailable, notAvailable)
			}
		}
		rows = append(rows, row)
	}
	return queryapi.TableResult{
		Title:   fmt.Sprintf("%s Density by %s", label, heading),
		Headers: headers,
		Rows:    limitRows(rows, req.Filters.Limit),
		Notes:   notes,
	}
}
