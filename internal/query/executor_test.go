package query

import (
	"bytes"
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"ifcquery/internal/engine"
	"ifcquery/pkg/queryapi"
)

func run(t *testing.T, s *engine.Session, req queryapi.Request) queryapi.Result {
	t.Helper()
	res, err := NewExecutor().Execute(context.Background(), s, req)
	if err != nil {
		t.Fatalf("execute %s: %v", req.QueryType, err)
	}
	return res
}

func asTable(t *testing.T, res queryapi.Result) queryapi.TableResult {
	t.Helper()
	table, ok := res.(queryapi.TableResult)
	if !ok {
		t.Fatalf("expected table result, got %T", res)
	}
	return table
}

func asValue(t *testing.T, res queryapi.Result) queryapi.ValueResult {
	t.Helper()
	value, ok := res.(queryapi.ValueResult)
	if !ok {
		t.Fatalf("expected value result, got %T", res)
	}
	return value
}

func TestCountByStoreyOrdersByElevation(t *testing.T) {
	s := newSession(t, engine.Options{})
	table := asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.CountByStorey, ElementType: "IfcOutlet"}))
	want := [][]string{{"Ground", "3"}, {"First", "2"}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Fatalf("expected rows %v, got %v", want, table.Rows)
	}
	if len(table.Notes) != 0 {
		t.Fatalf("expected no diagnostics when every outlet resolves, got %v", table.Notes)
	}
	if table.Title != "Outlet Count by Storey" {
		t.Fatalf("unexpected title %q", table.Title)
	}
}

func TestComplianceReportsFailingSpace(t *testing.T) {
	s := newSession(t, engine.Options{})
	res := run(t, s, queryapi.Request{QueryType: queryapi.ComplianceAllSpaces, ElementType: "IfcOutlet", Filters: queryapi.Filters{SpaceType: "Office"}})
	c, ok := res.(queryapi.ComplianceResult)
	if !ok {
		t.Fatalf("expected compliance result, got %T", res)
	}
	if c.Passed {
		t.Fatalf("expected failure, got %+v", c)
	}
	if !reflect.DeepEqual(c.Details, []string{"G.01"}) {
		t.Fatalf("expected only G.01 to fail, got %v", c.Details)
	}
	if c.Status != "FAILED: 1 of 3 Office spaces missing Outlet" {
		t.Fatalf("unexpected status %q", c.Status)
	}
}

func TestComplianceWithoutMatchingSpacesPasses(t *testing.T) {
	s := newSession(t, engine.Options{SpaceMatch: engine.SpaceMatchExact})
	res := run(t, s, queryapi.Request{QueryType: queryapi.ComplianceAllSpaces, ElementType: "IfcOutlet", Filters: queryapi.Filters{SpaceType: "office"}})
	c := res.(queryapi.ComplianceResult)
	if !c.Passed || len(c.Details) != 0 {
		t.Fatalf("expected vacuous pass under exact matching, got %+v", c)
	}
}

func TestCountsAndAbsentTypes(t *testing.T) {
	s := newSession(t, engine.Options{})
	v := asValue(t, run(t, s, queryapi.Request{QueryType: queryapi.CountTotal, ElementType: "Outlet"}))
	if v.Value != 5 || v.Unit != queryapi.UnitItems || v.Title != "Total Outlet Count" {
		t.Fatalf("unexpected outlet count %+v", v)
	}
	v = asValue(t, run(t, s, queryapi.Request{QueryType: queryapi.CountTotal, ElementType: "IfcWindow"}))
	if v.Value != 0 {
		t.Fatalf("expected zero windows, got %+v", v)
	}
	table := asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.CountByStorey, ElementType: "IfcWindow"}))
	if len(table.Rows) != 0 {
		t.Fatalf("expected empty breakdown for absent type, got %v", table.Rows)
	}
	v = asValue(t, run(t, s, queryapi.Request{QueryType: queryapi.CountRooms}))
	if v.Value != 3 || v.Unit != queryapi.UnitRooms {
		t.Fatalf("unexpected room count %+v", v)
	}
	v = asValue(t, run(t, s, queryapi.Request{QueryType: queryapi.CountMaintainable}))
	if v.Value != 2 || v.Unit != queryapi.UnitDevices {
		t.Fatalf("expected pump and board to be maintainable, got %+v", v)
	}
}

func TestSumUsesFirstQuantityMatch(t *testing.T) {
	s := newSession(t, engine.Options{})
	v := asValue(t, run(t, s, queryapi.Request{QueryType: queryapi.SumLengthTotal, ElementType: "IfcPipeSegment"}))
	if math.Abs(v.Value-4.2) > 1e-9 || v.Unit != "m" || v.Missing != 1 {
		t.Fatalf("expected 4.2 m with one missing, got %+v", v)
	}
	v = asValue(t, run(t, s, queryapi.Request{QueryType: queryapi.SumAreaTotal, ElementType: "IfcPipeSegment"}))
	if v.Value != 0 || v.Unit != "m²" || v.Missing != 2 {
		t.Fatalf("expected absent areas to sum to zero, got %+v", v)
	}
	table := asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.SumLengthByStorey, ElementType: "IfcPipeSegment"}))
	want := [][]string{{"Ground", "4.20"}, {"First", "0.00"}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Fatalf("expected %v, got %v", want, table.Rows)
	}
	if !containsNote(table.Notes, "several sets") {
		t.Fatalf("expected a note about the second length set, got %v", table.Notes)
	}
	table = asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.LengthBySystem, ElementType: "IfcPipeSegment"}))
	want = [][]string{{"Potable Water", "Distribution Systems", "4.20"}, {"No system", "-", "0.00"}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Fatalf("expected %v, got %v", want, table.Rows)
	}
}

func TestSpaceQueries(t *testing.T) {
	s := newSession(t, engine.Options{})
	office := queryapi.Filters{SpaceType: "Office"}

	v := asValue(t, run(t, s, queryapi.Request{QueryType: queryapi.ElementsInSpaceType, ElementType: "IfcOutlet", Filters: office}))
	if v.Value != 2 || v.Title != "Outlet in Office spaces" {
		t.Fatalf("unexpected space-type count %+v", v)
	}
	detail := office
	detail.Detail = true
	table := asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.ElementsInSpaceType, ElementType: "IfcOutlet", Filters: detail}))
	if len(table.Rows) != 2 || table.Rows[0][2] != "1.01" || table.Rows[1][3] != "First" {
		t.Fatalf("unexpected detail rows %v", table.Rows)
	}

	v = asValue(t, run(t, s, queryapi.Request{QueryType: queryapi.AreaBySpaceType, Filters: office}))
	if v.Value != 30 || v.Missing != 1 {
		t.Fatalf("unexpected office area %+v", v)
	}
	v = asValue(t, run(t, s, queryapi.Request{QueryType: queryapi.ElementsPerArea, ElementType: "IfcOutlet", Filters: office}))
	if v.Value != 0.067 || v.Unit != queryapi.UnitDensity {
		t.Fatalf("unexpected density %+v", v)
	}

	table = asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.NetAreaPerStorey}))
	want := [][]string{{"Ground", "1", "0.00"}, {"First", "2", "30.00"}}
	if !reflect.DeepEqual(table.Rows, want) || len(table.Notes) != 1 {
		t.Fatalf("unexpected net areas %v notes %v", table.Rows, table.Notes)
	}

	table = asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.ElementsPerSpace, ElementType: "IfcCableCarrierSegment"}))
	want = [][]string{{"1.01", "First", "2"}, {"1.02", "First", "1"}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Fatalf("expected %v, got %v", want, table.Rows)
	}
}

func TestHostQueries(t *testing.T) {
	s := newSession(t, engine.Options{})
	for _, host := range []string{"drywall", "IfcWall", "GKB"} {
		table := asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.ElementsInHost, ElementType: "IfcDoor", Filters: queryapi.Filters{HostType: host}}))
		want := [][]string{{"Door 1", "GKB Wand 100", "IfcWallStandardCase", "Drywall (GKB)"}}
		if !reflect.DeepEqual(table.Rows, want) {
			t.Fatalf("host %q: expected %v, got %v", host, want, table.Rows)
		}
	}
	table := asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.ElementsInHost, ElementType: "IfcDoor", Filters: queryapi.Filters{HostType: "concrete"}}))
	if len(table.Rows) != 0 {
		t.Fatalf("expected no concrete hosts, got %v", table.Rows)
	}
	table = asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.HostClassification, ElementType: "IfcOutlet"}))
	if !reflect.DeepEqual(table.Rows, [][]string{{"No host", "5"}}) {
		t.Fatalf("unexpected classification %v", table.Rows)
	}
}

func TestSystemQueries(t *testing.T) {
	s := newSession(t, engine.Options{})
	table := asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.SystemMembershipListing}))
	if len(table.Sections) != 3 {
		t.Fatalf("expected three kind sections, got %+v", table.Sections)
	}
	circuits := table.Sections[0]
	if circuits.Title != "Electrical Circuits" || !reflect.DeepEqual(circuits.Rows, [][]string{{"Circuit 1", "Distribution Board", "1"}, {"Circuit 1", "Outlet", "2"}}) {
		t.Fatalf("unexpected circuit section %+v", circuits)
	}
	if spare := table.Sections[2]; !reflect.DeepEqual(spare.Rows, [][]string{{"Spare", "-", "0"}}) {
		t.Fatalf("expected empty system listed, got %+v", spare)
	}

	filtered := asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.SystemMembershipListing, ElementType: "IfcOutlet", Filters: queryapi.Filters{System: "circuit"}}))
	if len(filtered.Sections) != 1 || len(filtered.Sections[0].Rows) != 1 {
		t.Fatalf("unexpected filtered listing %+v", filtered.Sections)
	}

	table = asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.UnassignedSystemProducts, ElementType: "IfcPump"}))
	if !reflect.DeepEqual(table.Rows, [][]string{{"Pump 1", "IfcPump", "Unassigned"}}) {
		t.Fatalf("unexpected unassigned rows %v", table.Rows)
	}

	table = asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.ElementsPerCircuit, ElementType: "IfcOutlet"}))
	if !reflect.DeepEqual(table.Rows, [][]string{{"Circuit 1", "2"}}) || len(table.Notes) != 1 {
		t.Fatalf("unexpected circuit rows %v notes %v", table.Rows, table.Notes)
	}
}

func TestPlanningDensityRanking(t *testing.T) {
	s := newSession(t, engine.Options{})
	table := asTable(t, run(t, s, queryapi.Request{
		QueryType:   queryapi.PlanningDensityRanking,
		ElementType: "IfcOutlet",
		Filters:     queryapi.Filters{RankBy: queryapi.RankBySpace, PerArea: true},
	}))
	want := [][]string{{"1.02", "1", "10.00", "0.100"}, {"1.01", "1", "20.00", "0.050"}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Fatalf("expected %v, got %v", want, table.Rows)
	}
	if len(table.Notes) != 1 {
		t.Fatalf("expected note about outlets outside spaces, got %v", table.Notes)
	}

	table = asTable(t, run(t, s, queryapi.Request{
		QueryType:   queryapi.PlanningDensityRanking,
		ElementType: "IfcOutlet",
		Filters:     queryapi.Filters{Limit: 1},
	}))
	if !reflect.DeepEqual(table.Rows, [][]string{{"Ground", "3"}}) {
		t.Fatalf("unexpected storey ranking %v", table.Rows)
	}
}

func TestCompoundFilteredCount(t *testing.T) {
	s := newSession(t, engine.Options{})
	cases := []struct {
		filters queryapi.Filters
		want    float64
		title   string
	}{
		{queryapi.Filters{Storey: "First", SpaceType: "Office"}, 2, "Outlet on First in Office spaces"},
		{queryapi.Filters{Storey: "ground"}, 3, "Outlet on ground"},
		{queryapi.Filters{}, 5, "Outlet total"},
	}
	for _, tc := range cases {
		v := asValue(t, run(t, s, queryapi.Request{QueryType: queryapi.CompoundFilteredCount, ElementType: "IfcOutlet", Filters: tc.filters}))
		if v.Value != tc.want || v.Title != tc.title {
			t.Fatalf("filters %+v: expected %v %q, got %+v", tc.filters, tc.want, tc.title, v)
		}
	}
}

func TestAnalysisQueries(t *testing.T) {
	s := newSession(t, engine.Options{})
	table := asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.ParapetChannels}))
	want := [][]string{
		{"Brüstungskanal 1", "IfcCableCarrierSegment", "First", "name", "-"},
		{"Kanal 2", "IfcCableCarrierSegment", "First", "height", "1.10"},
	}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Fatalf("expected %v, got %v", want, table.Rows)
	}

	table = asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.PipeClassification}))
	want = [][]string{{"Drinking water", "1", "4.20"}, {"Other", "1", "0.00"}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Fatalf("expected %v, got %v", want, table.Rows)
	}

	table = asTable(t, run(t, s, queryapi.Request{QueryType: queryapi.LocateDistributionBoards}))
	if !reflect.DeepEqual(table.Rows, [][]string{{"Board #board", "Ground", "G.01"}}) {
		t.Fatalf("unexpected board locations %v", table.Rows)
	}
}

func TestValidateRejectsBadRequests(t *testing.T) {
	e := NewExecutor()
	s := newSession(t, engine.Options{})
	cases := []struct {
		name string
		req  queryapi.Request
		want error
	}{
		{"empty", queryapi.Request{}, queryapi.ErrInvalidQuery},
		{"unknown", queryapi.Request{QueryType: "count_everything", ElementType: "IfcOutlet"}, queryapi.ErrInvalidQuery},
		{"category mismatch", queryapi.Request{Category: queryapi.CategorySpaces, QueryType: queryapi.CountTotal, ElementType: "IfcOutlet"}, queryapi.ErrInvalidQuery},
		{"rank_by", queryapi.Request{QueryType: queryapi.PlanningDensityRanking, Filters: queryapi.Filters{RankBy: "building"}}, queryapi.ErrInvalidQuery},
		{"limit", queryapi.Request{QueryType: queryapi.ElementsPerSpace, ElementType: "IfcOutlet", Filters: queryapi.Filters{Limit: -1}}, queryapi.ErrInvalidQuery},
		{"element type", queryapi.Request{QueryType: queryapi.CountTotal}, queryapi.ErrMissingParameter},
		{"space type", queryapi.Request{QueryType: queryapi.ComplianceAllSpaces, ElementType: "IfcOutlet"}, queryapi.ErrMissingParameter},
		{"host type", queryapi.Request{QueryType: queryapi.ElementsInHost, ElementType: "IfcDoor", Filters: queryapi.Filters{HostType: "  "}}, queryapi.ErrMissingParameter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := e.Execute(context.Background(), s, tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if res != nil {
				t.Fatalf("expected no partial result, got %+v", res)
			}
		})
	}

	_, err := e.Validate(queryapi.Request{QueryType: queryapi.ElementsPerArea})
	var missing queryapi.MissingParameterError
	if !errors.As(err, &missing) || !reflect.DeepEqual(missing.Parameters, []string{queryapi.ParamElementType, queryapi.ParamSpaceType}) {
		t.Fatalf("expected both parameters reported, got %v", err)
	}

	req, err := e.Validate(queryapi.Request{QueryType: " count_total ", ElementType: "IfcOutlet"})
	if err != nil || req.Category != queryapi.CategoryQuantity {
		t.Fatalf("expected category filled in, got %+v %v", req, err)
	}
}

func TestExecuteHonoursContextAndSession(t *testing.T) {
	e := NewExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := queryapi.Request{QueryType: queryapi.CountTotal, ElementType: "IfcOutlet"}
	if _, err := e.Execute(ctx, newSession(t, engine.Options{}), req); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := e.Execute(context.Background(), nil, req); err == nil {
		t.Fatalf("expected error for nil session")
	}
}

// fullRequest fills every parameter a descriptor declares.
func fullRequest(d queryapi.Descriptor) queryapi.Request {
	req := queryapi.Request{QueryType: d.QueryType}
	for _, p := range d.Parameters {
		switch p.Name {
		case queryapi.ParamElementType:
			req.ElementType = "IfcOutlet"
		case queryapi.ParamSpaceType:
			req.Filters.SpaceType = "Office"
		case queryapi.ParamHostType:
			req.Filters.HostType = "IfcWall"
		case queryapi.ParamStorey:
			req.Filters.Storey = "First"
		case queryapi.ParamRankBy:
			req.Filters.RankBy = queryapi.RankBySpace
		case queryapi.ParamPerArea:
			req.Filters.PerArea = true
		}
	}
	return req
}

func TestCatalogueIsDeterministicAcrossSessions(t *testing.T) {
	e := NewExecutor()
	first := newSession(t, engine.Options{})
	second := newSession(t, engine.Options{})
	catalogue := e.Catalogue()
	if len(catalogue) != 25 {
		t.Fatalf("expected 25 query types, got %d", len(catalogue))
	}
	for _, d := range catalogue {
		req := fullRequest(d)
		a, err := e.Execute(context.Background(), first, req)
		if err != nil {
			t.Fatalf("%s: %v", d.QueryType, err)
		}
		b, err := e.Execute(context.Background(), second, req)
		if err != nil {
			t.Fatalf("%s: %v", d.QueryType, err)
		}
		if a.Kind() != d.Result && !(d.Result == queryapi.KindValue && a.Kind() == queryapi.KindTable) {
			t.Fatalf("%s: declared %s, returned %s", d.QueryType, d.Result, a.Kind())
		}
		ja, err := queryapi.MarshalResult(a)
		if err != nil {
			t.Fatalf("%s: marshal: %v", d.QueryType, err)
		}
		jb, _ := queryapi.MarshalResult(b)
		if !bytes.Equal(ja, jb) {
			t.Fatalf("%s: results differ\n%s\n%s", d.QueryType, ja, jb)
		}
	}
}

func TestDescribeReturnsCopies(t *testing.T) {
	e := NewExecutor()
	d, ok := e.Describe(queryapi.PlanningDensityRanking)
	if !ok {
		t.Fatalf("expected descriptor")
	}
	for i := range d.Parameters {
		if d.Parameters[i].Name == queryapi.ParamRankBy {
			d.Parameters[i].Enum[0] = "mutated"
		}
	}
	again, _ := e.Describe(queryapi.PlanningDensityRanking)
	for _, p := range again.Parameters {
		if p.Name == queryapi.ParamRankBy && p.Enum[0] != string(queryapi.RankByStorey) {
			t.Fatalf("descriptor enum leaked mutation: %v", p.Enum)
		}
	}
	if _, ok := e.Describe("nope"); ok {
		t.Fatalf("expected unknown query type to be absent")
	}
	if got := e.Categories(); len(got) != 10 {
		t.Fatalf("expected ten categories, got %v", got)
	}
}

func containsNote(notes []string, fragment string) bool {
	for _, n := range notes {
		if strings.Contains(n, fragment) {
			return true
		}
	}
	return false
}
