package queryapi

import (
	"errors"
	"strings"
	"testing"
)

func TestEnvelopeRoundTripPreservesVariant(t *testing.T) {
	results := []Result{
		ValueResult{Title: "Total IfcOutlet Count", Value: 5, Unit: "items"},
		TableResult{Title: "Systems", Sections: []TableSection{{Title: "Electrical Circuits", Headers: []string{"System", "Members"}, Rows: [][]string{{"C1", "2"}}}}},
		ComplianceResult{Title: "Check", Status: "PASSED", Passed: true, Details: []string{}},
	}
	for _, r := range results {
		data, err := MarshalResult(r)
		if err != nil {
			t.Fatalf("marshal %s: %v", r.Kind(), err)
		}
		if !strings.Contains(string(data), `"kind":"`+string(r.Kind())+`"`) {
			t.Fatalf("expected kind tag in %s", data)
		}
		decoded, err := UnmarshalResult(data)
		if err != nil {
			t.Fatalf("unmarshal %s: %v", r.Kind(), err)
		}
		if decoded.Kind() != r.Kind() || decoded.Heading() != r.Heading() {
			t.Fatalf("expected %s/%s, got %s/%s", r.Kind(), r.Heading(), decoded.Kind(), decoded.Heading())
		}
	}
}

func TestUnmarshalResultRejectsMalformed(t *testing.T) {
	if _, err := UnmarshalResult([]byte(`{"kind":"value"}`)); err == nil {
		t.Fatalf("expected error for missing payload")
	}
	if _, err := UnmarshalResult([]byte(`{`)); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestFormatValue(t *testing.T) {
	if got := FormatValue(ValueResult{Value: 3, Unit: "items"}); got != "3" {
		t.Fatalf("unexpected count format %s", got)
	}
	if got := FormatValue(ValueResult{Value: 4.2, Unit: "m"}); got != "4.20" {
		t.Fatalf("unexpected measure format %s", got)
	}
}

func TestRecordsFlattensSections(t *testing.T) {
	table := TableResult{Sections: []TableSection{
		{Title: "Electrical Circuits", Headers: []string{"System", "Members"}, Rows: [][]string{{"C1", "2"}, {"C2", "0"}}},
		{Title: "Distribution Systems", Headers: []string{"System", "Members"}, Rows: [][]string{{"Supply", "1"}}},
	}}
	rows := Records(table)
	if len(rows) != 4 {
		t.Fatalf("expected header plus three rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "section,System,Members" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[3][0] != "Distribution Systems" || rows[3][1] != "Supply" {
		t.Fatalf("unexpected last row %v", rows[3])
	}
	compliance := Records(ComplianceResult{Title: "t", Status: "FAILED", Details: []string{"R1"}})
	if len(compliance) != 3 || compliance[1][2] != "false" || compliance[2][1] != "R1" {
		t.Fatalf("unexpected compliance records %v", compliance)
	}
}

func TestErrorsMatchSentinels(t *testing.T) {
	var err error = InvalidQueryError{QueryType: "nope", Reason: "unknown query type"}
	if !errors.Is(err, ErrInvalidQuery) || errors.Is(err, ErrMissingParameter) {
		t.Fatalf("unexpected sentinel matching for %v", err)
	}
	err = MissingParameterError{QueryType: CountTotal, Parameters: []string{ParamElementType}}
	if !errors.Is(err, ErrMissingParameter) || !strings.Contains(err.Error(), "element_type") {
		t.Fatalf("unexpected missing parameter error %v", err)
	}
}

func TestRequestNormalizeAndValue(t *testing.T) {
	r := Request{QueryType: " count_total ", ElementType: " IfcOutlet ", Filters: Filters{SpaceType: " Office", RankBy: "space "}}.Normalize()
	if r.QueryType != CountTotal || r.Value(ParamElementType) != "IfcOutlet" || r.Value(ParamSpaceType) != "Office" || r.Value(ParamRankBy) != "space" {
		t.Fatalf("unexpected normalized request %+v", r)
	}
	if r.Value("unknown") != "" {
		t.Fatalf("expected empty value for unknown parameter")
	}
}
