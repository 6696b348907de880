package queryapi

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ResultKind names a result variant.
type ResultKind string

// Result variants.
const (
	KindValue      ResultKind = "value"
	KindTable      ResultKind = "table"
	KindCompliance ResultKind = "compliance"
)

// Result is one of ValueResult, TableResult or ComplianceResult.
type Result interface {
	Kind() ResultKind
	Heading() string
	isResult()
}

// ValueResult is a single number with its unit. Missing counts inputs that
// had no measurement and contributed zero.
type ValueResult struct {
	Title   string  `json:"title"`
	Value   float64 `json:"value"`
	Unit    string  `json:"unit"`
	Missing int     `json:"missing,omitempty"`
}

// TableSection is a titled sub-table of a TableResult.
type TableSection struct {
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// TableResult is a headed table, optionally split into sections.
type TableResult struct {
	Title    string         `json:"title"`
	Headers  []string       `json:"headers"`
	Rows     [][]string     `json:"rows"`
	Sections []TableSection `json:"sections,omitempty"`
	Notes    []string       `json:"notes,omitempty"`
}

// ComplianceResult is the outcome of a rule check.
type ComplianceResult struct {
	Title   string   `json:"title"`
	Status  string   `json:"status"`
	Passed  bool     `json:"passed"`
	Details []string `json:"details"`
}

func (ValueResult) Kind() ResultKind      { return KindValue }
func (TableResult) Kind() ResultKind      { return KindTable }
func (ComplianceResult) Kind() ResultKind { return KindCompliance }

func (r ValueResult) Heading() string      { return r.Title }
func (r TableResult) Heading() string      { return r.Title }
func (r ComplianceResult) Heading() string { return r.Title }

func (ValueResult) isResult()      {}
func (TableResult) isResult()      {}
func (ComplianceResult) isResult() {}

// FormatValue renders a value for display: integral counts without decimals,
// densities with three and measures with two.
func FormatValue(r ValueResult) string {
	switch r.Unit {
	case UnitItems, UnitRooms, UnitDevices:
		return strconv.FormatInt(int64(r.Value), 10)
	case UnitDensity:
		return strconv.FormatFloat(r.Value, 'f', 3, 64)
	}
	return strconv.FormatFloat(r.Value, 'f', 2, 64)
}

// Units used by count-like results.
const (
	UnitItems   = "items"
	UnitRooms   = "rooms"
	UnitDevices = "devices"
	UnitDensity = "items/m²"
)

// Envelope is the JSON form of a Result, tagged with its kind.
type Envelope struct {
	Kind       ResultKind        `json:"kind"`
	Value      *ValueResult      `json:"value,omitempty"`
	Table      *TableResult      `json:"table,omitempty"`
	Compliance *ComplianceResult `json:"compliance,omitempty"`
}

// Wrap returns the envelope for r.
func Wrap(r Result) Envelope {
	switch v := r.(type) {
	case ValueResult:
		return Envelope{Kind: KindValue, Value: &v}
	case TableResult:
		return Envelope{Kind: KindTable, Table: &v}
	case ComplianceResult:
		return Envelope{Kind: KindCompliance, Compliance: &v}
	}
	return Envelope{}
}

// Result unwraps the envelope.
func (e Envelope) Result() (Result, error) {
	switch {
	case e.Kind == KindValue && e.Value != nil:
		return *e.Value, nil
	case e.Kind == KindTable && e.Table != nil:
		return *e.Table, nil
	case e.Kind == KindCompliance && e.Compliance != nil:
		return *e.Compliance, nil
	}
	return nil, fmt.Errorf("queryapi: malformed result envelope of kind %q", e.Kind)
}

// MarshalResult encodes r as an Envelope.
func MarshalResult(r Result) ([]byte, error) {
	return json.Marshal(Wrap(r))
}

// UnmarshalResult decodes an Envelope produced by MarshalResult.
func UnmarshalResult(data []byte) (Result, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("queryapi: decode result: %w", err)
	}
	return env.Result()
}

// Records flattens a result into rows for tabular export. The first row is
// the header; sections are prefixed with their title.
func Records(r Result) [][]string {
	switch v := r.(type) {
	case ValueResult:
		return [][]string{{"title", "value", "unit"}, {v.Title, FormatValue(v), v.Unit}}
	case ComplianceResult:
		out := [][]string{{"title", "status", "passed"}, {v.Title, v.Status, strconv.FormatBool(v.Passed)}}
		for _, d := range v.Details {
			out = append(out, []string{"", d, ""})
		}
		return out
	case TableResult:
		if len(v.Sections) == 0 {
			out := [][]string{append([]string(nil), v.Headers...)}
			for _, row := range v.Rows {
				out = append(out, append([]string(nil), row...))
			}
			return out
		}
		var out [][]string
		for i, section := range v.Sections {
			if i == 0 {
				out = append(out, append([]string{"section"}, section.Headers...))
			}
			for _, row := range section.Rows {
				out = append(out, append([]string{section.Title}, row...))
			}
		}
		return out
	}
	return nil
}
