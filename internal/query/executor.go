// Package query translates structured requests into aggregations over an
// engine session and shapes the answers into result variants.
package query

import (
	"context"
	"fmt"
	"sort"

	"ifcquery/internal/engine"
	"ifcquery/pkg/queryapi"
)

type runner func(s *engine.Session, req queryapi.Request) queryapi.Result

type template struct {
	desc queryapi.Descriptor
	run  runner
}

// Executor dispatches requests to the query catalogue. It is stateless and
// safe for concurrent use.
type Executor struct {
	templates map[queryapi.QueryType]template
	order     []queryapi.QueryType
}

// NewExecutor returns an executor with the full catalogue registered.
func NewExecutor() *Executor {
	e := &Executor{templates: make(map[queryapi.QueryType]template)}
	for _, tpl := range catalogue() {
		e.templates[tpl.desc.QueryType] = tpl
		e.order = append(e.order, tpl.desc.QueryType)
	}
	return e
}

// Catalogue returns every descriptor in registration order.
func (e *Executor) Catalogue() []queryapi.Descriptor {
	out := make([]queryapi.Descriptor, 0, len(e.order))
	for _, key := range e.order {
		out = append(out, cloneDescriptor(e.templates[key].desc))
	}
	return out
}

// Describe returns the descriptor for one query type.
func (e *Executor) Describe(queryType queryapi.QueryType) (queryapi.Descriptor, bool) {
	tpl, ok := e.templates[queryType]
	if !ok {
		return queryapi.Descriptor{}, false
	}
	return cloneDescriptor(tpl.desc), true
}

// Categories returns the categories in use, sorted.
func (e *Executor) Categories() []queryapi.Category {
	seen := make(map[queryapi.Category]bool)
	var out []queryapi.Category
	for _, key := range e.order {
		c := e.templates[key].desc.Category
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate normalizes req and checks it against the catalogue. The error is
// an InvalidQueryError or a MissingParameterError.
func (e *Executor) Validate(req queryapi.Request) (queryapi.Request, error) {
	req = req.Normalize()
	if req.QueryType == "" {
		return req, queryapi.InvalidQueryError{Reason: "query_type required"}
	}
	tpl, ok := e.templates[req.QueryType]
	if !ok {
		return req, queryapi.InvalidQueryError{QueryType: req.QueryType, Reason: "unknown query type"}
	}
	if req.Category != "" && req.Category != tpl.desc.Category {
		return req, queryapi.InvalidQueryError{
			QueryType: req.QueryType,
			Reason:    fmt.Sprintf("belongs to category %q, not %q", tpl.desc.Category, req.Category),
		}
	}
	switch req.Filters.RankBy {
	case "", queryapi.RankByStorey, queryapi.RankBySpace:
	default:
		return req, queryapi.InvalidQueryError{QueryType: req.QueryType, Reason: fmt.Sprintf("unknown rank_by %q", req.Filters.RankBy)}
	}
	if req.Filters.Limit < 0 {
		return req, queryapi.InvalidQueryError{QueryType: req.QueryType, Reason: "limit must not be negative"}
	}
	var missing []string
	for _, name := range tpl.desc.Required() {
		if req.Value(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return req, queryapi.MissingParameterError{QueryType: req.QueryType, Parameters: missing}
	}
	req.Category = tpl.desc.Category
	return req, nil
}

// Execute validates req and runs it against s. Invalid requests are never
// partially executed.
func (e *Executor) Execute(ctx context.Context, s *engine.Session, req queryapi.Request) (queryapi.Result, error) {
	req, err := e.Validate(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("execute %s: nil session", req.QueryType)
	}
	return e.templates[req.QueryType].run(s, req), nil
}

func cloneDescriptor(d queryapi.Descriptor) queryapi.Descriptor {
	params := make([]queryapi.Parameter, len(d.Parameters))
	for i, p := range d.Parameters {
		p.Enum = append([]string(nil), p.Enum...)
		params[i] = p
	}
	d.Parameters = params
	return d
}
