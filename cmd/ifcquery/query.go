package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ifcquery/internal/core"
	"ifcquery/pkg/queryapi"
)

// loadModel opens a service without blob storage and loads the graph
// document at path into it.
func (a *app) loadModel(ctx context.Context, path string, extra ...core.Option) (*core.Service, core.Model, error) {
	if path == "" {
		return nil, core.Model{}, fmt.Errorf("--model is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, core.Model{}, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	svc := core.NewService(append(a.serviceOptions(), extra...)...)
	model, err := svc.LoadModelJSON(ctx, f)
	if err != nil {
		return nil, core.Model{}, fmt.Errorf("load %s: %w", path, err)
	}
	return svc, model, nil
}

type queryFlags struct {
	model    string
	format   string
	category string
	element  string
	request  string
	filters  queryapi.Filters
	rankBy   string
}

func newQueryCmd(a *app) *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "query <query-type>",
		Short: "Run one query against a graph document",
		Example: `  ifcquery query count_total --model office.json --element outlet
  ifcquery query count_by_storey --model office.json --element IfcOutlet --format csv
  ifcquery query --model office.json --request '{"query_type":"count_rooms"}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.build(args)
			if err != nil {
				return err
			}
			svc, model, err := a.loadModel(cmd.Context(), f.model)
			if err != nil {
				return err
			}
			result, err := svc.Query(cmd.Context(), model.ID, req)
			if err != nil {
				return err
			}
			return writeResult(a.stdout, result, f.format)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.model, "model", "m", "", "graph document (JSON)")
	flags.StringVarP(&f.format, "format", "f", formatText, "output format: text, json, csv or html")
	flags.StringVar(&f.request, "request", "", "full request as JSON; replaces the other query flags")
	flags.StringVar(&f.category, "category", "", "query category; must match the query type when given")
	flags.StringVarP(&f.element, "element", "e", "", "element type, e.g. IfcOutlet or outlet")
	flags.StringVar(&f.filters.Storey, "storey", "", "storey name or id")
	flags.StringVar(&f.filters.SpaceType, "space-type", "", "space name or usage")
	flags.StringVar(&f.filters.HostType, "host-type", "", "host material class")
	flags.StringVar(&f.filters.System, "system", "", "system name")
	flags.StringVar(&f.rankBy, "rank-by", "", "ranking grouping: storey or space")
	flags.BoolVar(&f.filters.PerArea, "per-area", false, "normalise counts by floor area")
	flags.BoolVar(&f.filters.Detail, "detail", false, "list elements instead of counting them")
	flags.IntVar(&f.filters.Limit, "limit", 0, "maximum rows for ranked results")
	return cmd
}

func (f queryFlags) build(args []string) (queryapi.Request, error) {
	if f.request != "" {
		var req queryapi.Request
		dec := json.NewDecoder(strings.NewReader(f.request))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return queryapi.Request{}, fmt.Errorf("parse --request: %w", err)
		}
		if len(args) == 1 && req.QueryType == "" {
			req.QueryType = queryapi.QueryType(args[0])
		}
		return req, nil
	}
	if len(args) == 0 {
		return queryapi.Request{}, fmt.Errorf("a query type is required; see 'ifcquery catalog'")
	}
	req := queryapi.Request{
		Category:    queryapi.Category(f.category),
		QueryType:   queryapi.QueryType(args[0]),
		ElementType: f.element,
		Filters:     f.filters,
	}
	req.Filters.RankBy = queryapi.RankBy(f.rankBy)
	return req, nil
}

func newTypesCmd(a *app) *cobra.Command {
	var model, format string
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the element types of a graph document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, m, err := a.loadModel(cmd.Context(), model)
			if err != nil {
				return err
			}
			types, err := svc.ElementTypes(m.ID)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(a.stdout, map[string]any{"element_types": types})
			}
			rows := make([][]string, 0, len(types))
			for _, t := range types {
				rows = append(rows, []string{t.Type, t.DisplayName, fmt.Sprint(t.Count)})
			}
			return writeTable(a.stdout, []string{"TYPE", "NAME", "COUNT"}, rows)
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "graph document (JSON)")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text or json")
	return cmd
}

func newStoreysCmd(a *app) *cobra.Command {
	var model, format string
	cmd := &cobra.Command{
		Use:   "storeys",
		Short: "List the storeys of a graph document in elevation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, m, err := a.loadModel(cmd.Context(), model)
			if err != nil {
				return err
			}
			storeys, err := svc.Storeys(m.ID)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(a.stdout, map[string]any{"storeys": storeys, "unassigned": m.Unassigned})
			}
			rows := make([][]string, 0, len(storeys)+1)
			for _, st := range storeys {
				rows = append(rows, []string{st.Name, elevation(st.Elevation), fmt.Sprint(st.Products)})
			}
			rows = append(rows, []string{"Unassigned", "-", fmt.Sprint(m.Unassigned)})
			return writeTable(a.stdout, []string{"STOREY", "ELEVATION", "PRODUCTS"}, rows)
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "graph document (JSON)")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text or json")
	return cmd
}

func newCatalogCmd(a *app) *cobra.Command {
	var format, category string
	cmd := &cobra.Command{
		Use:     "catalog",
		Aliases: []string{"catalogue"},
		Short:   "List the supported query types and their parameters",
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			svc := core.NewService(a.serviceOptions()...)
			var entries []queryapi.Descriptor
			for _, d := range svc.Catalogue() {
				if category == "" || strings.EqualFold(string(d.Category), category) {
					entries = append(entries, d)
				}
			}
			if format == formatJSON {
				return writeJSON(a.stdout, map[string]any{"queries": entries})
			}
			rows := make([][]string, 0, len(entries))
			for _, d := range entries {
				required := strings.Join(d.Required(), ",")
				if required == "" {
					required = "-"
				}
				rows = append(rows, []string{string(d.QueryType), string(d.Category), string(d.Result), required, d.Title})
			}
			return writeTable(a.stdout, []string{"QUERY", "CATEGORY", "RESULT", "REQUIRED", "TITLE"}, rows)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text or json")
	cmd.Flags().StringVar(&category, "category", "", "only list this category")
	return cmd
}
