package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"ifcquery/internal/adapters/queries"
	"ifcquery/pkg/queryapi"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// writeResult prints result as a text report, or in one of the export
// formats rendered by the HTTP adapter.
func writeResult(w io.Writer, result queryapi.Result, format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == formatText {
		return writeReport(w, result)
	}
	rendered, err := queries.Render(result, queryapi.Format(format))
	if err != nil {
		return err
	}
	if _, err := w.Write(rendered.Payload); err != nil {
		return err
	}
	if rendered.Format == queryapi.FormatJSON {
		_, err = fmt.Fprintln(w)
	}
	return err
}

func writeReport(w io.Writer, result queryapi.Result) error {
	switch r := result.(type) {
	case queryapi.ValueResult:
		_, err := fmt.Fprintf(w, "%s: %s %s\n", r.Title, queryapi.FormatValue(r), r.Unit)
		if err == nil && r.Missing > 0 {
			_, err = fmt.Fprintf(w, "  %d element(s) without a measurement counted as zero\n", r.Missing)
		}
		return err
	case queryapi.ComplianceResult:
		if _, err := fmt.Fprintf(w, "%s: %s\n", r.Title, r.Status); err != nil {
			return err
		}
		for _, d := range r.Details {
			if _, err := fmt.Fprintf(w, "  - %s\n", d); err != nil {
				return err
			}
		}
		return nil
	case queryapi.TableResult:
		if _, err := fmt.Fprintln(w, r.Title); err != nil {
			return err
		}
		records := queryapi.Records(r)
		if len(records) > 0 {
			if err := writeTable(w, records[0], records[1:]); err != nil {
				return err
			}
		}
		for _, note := range r.Notes {
			if _, err := fmt.Fprintf(w, "note: %s\n", note); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unsupported result %T", result)
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func elevation(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
