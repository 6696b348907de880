package queries

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"

	"ifcquery/pkg/queryapi"
)

// Rendered is a query result encoded in one export format.
type Rendered struct {
	Format      queryapi.Format
	ContentType string
	Payload     []byte
}

var htmlPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body><h1>{{.Title}}</h1>
<table>{{if .Header}}<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>{{end}}
<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody></table>
{{if .Notes}}<ul>{{range .Notes}}<li>{{.}}</li>{{end}}</ul>{{end}}
</body></html>
`))

type htmlView struct {
	Title  string
	Header []string
	Rows   [][]string
	Notes  []string
}

// Render encodes result in format. JSON uses the tagged result envelope; CSV
// and HTML use the flattened record form.
func Render(result queryapi.Result, format queryapi.Format) (Rendered, error) {
	if result == nil {
		return Rendered{}, fmt.Errorf("render: nil result")
	}
	switch format {
	case queryapi.FormatJSON:
		payload, err := queryapi.MarshalResult(result)
		if err != nil {
			return Rendered{}, fmt.Errorf("render json: %w", err)
		}
		return Rendered{Format: format, ContentType: "application/json", Payload: payload}, nil
	case queryapi.FormatCSV:
		var buf bytes.Buffer
		if err := writeRecords(&buf, queryapi.Records(result)); err != nil {
			return Rendered{}, fmt.Errorf("render csv: %w", err)
		}
		return Rendered{Format: format, ContentType: "text/csv", Payload: buf.Bytes()}, nil
	case queryapi.FormatHTML:
		records := queryapi.Records(result)
		view := htmlView{Title: result.Heading()}
		if len(records) > 0 {
			view.Header, view.Rows = records[0], records[1:]
		}
		if table, ok := result.(queryapi.TableResult); ok {
			view.Notes = table.Notes
		}
		var buf bytes.Buffer
		if err := htmlPage.Execute(&buf, view); err != nil {
			return Rendered{}, fmt.Errorf("render html: %w", err)
		}
		return Rendered{Format: format, ContentType: "text/html; charset=utf-8", Payload: buf.Bytes()}, nil
	}
	return Rendered{}, fmt.Errorf("unsupported export format %q", format)
}

func writeRecords(buf *bytes.Buffer, records [][]string) error {
	w := csv.NewWriter(buf)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Error()
}
