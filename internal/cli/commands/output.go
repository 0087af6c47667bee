package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/pivotsql/pkg/adapter"
	"golang.org/x/term"
)

// resolveFormat turns "auto" into table on a terminal and markdown
// otherwise.
func resolveFormat(w io.Writer, format string) string {
	if format != "auto" && format != "" {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		return "table"
	}
	return "markdown"
}

func renderResult(w io.Writer, res *adapter.Result, format string) error {
	switch format {
	case "json":
		return renderJSON(w, res)
	case "csv":
		newTable(w, res).RenderCSV()
		return nil
	case "md", "markdown":
		if len(res.Rows) == 0 {
			_, _ = fmt.Fprintln(w, "(0 rows)")
			return nil
		}
		newTable(w, res).RenderMarkdown()
		return nil
	default:
		return renderTable(w, res)
	}
}

func newTable(w io.Writer, res *adapter.Result) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	// Header
	headerRow := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	// Rows
	for _, values := range res.Rows {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}
	return t
}

func renderTable(w io.Writer, res *adapter.Result) error {
	if len(res.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	newTable(w, res).Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	return nil
}

func renderJSON(w io.Writer, res *adapter.Result) error {
	results := make([]map[string]any, 0, len(res.Rows))
	for _, values := range res.Rows {
		row := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			val := values[i]
			// Convert []byte to string for readability
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			if s, ok := val.(fmt.Stringer); ok {
				val = s.String()
			}
			row[col] = val
		}
		results = append(results, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}
