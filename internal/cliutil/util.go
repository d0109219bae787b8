package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/item"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
)

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(s) {
	case FormatTable, FormatJSON:
		return OutputFormat(s)
	default:
		return FormatTable
	}
}

func PrintJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// PrintItems renders items with one column per name. Null cells are blank.
func PrintItems(w io.Writer, format OutputFormat, columns []string, items []*item.Item) error {
	if format == FormatJSON {
		if items == nil {
			items = []*item.Item{}
		}
		return PrintJSON(w, items)
	}
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, it := range items {
		row := make(table.Row, len(columns))
		for i, c := range columns {
			row[i] = value.Canonical(it.Get(c))
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d rows", len(items))})
	t.Render()
	return nil
}

// PrintValues renders a name to value map as a two-column table, sorted by
// name.
func PrintValues(w io.Writer, format OutputFormat, values map[string]value.Value) error {
	if format == FormatJSON {
		return PrintJSON(w, values)
	}
	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"name", "value"})
	for _, n := range names {
		v := values[n]
		cell := value.Canonical(v)
		if v.IsNull() {
			cell = "null"
		}
		t.AppendRow(table.Row{n, cell})
	}
	t.Render()
	return nil
}

// PrintTable renders a plain header and rows.
func PrintTable(w io.Writer, header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	h := make(table.Row, len(header))
	for i, c := range header {
		h[i] = c
	}
	t.AppendHeader(h)
	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, c := range r {
			row[i] = c
		}
		t.AppendRow(row)
	}
	t.Render()
}
