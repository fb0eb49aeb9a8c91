package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"dbaccess/internal/normalize"
	"dbaccess/internal/storage"

	"github.com/cockroachdb/errors"
	"github.com/jedib0t/go-pretty/v6/table"
)

var formats = []string{"table", "json", "csv", "md"}

func checkFormat(format string) error {
	if format == "" || slices.Contains(formats, format) {
		return nil
	}
	return errors.WithHint(errors.Newf("unknown format %q", format), "use one of table, json, csv, md")
}

func renderRows(w io.Writer, rows []*storage.Row, format string) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if rows == nil {
			rows = []*storage.Row{}
		}
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	cols := rows[0].Columns()
	t := newTable(w, cols...)
	for _, r := range rows {
		out := make(table.Row, 0, len(cols))
		for _, c := range cols {
			v, _ := r.Get(c)
			out = append(out, cell(v))
		}
		t.AppendRow(out)
	}
	if err := renderTable(t, format); err != nil {
		return err
	}
	if format == "table" {
		_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	}
	return nil
}

func renderSchema(w io.Writer, name string, cs *storage.ColumnSchema, format string) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cs)
	}
	t := newTable(w, "column", "type")
	t.SetTitle(name)
	for _, c := range cs.Columns() {
		typ, _ := cs.Type(c)
		t.AppendRow(table.Row{c, typ})
	}
	return renderTable(t, format)
}

func renderResult(w io.Writer, res storage.OperationResult) error {
	_, _ = fmt.Fprintln(w, res.String())
	if !res.Success {
		return errors.Newf("statement failed: %s", res.Error)
	}
	return nil
}

func newTable(w io.Writer, header ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	h := make(table.Row, len(header))
	for i, c := range header {
		h[i] = c
	}
	t.AppendHeader(h)
	return t
}

func renderTable(t table.Writer, format string) error {
	switch format {
	case "", "table":
		t.Render()
	case "csv":
		t.RenderCSV()
	case "md":
		t.RenderMarkdown()
	default:
		return errors.Newf("unknown format %q; use one of %v", format, formats)
	}
	return nil
}

func cell(v any) string {
	if v == nil {
		return "NULL"
	}
	return normalize.Text(v)
}
