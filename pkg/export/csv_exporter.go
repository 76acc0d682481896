package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// Field is a labelled value printed above or below a table.
type Field struct {
	Label string
	Value string
}

// Dataset is the content shared by the CSV and PDF renderers. Rows are keyed
// by header so column order is decided in one place.
type Dataset struct {
	Title   string
	Summary []Field
	Headers []string
	Rows    []map[string]string
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		out[i] = row[header]
	}
	return out
}

// CSVExporter renders a Dataset as spreadsheet-safe CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes the table, then a blank line and one label,value record per
// summary field.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}

	records := make([][]string, 0, len(data.Rows)+len(data.Summary)+2)
	records = append(records, data.Headers)
	for _, row := range data.Rows {
		records = append(records, data.record(row))
	}
	if len(data.Summary) > 0 {
		records = append(records, []string{""})
		for _, f := range data.Summary {
			records = append(records, []string{f.Label, f.Value})
		}
	}
	for _, record := range records {
		for i := range record {
			record[i] = neutralize(record[i])
		}
	}

	var buf bytes.Buffer
	if err := csv.NewWriter(&buf).WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// neutralize stops spreadsheet apps from evaluating user-entered text such as
// payment references. Negative amounts are left alone.
func neutralize(cell string) string {
	if cell == "" {
		return cell
	}
	switch cell[0] {
	case '=', '+', '@', '\t', '\r':
		return "'" + cell
	case '-':
		if _, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64); err == nil {
			return cell
		}
		return "'" + cell
	}
	return cell
}
