package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ErrUnsupportedFormat is returned for upload extensions other than
// csv, xls/xlsx and json.
var ErrUnsupportedFormat = eris.New("unsupported file type, upload CSV, Excel, or JSON")

// Parse sniffs the format from the filename extension and decodes the
// content into a Dataset.
func Parse(filename string, content []byte) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(content)
	case ".xls", ".xlsx":
		return ParseXLSX(content)
	case ".json":
		return ParseJSON(content)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ParseCSV decodes a header-first CSV file. Cell values stay strings;
// SumFloat coerces on read.
func ParseCSV(content []byte) (*Dataset, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read csv")
	}
	if len(records) == 0 {
		return &Dataset{}, nil
	}
	cols := make([]string, len(records[0]))
	for i, c := range records[0] {
		cols[i] = strings.TrimSpace(c)
	}
	d := &Dataset{Columns: cols}
	for _, rec := range records[1:] {
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if i < len(rec) {
				row[c] = rec[i]
			}
		}
		d.Rows = append(d.Rows, row)
	}
	return d, nil
}

// ParseXLSX decodes the first sheet of an Excel workbook, header row
// first.
func ParseXLSX(content []byte) (*Dataset, error) {
	f, err := xlsx.OpenBinary(content)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return &Dataset{}, nil
	}
	sheet := f.Sheets[0]
	d := &Dataset{}
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		if i == 0 {
			d.Columns = cells
			continue
		}
		m := make(map[string]any, len(d.Columns))
		for j, c := range d.Columns {
			if j < len(cells) {
				m[c] = cells[j]
			}
		}
		d.Rows = append(d.Rows, m)
	}
	return d, nil
}

// ParseJSON decodes an array of flat objects. Column order follows
// first appearance across rows.
func ParseJSON(content []byte) (*Dataset, error) {
	var rows []map[string]any
	if err := json.Unmarshal(content, &rows); err != nil {
		return nil, eris.Wrap(err, "dataset: decode json")
	}
	d := &Dataset{}
	seen := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				d.Columns = append(d.Columns, k)
			}
		}
		d.Rows = append(d.Rows, row)
	}
	// map iteration order is random; keep columns deterministic
	sort.Strings(d.Columns)
	return d, nil
}
