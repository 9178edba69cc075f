package dataset

import "strconv"

// Dataset is a small in-memory tabular store: an ordered column list
// plus one map per row. It backs the single-slot upload cache; readers
// must treat it as immutable.
type Dataset struct {
	Columns []string
	Rows    []map[string]any
}

// HasColumns reports whether every named column is present.
func (d *Dataset) HasColumns(cols ...string) bool {
	set := make(map[string]struct{}, len(d.Columns))
	for _, c := range d.Columns {
		set[c] = struct{}{}
	}
	for _, c := range cols {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}

// SumFloat totals a column, coercing numeric strings and skipping
// values that cannot be read as numbers.
func (d *Dataset) SumFloat(col string) float64 {
	var sum float64
	for _, row := range d.Rows {
		v, ok := row[col]
		if !ok {
			continue
		}
		switch x := v.(type) {
		case float64:
			sum += x
		case int:
			sum += float64(x)
		case int64:
			sum += float64(x)
		case string:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				sum += f
			}
		}
	}
	return sum
}

// Len returns the row count.
func (d *Dataset) Len() int { return len(d.Rows) }
