// Package dataset is the tabular layer between region measurement and
// reporting: an ordered set of named string columns that round-trips
// through CSV.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrRowWidth      = errors.New("row width does not match columns")
)

// Table stores cells as text. Numeric cells are written with FormatFloat and
// read back with ParseFloat; an empty cell is a missing value.
type Table struct {
	Columns []string
	Rows    [][]string
}

func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

func (t *Table) AppendRow(cells []string) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("%w: got %d cells for %d columns", ErrRowWidth, len(cells), len(t.Columns))
	}
	t.Rows = append(t.Rows, append([]string(nil), cells...))
	return nil
}

// Cell returns the text at (row, column name), or "" when the column is absent.
func (t *Table) Cell(row int, name string) string {
	i := t.ColumnIndex(name)
	if i < 0 {
		return ""
	}
	return t.Rows[row][i]
}

// Float parses the cell at (row, column name); missing or non-numeric
// cells are NaN.
func (t *Table) Float(row int, name string) float64 {
	return ParseFloat(t.Cell(row, name))
}

// FloatColumn parses a whole column.
func (t *Table) FloatColumn(name string) ([]float64, error) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	out := make([]float64, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = ParseFloat(row[i])
	}
	return out, nil
}

// SetColumn replaces the values of name, appending the column when absent.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("%w: %d values for %d rows", ErrRowWidth, len(values), len(t.Rows))
	}

	i := t.ColumnIndex(name)
	if i < 0 {
		t.Columns = append(t.Columns, name)
		for r := range t.Rows {
			t.Rows[r] = append(t.Rows[r], values[r])
		}
		return nil
	}
	for r := range t.Rows {
		t.Rows[r][i] = values[r]
	}
	return nil
}

func (t *Table) SetFloatColumn(name string, values []float64) error {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = FormatFloat(v)
	}
	return t.SetColumn(name, cells)
}

// Fill sets every row of name to value.
func (t *Table) Fill(name, value string) error {
	cells := make([]string, len(t.Rows))
	for i := range cells {
		cells[i] = value
	}
	return t.SetColumn(name, cells)
}

// FormatFloat writes the shortest round-trip representation. NaN becomes
// an empty cell and infinities are spelled inf and -inf.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Concat stacks tables vertically. Columns are the union in first-seen
// order; cells of columns a table lacks are left empty. Rows are not
// deduplicated.
func Concat(tables ...*Table) *Table {
	out := &Table{}
	index := map[string]int{}
	for _, t := range tables {
		for _, c := range t.Columns {
			if _, ok := index[c]; !ok {
				index[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}

	for _, t := range tables {
		for _, row := range t.Rows {
			cells := make([]string, len(out.Columns))
			for i, c := range t.Columns {
				cells[index[c]] = row[i]
			}
			out.Rows = append(out.Rows, cells)
		}
	}
	return out
}
