// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Package table implements the small column-oriented table the pipeline
// moves between its stages. Columns are either string-typed (identifiers)
// or float64-typed (measured and derived quantities); NaN marks a missing
// numeric value. The operations are the ones the pipeline needs and no
// more: CSV round-trips, inner joins on identifier columns, masking,
// sorting, and column arithmetic.
package table

import (
	"fmt"
	"math"
	"sort"
)

// Table is an ordered collection of named, equal-length columns.
type Table struct {
	names   []string
	strCols map[string][]string
	numCols map[string][]float64
	rows    int
}

// New returns an empty table.
func New() *Table {
	return &Table{
		strCols: make(map[string][]string),
		numCols: make(map[string][]float64),
	}
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// Names returns the column names in insertion order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, s := t.strCols[name]
	_, n := t.numCols[name]
	return s || n
}

// IsNumeric reports whether the named column holds float64 values.
func (t *Table) IsNumeric(name string) bool {
	_, ok := t.numCols[name]
	return ok
}

// AddStrings appends a string column. The column length must match the
// table's row count unless the table is empty.
func (t *Table) AddStrings(name string, vals []string) error {
	if err := t.checkAdd(name, len(vals)); err != nil {
		return err
	}
	t.strCols[name] = vals
	t.names = append(t.names, name)
	t.rows = len(vals)
	return nil
}

// AddFloats appends a numeric column. The column length must match the
// table's row count unless the table is empty.
func (t *Table) AddFloats(name string, vals []float64) error {
	if err := t.checkAdd(name, len(vals)); err != nil {
		return err
	}
	t.numCols[name] = vals
	t.names = append(t.names, name)
	t.rows = len(vals)
	return nil
}

func (t *Table) checkAdd(name string, n int) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(t.names) > 0 && n != t.rows {
		return fmt.Errorf("column %q has %d rows, table has %d", name, n, t.rows)
	}
	return nil
}

// Strings returns the named string column, or an error if it is missing
// or numeric.
func (t *Table) Strings(name string) ([]string, error) {
	if col, ok := t.strCols[name]; ok {
		return col, nil
	}
	if _, ok := t.numCols[name]; ok {
		return nil, fmt.Errorf("column %q is numeric, not string", name)
	}
	return nil, fmt.Errorf("no column %q", name)
}

// Floats returns the named numeric column, or an error if it is missing
// or string-typed.
func (t *Table) Floats(name string) ([]float64, error) {
	if col, ok := t.numCols[name]; ok {
		return col, nil
	}
	if _, ok := t.strCols[name]; ok {
		return nil, fmt.Errorf("column %q is string, not numeric", name)
	}
	return nil, fmt.Errorf("no column %q", name)
}

// Select returns a new table containing only the rows where mask is true.
func (t *Table) Select(mask []bool) (*Table, error) {
	if len(mask) != t.rows {
		return nil, fmt.Errorf("mask has %d entries, table has %d rows", len(mask), t.rows)
	}
	out := New()
	for _, name := range t.names {
		if col, ok := t.strCols[name]; ok {
			kept := make([]string, 0, len(col))
			for i, v := range col {
				if mask[i] {
					kept = append(kept, v)
				}
			}
			if err := out.AddStrings(name, kept); err != nil {
				return nil, err
			}
			continue
		}
		col := t.numCols[name]
		kept := make([]float64, 0, len(col))
		for i, v := range col {
			if mask[i] {
				kept = append(kept, v)
			}
		}
		if err := out.AddFloats(name, kept); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SortBy sorts the table rows ascending by the named column. The sort is
// stable; NaN values sort last.
func (t *Table) SortBy(name string) error {
	if !t.HasColumn(name) {
		return fmt.Errorf("no column %q", name)
	}
	idx := make([]int, t.rows)
	for i := range idx {
		idx[i] = i
	}
	if col, ok := t.numCols[name]; ok {
		sort.SliceStable(idx, func(a, b int) bool {
			va, vb := col[idx[a]], col[idx[b]]
			if math.IsNaN(va) {
				return false
			}
			if math.IsNaN(vb) {
				return true
			}
			return va < vb
		})
	} else {
		col := t.strCols[name]
		sort.SliceStable(idx, func(a, b int) bool { return col[idx[a]] < col[idx[b]] })
	}
	t.reorder(idx)
	return nil
}

func (t *Table) reorder(idx []int) {
	for name, col := range t.strCols {
		next := make([]string, len(col))
		for i, j := range idx {
			next[i] = col[j]
		}
		t.strCols[name] = next
	}
	for name, col := range t.numCols {
		next := make([]float64, len(col))
		for i, j := range idx {
			next[i] = col[j]
		}
		t.numCols[name] = next
	}
}
