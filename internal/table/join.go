// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

package table

import "fmt"

// Join performs an inner join of left and right on the given key columns.
// Key columns must be string-typed identifiers. Each left row is matched
// against the first right row with the same key; left rows without a match
// are dropped, so the output has at most min(len(left), len(right)) rows
// when keys are unique. The right key column is dropped from the output
// (its values equal the left key); other right columns that collide with a
// left column name are suffixed "_2".
func Join(left, right *Table, leftKey, rightKey string) (*Table, error) {
	lk, err := left.Strings(leftKey)
	if err != nil {
		return nil, fmt.Errorf("join: left key: %w", err)
	}
	rk, err := right.Strings(rightKey)
	if err != nil {
		return nil, fmt.Errorf("join: right key: %w", err)
	}

	// First-match index over the right key. Duplicate keys keep the first
	// occurrence, mirroring the unenforced-uniqueness contract.
	rIndex := make(map[string]int, len(rk))
	for i, k := range rk {
		if _, seen := rIndex[k]; !seen {
			rIndex[k] = i
		}
	}

	var lRows, rRows []int
	for i, k := range lk {
		if j, ok := rIndex[k]; ok {
			lRows = append(lRows, i)
			rRows = append(rRows, j)
		}
	}

	out := New()
	for _, name := range left.names {
		if col, ok := left.strCols[name]; ok {
			vals := make([]string, len(lRows))
			for i, j := range lRows {
				vals[i] = col[j]
			}
			if err := out.AddStrings(name, vals); err != nil {
				return nil, err
			}
			continue
		}
		col := left.numCols[name]
		vals := make([]float64, len(lRows))
		for i, j := range lRows {
			vals[i] = col[j]
		}
		if err := out.AddFloats(name, vals); err != nil {
			return nil, err
		}
	}
	for _, name := range right.names {
		if name == rightKey {
			continue
		}
		outName := name
		if out.HasColumn(outName) {
			outName = name + "_2"
		}
		if col, ok := right.strCols[name]; ok {
			vals := make([]string, len(rRows))
			for i, j := range rRows {
				vals[i] = col[j]
			}
			if err := out.AddStrings(outName, vals); err != nil {
				return nil, err
			}
			continue
		}
		col := right.numCols[name]
		vals := make([]float64, len(rRows))
		for i, j := range rRows {
			vals[i] = col[j]
		}
		if err := out.AddFloats(outName, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}
