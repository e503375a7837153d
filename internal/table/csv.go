// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ReadCSV reads a table from a CSV file. A column is numeric when every
// non-empty cell parses as a float; empty cells become NaN. Identifier
// columns (names ending in "_id") always stay strings: Gaia source ids
// are 19-digit integers and do not survive a float64 round-trip. Files
// ending in .zst are decompressed transparently.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open table: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("could not create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return readCSV(r)
}

func readCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	cells := make([][]string, len(headers))
	numeric := make([]bool, len(headers))
	for i := range numeric {
		numeric[i] = !strings.HasSuffix(headers[i], "_id")
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		for i := range headers {
			var val string
			if i < len(row) {
				val = strings.TrimSpace(row[i])
			}
			cells[i] = append(cells[i], val)
			if numeric[i] && val != "" {
				if _, err := strconv.ParseFloat(val, 64); err != nil {
					numeric[i] = false
				}
			}
		}
	}

	t := New()
	for i, name := range headers {
		if numeric[i] {
			vals := make([]float64, len(cells[i]))
			for j, s := range cells[i] {
				if s == "" {
					vals[j] = math.NaN()
					continue
				}
				vals[j], _ = strconv.ParseFloat(s, 64)
			}
			if err := t.AddFloats(name, vals); err != nil {
				return nil, err
			}
			continue
		}
		if err := t.AddStrings(name, cells[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// WriteCSV writes the table to a CSV file, overwriting any existing file.
// NaN is written as an empty cell. Files ending in .zst are compressed.
func WriteCSV(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create table file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var w io.Writer = f
	var zw *zstd.Encoder
	if strings.HasSuffix(path, ".zst") {
		zw, err = zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("could not create zstd writer: %w", err)
		}
		w = zw
	}
	if err := writeCSV(t, w); err != nil {
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("could not finish zstd stream: %w", err)
		}
	}
	return nil
}

func writeCSV(t *Table, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.names); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	row := make([]string, len(t.names))
	for i := 0; i < t.rows; i++ {
		for c, name := range t.names {
			if col, ok := t.strCols[name]; ok {
				row[c] = col[i]
				continue
			}
			v := t.numCols[name][i]
			if math.IsNaN(v) {
				row[c] = ""
				continue
			}
			row[c] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
