// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Package rv turns the per-exposure radial-velocity table into one
// measurement per source: an inverse-variance weighted mean with its
// error and the exposure-to-exposure spread. Sources whose spread
// exceeds the configured limit are dropped as unstable fits.
package rv

import (
	"fmt"
	"math"

	"github.com/toeirei/corecomposition/internal/config"
	"github.com/toeirei/corecomposition/internal/logging"
	"github.com/toeirei/corecomposition/internal/model"
	"github.com/toeirei/corecomposition/internal/table"
)

// Column names of the observation table.
const (
	ColSourceID = "source_id"
	ColRV       = "rv"
	ColRVErr    = "e_rv"
	ColSpread   = "rv_spread"
	ColNExp     = "n_exp"
)

// MeasureRVs aggregates the exposure table per source and filters on the
// spread cut. The returned table keeps sources in order of first
// appearance; the slice carries the same measurements for persistence.
func MeasureRVs(obs *table.Table, params config.RVConfig) (*table.Table, []model.RVMeasurement, error) {
	ids, err := obs.Strings(ColSourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("observation table: %w", err)
	}
	rvs, err := obs.Floats(ColRV)
	if err != nil {
		return nil, nil, fmt.Errorf("observation table: %w", err)
	}
	errs, err := obs.Floats(ColRVErr)
	if err != nil {
		return nil, nil, fmt.Errorf("observation table: %w", err)
	}

	type agg struct {
		wSum, wvSum float64
		min, max    float64
		n           int
	}
	byID := make(map[string]*agg)
	var order []string
	for i, id := range ids {
		if math.IsNaN(rvs[i]) || math.IsNaN(errs[i]) || errs[i] <= 0 {
			continue
		}
		a, ok := byID[id]
		if !ok {
			a = &agg{min: rvs[i], max: rvs[i]}
			byID[id] = a
			order = append(order, id)
		}
		w := 1 / (errs[i] * errs[i])
		a.wSum += w
		a.wvSum += w * rvs[i]
		a.min = math.Min(a.min, rvs[i])
		a.max = math.Max(a.max, rvs[i])
		a.n++
	}

	var out []model.RVMeasurement
	for _, id := range order {
		a := byID[id]
		m := model.RVMeasurement{
			SourceID: id,
			RV:       a.wvSum / a.wSum,
			RVE:      math.Sqrt(1 / a.wSum),
			Spread:   a.max - a.min,
			NExp:     a.n,
		}
		if m.Spread >= params.MaxSpread {
			logging.Debugf("rv: dropping %s, spread %.3f km/s over %d exposures", id, m.Spread, m.NExp)
			continue
		}
		out = append(out, m)
	}
	logging.Infof("rv: measured %d WD RVs from %d sources", len(out), len(order))

	t := table.New()
	idCol := make([]string, len(out))
	rvCol := make([]float64, len(out))
	errCol := make([]float64, len(out))
	spreadCol := make([]float64, len(out))
	nCol := make([]float64, len(out))
	for i, m := range out {
		idCol[i] = m.SourceID
		rvCol[i] = m.RV
		errCol[i] = m.RVE
		spreadCol[i] = m.Spread
		nCol[i] = float64(m.NExp)
	}
	if err := t.AddStrings(ColSourceID, idCol); err != nil {
		return nil, nil, err
	}
	if err := t.AddFloats(ColRV, rvCol); err != nil {
		return nil, nil, err
	}
	if err := t.AddFloats(ColRVErr, errCol); err != nil {
		return nil, nil, err
	}
	if err := t.AddFloats(ColSpread, spreadCol); err != nil {
		return nil, nil, err
	}
	if err := t.AddFloats(ColNExp, nCol); err != nil {
		return nil, nil, err
	}
	return t, out, nil
}
