// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Package catalog builds the white-dwarf + main-sequence candidate
// catalog: absolute magnitudes, optional dereddening, astrometric quality
// cuts, and the high-mass selection against the cooling-model grid.
package catalog

import (
	"fmt"
	"math"

	"github.com/toeirei/corecomposition/internal/config"
	"github.com/toeirei/corecomposition/internal/logging"
	"github.com/toeirei/corecomposition/internal/table"
	"github.com/toeirei/corecomposition/internal/wdmodels"
)

// Column names of the source pair table the builder consumes.
const (
	ColSourceID    = "source_id"
	ColWDSourceID  = "wd_source_id"
	ColWDPhotGMag  = "wd_phot_g_mean_mag"
	ColWDBpRp      = "wd_bp_rp"
	ColWDAbsMagG   = "wd_m_g"
	ColWDMassPhot  = "wd_mass_phot"
	ColParallax    = "parallax"
	ColParallaxSNR = "parallax_over_error"
	ColRUWE        = "ruwe"
	ColExtinctionG = "wd_a_g"
	ColReddening   = "wd_e_bp_rp"
)

// Build derives the candidate catalog from the source pair table and
// returns it together with the high-mass subset. The input table must
// carry the pair identifiers, white-dwarf photometry, and parallaxes;
// quality-cut columns are applied only when present.
func Build(src *table.Table, params config.CatalogConfig, model *wdmodels.Model, deredden bool) (cat, highmass *table.Table, err error) {
	for _, col := range []string{ColSourceID, ColWDSourceID, ColWDPhotGMag, ColWDBpRp, ColParallax} {
		if !src.HasColumn(col) {
			return nil, nil, fmt.Errorf("source table is missing column %q", col)
		}
	}

	gMag, err := src.Floats(ColWDPhotGMag)
	if err != nil {
		return nil, nil, err
	}
	bpRp, err := src.Floats(ColWDBpRp)
	if err != nil {
		return nil, nil, err
	}
	parallax, err := src.Floats(ColParallax)
	if err != nil {
		return nil, nil, err
	}

	// Dereddening corrects the photometry in place before any magnitudes
	// or masses derive from it.
	if deredden {
		if err := applyDereddening(src, gMag, bpRp); err != nil {
			return nil, nil, err
		}
	}

	// Absolute magnitude from the parallax distance: parallax is in mas,
	// so distance[pc] = 1000/parallax and m - M = 5 log10(d/10).
	absMag := make([]float64, len(gMag))
	for i := range gMag {
		if parallax[i] <= 0 {
			absMag[i] = math.NaN()
			continue
		}
		absMag[i] = gMag[i] + 5*math.Log10(parallax[i]/100)
	}
	if err := src.AddFloats(ColWDAbsMagG, absMag); err != nil {
		return nil, nil, err
	}

	cat, err = src.Select(qualityMask(src, params))
	if err != nil {
		return nil, nil, err
	}
	logging.Infof("catalog: %d of %d pairs pass quality cuts", cat.NumRows(), src.NumRows())

	highmass, err = selectHighMass(cat, params.MassCut, model)
	if err != nil {
		return nil, nil, err
	}
	logging.Infof("catalog: %d high-mass candidates above %.2f Msun", highmass.NumRows(), params.MassCut)
	return cat, highmass, nil
}

// applyDereddening subtracts the extinction columns from the white-dwarf
// photometry when they are present.
func applyDereddening(src *table.Table, gMag, bpRp []float64) error {
	if !src.HasColumn(ColExtinctionG) || !src.HasColumn(ColReddening) {
		logging.Warnf("catalog: --deredden set but %s/%s columns are missing; skipping", ColExtinctionG, ColReddening)
		return nil
	}
	aG, err := src.Floats(ColExtinctionG)
	if err != nil {
		return err
	}
	eBpRp, err := src.Floats(ColReddening)
	if err != nil {
		return err
	}
	for i := range gMag {
		if !math.IsNaN(aG[i]) {
			gMag[i] -= aG[i]
		}
		if !math.IsNaN(eBpRp[i]) {
			bpRp[i] -= eBpRp[i]
		}
	}
	logging.Debugf("catalog: dereddened %d rows", len(gMag))
	return nil
}

// qualityMask applies the astrometric cuts from config. A cut whose
// column is absent from the table is skipped with a warning rather than
// failing the build.
func qualityMask(src *table.Table, params config.CatalogConfig) []bool {
	mask := make([]bool, src.NumRows())
	for i := range mask {
		mask[i] = true
	}
	apply := func(col string, keep func(v float64) bool) {
		if !src.HasColumn(col) {
			logging.Warnf("catalog: no %s column; skipping cut", col)
			return
		}
		vals, err := src.Floats(col)
		if err != nil {
			logging.Warnf("catalog: %s is not numeric; skipping cut", col)
			return
		}
		for i, v := range vals {
			if math.IsNaN(v) || !keep(v) {
				mask[i] = false
			}
		}
	}
	apply(ColParallax, func(v float64) bool { return v >= params.MinParallax })
	apply(ColParallaxSNR, func(v float64) bool { return v >= params.MinParallaxOverError })
	apply(ColRUWE, func(v float64) bool { return v <= params.MaxRUWE })
	return mask
}

// selectHighMass keeps candidates whose photometric model mass reaches
// the configured cut and records the mass estimate in a new column.
// Candidates off the model grid (NaN mass) never pass.
func selectHighMass(cat *table.Table, massCut float64, model *wdmodels.Model) (*table.Table, error) {
	bpRp, err := cat.Floats(ColWDBpRp)
	if err != nil {
		return nil, err
	}
	absMag, err := cat.Floats(ColWDAbsMagG)
	if err != nil {
		return nil, err
	}

	masses := make([]float64, cat.NumRows())
	mask := make([]bool, cat.NumRows())
	for i := range masses {
		masses[i] = model.PhotometricMassAt(bpRp[i], absMag[i])
		mask[i] = !math.IsNaN(masses[i]) && masses[i] >= massCut
	}

	if err := cat.AddFloats(ColWDMassPhot, masses); err != nil {
		return nil, err
	}
	return cat.Select(mask)
}
