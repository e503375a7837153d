// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Package photometry measures white-dwarf radii from photometry. Each
// configured engine is a cooling-model grid; the radius comes from the
// grid's HR-diagram lookup, with errors propagated by Monte-Carlo draws
// over the photometric uncertainties.
package photometry

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/toeirei/corecomposition/internal/catalog"
	"github.com/toeirei/corecomposition/internal/config"
	"github.com/toeirei/corecomposition/internal/logging"
	"github.com/toeirei/corecomposition/internal/table"
	"github.com/toeirei/corecomposition/internal/wdmodels"
)

// Optional per-band uncertainty columns of the highmass table. When a
// column is missing every row falls back to the matching default.
const (
	ColGMagErr = "wd_phot_g_mean_mag_error"
	ColBpRpErr = "wd_bp_rp_error"

	defaultGMagErr = 0.02
	defaultBpRpErr = 0.03
)

// MeasureRadii runs every engine over the high-mass candidates and
// returns the radii table (keyed by source_id, one radius/error/failed
// column triple per engine) along with the engine key list.
func MeasureRadii(highmass *table.Table, params config.RadiusConfig, models map[string]*wdmodels.Model) (*table.Table, []string, error) {
	engines := params.EngineList()
	if len(engines) == 0 {
		return nil, nil, fmt.Errorf("no radius engines configured")
	}
	nDraws := params.NDraws
	if nDraws < 1 {
		nDraws = 1
	}

	wdIDs, err := highmass.Strings(catalog.ColWDSourceID)
	if err != nil {
		return nil, nil, err
	}
	bpRp, err := highmass.Floats(catalog.ColWDBpRp)
	if err != nil {
		return nil, nil, err
	}
	absMag, err := highmass.Floats(catalog.ColWDAbsMagG)
	if err != nil {
		return nil, nil, err
	}
	gErr := errColumn(highmass, ColGMagErr, defaultGMagErr)
	cErr := errColumn(highmass, ColBpRpErr, defaultBpRpErr)

	out := table.New()
	// The radii table is keyed by the white dwarf's own identifier under
	// the plain source_id name, which is what the build join expects on
	// its right side.
	if err := out.AddStrings(catalog.ColSourceID, wdIDs); err != nil {
		return nil, nil, err
	}

	rng := rand.New(rand.NewPCG(params.Seed, params.Seed))
	for _, engine := range engines {
		model, ok := models[engine]
		if !ok {
			return nil, nil, fmt.Errorf("no model grid loaded for engine %q", engine)
		}
		radii := make([]float64, len(wdIDs))
		errs := make([]float64, len(wdIDs))
		failed := make([]float64, len(wdIDs))
		nFailed := 0
		for i := range wdIDs {
			r, e := measureOne(rng, model, bpRp[i], absMag[i], cErr[i], gErr[i], nDraws)
			radii[i], errs[i] = r, e
			if math.IsNaN(r) {
				failed[i] = 1
				nFailed++
			}
		}
		if err := out.AddFloats(engine+"_radius", radii); err != nil {
			return nil, nil, err
		}
		if err := out.AddFloats(engine+"_e_radius", errs); err != nil {
			return nil, nil, err
		}
		if err := out.AddFloats(engine+"_failed", failed); err != nil {
			return nil, nil, err
		}
		logging.Infof("radius: engine %s measured %d of %d candidates", engine, len(wdIDs)-nFailed, len(wdIDs))
	}
	return out, engines, nil
}

// measureOne estimates one radius by drawing the photometry nDraws times
// from Gaussians and taking the mean and standard deviation of the
// in-grid draws. The measurement fails (NaN) when more than half the
// draws land off the grid.
func measureOne(rng *rand.Rand, model *wdmodels.Model, bpRp, gAbs, cErr, gErr float64, nDraws int) (radius, radiusErr float64) {
	if math.IsNaN(bpRp) || math.IsNaN(gAbs) {
		return math.NaN(), math.NaN()
	}
	var sum, sumSq float64
	var n int
	for d := 0; d < nDraws; d++ {
		c := bpRp + rng.NormFloat64()*cErr
		m := gAbs + rng.NormFloat64()*gErr
		r := model.RadiusAt(c, m)
		if math.IsNaN(r) {
			continue
		}
		sum += r
		sumSq += r * r
		n++
	}
	if n == 0 || n < (nDraws+1)/2 {
		return math.NaN(), math.NaN()
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

func errColumn(t *table.Table, name string, fallback float64) []float64 {
	if t.HasColumn(name) && t.IsNumeric(name) {
		vals, _ := t.Floats(name)
		out := make([]float64, len(vals))
		for i, v := range vals {
			if math.IsNaN(v) {
				out[i] = fallback
				continue
			}
			out[i] = v
		}
		return out
	}
	out := make([]float64, t.NumRows())
	for i := range out {
		out[i] = fallback
	}
	return out
}
