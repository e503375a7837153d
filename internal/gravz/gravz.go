// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Package gravz derives gravitational-redshift velocities from the
// cooling-model grids: a white dwarf of mass M and radius R shifts its
// spectral lines by v_g = GM / (cR).
package gravz

import (
	"math"

	"github.com/toeirei/corecomposition/internal/wdmodels"
)

// Velocity returns the gravitational-redshift velocity in km/s for a
// white dwarf of the given radius (solar radii) and effective
// temperature (K), with the mass taken from the model grid. NaN radii or
// off-grid points yield NaN.
func Velocity(m *wdmodels.Model, radius, teff float64) float64 {
	if math.IsNaN(radius) || math.IsNaN(teff) {
		return math.NaN()
	}
	mass := m.MassAt(radius, teff) * wdmodels.MassSun
	r := radius * wdmodels.RadiusSun
	rv := wdmodels.NewtonG * mass / (wdmodels.SpeedLight * r)
	return rv * 1e-3
}

// Curve evaluates Velocity over an array of radii at a fixed temperature.
// It backs the model curves drawn by the verbose analyze diagnostics.
func Curve(m *wdmodels.Model, radii []float64, teff float64) []float64 {
	out := make([]float64, len(radii))
	for i, r := range radii {
		out[i] = Velocity(m, r, teff)
	}
	return out
}

// RadiusRange returns n evenly spaced radii across [lo, hi], the sampling
// the diagnostics use for the model curves.
func RadiusRange(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
