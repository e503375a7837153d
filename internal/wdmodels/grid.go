// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

package wdmodels

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/toeirei/corecomposition/internal/table"
)

// Physical constants (SI).
const (
	RadiusSun  = 6.957e8    // m
	MassSun    = 1.9884e30  // kg
	NewtonG    = 6.674e-11  // m^3 kg^-1 s^-2
	PcToM      = 3.086775e16
	SpeedLight = 299792458 // m/s
)

// Grid holds one cooling-model grid: a set of model points with mass in
// solar masses, log10 effective temperature, log10 surface gravity (cgs),
// and synthetic absolute magnitude / color for the manifest's HR bands.
type Grid struct {
	Mass    []float64
	LogTeff []float64
	LogG    []float64
	GAbs    []float64
	BpRp    []float64
}

// grid CSV column names
const (
	colMass    = "mass"
	colLogTeff = "logteff"
	colLogG    = "logg"
	colGAbs    = "g_abs"
	colBpRp    = "bp_rp"
)

// LoadGrid reads a model grid CSV. Relative paths resolve against the
// manifest's directory, so grids can live next to the manifest.
func LoadGrid(spec *GridSpec, manifestPath string) (*Grid, error) {
	path := spec.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(manifestPath), path)
	}
	t, err := table.ReadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("could not load %s grid: %w", spec.Composition, err)
	}
	g := &Grid{}
	for _, c := range []struct {
		name string
		dst  *[]float64
	}{
		{colMass, &g.Mass},
		{colLogTeff, &g.LogTeff},
		{colLogG, &g.LogG},
		{colGAbs, &g.GAbs},
		{colBpRp, &g.BpRp},
	} {
		vals, err := t.Floats(c.name)
		if err != nil {
			return nil, fmt.Errorf("%s grid: %w", spec.Composition, err)
		}
		*c.dst = vals
	}
	if len(g.Mass) == 0 {
		return nil, fmt.Errorf("%s grid %s is empty", spec.Composition, path)
	}
	return g, nil
}

// RSun returns the model radius in solar radii for each grid point,
// derived from mass and surface gravity: r = sqrt(GM/g). The grid's logg
// is cgs, so g divides by 100 to reach m/s^2.
func (g *Grid) RSun() []float64 {
	out := make([]float64, len(g.Mass))
	for i := range g.Mass {
		acc := math.Pow(10, g.LogG[i]) / 100
		out[i] = math.Sqrt(g.Mass[i]*MassSun*NewtonG/acc) / RadiusSun
	}
	return out
}

// Teff returns the effective temperature in K for each grid point.
func (g *Grid) Teff() []float64 {
	out := make([]float64, len(g.LogTeff))
	for i := range g.LogTeff {
		out[i] = math.Pow(10, g.LogTeff[i])
	}
	return out
}
