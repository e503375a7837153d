// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil provides the synthetic cooling-model grid and source
// tables shared by the pipeline tests. The grid uses a linear
// mass-radius relation, independent of temperature, so linear
// interpolation recovers it exactly and tests can assert closed-form
// values.
package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/toeirei/corecomposition/internal/wdmodels"
)

// RSunFor is the synthetic mass-radius relation: linear in mass.
func RSunFor(mass float64) float64 { return 0.014 - 0.008*mass }

// GAbsFor is the synthetic HR-diagram relation used by the grids.
func GAbsFor(mass, bpRp float64) float64 { return 10 + 5*mass - 2*bpRp }

// BpRpFor maps the synthetic color to temperature: bp_rp = 2 - teff/1e4.
func BpRpFor(teff float64) float64 { return 2 - teff/10000 }

func loggFor(mass float64) float64 {
	r := RSunFor(mass) * wdmodels.RadiusSun
	gSI := mass * wdmodels.MassSun * wdmodels.NewtonG / (r * r)
	return math.Log10(gSI * 100)
}

// WriteGridCSV writes the synthetic grid (masses 0.6..1.2, teff
// 10000..20000 K) to path.
func WriteGridCSV(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create grid csv: %v", err)
	}
	defer f.Close()
	fmt.Fprintln(f, "mass,logteff,logg,g_abs,bp_rp")
	for _, mass := range []float64{0.6, 0.8, 1.0, 1.2} {
		for _, teff := range []float64{10000, 12500, 15000, 17500, 20000} {
			bpRp := BpRpFor(teff)
			fmt.Fprintf(f, "%g,%g,%g,%g,%g\n",
				mass, math.Log10(teff), loggFor(mass), GAbsFor(mass, bpRp), bpRp)
		}
	}
}

// WriteManifest writes a models.yaml naming the synthetic grid for both
// core compositions and returns its path.
func WriteManifest(t *testing.T, dir string) string {
	t.Helper()
	gridPath := filepath.Join(dir, "grid.csv")
	WriteGridCSV(t, gridPath)
	manifest := `grids:
  - composition: ONe
    file: grid.csv
    atm_type: H
    hr_bands: [bp3-rp3, G3]
    low_mass: ft
    mid_mass: ft
    high_mass: o
  - composition: CO
    file: grid.csv
    atm_type: H
    hr_bands: [bp3-rp3, G3]
    low_mass: ft
    mid_mass: ft
    high_mass: ft
`
	path := filepath.Join(dir, "models.yaml")
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

// LoadModel loads the synthetic grid as the given composition.
func LoadModel(t *testing.T, composition string) *wdmodels.Model {
	t.Helper()
	path := WriteManifest(t, t.TempDir())
	m, err := wdmodels.Load(path, composition)
	if err != nil {
		t.Fatalf("load synthetic model: %v", err)
	}
	return m
}

// ApparentMagFor converts the synthetic absolute magnitude to an apparent
// one for a star at the given parallax in mas.
func ApparentMagFor(gAbs, parallax float64) float64 {
	return gAbs - 5*math.Log10(parallax/100)
}
