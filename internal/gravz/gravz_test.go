package gravz

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/toeirei/corecomposition/internal/wdmodels"
)

// rsunFor mirrors the synthetic mass-radius relation used across the
// model-grid fixtures: linear in mass, independent of temperature.
func rsunFor(mass float64) float64 { return 0.014 - 0.008*mass }

func loggFor(mass float64) float64 {
	r := rsunFor(mass) * wdmodels.RadiusSun
	gSI := mass * wdmodels.MassSun * wdmodels.NewtonG / (r * r)
	return math.Log10(gSI * 100)
}

func fixtureModel(t *testing.T) *wdmodels.Model {
	t.Helper()
	dir := t.TempDir()
	gridPath := filepath.Join(dir, "co_grid.csv")
	f, err := os.Create(gridPath)
	if err != nil {
		t.Fatalf("create grid: %v", err)
	}
	fmt.Fprintln(f, "mass,logteff,logg,g_abs,bp_rp")
	for _, mass := range []float64{0.6, 0.9, 1.2} {
		for _, teff := range []float64{10000, 15000, 20000} {
			bpRp := 2 - teff/10000
			fmt.Fprintf(f, "%g,%g,%g,%g,%g\n",
				mass, math.Log10(teff), loggFor(mass), 10+5*mass-2*bpRp, bpRp)
		}
	}
	f.Close()

	manifest := "grids:\n  - composition: CO\n    file: co_grid.csv\n    atm_type: H\n    hr_bands: [bp3-rp3, G3]\n    low_mass: ft\n    mid_mass: ft\n    high_mass: ft\n"
	manifestPath := filepath.Join(dir, "models.yaml")
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	m, err := wdmodels.Load(manifestPath, wdmodels.CompositionCO)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestVelocity_MatchesGMOverCR(t *testing.T) {
	m := fixtureModel(t)
	mass := 0.9
	r := rsunFor(mass)
	want := wdmodels.NewtonG * mass * wdmodels.MassSun /
		(wdmodels.SpeedLight * r * wdmodels.RadiusSun) * 1e-3

	got := Velocity(m, r, 15000)
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("Velocity = %v km/s, want %v", got, want)
	}
	// Massive white dwarfs sit in the tens of km/s.
	if got < 10 || got > 200 {
		t.Fatalf("Velocity = %v km/s, outside physical range", got)
	}
}

func TestVelocity_NaNPropagates(t *testing.T) {
	m := fixtureModel(t)
	if v := Velocity(m, math.NaN(), 15000); !math.IsNaN(v) {
		t.Fatalf("NaN radius returned %v", v)
	}
	if v := Velocity(m, 0.5, 15000); !math.IsNaN(v) {
		t.Fatalf("off-grid radius returned %v", v)
	}
}

func TestCurve_MonotonicInRadius(t *testing.T) {
	m := fixtureModel(t)
	radii := RadiusRange(rsunFor(1.2), rsunFor(0.6), 20)
	curve := Curve(m, radii, 15000)
	if len(curve) != len(radii) {
		t.Fatalf("curve length %d, want %d", len(curve), len(radii))
	}
	// Smaller radius means larger mass and larger redshift.
	for i := 1; i < len(curve); i++ {
		if math.IsNaN(curve[i]) || math.IsNaN(curve[i-1]) {
			t.Fatalf("curve has NaN inside the grid: %v", curve)
		}
		if curve[i] >= curve[i-1] {
			t.Fatalf("curve not decreasing with radius at %d: %v >= %v", i, curve[i], curve[i-1])
		}
	}
}

func TestRadiusRange_Endpoints(t *testing.T) {
	r := RadiusRange(0.0045, 0.007, 100)
	if len(r) != 100 {
		t.Fatalf("len = %d, want 100", len(r))
	}
	if r[0] != 0.0045 || math.Abs(r[99]-0.007) > 1e-12 {
		t.Fatalf("endpoints = %v, %v", r[0], r[99])
	}
}
