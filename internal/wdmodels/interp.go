// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

package wdmodels

import (
	"fmt"
	"math"
	"sort"
)

// xyzInterpolator performs linear z(x, y) lookups over grid points
// organized as tracks of constant z-parameter (here: constant mass).
// A query first interpolates along each track at x, yielding one (y, z)
// pair per covering track, then interpolates across tracks at y.
// Queries outside the grid hull return NaN, matching the behavior the
// pipeline expects from a linear scattered-data interpolation.
type xyzInterpolator struct {
	tracks []ipTrack
}

// hullEps is the relative tolerance applied at the hull edges.
const hullEps = 1e-9

type ipTrack struct {
	xs []float64 // sorted ascending
	ys []float64
	zs []float64
}

// newXYZInterpolator groups the points by the track key (one track per
// distinct key value) and sorts each track by x.
func newXYZInterpolator(key, x, y, z []float64) (*xyzInterpolator, error) {
	if len(key) != len(x) || len(x) != len(y) || len(y) != len(z) {
		return nil, fmt.Errorf("interpolator inputs have mismatched lengths")
	}
	byKey := make(map[float64][]int)
	for i := range key {
		byKey[key[i]] = append(byKey[key[i]], i)
	}
	keys := make([]float64, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	ip := &xyzInterpolator{}
	for _, k := range keys {
		idx := byKey[k]
		sort.Slice(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
		tr := ipTrack{
			xs: make([]float64, len(idx)),
			ys: make([]float64, len(idx)),
			zs: make([]float64, len(idx)),
		}
		for i, j := range idx {
			tr.xs[i] = x[j]
			tr.ys[i] = y[j]
			tr.zs[i] = z[j]
		}
		if len(tr.xs) >= 2 {
			ip.tracks = append(ip.tracks, tr)
		}
	}
	if len(ip.tracks) < 2 {
		return nil, fmt.Errorf("interpolator needs at least two tracks with two points each, have %d", len(ip.tracks))
	}
	return ip, nil
}

// at evaluates z at (x, y), or NaN outside the hull.
func (ip *xyzInterpolator) at(x, y float64) float64 {
	type sample struct{ y, z float64 }
	var samples []sample
	for _, tr := range ip.tracks {
		yi, zi, ok := tr.at(x)
		if ok {
			samples = append(samples, sample{yi, zi})
		}
	}
	if len(samples) < 2 {
		return math.NaN()
	}
	sort.Slice(samples, func(a, b int) bool { return samples[a].y < samples[b].y })
	yMin, yMax := samples[0].y, samples[len(samples)-1].y
	// Tolerate rounding at the hull edge so grid-node queries that land a
	// few ulps outside still resolve.
	eps := hullEps * (yMax - yMin)
	if y < yMin-eps || y > yMax+eps {
		return math.NaN()
	}
	y = math.Min(math.Max(y, yMin), yMax)
	i := sort.Search(len(samples), func(i int) bool { return samples[i].y >= y })
	if i == 0 {
		return samples[0].z
	}
	lo, hi := samples[i-1], samples[i]
	if hi.y == lo.y {
		return lo.z
	}
	f := (y - lo.y) / (hi.y - lo.y)
	return lo.z + f*(hi.z-lo.z)
}

// at interpolates the track's y and z at x. ok is false when x falls
// outside the track's sampled range.
func (tr *ipTrack) at(x float64) (y, z float64, ok bool) {
	xMin, xMax := tr.xs[0], tr.xs[len(tr.xs)-1]
	eps := hullEps * (xMax - xMin)
	if x < xMin-eps || x > xMax+eps {
		return 0, 0, false
	}
	x = math.Min(math.Max(x, xMin), xMax)
	i := sort.SearchFloat64s(tr.xs, x)
	if i < len(tr.xs) && tr.xs[i] == x {
		return tr.ys[i], tr.zs[i], true
	}
	lo, hi := i-1, i
	f := (x - tr.xs[lo]) / (tr.xs[hi] - tr.xs[lo])
	return tr.ys[lo] + f*(tr.ys[hi]-tr.ys[lo]), tr.zs[lo] + f*(tr.zs[hi]-tr.zs[lo]), true
}

// Model is a loaded cooling-model grid with its derived lookups.
type Model struct {
	Spec *GridSpec
	Grid *Grid

	massLookup     *xyzInterpolator // (teff, rsun) -> mass
	radiusLookup   *xyzInterpolator // (bp_rp, g_abs) -> rsun
	photMassLookup *xyzInterpolator // (bp_rp, g_abs) -> mass
	teffLookup     *xyzInterpolator // (bp_rp, g_abs) -> teff
}

// Load reads the manifest, loads the grid for the given composition, and
// builds its lookups. Grids load once; lookups are pure afterwards.
func Load(manifestPath, composition string) (*Model, error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	spec, err := m.Spec(composition)
	if err != nil {
		return nil, err
	}
	grid, err := LoadGrid(spec, manifestPath)
	if err != nil {
		return nil, err
	}
	return newModel(spec, grid)
}

func newModel(spec *GridSpec, grid *Grid) (*Model, error) {
	rsun := grid.RSun()
	teff := grid.Teff()
	massLookup, err := newXYZInterpolator(grid.Mass, teff, rsun, grid.Mass)
	if err != nil {
		return nil, fmt.Errorf("%s mass lookup: %w", spec.Composition, err)
	}
	radiusLookup, err := newXYZInterpolator(grid.Mass, grid.BpRp, grid.GAbs, rsun)
	if err != nil {
		return nil, fmt.Errorf("%s radius lookup: %w", spec.Composition, err)
	}
	photMassLookup, err := newXYZInterpolator(grid.Mass, grid.BpRp, grid.GAbs, grid.Mass)
	if err != nil {
		return nil, fmt.Errorf("%s photometric mass lookup: %w", spec.Composition, err)
	}
	teffLookup, err := newXYZInterpolator(grid.Mass, grid.BpRp, grid.GAbs, teff)
	if err != nil {
		return nil, fmt.Errorf("%s teff lookup: %w", spec.Composition, err)
	}
	return &Model{
		Spec:           spec,
		Grid:           grid,
		massLookup:     massLookup,
		radiusLookup:   radiusLookup,
		photMassLookup: photMassLookup,
		teffLookup:     teffLookup,
	}, nil
}

// MassAt returns the model mass in solar masses for a white dwarf of the
// given radius (solar radii) and effective temperature (K), or NaN when
// the point falls outside the grid.
func (m *Model) MassAt(radius, teff float64) float64 {
	return m.massLookup.at(teff, radius)
}

// RadiusAt returns the model radius in solar radii for a white dwarf at
// the given color and absolute magnitude, or NaN outside the grid.
func (m *Model) RadiusAt(bpRp, gAbs float64) float64 {
	return m.radiusLookup.at(bpRp, gAbs)
}

// PhotometricMassAt returns the model mass in solar masses for a white
// dwarf at the given color and absolute magnitude, or NaN outside the
// grid. The build stage's high-mass cut runs on this lookup.
func (m *Model) PhotometricMassAt(bpRp, gAbs float64) float64 {
	return m.photMassLookup.at(bpRp, gAbs)
}

// TeffAt returns the model effective temperature in K for a white dwarf
// at the given color and absolute magnitude, or NaN outside the grid.
func (m *Model) TeffAt(bpRp, gAbs float64) float64 {
	return m.teffLookup.at(bpRp, gAbs)
}
