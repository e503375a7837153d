// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model holds the plain data structures shared between the
// pipeline stages and the storage layer.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Candidate is one white-dwarf + main-sequence pair from the source catalog.
// SourceID identifies the pair (the main-sequence star's identifier);
// WDSourceID identifies the white dwarf component.
type Candidate struct {
	SourceID     string
	WDSourceID   string
	WDPhotGMag   float64
	WDBpRp       float64
	WDAbsMagG    float64
	Parallax     float64
	MSRadialVel  float64
	MSRadialVelE float64
}

// String returns the wd@pair representation used in log lines.
func (c Candidate) String() string {
	return fmt.Sprintf("%s (wd %s)", c.SourceID, c.WDSourceID)
}

// RadiusMeasurement is one photometric radius estimate for a white dwarf,
// produced by a named measurement engine.
type RadiusMeasurement struct {
	SourceID string
	Engine   string
	Radius   float64 // solar radii
	RadiusE  float64
	Failed   bool
}

// RVMeasurement is the per-source aggregate of the exposure-level radial
// velocities measured in analyze mode. Velocities are in km/s.
type RVMeasurement struct {
	SourceID string  `json:"source_id"`
	RV       float64 `json:"rv"`
	RVE      float64 `json:"e_rv"`
	Spread   float64 `json:"rv_spread"`
	NExp     int     `json:"n_exp"`
}

// Target is one row of the joined targets table: a candidate with its
// radius measurements attached and, after analyze, its gravitational
// redshift.
type Target struct {
	SourceID   string
	WDSourceID string
	WDPhotGMag float64
	WDAbsMagG  float64
	WDBpRp     float64
	MSRV       float64
	MSRVE      float64
	GravZ      float64
	GravZE     float64
}

// targetJSON is the wire form of Target for backups. Unmeasured values
// are NaN in memory, which encoding/json rejects, so they serialize as
// null through optional pointers.
type targetJSON struct {
	SourceID   string   `json:"source_id"`
	WDSourceID string   `json:"wd_source_id"`
	WDPhotGMag *float64 `json:"wd_phot_g_mean_mag"`
	WDAbsMagG  *float64 `json:"wd_m_g"`
	WDBpRp     *float64 `json:"wd_bp_rp"`
	MSRV       *float64 `json:"ms_rv"`
	MSRVE      *float64 `json:"ms_erv"`
	GravZ      *float64 `json:"gravz"`
	GravZE     *float64 `json:"e_gravz"`
}

func optFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func floatOrNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// MarshalJSON writes NaN fields as null.
func (t Target) MarshalJSON() ([]byte, error) {
	return json.Marshal(targetJSON{
		SourceID:   t.SourceID,
		WDSourceID: t.WDSourceID,
		WDPhotGMag: optFloat(t.WDPhotGMag),
		WDAbsMagG:  optFloat(t.WDAbsMagG),
		WDBpRp:     optFloat(t.WDBpRp),
		MSRV:       optFloat(t.MSRV),
		MSRVE:      optFloat(t.MSRVE),
		GravZ:      optFloat(t.GravZ),
		GravZE:     optFloat(t.GravZE),
	})
}

// UnmarshalJSON restores null fields as NaN.
func (t *Target) UnmarshalJSON(data []byte) error {
	var w targetJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Target{
		SourceID:   w.SourceID,
		WDSourceID: w.WDSourceID,
		WDPhotGMag: floatOrNaN(w.WDPhotGMag),
		WDAbsMagG:  floatOrNaN(w.WDAbsMagG),
		WDBpRp:     floatOrNaN(w.WDBpRp),
		MSRV:       floatOrNaN(w.MSRV),
		MSRVE:      floatOrNaN(w.MSRVE),
		GravZ:      floatOrNaN(w.GravZ),
		GravZE:     floatOrNaN(w.GravZE),
	}
	return nil
}

// RunLogEntry records one pipeline stage execution for provenance.
type RunLogEntry struct {
	ID        int       `json:"id"`
	Stage     string    `json:"stage"` // "build" or "analyze"
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// BackupData is the envelope for a full database export.
type BackupData struct {
	Version    int             `json:"version"`
	ExportedAt string          `json:"exported_at"`
	Targets    []Target        `json:"targets"`
	RVs        []RVMeasurement `json:"rvs"`
	RunLog     []RunLogEntry   `json:"run_log"`
}
