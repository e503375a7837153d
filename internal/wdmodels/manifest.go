// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Package wdmodels loads white-dwarf cooling-model grids and provides the
// linear lookups the pipeline derives masses and radii from. A YAML
// manifest names one grid file per core composition; each grid is a CSV
// of cooling tracks (constant mass, sampled in effective temperature)
// carrying synthetic photometry for the configured HR-diagram bands.
package wdmodels

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Core compositions the pipeline knows about.
const (
	CompositionONe = "ONe" // oxygen/neon core
	CompositionCO  = "CO"  // carbon/oxygen core
)

// GridSpec describes one model grid in the manifest.
type GridSpec struct {
	Composition string   `yaml:"composition"`
	File        string   `yaml:"file"`
	AtmType     string   `yaml:"atm_type"`
	HRBands     []string `yaml:"hr_bands"`
	LowMass     string   `yaml:"low_mass"`
	MidMass     string   `yaml:"mid_mass"`
	HighMass    string   `yaml:"high_mass"`
}

// Manifest lists the available model grids.
type Manifest struct {
	Grids []GridSpec `yaml:"grids"`
}

// LoadManifest reads and parses the YAML grid manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read model manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("could not parse model manifest: %w", err)
	}
	if len(m.Grids) == 0 {
		return nil, fmt.Errorf("model manifest %s lists no grids", path)
	}
	return &m, nil
}

// Spec returns the grid spec for the given core composition.
func (m *Manifest) Spec(composition string) (*GridSpec, error) {
	for i := range m.Grids {
		if m.Grids[i].Composition == composition {
			return &m.Grids[i], nil
		}
	}
	return nil, fmt.Errorf("no %s grid in manifest", composition)
}
