// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Package pipeline wires the two stages together: build assembles the
// high-mass targets table from the source catalog and the cooling-model
// radii; analyze folds the measured white-dwarf radial velocities in and
// derives the gravitational-redshift velocities.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/toeirei/corecomposition/internal/catalog"
	"github.com/toeirei/corecomposition/internal/config"
	"github.com/toeirei/corecomposition/internal/db"
	"github.com/toeirei/corecomposition/internal/logging"
	"github.com/toeirei/corecomposition/internal/model"
	"github.com/toeirei/corecomposition/internal/photometry"
	"github.com/toeirei/corecomposition/internal/plot"
	"github.com/toeirei/corecomposition/internal/rv"
	"github.com/toeirei/corecomposition/internal/table"
	"github.com/toeirei/corecomposition/internal/wdmodels"
)

// Columns of the targets table beyond those the catalog defines. The
// main-sequence radial velocity pair comes straight from the source
// catalog; the gravz pair is added by analyze.
const (
	ColMSRV   = "ms_rv"
	ColMSRVE  = "ms_erv"
	ColGravZ  = "gravz"
	ColGravZE = "e_gravz"
)

// BuildOptions carries the build-stage paths and switches from the CLI.
type BuildOptions struct {
	SourcePath   string
	CatFile      string
	HighmassPath string
	RadiusPath   string
	Deredden     bool
	PlotRadii    bool
	PlotWriter   io.Writer
}

// AnalyzeOptions carries the analyze-stage paths from the CLI.
type AnalyzeOptions struct {
	TargetsPath string
	ObsPath     string
	OutFile     string
	RVPath      string
}

// Build runs the build stage: catalog construction, per-engine radius
// measurement, the catalog-radii join, and the magnitude sort. Results
// are written to the configured paths and, when a database is
// initialized, persisted as the targets table.
func Build(cfg config.Config, opts BuildOptions) error {
	models, err := loadModels(cfg)
	if err != nil {
		return err
	}
	massModel, ok := models[cfg.Models.Composition]
	if !ok {
		massModel, err = wdmodels.Load(cfg.Models.Manifest, cfg.Models.Composition)
		if err != nil {
			return fmt.Errorf("mass-cut model: %w", err)
		}
	}

	src, err := table.ReadCSV(opts.SourcePath)
	if err != nil {
		return fmt.Errorf("source table: %w", err)
	}
	logging.Infof("build: read %d source pairs from %s", src.NumRows(), opts.SourcePath)

	cat, highmass, err := catalog.Build(src, cfg.Catalog, massModel, opts.Deredden)
	if err != nil {
		return err
	}
	if opts.HighmassPath != "" {
		if err := writeTable(highmass, opts.HighmassPath); err != nil {
			return err
		}
	}

	radii, engines, err := photometry.MeasureRadii(highmass, cfg.Radius, models)
	if err != nil {
		return err
	}
	if opts.RadiusPath != "" {
		if err := writeTable(radii, opts.RadiusPath); err != nil {
			return err
		}
	}

	targets, err := table.Join(highmass, radii, catalog.ColWDSourceID, catalog.ColSourceID)
	if err != nil {
		return fmt.Errorf("catalog-radii join: %w", err)
	}
	if err := targets.SortBy(catalog.ColWDPhotGMag); err != nil {
		return err
	}
	logging.Infof("build: %d targets after join", targets.NumRows())

	if opts.CatFile != "" {
		if err := writeTable(targets, opts.CatFile); err != nil {
			return err
		}
	}

	if opts.PlotRadii {
		if err := plotDiagnostics(opts.plotWriter(), massModel, cat, highmass, radii, engines); err != nil {
			logging.Warnf("build: radius plot failed: %v", err)
		}
	}

	if db.IsInitialized() {
		rows, err := targetRows(targets)
		if err != nil {
			return err
		}
		if err := db.ReplaceTargets(rows); err != nil {
			return fmt.Errorf("persist targets: %w", err)
		}
		details := fmt.Sprintf("source: %s, pairs: %d, targets: %d, engines: %v",
			opts.SourcePath, src.NumRows(), targets.NumRows(), engines)
		if err := db.LogRun("build", details); err != nil {
			return fmt.Errorf("run log: %w", err)
		}
	}
	return nil
}

// Analyze runs the analyze stage: aggregate the per-exposure radial
// velocities, join them onto the targets table, and derive the
// gravitational-redshift velocity per target.
func Analyze(cfg config.Config, opts AnalyzeOptions) error {
	targets, err := table.ReadCSV(opts.TargetsPath)
	if err != nil {
		return fmt.Errorf("targets table: %w", err)
	}
	for _, col := range []string{catalog.ColSourceID, ColMSRV, ColMSRVE} {
		if !targets.HasColumn(col) {
			return fmt.Errorf("targets table is missing column %q", col)
		}
	}

	obs, err := table.ReadCSV(opts.ObsPath)
	if err != nil {
		return fmt.Errorf("observation table: %w", err)
	}
	logging.Infof("analyze: %d targets, %d exposures", targets.NumRows(), obs.NumRows())

	rvTab, measurements, err := rv.MeasureRVs(obs, cfg.RV)
	if err != nil {
		return err
	}
	if opts.RVPath != "" {
		if err := writeTable(rvTab, opts.RVPath); err != nil {
			return err
		}
	}

	joined, err := table.Join(targets, rvTab, catalog.ColSourceID, rv.ColSourceID)
	if err != nil {
		return fmt.Errorf("targets-rv join: %w", err)
	}

	rvs, err := joined.Floats(rv.ColRV)
	if err != nil {
		return err
	}
	rvErrs, err := joined.Floats(rv.ColRVErr)
	if err != nil {
		return err
	}
	msRV, err := joined.Floats(ColMSRV)
	if err != nil {
		return err
	}
	msRVE, err := joined.Floats(ColMSRVE)
	if err != nil {
		return err
	}
	gravzCol := make([]float64, joined.NumRows())
	gravzECol := make([]float64, joined.NumRows())
	for i := range gravzCol {
		gravzCol[i] = rvs[i] - msRV[i]
		gravzECol[i] = rvErrs[i] + msRVE[i]
	}
	if err := joined.AddFloats(ColGravZ, gravzCol); err != nil {
		return err
	}
	if err := joined.AddFloats(ColGravZE, gravzECol); err != nil {
		return err
	}
	logging.Infof("analyze: gravz derived for %d targets", joined.NumRows())

	if opts.OutFile != "" {
		if err := writeTable(joined, opts.OutFile); err != nil {
			return err
		}
	}

	if db.IsInitialized() {
		if err := db.ReplaceRVMeasurements(measurements); err != nil {
			return fmt.Errorf("persist rv measurements: %w", err)
		}
		ids, err := joined.Strings(catalog.ColSourceID)
		if err != nil {
			return err
		}
		for i, id := range ids {
			err := db.UpdateTargetGravZ(id, gravzCol[i], gravzECol[i])
			if errors.Is(err, db.ErrNotFound) {
				logging.Debugf("analyze: target %s not in database; skipping gravz update", id)
				continue
			}
			if err != nil {
				return fmt.Errorf("persist gravz for %s: %w", id, err)
			}
		}
		details := fmt.Sprintf("targets: %s, exposures: %d, measured: %d, with gravz: %d",
			opts.TargetsPath, obs.NumRows(), len(measurements), joined.NumRows())
		if err := db.LogRun("analyze", details); err != nil {
			return fmt.Errorf("run log: %w", err)
		}
	}
	return nil
}

func loadModels(cfg config.Config) (map[string]*wdmodels.Model, error) {
	engines := cfg.Radius.EngineList()
	models := make(map[string]*wdmodels.Model, len(engines))
	for _, engine := range engines {
		m, err := wdmodels.Load(cfg.Models.Manifest, engine)
		if err != nil {
			return nil, fmt.Errorf("engine %s: %w", engine, err)
		}
		models[engine] = m
	}
	return models, nil
}

func writeTable(t *table.Table, path string) error {
	if err := table.WriteCSV(t, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logging.Infof("wrote %d rows to %s", t.NumRows(), path)
	return nil
}

// plotDiagnostics renders the catalog color-magnitude diagram, the
// per-engine radius charts, and the model gravz curve at the median
// candidate temperature.
func plotDiagnostics(w io.Writer, massModel *wdmodels.Model, cat, highmass, radii *table.Table, engines []string) error {
	cmd, err := plot.ColorMagnitude(cat, catalog.ColWDBpRp, catalog.ColWDAbsMagG)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, cmd); err != nil {
		return err
	}
	out, err := plot.Radii(radii, engines)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, out); err != nil {
		return err
	}
	teff := medianTeff(massModel, highmass)
	if !math.IsNaN(teff) {
		if _, err := io.WriteString(w, plot.GravZCurve(massModel, teff)); err != nil {
			return err
		}
	}
	return nil
}

func medianTeff(m *wdmodels.Model, highmass *table.Table) float64 {
	bpRp, err := highmass.Floats(catalog.ColWDBpRp)
	if err != nil {
		return math.NaN()
	}
	absMag, err := highmass.Floats(catalog.ColWDAbsMagG)
	if err != nil {
		return math.NaN()
	}
	var teffs []float64
	for i := range bpRp {
		if t := m.TeffAt(bpRp[i], absMag[i]); !math.IsNaN(t) {
			teffs = append(teffs, t)
		}
	}
	if len(teffs) == 0 {
		return math.NaN()
	}
	sort.Float64s(teffs)
	return teffs[len(teffs)/2]
}

func (o BuildOptions) plotWriter() io.Writer {
	if o.PlotWriter != nil {
		return o.PlotWriter
	}
	return os.Stdout
}

// targetRows converts the joined targets table into model rows for the
// store. Optional columns fall back to NaN.
func targetRows(t *table.Table) ([]model.Target, error) {
	ids, err := t.Strings(catalog.ColSourceID)
	if err != nil {
		return nil, err
	}
	wdIDs, err := t.Strings(catalog.ColWDSourceID)
	if err != nil {
		return nil, err
	}
	gMag := floatsOrNaN(t, catalog.ColWDPhotGMag)
	absMag := floatsOrNaN(t, catalog.ColWDAbsMagG)
	bpRp := floatsOrNaN(t, catalog.ColWDBpRp)
	msRV := floatsOrNaN(t, ColMSRV)
	msRVE := floatsOrNaN(t, ColMSRVE)

	rows := make([]model.Target, len(ids))
	for i := range ids {
		rows[i] = model.Target{
			SourceID:   ids[i],
			WDSourceID: wdIDs[i],
			WDPhotGMag: gMag[i],
			WDAbsMagG:  absMag[i],
			WDBpRp:     bpRp[i],
			MSRV:       msRV[i],
			MSRVE:      msRVE[i],
			GravZ:      math.NaN(),
			GravZE:     math.NaN(),
		}
	}
	return rows, nil
}

func floatsOrNaN(t *table.Table, name string) []float64 {
	if t.HasColumn(name) && t.IsNumeric(name) {
		vals, _ := t.Floats(name)
		return vals
	}
	out := make([]float64, t.NumRows())
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
