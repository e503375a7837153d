package pipeline

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toeirei/corecomposition/internal/catalog"
	"github.com/toeirei/corecomposition/internal/config"
	"github.com/toeirei/corecomposition/internal/db"
	"github.com/toeirei/corecomposition/internal/table"
	"github.com/toeirei/corecomposition/internal/testutil"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	manifest := testutil.WriteManifest(t, t.TempDir())
	return config.Config{
		Catalog: config.CatalogConfig{
			MassCut:              1.0,
			MinParallax:          1.0,
			MinParallaxOverError: 10.0,
			MaxRUWE:              1.4,
		},
		Radius: config.RadiusConfig{Engines: "ONe,CO", NDraws: 50, Seed: 1},
		RV:     config.RVConfig{MaxSpread: 1.0},
		Models: config.ModelsConfig{Manifest: manifest, Composition: "ONe"},
	}
}

// writeSourceCSV builds a two-pair source table: one high-mass candidate
// (1.1 Msun at 15000 K) and one low-mass pair that the mass cut drops.
func writeSourceCSV(t *testing.T, path string) {
	t.Helper()
	bpRp := testutil.BpRpFor(15000)
	tab := table.New()
	cols := []struct {
		name string
		vals any
	}{
		{"source_id", []string{"1000000000000000001", "1000000000000000002"}},
		{"wd_source_id", []string{"2000000000000000001", "2000000000000000002"}},
		{"wd_phot_g_mean_mag", []float64{
			testutil.ApparentMagFor(testutil.GAbsFor(1.1, bpRp), 10),
			testutil.ApparentMagFor(testutil.GAbsFor(0.7, bpRp), 10),
		}},
		{"wd_bp_rp", []float64{bpRp, bpRp}},
		{"parallax", []float64{10, 10}},
		{"parallax_over_error", []float64{50, 50}},
		{"ruwe", []float64{1.0, 1.0}},
		{"ms_rv", []float64{10.0, 22.0}},
		{"ms_erv", []float64{0.05, 0.05}},
	}
	for _, c := range cols {
		var err error
		switch v := c.vals.(type) {
		case []string:
			err = tab.AddStrings(c.name, v)
		case []float64:
			err = tab.AddFloats(c.name, v)
		}
		if err != nil {
			t.Fatalf("add column %s: %v", c.name, err)
		}
	}
	if err := table.WriteCSV(tab, path); err != nil {
		t.Fatalf("write source csv: %v", err)
	}
}

func writeObsCSV(t *testing.T, path string) {
	t.Helper()
	tab := table.New()
	if err := tab.AddStrings("source_id", []string{
		"1000000000000000001", "1000000000000000001", "1000000000000000002",
	}); err != nil {
		t.Fatalf("AddStrings: %v", err)
	}
	if err := tab.AddFloats("rv", []float64{40.0, 40.4, 5.0}); err != nil {
		t.Fatalf("AddFloats: %v", err)
	}
	if err := tab.AddFloats("e_rv", []float64{0.1, 0.2, 0.1}); err != nil {
		t.Fatalf("AddFloats: %v", err)
	}
	if err := table.WriteCSV(tab, path); err != nil {
		t.Fatalf("write obs csv: %v", err)
	}
}

func TestBuildThenAnalyze(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "pairs.csv")
	writeSourceCSV(t, srcPath)

	catFile := filepath.Join(dir, "targets.csv")
	highmassPath := filepath.Join(dir, "highmass.csv")
	radiusPath := filepath.Join(dir, "radii.csv")
	var plots strings.Builder
	err := Build(cfg, BuildOptions{
		SourcePath:   srcPath,
		CatFile:      catFile,
		HighmassPath: highmassPath,
		RadiusPath:   radiusPath,
		PlotRadii:    true,
		PlotWriter:   &plots,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	targets, err := table.ReadCSV(catFile)
	if err != nil {
		t.Fatalf("read catfile: %v", err)
	}
	if targets.NumRows() != 1 {
		t.Fatalf("got %d targets, want 1 (mass cut)", targets.NumRows())
	}
	ids, err := targets.Strings(catalog.ColSourceID)
	if err != nil {
		t.Fatalf("targets source_id: %v", err)
	}
	if ids[0] != "1000000000000000001" {
		t.Fatalf("wrong target survived the cut: %s", ids[0])
	}
	for _, engine := range []string{"ONe", "CO"} {
		radii, err := targets.Floats(engine + "_radius")
		if err != nil {
			t.Fatalf("%s radius column: %v", engine, err)
		}
		want := testutil.RSunFor(1.1)
		if math.Abs(radii[0]-want) > 1e-3 {
			t.Fatalf("%s radius = %v, want ~%v", engine, radii[0], want)
		}
	}
	if plots.Len() == 0 {
		t.Fatalf("no plot output produced")
	}
	if !strings.Contains(plots.String(), "color-magnitude") {
		t.Fatalf("color-magnitude diagram missing from plot output")
	}

	obsPath := filepath.Join(dir, "obs.csv")
	writeObsCSV(t, obsPath)
	outFile := filepath.Join(dir, "gravz.csv")
	rvPath := filepath.Join(dir, "rv.csv")
	err = Analyze(cfg, AnalyzeOptions{
		TargetsPath: catFile,
		ObsPath:     obsPath,
		OutFile:     outFile,
		RVPath:      rvPath,
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	out, err := table.ReadCSV(outFile)
	if err != nil {
		t.Fatalf("read outfile: %v", err)
	}
	if out.NumRows() != 1 {
		t.Fatalf("got %d analyzed targets, want 1", out.NumRows())
	}
	gravz, err := out.Floats(ColGravZ)
	if err != nil {
		t.Fatalf("gravz column: %v", err)
	}
	// Weighted mean of 40.0±0.1 and 40.4±0.2 is 40.08; ms_rv is 10.
	if math.Abs(gravz[0]-30.08) > 1e-9 {
		t.Fatalf("gravz = %v, want 30.08", gravz[0])
	}
	gravzE, err := out.Floats(ColGravZE)
	if err != nil {
		t.Fatalf("e_gravz column: %v", err)
	}
	wantE := math.Sqrt(1.0/125.0) + 0.05
	if math.Abs(gravzE[0]-wantE) > 1e-9 {
		t.Fatalf("e_gravz = %v, want %v", gravzE[0], wantE)
	}
}

func TestBuildAndAnalyzePersistToStore(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "pairs.csv")
	writeSourceCSV(t, srcPath)
	catFile := filepath.Join(dir, "targets.csv")

	if err := db.InitDB("sqlite", filepath.Join(dir, "test.db")); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}

	if err := Build(cfg, BuildOptions{SourcePath: srcPath, CatFile: catFile}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	stored, err := db.GetAllTargets()
	if err != nil {
		t.Fatalf("GetAllTargets failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored %d targets, want 1", len(stored))
	}
	if !math.IsNaN(stored[0].GravZ) {
		t.Fatalf("gravz should be unset after build, got %v", stored[0].GravZ)
	}

	obsPath := filepath.Join(dir, "obs.csv")
	writeObsCSV(t, obsPath)
	err = Analyze(cfg, AnalyzeOptions{TargetsPath: catFile, ObsPath: obsPath})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	stored, err = db.GetAllTargets()
	if err != nil {
		t.Fatalf("GetAllTargets failed: %v", err)
	}
	if math.Abs(stored[0].GravZ-30.08) > 1e-9 {
		t.Fatalf("stored gravz = %v, want 30.08", stored[0].GravZ)
	}
	ms, err := db.GetAllRVMeasurements()
	if err != nil {
		t.Fatalf("GetAllRVMeasurements failed: %v", err)
	}
	// Both sources pass the spread cut; only the high-mass one has a target.
	if len(ms) != 2 || ms[0].NExp != 2 {
		t.Fatalf("stored rv measurements = %+v", ms)
	}
	runLog, err := db.GetRunLog()
	if err != nil {
		t.Fatalf("GetRunLog failed: %v", err)
	}
	if len(runLog) != 2 || runLog[0].Stage != "analyze" {
		t.Fatalf("run log = %+v", runLog)
	}
}

func TestAnalyzeRequiresMSRVColumns(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()

	tab := table.New()
	if err := tab.AddStrings("source_id", []string{"a"}); err != nil {
		t.Fatalf("AddStrings: %v", err)
	}
	targetsPath := filepath.Join(dir, "targets.csv")
	if err := table.WriteCSV(tab, targetsPath); err != nil {
		t.Fatalf("write targets: %v", err)
	}
	obsPath := filepath.Join(dir, "obs.csv")
	writeObsCSV(t, obsPath)

	err := Analyze(cfg, AnalyzeOptions{TargetsPath: targetsPath, ObsPath: obsPath})
	if err == nil || !strings.Contains(err.Error(), "ms_rv") {
		t.Fatalf("expected missing ms_rv error, got %v", err)
	}
}

func TestBuildMissingSourceFile(t *testing.T) {
	cfg := testConfig(t)
	err := Build(cfg, BuildOptions{SourcePath: filepath.Join(t.TempDir(), "nope.csv")})
	if err == nil {
		t.Fatalf("expected error for missing source file")
	}
}
