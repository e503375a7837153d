// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/toeirei/corecomposition/internal/model"
)

func sampleTargets() []model.Target {
	return []model.Target{
		{
			SourceID:   "1000000000000000001",
			WDSourceID: "2000000000000000001",
			WDPhotGMag: 17.2,
			WDAbsMagG:  11.5,
			WDBpRp:     0.3,
			MSRV:       42.1,
			MSRVE:      0.4,
			GravZ:      math.NaN(),
			GravZE:     math.NaN(),
		},
		{
			SourceID:   "1000000000000000002",
			WDSourceID: "2000000000000000002",
			WDPhotGMag: 18.9,
			WDAbsMagG:  12.1,
			WDBpRp:     0.5,
			MSRV:       -13.7,
			MSRVE:      0.2,
			GravZ:      math.NaN(),
			GravZE:     math.NaN(),
		},
	}
}

func TestReplaceAndGetTargets(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		if err := s.ReplaceTargets(sampleTargets()); err != nil {
			t.Fatalf("ReplaceTargets failed: %v", err)
		}
		got, err := s.GetAllTargets()
		if err != nil {
			t.Fatalf("GetAllTargets failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d targets, want 2", len(got))
		}
		// Ordered by apparent magnitude, brightest first.
		if got[0].SourceID != "1000000000000000001" {
			t.Fatalf("order wrong, first target %s", got[0].SourceID)
		}
		if !math.IsNaN(got[0].GravZ) {
			t.Fatalf("unmeasured gravz should round-trip as NaN, got %v", got[0].GravZ)
		}
		if got[0].MSRV != 42.1 {
			t.Fatalf("ms_rv = %v, want 42.1", got[0].MSRV)
		}
	})
}

func TestReplaceTargetsOverwrites(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		if err := s.ReplaceTargets(sampleTargets()); err != nil {
			t.Fatalf("first ReplaceTargets failed: %v", err)
		}
		// A second build with one target must not leave stale rows behind.
		if err := s.ReplaceTargets(sampleTargets()[:1]); err != nil {
			t.Fatalf("second ReplaceTargets failed: %v", err)
		}
		got, err := s.GetAllTargets()
		if err != nil {
			t.Fatalf("GetAllTargets failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d targets after replace, want 1", len(got))
		}
	})
}

func TestUpdateTargetGravZ(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		if err := s.ReplaceTargets(sampleTargets()); err != nil {
			t.Fatalf("ReplaceTargets failed: %v", err)
		}
		if err := s.UpdateTargetGravZ("1000000000000000001", 28.5, 1.2); err != nil {
			t.Fatalf("UpdateTargetGravZ failed: %v", err)
		}
		got, err := s.GetAllTargets()
		if err != nil {
			t.Fatalf("GetAllTargets failed: %v", err)
		}
		if got[0].GravZ != 28.5 || got[0].GravZE != 1.2 {
			t.Fatalf("gravz = %v±%v, want 28.5±1.2", got[0].GravZ, got[0].GravZE)
		}
		// The other target stays untouched.
		if !math.IsNaN(got[1].GravZ) {
			t.Fatalf("untouched target gravz = %v, want NaN", got[1].GravZ)
		}
	})
}

func TestUpdateTargetGravZNotFound(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		err := s.UpdateTargetGravZ("no-such-source", 1.0, 0.1)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReplaceAndGetRVMeasurements(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		ms := []model.RVMeasurement{
			{SourceID: "b", RV: 10.5, RVE: 0.3, Spread: 0.4, NExp: 3},
			{SourceID: "a", RV: -2.1, RVE: 0.1, Spread: 0.2, NExp: 2},
		}
		if err := s.ReplaceRVMeasurements(ms); err != nil {
			t.Fatalf("ReplaceRVMeasurements failed: %v", err)
		}
		got, err := s.GetAllRVMeasurements()
		if err != nil {
			t.Fatalf("GetAllRVMeasurements failed: %v", err)
		}
		if len(got) != 2 || got[0].SourceID != "a" {
			t.Fatalf("got %v", got)
		}
		if got[0].NExp != 2 || got[1].RV != 10.5 {
			t.Fatalf("round trip mismatch: %v", got)
		}
	})
}

func TestRunLog(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		if err := s.LogRun("build", "catalog rows: 42"); err != nil {
			t.Fatalf("LogRun failed: %v", err)
		}
		if err := s.LogRun("analyze", "targets with gravz: 12"); err != nil {
			t.Fatalf("LogRun failed: %v", err)
		}
		entries, err := s.GetRunLog()
		if err != nil {
			t.Fatalf("GetRunLog failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d run log entries, want 2", len(entries))
		}
		// Newest first.
		if entries[0].Stage != "analyze" || entries[1].Stage != "build" {
			t.Fatalf("run log order wrong: %v, %v", entries[0].Stage, entries[1].Stage)
		}
		if entries[0].Timestamp.IsZero() {
			t.Fatalf("run log entry missing timestamp")
		}
	})
}

func TestBackupRoundTrip(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		if err := s.ReplaceTargets(sampleTargets()); err != nil {
			t.Fatalf("ReplaceTargets failed: %v", err)
		}
		if err := s.ReplaceRVMeasurements([]model.RVMeasurement{
			{SourceID: "a", RV: 1.0, RVE: 0.1, Spread: 0.05, NExp: 4},
		}); err != nil {
			t.Fatalf("ReplaceRVMeasurements failed: %v", err)
		}
		if err := s.LogRun("build", "test"); err != nil {
			t.Fatalf("LogRun failed: %v", err)
		}

		backup, err := s.ExportDataForBackup()
		if err != nil {
			t.Fatalf("ExportDataForBackup failed: %v", err)
		}
		if backup.Version != 1 || len(backup.Targets) != 2 || len(backup.RVs) != 1 || len(backup.RunLog) != 1 {
			t.Fatalf("unexpected backup content: %+v", backup)
		}

		// Wipe and restore.
		if err := s.ReplaceTargets(nil); err != nil {
			t.Fatalf("wipe targets failed: %v", err)
		}
		if err := s.ImportDataFromBackup(backup); err != nil {
			t.Fatalf("ImportDataFromBackup failed: %v", err)
		}
		got, err := s.GetAllTargets()
		if err != nil {
			t.Fatalf("GetAllTargets failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("restored %d targets, want 2", len(got))
		}
		if !math.IsNaN(got[0].GravZ) {
			t.Fatalf("NaN gravz lost across backup round trip: %v", got[0].GravZ)
		}
	})
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		if err := s.ImportDataFromBackup(&model.BackupData{Version: 99}); err == nil {
			t.Fatalf("expected error for unknown backup version")
		}
	})
}

func TestInitDBFileAndMigrationsIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "corecomposition.db")
	prev := store
	defer func() { store = prev }()

	if err := InitDB("sqlite", dsn); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	if !IsInitialized() {
		t.Fatalf("IsInitialized false after InitDB")
	}
	// Re-opening the same file must not re-apply migrations.
	if err := InitDB("sqlite", dsn); err != nil {
		t.Fatalf("second InitDB failed: %v", err)
	}
}

func TestPackageWrappersRequireInit(t *testing.T) {
	prev := store
	store = nil
	defer func() { store = prev }()

	if err := LogRun("build", "x"); err == nil {
		t.Fatalf("expected error when store is not initialized")
	}
	if _, err := GetAllTargets(); err == nil {
		t.Fatalf("expected error when store is not initialized")
	}
}

func TestNewStoreFromDSNUnsupportedType(t *testing.T) {
	if _, err := NewStoreFromDSN("oracle", "whatever"); err == nil {
		t.Fatalf("expected error for unsupported db type")
	}
}
