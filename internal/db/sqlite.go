// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the SQLite implementation of the database store.
package db

import (
	"github.com/toeirei/corecomposition/internal/model"
	"github.com/uptrace/bun"
)

// SqliteStore is the SQLite implementation of the Store interface.
// SQLite is the default backend; the database lives in a single local file.
type SqliteStore struct {
	bun *bun.DB
}

func (s *SqliteStore) ReplaceTargets(targets []model.Target) error {
	return ReplaceTargetsBun(s.bun, targets)
}

func (s *SqliteStore) GetAllTargets() ([]model.Target, error) {
	return GetAllTargetsBun(s.bun)
}

func (s *SqliteStore) UpdateTargetGravZ(sourceID string, gravz, gravzE float64) error {
	return UpdateTargetGravZBun(s.bun, sourceID, gravz, gravzE)
}

func (s *SqliteStore) ReplaceRVMeasurements(ms []model.RVMeasurement) error {
	return ReplaceRVsBun(s.bun, ms)
}

func (s *SqliteStore) GetAllRVMeasurements() ([]model.RVMeasurement, error) {
	return GetAllRVsBun(s.bun)
}

func (s *SqliteStore) LogRun(stage, details string) error {
	return AppendRunLogBun(s.bun, stage, details)
}

func (s *SqliteStore) GetRunLog() ([]model.RunLogEntry, error) {
	return GetRunLogBun(s.bun)
}

func (s *SqliteStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportBackupBun(s.bun)
}

func (s *SqliteStore) ImportDataFromBackup(backup *model.BackupData) error {
	return ImportBackupBun(s.bun, backup)
}
