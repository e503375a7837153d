// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the MySQL implementation of the database store.
package db

import (
	"github.com/toeirei/corecomposition/internal/model"
	"github.com/uptrace/bun"
)

// MySQLStore is the MySQL implementation of the Store interface.
type MySQLStore struct {
	bun *bun.DB
}

func (s *MySQLStore) ReplaceTargets(targets []model.Target) error {
	return ReplaceTargetsBun(s.bun, targets)
}

func (s *MySQLStore) GetAllTargets() ([]model.Target, error) {
	return GetAllTargetsBun(s.bun)
}

func (s *MySQLStore) UpdateTargetGravZ(sourceID string, gravz, gravzE float64) error {
	return UpdateTargetGravZBun(s.bun, sourceID, gravz, gravzE)
}

func (s *MySQLStore) ReplaceRVMeasurements(ms []model.RVMeasurement) error {
	return ReplaceRVsBun(s.bun, ms)
}

func (s *MySQLStore) GetAllRVMeasurements() ([]model.RVMeasurement, error) {
	return GetAllRVsBun(s.bun)
}

func (s *MySQLStore) LogRun(stage, details string) error {
	return AppendRunLogBun(s.bun, stage, details)
}

func (s *MySQLStore) GetRunLog() ([]model.RunLogEntry, error) {
	return GetRunLogBun(s.bun)
}

func (s *MySQLStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportBackupBun(s.bun)
}

func (s *MySQLStore) ImportDataFromBackup(backup *model.BackupData) error {
	return ImportBackupBun(s.bun, backup)
}
