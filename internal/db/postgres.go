// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the PostgreSQL implementation of the database store,
// used for shared group databases.
package db

import (
	"github.com/toeirei/corecomposition/internal/model"
	"github.com/uptrace/bun"
)

// PostgresStore is the PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	bun *bun.DB
}

func (s *PostgresStore) ReplaceTargets(targets []model.Target) error {
	return ReplaceTargetsBun(s.bun, targets)
}

func (s *PostgresStore) GetAllTargets() ([]model.Target, error) {
	return GetAllTargetsBun(s.bun)
}

func (s *PostgresStore) UpdateTargetGravZ(sourceID string, gravz, gravzE float64) error {
	return UpdateTargetGravZBun(s.bun, sourceID, gravz, gravzE)
}

func (s *PostgresStore) ReplaceRVMeasurements(ms []model.RVMeasurement) error {
	return ReplaceRVsBun(s.bun, ms)
}

func (s *PostgresStore) GetAllRVMeasurements() ([]model.RVMeasurement, error) {
	return GetAllRVsBun(s.bun)
}

func (s *PostgresStore) LogRun(stage, details string) error {
	return AppendRunLogBun(s.bun, stage, details)
}

func (s *PostgresStore) GetRunLog() ([]model.RunLogEntry, error) {
	return GetRunLogBun(s.bun)
}

func (s *PostgresStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportBackupBun(s.bun)
}

func (s *PostgresStore) ImportDataFromBackup(backup *model.BackupData) error {
	return ImportBackupBun(s.bun, backup)
}
