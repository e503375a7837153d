// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import "github.com/toeirei/corecomposition/internal/model"

// Store defines the interface for all database operations in the
// pipeline. This allows for multiple database backends to be
// implemented.
type Store interface {
	// Target methods. ReplaceTargets swaps the full targets table for
	// the latest build output in one transaction.
	ReplaceTargets(targets []model.Target) error
	GetAllTargets() ([]model.Target, error)
	UpdateTargetGravZ(sourceID string, gravz, gravzE float64) error

	// RV measurement methods.
	ReplaceRVMeasurements(ms []model.RVMeasurement) error
	GetAllRVMeasurements() ([]model.RVMeasurement, error)

	// Run log methods.
	LogRun(stage, details string) error
	GetRunLog() ([]model.RunLogEntry, error)

	// Backup methods.
	ExportDataForBackup() (*model.BackupData, error)
	ImportDataFromBackup(backup *model.BackupData) error
}
