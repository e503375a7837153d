// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/toeirei/corecomposition/internal/model"
	"github.com/uptrace/bun"
)

// TargetModel maps the `targets` table for Bun queries.
type TargetModel struct {
	bun.BaseModel `bun:"table:targets"`
	SourceID      string          `bun:"source_id,pk"`
	WDSourceID    string          `bun:"wd_source_id"`
	WDPhotGMag    sql.NullFloat64 `bun:"wd_phot_g_mean_mag"`
	WDAbsMagG     sql.NullFloat64 `bun:"wd_m_g"`
	WDBpRp        sql.NullFloat64 `bun:"wd_bp_rp"`
	MSRV          sql.NullFloat64 `bun:"ms_rv"`
	MSRVE         sql.NullFloat64 `bun:"ms_erv"`
	GravZ         sql.NullFloat64 `bun:"gravz"`
	GravZE        sql.NullFloat64 `bun:"e_gravz"`
}

// RVModel maps the `rv_measurements` table.
type RVModel struct {
	bun.BaseModel `bun:"table:rv_measurements"`
	SourceID      string          `bun:"source_id,pk"`
	RV            sql.NullFloat64 `bun:"rv"`
	RVE           sql.NullFloat64 `bun:"e_rv"`
	Spread        sql.NullFloat64 `bun:"rv_spread"`
	NExp          int             `bun:"n_exp"`
}

// RunLogModel maps the run_log table.
type RunLogModel struct {
	bun.BaseModel `bun:"table:run_log"`
	ID            int       `bun:"id,pk,autoincrement"`
	Stage         string    `bun:"stage"`
	Details       string    `bun:"details"`
	Timestamp     time.Time `bun:"timestamp"`
}

// --- Mapping helpers (centralized conversions) ---

// nullFloat converts a measurement value to its SQL representation.
// NaN marks "not measured" in the pipeline and becomes NULL in the DB.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func targetToModel(t TargetModel) model.Target {
	return model.Target{
		SourceID:   t.SourceID,
		WDSourceID: t.WDSourceID,
		WDPhotGMag: floatOrNaN(t.WDPhotGMag),
		WDAbsMagG:  floatOrNaN(t.WDAbsMagG),
		WDBpRp:     floatOrNaN(t.WDBpRp),
		MSRV:       floatOrNaN(t.MSRV),
		MSRVE:      floatOrNaN(t.MSRVE),
		GravZ:      floatOrNaN(t.GravZ),
		GravZE:     floatOrNaN(t.GravZE),
	}
}

func targetFromModel(t model.Target) TargetModel {
	return TargetModel{
		SourceID:   t.SourceID,
		WDSourceID: t.WDSourceID,
		WDPhotGMag: nullFloat(t.WDPhotGMag),
		WDAbsMagG:  nullFloat(t.WDAbsMagG),
		WDBpRp:     nullFloat(t.WDBpRp),
		MSRV:       nullFloat(t.MSRV),
		MSRVE:      nullFloat(t.MSRVE),
		GravZ:      nullFloat(t.GravZ),
		GravZE:     nullFloat(t.GravZE),
	}
}

func rvToModel(r RVModel) model.RVMeasurement {
	return model.RVMeasurement{
		SourceID: r.SourceID,
		RV:       floatOrNaN(r.RV),
		RVE:      floatOrNaN(r.RVE),
		Spread:   floatOrNaN(r.Spread),
		NExp:     r.NExp,
	}
}

func rvFromModel(m model.RVMeasurement) RVModel {
	return RVModel{
		SourceID: m.SourceID,
		RV:       nullFloat(m.RV),
		RVE:      nullFloat(m.RVE),
		Spread:   nullFloat(m.Spread),
		NExp:     m.NExp,
	}
}

// ReplaceTargetsBun swaps the targets table for a fresh build output in a
// single transaction.
func ReplaceTargetsBun(bdb *bun.DB, targets []model.Target) error {
	ctx := context.Background()

	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Raw DELETE because Bun requires a WHERE clause on Delete queries to
	// prevent accidental full-table deletes.
	if _, err := ExecRaw(ctx, tx, "DELETE FROM targets"); err != nil {
		return fmt.Errorf("failed to clear targets: %w", err)
	}

	if len(targets) > 0 {
		rows := make([]TargetModel, len(targets))
		for i, t := range targets {
			rows[i] = targetFromModel(t)
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return MapDBError(fmt.Errorf("failed to insert targets: %w", err))
		}
	}
	return tx.Commit()
}

// GetAllTargetsBun returns all targets ordered by apparent G magnitude.
func GetAllTargetsBun(bdb *bun.DB) ([]model.Target, error) {
	ctx := context.Background()

	var rows []TargetModel
	if err := bdb.NewSelect().Model(&rows).Order("wd_phot_g_mean_mag ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Target, len(rows))
	for i, r := range rows {
		out[i] = targetToModel(r)
	}
	return out, nil
}

// UpdateTargetGravZBun writes the analyze-stage result for one target.
func UpdateTargetGravZBun(bdb *bun.DB, sourceID string, gravz, gravzE float64) error {
	ctx := context.Background()

	res, err := bdb.NewUpdate().Model((*TargetModel)(nil)).
		Set("gravz = ?", nullFloat(gravz)).
		Set("e_gravz = ?", nullFloat(gravzE)).
		Where("source_id = ?", sourceID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("target %s: %w", sourceID, ErrNotFound)
	}
	return nil
}

// ReplaceRVsBun swaps the rv_measurements table in one transaction.
func ReplaceRVsBun(bdb *bun.DB, ms []model.RVMeasurement) error {
	ctx := context.Background()

	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := ExecRaw(ctx, tx, "DELETE FROM rv_measurements"); err != nil {
		return fmt.Errorf("failed to clear rv_measurements: %w", err)
	}
	if len(ms) > 0 {
		rows := make([]RVModel, len(ms))
		for i, m := range ms {
			rows[i] = rvFromModel(m)
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return MapDBError(fmt.Errorf("failed to insert rv_measurements: %w", err))
		}
	}
	return tx.Commit()
}

// GetAllRVsBun returns all RV measurements in source id order.
func GetAllRVsBun(bdb *bun.DB) ([]model.RVMeasurement, error) {
	ctx := context.Background()

	var rows []RVModel
	if err := bdb.NewSelect().Model(&rows).Order("source_id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.RVMeasurement, len(rows))
	for i, r := range rows {
		out[i] = rvToModel(r)
	}
	return out, nil
}

// AppendRunLogBun records a pipeline stage execution.
func AppendRunLogBun(bdb *bun.DB, stage, details string) error {
	ctx := context.Background()

	entry := RunLogModel{Stage: stage, Details: details, Timestamp: time.Now().UTC()}
	_, err := bdb.NewInsert().Model(&entry).Exec(ctx)
	return err
}

// GetRunLogBun returns the run log, newest first.
func GetRunLogBun(bdb *bun.DB) ([]model.RunLogEntry, error) {
	ctx := context.Background()

	var rows []RunLogModel
	if err := bdb.NewSelect().Model(&rows).Order("id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.RunLogEntry, len(rows))
	for i, r := range rows {
		out[i] = model.RunLogEntry{ID: r.ID, Stage: r.Stage, Details: r.Details, Timestamp: r.Timestamp}
	}
	return out, nil
}

// ExportBackupBun collects the full database content for a backup file.
func ExportBackupBun(bdb *bun.DB) (*model.BackupData, error) {
	targets, err := GetAllTargetsBun(bdb)
	if err != nil {
		return nil, fmt.Errorf("failed to export targets: %w", err)
	}
	rvs, err := GetAllRVsBun(bdb)
	if err != nil {
		return nil, fmt.Errorf("failed to export rv_measurements: %w", err)
	}
	runLog, err := GetRunLogBun(bdb)
	if err != nil {
		return nil, fmt.Errorf("failed to export run_log: %w", err)
	}
	return &model.BackupData{
		Version:    1,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Targets:    targets,
		RVs:        rvs,
		RunLog:     runLog,
	}, nil
}

// ImportBackupBun restores a backup, wiping existing content first.
func ImportBackupBun(bdb *bun.DB, backup *model.BackupData) error {
	ctx := context.Background()

	if backup.Version != 1 {
		return fmt.Errorf("unsupported backup version %d", backup.Version)
	}

	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"targets", "rv_measurements", "run_log"} {
		if _, err := ExecRaw(ctx, tx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if len(backup.Targets) > 0 {
		rows := make([]TargetModel, len(backup.Targets))
		for i, t := range backup.Targets {
			rows[i] = targetFromModel(t)
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return MapDBError(fmt.Errorf("failed to restore targets: %w", err))
		}
	}
	if len(backup.RVs) > 0 {
		rows := make([]RVModel, len(backup.RVs))
		for i, m := range backup.RVs {
			rows[i] = rvFromModel(m)
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return MapDBError(fmt.Errorf("failed to restore rv_measurements: %w", err))
		}
	}
	for _, e := range backup.RunLog {
		// Preserve original ids and timestamps from the backup.
		entry := RunLogModel{ID: e.ID, Stage: e.Stage, Details: e.Details, Timestamp: e.Timestamp}
		if _, err := tx.NewInsert().Model(&entry).Exec(ctx); err != nil {
			return MapDBError(fmt.Errorf("failed to restore run_log entry %d: %w", e.ID, err))
		}
	}
	return tx.Commit()
}
