// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db provides the data access layer for the pipeline's results
// database. It abstracts the underlying engine (SQLite by default,
// PostgreSQL or MySQL for shared group databases) behind a consistent
// interface, so the rest of the pipeline never touches SQL directly.
package db // import "github.com/toeirei/corecomposition/internal/db"

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/toeirei/corecomposition/internal/model"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	// SQL drivers required for integration tests and runtime.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	store Store
	//go:embed migrations
	embeddedMigrations embed.FS
	// sqlOpenFunc allows tests to override database opening behavior.
	sqlOpenFunc = sql.Open
)

// InitDB initializes the database connection based on the provided type
// and DSN. It sets the package-level `store` to the appropriate backend
// implementation and runs any pending migrations.
func InitDB(dbType, dsn string) error {
	s, err := NewStoreFromDSN(dbType, dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	store = s
	return nil
}

// IsInitialized reports whether the package-level store has been set.
func IsInitialized() bool {
	return store != nil
}

// NewStoreFromDSN opens a sql.DB for the given DSN, runs migrations, and
// returns a Store backed by a long-lived *bun.DB.
func NewStoreFromDSN(dbType, dsn string) (Store, error) {
	driverName := dbType
	// The pgx stdlib registers driver name "pgx"; map "postgres" to that driver.
	if dbType == "postgres" {
		driverName = "pgx"
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := envInt("CORECOMP_DB_MAX_OPEN_CONNS", 8)
	maxIdle := envInt("CORECOMP_DB_MAX_IDLE_CONNS", 8)
	// In-memory SQLite keeps one database per connection; force a single
	// connection so the schema stays visible. Tests rely on this.
	if dbType == "sqlite" && (strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")) {
		maxOpen, maxIdle = 1, 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(time.Duration(envInt("CORECOMP_DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second)
	dbLogf("db: opened %s driver in %s", driverName, time.Since(start))

	if err := RunMigrations(sqlDB, dbType); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	bunDB := createBunDB(sqlDB, dbType)
	switch dbType {
	case "sqlite":
		return &SqliteStore{bun: bunDB}, nil
	case "postgres":
		return &PostgresStore{bun: bunDB}, nil
	case "mysql":
		return &MySQLStore{bun: bunDB}, nil
	default:
		return nil, fmt.Errorf("unsupported database type for store creation: '%s'", dbType)
	}
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and dbType.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

// RunMigrations applies the embedded migrations for a given database
// connection in version order, recording applied versions in
// schema_migrations.
func RunMigrations(db *sql.DB, dbType string) error {
	migrationsPath := fmt.Sprintf("migrations/%s", dbType)
	entries, err := fs.ReadDir(embeddedMigrations, migrationsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read embedded migrations (%s): %w", migrationsPath, err)
	}

	var ups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	// MySQL cannot index an unbounded TEXT column.
	versionType := "TEXT"
	if dbType == "mysql" {
		versionType = "VARCHAR(191)"
	}
	if _, err := db.Exec(fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS schema_migrations (version %s PRIMARY KEY, applied_at TIMESTAMP)", versionType)); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	for _, fname := range ups {
		version := strings.TrimSuffix(fname, ".up.sql")

		var exists int
		query := "SELECT 1 FROM schema_migrations WHERE version = ?"
		if dbType == "postgres" {
			query = "SELECT 1 FROM schema_migrations WHERE version = $1"
		}
		err := db.QueryRow(query, version).Scan(&exists)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check migration version %s: %w", version, err)
		}

		data, err := embeddedMigrations.ReadFile(path.Join(migrationsPath, fname))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", fname, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", version, err)
		}
		// SQLite's driver rejects multi-statement Exec; apply each
		// statement separately.
		for _, stmt := range splitStatements(string(data)) {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("failed to execute migration %s: %w", version, err)
			}
		}
		insertQuery := "INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)"
		if dbType == "postgres" {
			insertQuery = "INSERT INTO schema_migrations(version, applied_at) VALUES($1, $2)"
		}
		if _, err := tx.Exec(insertQuery, version, time.Now()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", version, err)
		}
		dbLogf("db: applied migration %s for %s", version, dbType)
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// --- Package-level wrappers around the active store ---
//
// The CLI layer calls these instead of holding a Store reference; they
// fail loudly when InitDB has not run.

var errNotInitialized = errors.New("database not initialized")

// ReplaceTargets stores the full build-stage output.
func ReplaceTargets(targets []model.Target) error {
	if store == nil {
		return errNotInitialized
	}
	return store.ReplaceTargets(targets)
}

// GetAllTargets returns all stored targets.
func GetAllTargets() ([]model.Target, error) {
	if store == nil {
		return nil, errNotInitialized
	}
	return store.GetAllTargets()
}

// UpdateTargetGravZ writes the analyze-stage result for one target.
func UpdateTargetGravZ(sourceID string, gravz, gravzE float64) error {
	if store == nil {
		return errNotInitialized
	}
	return store.UpdateTargetGravZ(sourceID, gravz, gravzE)
}

// ReplaceRVMeasurements stores the analyze-stage RV aggregates.
func ReplaceRVMeasurements(ms []model.RVMeasurement) error {
	if store == nil {
		return errNotInitialized
	}
	return store.ReplaceRVMeasurements(ms)
}

// GetAllRVMeasurements returns all stored RV measurements.
func GetAllRVMeasurements() ([]model.RVMeasurement, error) {
	if store == nil {
		return nil, errNotInitialized
	}
	return store.GetAllRVMeasurements()
}

// LogRun records a pipeline stage execution in the run log.
func LogRun(stage, details string) error {
	if store == nil {
		return errNotInitialized
	}
	return store.LogRun(stage, details)
}

// GetRunLog returns the run log, newest first.
func GetRunLog() ([]model.RunLogEntry, error) {
	if store == nil {
		return nil, errNotInitialized
	}
	return store.GetRunLog()
}

// ExportDataForBackup collects the full database content.
func ExportDataForBackup() (*model.BackupData, error) {
	if store == nil {
		return nil, errNotInitialized
	}
	return store.ExportDataForBackup()
}

// ImportDataFromBackup restores a backup, wiping existing content first.
func ImportDataFromBackup(backup *model.BackupData) error {
	if store == nil {
		return errNotInitialized
	}
	return store.ImportDataFromBackup(backup)
}

// RunDBMaintenance performs engine-specific maintenance for the given
// DSN: VACUUM plus integrity check for SQLite, VACUUM ANALYZE for
// Postgres, OPTIMIZE TABLE for MySQL.
func RunDBMaintenance(dbType, dsn string) error {
	driverName := dbType
	if dbType == "postgres" {
		driverName = "pgx"
	}
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for maintenance: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch dbType {
	case "sqlite":
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
			dbLogf("db: sqlite optimize failed (ignored): %v", err)
		}
		if _, err := sqlDB.ExecContext(ctx, "VACUUM;"); err != nil {
			return fmt.Errorf("sqlite vacuum failed: %w", err)
		}
		var res string
		if row := sqlDB.QueryRowContext(ctx, "PRAGMA integrity_check;"); row != nil {
			_ = row.Scan(&res)
			if res != "ok" {
				return fmt.Errorf("sqlite integrity_check failed: %s", res)
			}
		}
	case "postgres":
		if _, err := sqlDB.ExecContext(ctx, "VACUUM ANALYZE;"); err != nil {
			return fmt.Errorf("postgres vacuum failed: %w", err)
		}
	case "mysql":
		rows, err := sqlDB.QueryContext(ctx, "SHOW TABLES")
		if err != nil {
			return fmt.Errorf("mysql show tables failed: %w", err)
		}
		defer func() { _ = rows.Close() }()
		var table string
		for rows.Next() {
			if err := rows.Scan(&table); err != nil {
				return fmt.Errorf("mysql read table name failed: %w", err)
			}
			if _, err := sqlDB.ExecContext(ctx, fmt.Sprintf("OPTIMIZE TABLE %s", table)); err != nil {
				dbLogf("db: mysql optimize table %s failed: %v", table, err)
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("mysql table iteration failed: %w", err)
		}
	default:
		return fmt.Errorf("unsupported db type for maintenance: %s", dbType)
	}
	return nil
}
