package db

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// NewSQLite opens (or creates) a single-file embedded database and applies
// the schema. The pool is capped at one open connection: SQLite serializes
// writers anyway, and a single connection also makes ":memory:" behave as
// one database in tests.
func NewSQLite(path string, logger *zap.Logger) (*sql.DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	if _, err := sqldb.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := sqldb.Exec(stmt); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	logger.Info("sqlite database ready", zap.String("path", path))
	return sqldb, nil
}

// sqliteSchema mirrors the postgres schema. UUIDs are stored as TEXT, the
// calendar day as an ISO date string (lexicographic order == date order),
// and timestamps as RFC 3339 strings.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('inspector', 'admin')),
		full_name TEXT NOT NULL,
		parish TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS supplies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('treated', 'untreated')),
		agency TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		parish TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sampling_points (
		id TEXT PRIMARY KEY,
		supply_id TEXT NOT NULL REFERENCES supplies(id),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		supply_id TEXT NOT NULL REFERENCES supplies(id),
		sampling_point_id TEXT REFERENCES sampling_points(id),
		inspector_id TEXT NOT NULL REFERENCES users(id),
		submission_date TEXT NOT NULL,
		visits INTEGER NOT NULL DEFAULT 0,
		chlorine_total INTEGER NOT NULL DEFAULT 0,
		chlorine_positive INTEGER NOT NULL DEFAULT 0,
		chlorine_negative INTEGER NOT NULL DEFAULT 0,
		bacteriological_positive INTEGER NOT NULL DEFAULT 0,
		bacteriological_negative INTEGER NOT NULL DEFAULT 0,
		bacteriological_pending INTEGER NOT NULL DEFAULT 0,
		bacteriological_rejected INTEGER NOT NULL DEFAULT 0,
		bacteriological_broken INTEGER NOT NULL DEFAULT 0,
		ph_satisfactory INTEGER NOT NULL DEFAULT 0,
		ph_non_satisfactory INTEGER NOT NULL DEFAULT 0,
		chemical_satisfactory INTEGER NOT NULL DEFAULT 0,
		chemical_non_satisfactory INTEGER NOT NULL DEFAULT 0,
		turbidity_satisfactory INTEGER NOT NULL DEFAULT 0,
		turbidity_non_satisfactory INTEGER NOT NULL DEFAULT 0,
		temperature_satisfactory INTEGER NOT NULL DEFAULT 0,
		temperature_non_satisfactory INTEGER NOT NULL DEFAULT 0,
		remarks TEXT NOT NULL DEFAULT '',
		chemical_non_satisfactory_params TEXT NOT NULL DEFAULT '',
		ph_non_satisfactory_params TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_supply_date
		ON submissions (supply_id, submission_date)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_inspector_created
		ON submissions (inspector_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		supply_id TEXT NOT NULL REFERENCES supplies(id),
		assigned_to TEXT NOT NULL REFERENCES users(id),
		created_by TEXT NOT NULL REFERENCES users(id),
		priority TEXT NOT NULL DEFAULT 'normal',
		due_date TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks (assigned_to)`,
}
