package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Postgres wraps a pgx connection pool. The pool is goroutine-safe and is
// shared by every repository; it is passed explicitly, never held in a
// package variable.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres opens a connection pool from a DATABASE_URL-style string and
// verifies it with a ping before handing it out.
func NewPostgres(ctx context.Context, databaseURL string, logger *zap.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 20 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}

	logger.Info("postgres connection established",
		zap.Int32("max_conns", poolConfig.MaxConns),
	)
	return &Postgres{pool: pool, logger: logger}, nil
}

func (db *Postgres) Close() {
	db.logger.Info("closing postgres connection pool")
	db.pool.Close()
}

func (db *Postgres) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *Postgres) Health(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Migrate applies the schema. Every statement is idempotent, so running it
// on every boot is safe.
func (db *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	db.logger.Info("postgres schema up to date")
	return nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('inspector', 'admin')),
		full_name TEXT NOT NULL,
		parish TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS supplies (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('treated', 'untreated')),
		agency TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		parish TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sampling_points (
		id UUID PRIMARY KEY,
		supply_id UUID NOT NULL REFERENCES supplies(id),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id BIGSERIAL PRIMARY KEY,
		supply_id UUID NOT NULL REFERENCES supplies(id),
		sampling_point_id UUID REFERENCES sampling_points(id),
		inspector_id UUID NOT NULL REFERENCES users(id),
		submission_date DATE NOT NULL,
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
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_supply_date
		ON submissions (supply_id, submission_date)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_inspector_created
		ON submissions (inspector_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		supply_id UUID NOT NULL REFERENCES supplies(id),
		assigned_to UUID NOT NULL REFERENCES users(id),
		created_by UUID NOT NULL REFERENCES users(id),
		priority TEXT NOT NULL DEFAULT 'normal',
		due_date DATE,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks (assigned_to)`,
}
