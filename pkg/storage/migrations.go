package storage

import (
	"database/sql"
	"fmt"
)

// Amounts are TEXT decimal strings; SQLite REAL would round them.
var migrations = []string{
	// Migration 1: Initial schema
	`CREATE TABLE IF NOT EXISTS alert_records (
		id          TEXT PRIMARY KEY,
		message_id  TEXT NOT NULL DEFAULT '',
		audience    TEXT NOT NULL,
		channel     TEXT NOT NULL DEFAULT '',
		message     TEXT NOT NULL,
		encoding    TEXT NOT NULL,
		parts       INTEGER NOT NULL DEFAULT 1,
		characters  INTEGER NOT NULL DEFAULT 0,
		cost        TEXT NOT NULL DEFAULT '0',
		currency    TEXT NOT NULL DEFAULT 'USD',
		plan        TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL CHECK(status IN ('sent', 'failed')),
		error       TEXT NOT NULL DEFAULT '',
		timestamp   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_audience ON alert_records(audience);
	CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alert_records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_alerts_status ON alert_records(status);

	CREATE TABLE IF NOT EXISTS budgets (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL UNIQUE,
		limit_amount        TEXT NOT NULL,
		currency            TEXT NOT NULL DEFAULT 'USD',
		period              TEXT NOT NULL CHECK(period IN ('daily', 'weekly', 'monthly')),
		current_spend       TEXT NOT NULL DEFAULT '0',
		alert_threshold_pct REAL NOT NULL DEFAULT 80.0,
		created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	// Migration 2: message id lookups from delivery receipts
	`CREATE INDEX IF NOT EXISTS idx_alerts_message_id ON alert_records(message_id);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}

// SchemaVersion reports the highest applied migration.
func (s *SQLite) SchemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("check migration version: %w", err)
	}
	return v, nil
}
