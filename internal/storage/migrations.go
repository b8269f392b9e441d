package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS jobs (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS pages (
					id TEXT PRIMARY KEY,
					job_id TEXT NOT NULL,
					width_px REAL NOT NULL,
					height_px REAL NOT NULL,
					scale_ratio REAL NOT NULL DEFAULT 1,
					classification TEXT NOT NULL DEFAULT 'unknown',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (job_id) REFERENCES jobs(id)
				)`,
				`CREATE INDEX idx_pages_job ON pages(job_id)`,

				`CREATE TABLE IF NOT EXISTS detections (
					id TEXT PRIMARY KEY,
					page_id TEXT NOT NULL,
					job_id TEXT NOT NULL,
					class TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'auto',
					confidence REAL NOT NULL DEFAULT 0,
					geometry TEXT,
					bbox_cx REAL NOT NULL DEFAULT 0,
					bbox_cy REAL NOT NULL DEFAULT 0,
					bbox_w REAL NOT NULL DEFAULT 0,
					bbox_h REAL NOT NULL DEFAULT 0,
					original_bbox TEXT,
					area_sf REAL NOT NULL DEFAULT 0,
					perimeter_lf REAL NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (page_id) REFERENCES pages(id),
					FOREIGN KEY (job_id) REFERENCES jobs(id)
				)`,
				`CREATE INDEX idx_detections_job ON detections(job_id)`,
				`CREATE INDEX idx_detections_page ON detections(page_id)`,
				`CREATE INDEX idx_detections_status ON detections(status)`,
			}
			for _, q := range queries {
				if _, err := tx.Exec(q); err != nil {
					return fmt.Errorf("failed to execute %q: %w", q[:40], err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Draft recovery snapshots",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS drafts (
				job_id TEXT PRIMARY KEY,
				payload TEXT NOT NULL,
				saved_at DATETIME NOT NULL
			)`)
			return err
		},
	},
	{
		Version:     3,
		Description: "Detection material and cost overrides",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE detections ADD COLUMN material_id TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE detections ADD COLUMN cost_override REAL`,
				`ALTER TABLE detections ADD COLUMN notes TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE detections ADD COLUMN color TEXT NOT NULL DEFAULT ''`,
			}
			for _, q := range queries {
				if _, err := tx.Exec(q); err != nil {
					return fmt.Errorf("failed to execute %q: %w", q, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= version {
			continue
		}

		slog.Info("applying migration", "version", m.Version, "description", m.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
		version = m.Version
	}

	if version != ExpectedSchemaVersion {
		return fmt.Errorf("schema version mismatch: have %d, want %d", version, ExpectedSchemaVersion)
	}
	return nil
}
