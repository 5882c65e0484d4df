package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS authorized_plates (
		id              BIGSERIAL PRIMARY KEY,
		plate_number    TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		is_active       BOOLEAN NOT NULL DEFAULT true,
		sensitivity     NUMERIC(5,2) NOT NULL DEFAULT 85.0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_access     TIMESTAMPTZ
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_authorized_plates_number ON authorized_plates(plate_number);`,
	`CREATE TABLE IF NOT EXISTS plate_records (
		id              BIGSERIAL PRIMARY KEY,
		event_id        TEXT NOT NULL,
		plate_number    TEXT NOT NULL,
		confidence      NUMERIC(5,2) NOT NULL,
		is_authorized   BOOLEAN NOT NULL,
		processed_by    TEXT NOT NULL,
		action_taken    TEXT NOT NULL,
		camera_id       BIGINT,
		timestamp       TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_records_plate_number ON plate_records(plate_number);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_records_timestamp ON plate_records(timestamp);`,
	`CREATE TABLE IF NOT EXISTS authorization_history (
		id              BIGSERIAL PRIMARY KEY,
		plate_number    TEXT NOT NULL,
		action          TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		changed_by      TEXT NOT NULL,
		timestamp       TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_authorization_history_plate_number ON authorization_history(plate_number);`,
	`CREATE TABLE IF NOT EXISTS cameras (
		id              BIGSERIAL PRIMARY KEY,
		name            TEXT NOT NULL,
		ip_address      TEXT NOT NULL,
		port            INT NOT NULL DEFAULT 554,
		username        TEXT,
		password        TEXT,
		stream_type     TEXT NOT NULL DEFAULT 'rtsp',
		rtsp_path       TEXT NOT NULL DEFAULT '/',
		is_active       BOOLEAN NOT NULL DEFAULT true,
		settings        JSONB,
		last_connected  TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_cameras_name ON cameras(name);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
