package database

import (
	"database/sql"
	"log"
)

// RunMigrations checks and applies necessary schema updates
func RunMigrations(db *sql.DB) error {
	log.Println("Running database migrations...")

	if err := createTrackingSessionsTable(db); err != nil {
		return err
	}
	if err := createThresholdConfigsTable(db); err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createTrackingSessionsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS tracking_sessions (
			id UUID PRIMARY KEY,
			student_id TEXT NOT NULL,
			date DATE NOT NULL,
			term TEXT NOT NULL DEFAULT '',
			group_name TEXT NOT NULL DEFAULT '',
			lectures JSONB NOT NULL DEFAULT '[]',
			total_seconds_attended BIGINT NOT NULL DEFAULT 0,
			total_seconds_scheduled BIGINT NOT NULL DEFAULT 0,
			percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_present_for_day BOOLEAN NOT NULL DEFAULT false,
			required_percentage DOUBLE PRECISION NOT NULL DEFAULT 75,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (student_id, date)
		);
		CREATE INDEX IF NOT EXISTS idx_tracking_sessions_student_date
			ON tracking_sessions (student_id, date);
	`
	_, err := db.Exec(query)
	if err != nil {
		log.Printf("Failed to run migration for tracking_sessions: %v", err)
		return err
	}
	return nil
}

func createThresholdConfigsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS threshold_configs (
			id UUID PRIMARY KEY,
			term TEXT NOT NULL,
			group_name TEXT NOT NULL,
			default_threshold DOUBLE PRECISION NOT NULL DEFAULT 75,
			daily_threshold DOUBLE PRECISION NOT NULL DEFAULT 75,
			subject_overrides JSONB NOT NULL DEFAULT '{}',
			grace_period_seconds BIGINT NOT NULL DEFAULT 300,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (term, group_name)
		);
	`
	_, err := db.Exec(query)
	if err != nil {
		log.Printf("Failed to run migration for threshold_configs: %v", err)
		return err
	}
	return nil
}
