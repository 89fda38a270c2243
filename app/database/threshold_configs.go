package database

import (
	"database/sql"
	"encoding/json"

	"misbah-schools/app/models"

	"github.com/google/uuid"
)

// GetThresholdConfig retrieves the threshold configuration for a cohort.
// Returns (nil, nil) when none exists.
func GetThresholdConfig(db *sql.DB, term, group string) (*models.ThresholdConfig, error) {
	query := `SELECT id, term, group_name, default_threshold, daily_threshold,
			  subject_overrides, grace_period_seconds, created_at, updated_at
			  FROM threshold_configs
			  WHERE term = $1 AND group_name = $2`

	cfg := &models.ThresholdConfig{}
	var overrides []byte
	err := db.QueryRow(query, term, group).Scan(
		&cfg.ID, &cfg.Term, &cfg.Group, &cfg.DefaultThreshold, &cfg.DailyThreshold,
		&overrides, &cfg.GracePeriodSeconds, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(overrides, &cfg.SubjectOverrides); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveThresholdConfig inserts or updates a cohort's threshold configuration.
func SaveThresholdConfig(db *sql.DB, cfg *models.ThresholdConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	overrides, err := json.Marshal(cfg.SubjectOverrides)
	if err != nil {
		return err
	}

	query := `INSERT INTO threshold_configs
			  (id, term, group_name, default_threshold, daily_threshold,
			   subject_overrides, grace_period_seconds, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			  ON CONFLICT (term, group_name)
			  DO UPDATE SET default_threshold = EXCLUDED.default_threshold,
			                daily_threshold = EXCLUDED.daily_threshold,
			                subject_overrides = EXCLUDED.subject_overrides,
			                grace_period_seconds = EXCLUDED.grace_period_seconds,
			                updated_at = NOW()`

	_, err = db.Exec(query, cfg.ID, cfg.Term, cfg.Group, cfg.DefaultThreshold,
		cfg.DailyThreshold, overrides, cfg.GracePeriodSeconds)
	return err
}

// GetOrCreateThresholdConfig fetches a cohort's configuration, lazily
// materializing the defaults when none is stored yet.
func GetOrCreateThresholdConfig(db *sql.DB, term, group string) (*models.ThresholdConfig, error) {
	cfg, err := GetThresholdConfig(db, term, group)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}

	cfg = models.DefaultThresholdConfig(term, group)
	if err := SaveThresholdConfig(db, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
