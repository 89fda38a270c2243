package models

import "time"

const (
	DefaultLectureThreshold = 75.0
	DefaultDailyThreshold   = 75.0
	DefaultGraceSeconds     = 300
)

// ThresholdConfig holds the presence thresholds for one (term, group) cohort.
type ThresholdConfig struct {
	ID                 string             `json:"id"`
	Term               string             `json:"term"`
	Group              string             `json:"group"`
	DefaultThreshold   float64            `json:"default_threshold"`
	DailyThreshold     float64            `json:"daily_threshold"`
	SubjectOverrides   map[string]float64 `json:"subject_overrides"`
	GracePeriodSeconds int64              `json:"grace_period_seconds"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// DefaultThresholdConfig materializes the defaults for a cohort that has no
// stored configuration yet.
func DefaultThresholdConfig(term, group string) *ThresholdConfig {
	return &ThresholdConfig{
		Term:               term,
		Group:              group,
		DefaultThreshold:   DefaultLectureThreshold,
		DailyThreshold:     DefaultDailyThreshold,
		SubjectOverrides:   map[string]float64{},
		GracePeriodSeconds: DefaultGraceSeconds,
	}
}
