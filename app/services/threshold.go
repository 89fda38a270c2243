package services

import "misbah-schools/app/models"

// ResolveThreshold returns the presence threshold that applies to a subject:
// the subject-specific override when one exists, otherwise the cohort
// default. The result is frozen into a lecture record at creation; later
// config edits never retroactively change existing records.
func ResolveThreshold(cfg *models.ThresholdConfig, subject string) float64 {
	if override, ok := cfg.SubjectOverrides[subject]; ok {
		return override
	}
	return cfg.DefaultThreshold
}
