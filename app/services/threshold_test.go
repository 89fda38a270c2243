package services

import (
	"testing"

	"misbah-schools/app/models"

	"github.com/stretchr/testify/assert"
)

func TestResolveThreshold(t *testing.T) {
	cfg := models.DefaultThresholdConfig("Term 1", "P6 East")
	cfg.SubjectOverrides = map[string]float64{"Physics": 60}

	assert.Equal(t, 60.0, ResolveThreshold(cfg, "Physics"))
	assert.Equal(t, 75.0, ResolveThreshold(cfg, "Chemistry"))
}

func TestResolveThresholdNilOverrides(t *testing.T) {
	cfg := &models.ThresholdConfig{DefaultThreshold: 80}
	assert.Equal(t, 80.0, ResolveThreshold(cfg, "History"))
}
