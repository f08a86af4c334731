package services

import (
	"testing"

	"github.com/NanoLinuxDevops/WinSphere/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReportForCleanOutcome(t *testing.T) {
	generator := NewQualityReportGenerator()
	outcome := models.ValidationOutcome{
		IsValid:            true,
		HasRequiredColumns: true,
		ValidRecordCount:   100,
		TotalRecordCount:   100,
		DataQualityScore:   100,
		Metrics:            models.ValidationMetrics{CompletenessRatio: 1.0},
	}

	report := generator.Generate(outcome)

	assert.Equal(t, 100, report.OverallScore)
	assert.True(t, report.CanProceed)
	assert.False(t, report.RequiresConfirmation)
	assert.Equal(t, 0, report.Summary.TotalIssues)
	assert.Equal(t, 100, report.Summary.ReliabilityScore)
	assert.Contains(t, report.Recommendations, "Data quality is good; no action needed")
}

func TestGenerateReportWithCriticalError(t *testing.T) {
	generator := NewQualityReportGenerator()
	outcome := models.ValidationOutcome{
		IsValid:          false,
		DataQualityScore: 30,
		Errors:           []string{"No valid draw records found in payload"},
	}

	report := generator.Generate(outcome)

	assert.False(t, report.CanProceed)
	assert.True(t, report.RequiresConfirmation)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, models.SeverityCritical, report.Warnings[0].Severity)
	assert.Equal(t, 1, report.Summary.CriticalIssues)
	assert.Less(t, report.Summary.ReliabilityScore, outcome.DataQualityScore)
	assert.Contains(t, report.Recommendations, "Do not use this dataset without manual review")
}

func TestGenerateReportSeverityTiers(t *testing.T) {
	generator := NewQualityReportGenerator()
	outcome := models.ValidationOutcome{
		IsValid:            true,
		HasRequiredColumns: true,
		ValidRecordCount:   80,
		TotalRecordCount:   100,
		DataQualityScore:   85,
		Warnings: []string{
			"Data is severely outdated: latest draw is 120 days old",
			"Data is outdated: latest draw is 45 days old",
			"Data is slightly stale: latest draw is 9 days old",
		},
		Metrics: models.ValidationMetrics{CompletenessRatio: 0.8},
	}

	report := generator.Generate(outcome)

	require.Len(t, report.Warnings, 3)
	assert.Equal(t, models.SeverityHigh, report.Warnings[0].Severity)
	assert.Equal(t, models.SeverityMedium, report.Warnings[1].Severity)
	assert.Equal(t, models.SeverityLow, report.Warnings[2].Severity)
	for _, w := range report.Warnings {
		assert.Equal(t, models.WarningCategoryFreshness, w.Category)
		assert.NotEmpty(t, w.Recommendation)
	}

	// High severity warnings demand confirmation even when proceeding is allowed
	assert.True(t, report.CanProceed)
	assert.True(t, report.RequiresConfirmation)
	assert.Equal(t, 85-15-8-3, report.Summary.ReliabilityScore)
}

func TestGenerateReportCategorization(t *testing.T) {
	generator := NewQualityReportGenerator()
	outcome := models.ValidationOutcome{
		IsValid:            true,
		HasRequiredColumns: true,
		ValidRecordCount:   60,
		TotalRecordCount:   60,
		DataQualityScore:   90,
		Warnings: []string{
			"Draw 4000 contains 4+ consecutive ascending numbers",
			"Number frequency skew detected: max 40 vs average 9.5",
			"Large draw id gap: 300 between draws 3000 and 3300",
		},
		Metrics: models.ValidationMetrics{CompletenessRatio: 1.0},
	}

	report := generator.Generate(outcome)

	require.Len(t, report.Warnings, 3)
	assert.Equal(t, models.WarningCategorySuspiciousPattern, report.Warnings[0].Category)
	assert.Equal(t, models.WarningCategoryStatisticalAnomaly, report.Warnings[1].Category)
	assert.Equal(t, models.WarningCategoryCompleteness, report.Warnings[2].Category)
}

func TestGenerateReportLowScoreBlocksProceeding(t *testing.T) {
	generator := NewQualityReportGenerator()
	outcome := models.ValidationOutcome{
		IsValid:            false,
		HasRequiredColumns: true,
		ValidRecordCount:   40,
		TotalRecordCount:   100,
		DataQualityScore:   35,
		Metrics:            models.ValidationMetrics{CompletenessRatio: 0.4},
	}

	report := generator.Generate(outcome)

	assert.False(t, report.CanProceed)
	assert.True(t, report.RequiresConfirmation)
	assert.Contains(t, report.Recommendations, "A significant share of rows failed validation; inspect the raw export")
}
