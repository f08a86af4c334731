package services

import (
	"strings"

	"github.com/NanoLinuxDevops/WinSphere/models"
	"github.com/sirupsen/logrus"
)

// severityPenalty maps warning severity to its reliability deduction
var severityPenalty = map[models.WarningSeverity]int{
	models.SeverityCritical: 25,
	models.SeverityHigh:     15,
	models.SeverityMedium:   8,
	models.SeverityLow:      3,
}

// QualityReportGenerator turns a raw validation outcome into a
// categorized report with actionable recommendations, suitable for
// surfacing to an operator before accepting a questionable dataset.
type QualityReportGenerator struct{}

func NewQualityReportGenerator() *QualityReportGenerator {
	return &QualityReportGenerator{}
}

// Generate builds a quality report from a validation outcome. Warnings
// are re-derived into structured entries with severity, category and a
// recommendation each.
func (g *QualityReportGenerator) Generate(outcome models.ValidationOutcome) models.QualityReport {
	report := models.QualityReport{
		OverallScore: outcome.DataQualityScore,
	}

	for _, err := range outcome.Errors {
		report.Warnings = append(report.Warnings, models.QualityWarning{
			Category:       categorizeMessage(err),
			Severity:       models.SeverityCritical,
			Message:        err,
			Recommendation: recommendFor(err, models.SeverityCritical),
			QualityImpact:  severityPenalty[models.SeverityCritical],
		})
	}
	for _, warning := range outcome.Warnings {
		severity := classifyWarningSeverity(warning)
		report.Warnings = append(report.Warnings, models.QualityWarning{
			Category:       categorizeMessage(warning),
			Severity:       severity,
			Message:        warning,
			Recommendation: recommendFor(warning, severity),
			QualityImpact:  severityPenalty[severity],
		})
	}

	criticalCount := 0
	highCount := 0
	reliability := outcome.DataQualityScore
	for _, w := range report.Warnings {
		reliability -= w.QualityImpact
		switch w.Severity {
		case models.SeverityCritical:
			criticalCount++
		case models.SeverityHigh:
			highCount++
		}
	}
	if reliability < 0 {
		reliability = 0
	}

	completenessPct := outcome.Metrics.CompletenessRatio * 100

	report.Summary = models.QualitySummary{
		TotalIssues:      len(report.Warnings),
		CriticalIssues:   criticalCount,
		CompletenessPct:  completenessPct,
		ReliabilityScore: reliability,
	}

	report.CanProceed = criticalCount == 0 &&
		outcome.DataQualityScore >= 40 &&
		completenessPct >= 50
	report.RequiresConfirmation = !report.CanProceed ||
		highCount > 0 ||
		outcome.DataQualityScore < 60

	report.Recommendations = g.buildRecommendations(outcome, report)

	logrus.WithFields(logrus.Fields{
		"component":       "QualityReportGenerator",
		"overall_score":   report.OverallScore,
		"reliability":     reliability,
		"total_issues":    report.Summary.TotalIssues,
		"critical_issues": criticalCount,
		"can_proceed":     report.CanProceed,
	}).Debug("Generated data quality report")

	return report
}

// classifyWarningSeverity assigns a severity tier by inspecting the
// warning text produced by the validator.
func classifyWarningSeverity(warning string) models.WarningSeverity {
	lowered := strings.ToLower(warning)
	switch {
	case strings.Contains(lowered, "severely outdated"),
		strings.Contains(lowered, "stopped early"),
		strings.Contains(lowered, "too small"):
		return models.SeverityHigh
	case strings.Contains(lowered, "outdated"),
		strings.Contains(lowered, "incomplete"),
		strings.Contains(lowered, "never appear"),
		strings.Contains(lowered, "frequency skew"),
		strings.Contains(lowered, "small dataset"):
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func categorizeMessage(message string) models.WarningCategory {
	lowered := strings.ToLower(message)
	switch {
	case strings.Contains(lowered, "outdated"), strings.Contains(lowered, "stale"):
		return models.WarningCategoryFreshness
	case strings.Contains(lowered, "consecutive ascending"),
		strings.Contains(lowered, "third of the range"):
		return models.WarningCategorySuspiciousPattern
	case strings.Contains(lowered, "frequency"),
		strings.Contains(lowered, "diversity"),
		strings.Contains(lowered, "never appear"):
		return models.WarningCategoryStatisticalAnomaly
	case strings.Contains(lowered, "gap"),
		strings.Contains(lowered, "too small"),
		strings.Contains(lowered, "dataset"),
		strings.Contains(lowered, "incomplete"):
		return models.WarningCategoryCompleteness
	default:
		return models.WarningCategoryDataQuality
	}
}

func recommendFor(message string, severity models.WarningSeverity) string {
	category := categorizeMessage(message)
	switch category {
	case models.WarningCategoryFreshness:
		return "Trigger a fresh download from the archive"
	case models.WarningCategorySuspiciousPattern:
		return "Spot-check the flagged draws against the official archive"
	case models.WarningCategoryStatisticalAnomaly:
		return "Verify the export was not truncated or corrupted"
	case models.WarningCategoryCompleteness:
		if severity == models.SeverityCritical {
			return "Re-download the archive; the payload is unusable as-is"
		}
		return "Consider re-downloading a fuller archive export"
	default:
		return "Review the reported rows before relying on this dataset"
	}
}

func (g *QualityReportGenerator) buildRecommendations(outcome models.ValidationOutcome, report models.QualityReport) []string {
	var recommendations []string
	seen := make(map[string]bool)
	for _, w := range report.Warnings {
		if !seen[w.Recommendation] {
			seen[w.Recommendation] = true
			recommendations = append(recommendations, w.Recommendation)
		}
	}

	if report.CanProceed && report.Summary.TotalIssues == 0 {
		recommendations = append(recommendations, "Data quality is good; no action needed")
	}
	if !report.CanProceed {
		recommendations = append(recommendations, "Do not use this dataset without manual review")
	}
	if outcome.ValidRecordCount > 0 && outcome.Metrics.CompletenessRatio < 0.8 {
		recommendations = append(recommendations, "A significant share of rows failed validation; inspect the raw export")
	}
	return recommendations
}
