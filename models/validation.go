package models

// WarningCategory classifies a single quality concern.
type WarningCategory string

const (
	WarningCategoryDataQuality        WarningCategory = "data_quality"
	WarningCategoryCompleteness       WarningCategory = "completeness"
	WarningCategorySuspiciousPattern  WarningCategory = "suspicious_pattern"
	WarningCategoryFreshness          WarningCategory = "freshness"
	WarningCategoryStatisticalAnomaly WarningCategory = "statistical_anomaly"
)

// WarningSeverity grades how serious a quality concern is.
type WarningSeverity string

const (
	SeverityLow      WarningSeverity = "low"
	SeverityMedium   WarningSeverity = "medium"
	SeverityHigh     WarningSeverity = "high"
	SeverityCritical WarningSeverity = "critical"
)

// QualityWarning is a single categorized concern raised by validation.
type QualityWarning struct {
	Category       WarningCategory `json:"category"`
	Severity       WarningSeverity `json:"severity"`
	Message        string          `json:"message"`
	Recommendation string          `json:"recommendation,omitempty"`
	QualityImpact  int             `json:"quality_impact"`
}

// ValidationMetrics bundles the quantitative measurements taken during
// validation of one raw text blob.
type ValidationMetrics struct {
	CompletenessRatio      float64 `json:"completeness_ratio"`
	NumberDiversity        int     `json:"number_diversity"`
	BonusDiversity         int     `json:"bonus_diversity"`
	SuspiciousPatternCount int     `json:"suspicious_pattern_count"`
}

// ValidationOutcome is the immutable result of validating one raw payload.
type ValidationOutcome struct {
	IsValid            bool              `json:"is_valid"`
	Errors             []string          `json:"errors"`
	Warnings           []string          `json:"warnings"`
	HasRequiredColumns bool              `json:"has_required_columns"`
	ValidRecordCount   int               `json:"valid_record_count"`
	TotalRecordCount   int               `json:"total_record_count"`
	EarliestDate       string            `json:"earliest_date,omitempty"`
	LatestDate         string            `json:"latest_date,omitempty"`
	DataQualityScore   int               `json:"data_quality_score"`
	Metrics            ValidationMetrics `json:"metrics"`
}

// QualitySummary condenses a QualityReport for display surfaces.
type QualitySummary struct {
	TotalIssues      int     `json:"total_issues"`
	CriticalIssues   int     `json:"critical_issues"`
	CompletenessPct  float64 `json:"completeness_pct"`
	ReliabilityScore int     `json:"reliability_score"`
}

// QualityReport is the richer report derived from a ValidationOutcome,
// handed to callers that must decide whether to proceed with the data.
type QualityReport struct {
	OverallScore         int              `json:"overall_score"`
	Warnings             []QualityWarning `json:"warnings"`
	Recommendations      []string         `json:"recommendations"`
	CanProceed           bool             `json:"can_proceed"`
	RequiresConfirmation bool             `json:"requires_confirmation"`
	Summary              QualitySummary   `json:"summary"`
}
