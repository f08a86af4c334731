package services

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmptyPayload(t *testing.T) {
	validator := NewDrawDataValidator()

	outcome := validator.Validate("   \n  ")

	assert.False(t, outcome.IsValid)
	assert.Equal(t, 0, outcome.DataQualityScore)
	require.NotEmpty(t, outcome.Errors)
	assert.Contains(t, strings.ToLower(outcome.Errors[0]), "empty")
}

func TestValidateHTMLErrorPage(t *testing.T) {
	validator := NewDrawDataValidator()

	outcome := validator.Validate("<!DOCTYPE html><html><body>Service Unavailable</body></html>")

	assert.False(t, outcome.IsValid)
	assert.False(t, outcome.HasRequiredColumns)
	assert.Equal(t, 0, outcome.DataQualityScore)
	require.NotEmpty(t, outcome.Errors)
	assert.Contains(t, outcome.Errors[0], "HTML")
}

func TestValidateMissingHeaderColumns(t *testing.T) {
	validator := NewDrawDataValidator()

	payload := "DrawNumber,Date,Num1,Num2\n4000,01/06/2026,3,11"
	outcome := validator.Validate(payload)

	assert.False(t, outcome.IsValid)
	assert.False(t, outcome.HasRequiredColumns)
	assert.Equal(t, 0, outcome.DataQualityScore)
}

func TestValidateSmallButCleanDataset(t *testing.T) {
	// Three clean rows: structurally valid, flagged as small but usable
	validator := NewDrawDataValidator()

	outcome := validator.Validate(validArchiveCSV(3))

	assert.True(t, outcome.IsValid)
	assert.Equal(t, 3, outcome.ValidRecordCount)
	assert.Greater(t, outcome.DataQualityScore, 50)
	assert.True(t, outcome.HasRequiredColumns)

	foundSizeWarning := false
	for _, warning := range outcome.Warnings {
		if strings.Contains(strings.ToLower(warning), "too small") {
			foundSizeWarning = true
		}
	}
	assert.True(t, foundSizeWarning)
}

func TestValidateSmallDatasetRejectedWithMinimum(t *testing.T) {
	// The same three rows fail a validator that enforces the acceptance
	// minimum used by the refresh pipeline
	validator := NewDrawDataValidatorWithConfig(ValidatorConfig{MinValidRecords: 5})

	outcome := validator.Validate(validArchiveCSV(3))

	assert.False(t, outcome.IsValid)
	require.NotEmpty(t, outcome.Errors)
	assert.Contains(t, strings.ToLower(strings.Join(outcome.Errors, " ")), "too small")
}

func TestValidateDuplicateNumbersInDraw(t *testing.T) {
	validator := NewDrawDataValidator()

	lines := []string{archiveHeader()}
	base := validArchiveCSV(8)
	lines = append(lines, strings.Split(base, "\n")[1:]...)
	lines = append(lines, archiveRow(3990, "01/06/2026", []int{4, 4, 17, 22, 29, 36}, 3))

	outcome := validator.Validate(strings.Join(lines, "\n"))

	assert.Equal(t, 8, outcome.ValidRecordCount)
	assert.Equal(t, 9, outcome.TotalRecordCount)
	assert.Contains(t, strings.Join(outcome.Errors, " "), "Duplicate numbers in the same draw")
	assert.Less(t, outcome.DataQualityScore, 100)
	assert.InDelta(t, 8.0/9.0, outcome.Metrics.CompletenessRatio, 0.001)
}

func TestValidateDuplicateDrawIDs(t *testing.T) {
	validator := NewDrawDataValidator()

	lines := []string{
		archiveHeader(),
		archiveRow(4000, "01/06/2026", []int{3, 11, 17, 22, 29, 36}, 4),
		archiveRow(4000, "28/05/2026", []int{2, 9, 16, 24, 31, 37}, 5),
		archiveRow(3999, "25/05/2026", []int{5, 7, 12, 19, 26, 33}, 6),
		archiveRow(3998, "22/05/2026", []int{1, 8, 15, 23, 30, 35}, 7),
		archiveRow(3997, "19/05/2026", []int{3, 11, 17, 22, 29, 36}, 1),
	}

	outcome := validator.Validate(strings.Join(lines, "\n"))

	assert.Equal(t, 4, outcome.ValidRecordCount)
	assert.Contains(t, strings.Join(outcome.Errors, " "), "duplicate draw id")
}

func TestValidateSuspiciousConsecutiveRun(t *testing.T) {
	validator := NewDrawDataValidator()

	lines := []string{
		archiveHeader(),
		archiveRow(4000, "01/06/2026", []int{10, 11, 12, 13, 25, 36}, 4),
	}
	for i := 1; i < 6; i++ {
		lines = append(lines, archiveRow(4000-i, "01/06/2026", safeNumberSets[i%len(safeNumberSets)], 2))
	}

	outcome := validator.Validate(strings.Join(lines, "\n"))

	assert.Contains(t, strings.Join(outcome.Warnings, " "), "consecutive ascending")
	assert.Equal(t, 1, outcome.Metrics.SuspiciousPatternCount)
}

func TestValidateEarlyTerminationOnConsecutiveInvalidRows(t *testing.T) {
	validator := NewDrawDataValidator()

	lines := []string{archiveHeader()}
	lines = append(lines, strings.Split(validArchiveCSV(6), "\n")[1:]...)
	for i := 0; i < 7; i++ {
		lines = append(lines, "garbage,row,x,x,x,x,x,x,x")
	}
	// A valid row after the invalid run must not be reached
	lines = append(lines, archiveRow(3000, "01/06/2026", []int{2, 9, 16, 24, 31, 37}, 2))

	outcome := validator.Validate(strings.Join(lines, "\n"))

	assert.Equal(t, 6, outcome.ValidRecordCount)
	assert.Contains(t, strings.Join(outcome.Warnings, " "), "stopped early")
}

func TestValidateIsIdempotent(t *testing.T) {
	validator := NewDrawDataValidator()
	payload := validArchiveCSV(25)

	first := validator.Validate(payload)
	second := validator.Validate(payload)

	assert.Equal(t, first, second)
}

func TestValidateDateRangeMetadata(t *testing.T) {
	validator := NewDrawDataValidator()

	lines := []string{
		archiveHeader(),
		archiveRow(4000, "01/06/2026", []int{3, 11, 17, 22, 29, 36}, 4),
		archiveRow(3999, "15/03/2026", []int{2, 9, 16, 24, 31, 37}, 5),
		archiveRow(3998, "20/05/2026", []int{5, 7, 12, 19, 26, 33}, 6),
		archiveRow(3997, "10/04/2026", []int{1, 8, 15, 23, 30, 35}, 7),
		archiveRow(3996, "01/05/2026", []int{3, 11, 17, 22, 29, 36}, 1),
	}

	outcome := validator.Validate(strings.Join(lines, "\n"))

	assert.Equal(t, "2026-03-15", outcome.EarliestDate)
	assert.Equal(t, "2026-06-01", outcome.LatestDate)
}

func TestQualityScoreDegradesMonotonically(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	validator := NewDrawDataValidator()

	properties.Property("appending corrupted rows never raises the score", prop.ForAll(
		func(badRows int) bool {
			base := validArchiveCSV(15)

			withFewer := appendBadRows(base, badRows)
			withMore := appendBadRows(base, badRows+1)

			return validator.Validate(withMore).DataQualityScore <= validator.Validate(withFewer).DataQualityScore
		},
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}

func appendBadRows(payload string, count int) string {
	lines := []string{payload}
	for i := 0; i < count; i++ {
		// Interleave valid rows so early termination does not mask the
		// later corrupted ones
		lines = append(lines, archiveRow(3900-2*i, "01/06/2026", safeNumberSets[i%len(safeNumberSets)], 3))
		lines = append(lines, archiveRow(3899-2*i, "01/06/2026", []int{0, 11, 17, 22, 29, 99}, 3))
	}
	return strings.Join(lines, "\n")
}
