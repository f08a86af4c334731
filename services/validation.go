package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/NanoLinuxDevops/WinSphere/models"
	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"
)

// Quality score penalties per row-level failure type
const (
	penaltyInsufficientColumns = 10
	penaltyDrawIDIssue         = 5
	penaltyDateIssue           = 3
	penaltyNumberMissing       = 3
	penaltyNumberOutOfRange    = 4
	penaltyDuplicateNumbers    = 8
	penaltyBonusIssue          = 3
	penaltySuspiciousPattern   = 2
	penaltyEarlyTermination    = 10
)

const (
	// maxConsecutiveInvalidRows triggers early termination, protecting
	// the scorer against pathological inputs.
	maxConsecutiveInvalidRows = 5

	// earliestPlausibleYear bounds draw dates from below; the lottery
	// archive does not predate 1975.
	earliestPlausibleYear = 1975

	// minimumQualityScore is the score below which a payload is rejected
	minimumQualityScore = 50

	drawIDGapNoticeThreshold  = 50
	drawIDGapWarningThreshold = 200
	maxToleratedLargeGaps     = 5

	frequencySkewRatioThreshold = 3.0
	minMainNumberDiversity      = 25
	minBonusNumberDiversity     = 5
)

// ValidatorConfig controls dataset-level acceptance rules.
type ValidatorConfig struct {
	// MinValidRecords, when positive, makes a smaller dataset a fatal
	// validation failure. Zero keeps the size rules advisory, which is
	// what preview surfaces (file upload inspection) want.
	MinValidRecords int
}

// DrawDataValidator performs structural, semantic and statistical checks
// on a raw archive payload and aggregates them into a quality score.
type DrawDataValidator struct {
	config ValidatorConfig
	now    func() time.Time
}

// NewDrawDataValidator creates a validator with advisory size rules
func NewDrawDataValidator() *DrawDataValidator {
	return NewDrawDataValidatorWithConfig(ValidatorConfig{})
}

// NewDrawDataValidatorWithConfig creates a validator with custom acceptance rules
func NewDrawDataValidatorWithConfig(config ValidatorConfig) *DrawDataValidator {
	return &DrawDataValidator{
		config: config,
		now:    time.Now,
	}
}

// headerAliases maps each required column to the spellings seen across
// archive exports. Matching is case-insensitive substring.
var headerAliases = []struct {
	name    string
	aliases []string
}{
	{"draw id", []string{"drawnumber", "draw_number", "draw no", "draw", "הגרלה"}},
	{"date", []string{"date", "תאריך"}},
	{"number 1", []string{"num1", "number1", "ball1", "1"}},
	{"number 2", []string{"num2", "number2", "ball2", "2"}},
	{"number 3", []string{"num3", "number3", "ball3", "3"}},
	{"number 4", []string{"num4", "number4", "ball4", "4"}},
	{"number 5", []string{"num5", "number5", "ball5", "5"}},
	{"number 6", []string{"num6", "number6", "ball6", "6"}},
	{"bonus", []string{"bonus", "strong", "extra", "המספר החזק"}},
}

// rowValidation carries the per-row outcome used by sequence-level checks
type rowValidation struct {
	valid   bool
	drawID  int
	date    string
	numbers []int
	bonus   int
}

// Validate runs the full validation pipeline over one raw payload and
// returns an immutable outcome. Identical input always yields an
// identical outcome.
func (v *DrawDataValidator) Validate(rawText string) models.ValidationOutcome {
	logger := logrus.WithFields(logrus.Fields{
		"component": "DrawDataValidator",
		"method":    "Validate",
	})

	outcome := models.ValidationOutcome{DataQualityScore: 100}

	// Stage 1: empty content is fatal
	if strings.TrimSpace(rawText) == "" {
		outcome.Errors = append(outcome.Errors, "Received empty content instead of draw data")
		outcome.DataQualityScore = 0
		return outcome
	}

	// Stage 2: an HTML error page in place of the expected payload is the
	// most common failure shape of the archive endpoint
	lowered := strings.ToLower(rawText[:min(len(rawText), 2048)])
	if strings.Contains(lowered, "<!doctype") || strings.Contains(lowered, "<html") {
		outcome.Errors = append(outcome.Errors, "Received HTML instead of draw data; the archive likely served an error page")
		outcome.DataQualityScore = 0
		return outcome
	}

	lines := nonEmptyLines(rawText)
	if len(lines) == 0 {
		outcome.Errors = append(outcome.Errors, "Received empty content instead of draw data")
		outcome.DataQualityScore = 0
		return outcome
	}

	// Stage 3: header validation
	headerOK, headerWarnings := v.validateHeader(lines[0])
	outcome.HasRequiredColumns = headerOK
	outcome.Warnings = append(outcome.Warnings, headerWarnings...)
	if !headerOK {
		outcome.Errors = append(outcome.Errors, "Header is missing required columns (draw id, date, six numbers, bonus)")
		outcome.DataQualityScore = 0
		return outcome
	}

	// Stage 4: per-row validation with accumulated penalties
	rows, penalty, rowErrors, terminatedEarly := v.validateRows(lines[1:])
	outcome.Errors = append(outcome.Errors, rowErrors...)
	outcome.TotalRecordCount = len(rows)

	validRows := make([]rowValidation, 0, len(rows))
	for _, row := range rows {
		if row.valid {
			validRows = append(validRows, row)
		}
	}
	outcome.ValidRecordCount = len(validRows)

	if terminatedEarly {
		penalty += penaltyEarlyTermination
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("Validation stopped early after %d consecutive invalid rows", maxConsecutiveInvalidRows))
	}

	// Stage 5: suspicious-pattern detection on valid rows
	suspiciousCount, patternWarnings := v.detectSuspiciousPatterns(validRows)
	outcome.Warnings = append(outcome.Warnings, patternWarnings...)
	penalty += suspiciousCount * penaltySuspiciousPattern

	// Stage 6: sequence-level checks
	penalty += v.checkDrawIDSequence(validRows, &outcome)
	fatal := v.checkDatasetSize(&outcome)
	v.checkStatisticalAnomalies(validRows, &outcome, &suspiciousCount)
	v.checkFreshness(validRows, &outcome)

	outcome.DataQualityScore -= penalty
	if outcome.DataQualityScore < 0 {
		outcome.DataQualityScore = 0
	}

	if outcome.TotalRecordCount > 0 {
		outcome.Metrics.CompletenessRatio = float64(outcome.ValidRecordCount) / float64(outcome.TotalRecordCount)
	}
	outcome.Metrics.NumberDiversity, outcome.Metrics.BonusDiversity = countDiversity(validRows)
	outcome.Metrics.SuspiciousPatternCount = suspiciousCount
	outcome.EarliestDate, outcome.LatestDate = dateRange(validRows)

	// Stage 7: overall validity. Row-level errors alone do not reject a
	// payload; tolerance for scattered bad rows is the point of the
	// scoring model. Stage-level failures do.
	outcome.IsValid = !fatal &&
		outcome.HasRequiredColumns &&
		outcome.DataQualityScore >= minimumQualityScore &&
		outcome.ValidRecordCount > 0

	logger.WithFields(logrus.Fields{
		"is_valid":      outcome.IsValid,
		"valid_records": outcome.ValidRecordCount,
		"total_records": outcome.TotalRecordCount,
		"quality_score": outcome.DataQualityScore,
		"error_count":   len(outcome.Errors),
		"warning_count": len(outcome.Warnings),
	}).Debug("Completed draw data validation")

	return outcome
}

func (v *DrawDataValidator) validateHeader(headerLine string) (bool, []string) {
	var warnings []string
	fields := strings.Split(headerLine, ",")
	loweredFields := make([]string, len(fields))
	blankColumns := 0
	for i, field := range fields {
		lowered := strings.ToLower(strings.TrimSpace(field))
		loweredFields[i] = lowered
		if lowered == "" {
			blankColumns++
		}
	}

	for _, column := range headerAliases {
		found := false
		for _, field := range loweredFieldsNonBlank(loweredFields) {
			if matchesAnyAlias(field, column.aliases) {
				found = true
				break
			}
		}
		if !found {
			return false, warnings
		}
	}

	if len(fields) < minimumRecordFields || len(fields) > 16 {
		warnings = append(warnings, fmt.Sprintf("Unusual header column count: %d", len(fields)))
	}
	if blankColumns > 0 {
		warnings = append(warnings, fmt.Sprintf("Header contains %d blank columns", blankColumns))
	}
	return true, warnings
}

func loweredFieldsNonBlank(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func matchesAnyAlias(field string, aliases []string) bool {
	for _, alias := range aliases {
		if strings.Contains(field, alias) {
			return true
		}
	}
	return false
}

// validateRows validates each data row, accumulating why rows failed.
// Returns all rows (valid and not), the total penalty, hard error strings
// and whether early termination kicked in.
func (v *DrawDataValidator) validateRows(dataLines []string) ([]rowValidation, int, []string, bool) {
	var rows []rowValidation
	var errors []string
	penalty := 0
	consecutiveInvalid := 0
	seenDrawIDs := make(map[int]bool)

	for index, line := range dataLines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		row, rowPenalty, rowError := v.validateRow(line, index+1, seenDrawIDs)
		rows = append(rows, row)
		penalty += rowPenalty
		if rowError != "" {
			errors = appendBounded(errors, rowError, 25)
		}

		if row.valid {
			consecutiveInvalid = 0
			seenDrawIDs[row.drawID] = true
		} else {
			consecutiveInvalid++
			if consecutiveInvalid >= maxConsecutiveInvalidRows {
				return rows, penalty, errors, true
			}
		}
	}
	return rows, penalty, errors, false
}

func (v *DrawDataValidator) validateRow(line string, rowNumber int, seenDrawIDs map[int]bool) (rowValidation, int, string) {
	fields := strings.Split(line, ",")
	if len(fields) < minimumRecordFields {
		return rowValidation{}, penaltyInsufficientColumns,
			fmt.Sprintf("Row %d: insufficient columns (%d, minimum %d)", rowNumber, len(fields), minimumRecordFields)
	}

	row := rowValidation{}
	penalty := 0
	var problems []string

	drawIDField := strings.TrimSpace(fields[0])
	drawID, err := strconv.Atoi(drawIDField)
	switch {
	case drawIDField == "":
		penalty += penaltyDrawIDIssue
		problems = append(problems, "missing draw id")
	case err != nil:
		penalty += penaltyDrawIDIssue
		problems = append(problems, fmt.Sprintf("non-numeric draw id %q", drawIDField))
	case drawID <= 0:
		penalty += penaltyDrawIDIssue
		problems = append(problems, fmt.Sprintf("draw id out of range: %d", drawID))
	case seenDrawIDs[drawID]:
		penalty += penaltyDrawIDIssue
		problems = append(problems, fmt.Sprintf("duplicate draw id %d", drawID))
	default:
		row.drawID = drawID
	}

	dateField := strings.TrimSpace(fields[1])
	if isoDate, ok := NormalizeDrawDate(dateField); ok {
		if v.dateIsPlausible(isoDate) {
			row.date = isoDate
		} else {
			penalty += penaltyDateIssue
			problems = append(problems, fmt.Sprintf("implausible date %q", dateField))
		}
	} else {
		penalty += penaltyDateIssue
		if dateField == "" {
			problems = append(problems, "missing date")
		} else {
			problems = append(problems, fmt.Sprintf("unparseable date %q", dateField))
		}
	}

	numbers := make([]int, 0, models.MainNumberCount)
	seenNumbers := make(map[int]bool, models.MainNumberCount)
	duplicateInRow := false
	for i := 2; i < 2+models.MainNumberCount; i++ {
		field := strings.TrimSpace(fields[i])
		n, err := strconv.Atoi(field)
		switch {
		case field == "" || err != nil:
			penalty += penaltyNumberMissing
			problems = append(problems, fmt.Sprintf("non-numeric number %q in position %d", field, i-1))
			continue
		case n < models.MainNumberMin || n > models.MainNumberMax:
			penalty += penaltyNumberOutOfRange
			problems = append(problems, fmt.Sprintf("number %d out of range [%d,%d]", n, models.MainNumberMin, models.MainNumberMax))
			continue
		case seenNumbers[n]:
			duplicateInRow = true
			continue
		}
		seenNumbers[n] = true
		numbers = append(numbers, n)
	}
	if duplicateInRow {
		penalty += penaltyDuplicateNumbers
		problems = append(problems, "Duplicate numbers in the same draw")
	}
	row.numbers = numbers

	bonusField := strings.TrimSpace(fields[8])
	bonus, err := strconv.Atoi(bonusField)
	switch {
	case bonusField == "" || err != nil:
		penalty += penaltyBonusIssue
		problems = append(problems, fmt.Sprintf("non-numeric bonus %q", bonusField))
	case bonus < models.BonusNumberMin || bonus > models.BonusNumberMax:
		penalty += penaltyBonusIssue
		problems = append(problems, fmt.Sprintf("bonus %d out of range [%d,%d]", bonus, models.BonusNumberMin, models.BonusNumberMax))
	default:
		row.bonus = bonus
	}

	row.valid = len(problems) == 0 &&
		row.drawID > 0 &&
		row.date != "" &&
		len(row.numbers) == models.MainNumberCount &&
		row.bonus >= models.BonusNumberMin

	if len(problems) > 0 {
		return row, penalty, fmt.Sprintf("Row %d: %s", rowNumber, strings.Join(problems, "; "))
	}
	return row, penalty, ""
}

func (v *DrawDataValidator) dateIsPlausible(isoDate string) bool {
	parsed, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return false
	}
	if parsed.Year() < earliestPlausibleYear {
		return false
	}
	return !parsed.After(v.now().AddDate(1, 0, 0))
}

// detectSuspiciousPatterns flags rows whose numbers look non-random: a run
// of four or more consecutive ascending values, or all six numbers landing
// in the same third of the range.
func (v *DrawDataValidator) detectSuspiciousPatterns(rows []rowValidation) (int, []string) {
	count := 0
	var warnings []string

	for _, row := range rows {
		sorted := append([]int(nil), row.numbers...)
		sort.Ints(sorted)

		if hasConsecutiveRun(sorted, 4) {
			count++
			warnings = appendBounded(warnings,
				fmt.Sprintf("Draw %d contains 4+ consecutive ascending numbers", row.drawID), 10)
			continue
		}

		third := (models.MainNumberMax - models.MainNumberMin + 1) / 3
		lowCut := models.MainNumberMin + third - 1
		highCut := models.MainNumberMax - third + 1
		if sorted[len(sorted)-1] <= lowCut {
			count++
			warnings = appendBounded(warnings,
				fmt.Sprintf("Draw %d has all numbers in the low third of the range", row.drawID), 10)
		} else if sorted[0] >= highCut {
			count++
			warnings = appendBounded(warnings,
				fmt.Sprintf("Draw %d has all numbers in the high third of the range", row.drawID), 10)
		} else if sorted[0] > lowCut && sorted[len(sorted)-1] < highCut {
			count++
			warnings = appendBounded(warnings,
				fmt.Sprintf("Draw %d has all numbers in the middle third of the range", row.drawID), 10)
		}
	}
	return count, warnings
}

func hasConsecutiveRun(sorted []int, runLength int) bool {
	run := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1]+1 {
			run++
			if run >= runLength {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// checkDrawIDSequence analyzes gaps between consecutive draw ids
func (v *DrawDataValidator) checkDrawIDSequence(rows []rowValidation, outcome *models.ValidationOutcome) int {
	if len(rows) < 2 {
		return 0
	}

	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.drawID)
	}
	sort.Ints(ids)

	largeGaps := 0
	penalty := 0
	for i := 1; i < len(ids); i++ {
		gap := ids[i] - ids[i-1]
		if gap > drawIDGapWarningThreshold {
			largeGaps++
			outcome.Warnings = appendBounded(outcome.Warnings,
				fmt.Sprintf("Large draw id gap: %d between draws %d and %d", gap, ids[i-1], ids[i]), 10)
		} else if gap > drawIDGapNoticeThreshold {
			largeGaps++
		}
	}

	if largeGaps > maxToleratedLargeGaps {
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("Draw sequence has %d large gaps; the archive export may be incomplete", largeGaps))
		penalty += 2
	}
	return penalty
}

// checkDatasetSize applies the dataset size rules and reports whether a
// fatal size violation occurred.
func (v *DrawDataValidator) checkDatasetSize(outcome *models.ValidationOutcome) bool {
	count := outcome.ValidRecordCount
	switch {
	case count == 0:
		outcome.Errors = append(outcome.Errors, "No valid draw records found in payload")
		outcome.DataQualityScore = 0
		return true
	case v.config.MinValidRecords > 0 && count < v.config.MinValidRecords:
		outcome.Errors = append(outcome.Errors,
			fmt.Sprintf("Dataset too small: %d records (minimum %d required)", count, v.config.MinValidRecords))
		return true
	case count < 5:
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("Dataset too small for reliable processing: %d records", count))
	case count < 20:
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("Small dataset: %d records", count))
	case count < 50:
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("Moderate dataset: %d records; statistics may be noisy", count))
	}
	return false
}

// checkStatisticalAnomalies inspects number and bonus frequency
// distributions for skew that suggests a corrupted or truncated export.
func (v *DrawDataValidator) checkStatisticalAnomalies(rows []rowValidation, outcome *models.ValidationOutcome, suspiciousCount *int) {
	if len(rows) < 20 {
		return
	}

	frequencies := make([]float64, 0, models.MainNumberMax)
	counts := make(map[int]int)
	for _, row := range rows {
		for _, n := range row.numbers {
			counts[n]++
		}
	}
	for n := models.MainNumberMin; n <= models.MainNumberMax; n++ {
		frequencies = append(frequencies, float64(counts[n]))
	}

	maxFreq, _ := stats.Max(frequencies)
	minFreq, _ := stats.Min(frequencies)
	avgFreq, _ := stats.Mean(frequencies)

	if avgFreq > 0 && maxFreq/avgFreq > frequencySkewRatioThreshold {
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("Number frequency skew detected: max %.0f vs average %.1f", maxFreq, avgFreq))
		*suspiciousCount++
	}
	if len(rows) >= 50 && minFreq == 0 {
		outcome.Warnings = append(outcome.Warnings,
			"Some numbers never appear despite a large dataset")
		*suspiciousCount++
	}

	numberDiversity, bonusDiversity := countDiversity(rows)
	if numberDiversity < minMainNumberDiversity {
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("Low number diversity: only %d distinct main numbers", numberDiversity))
	}
	if bonusDiversity < minBonusNumberDiversity {
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("Low bonus diversity: only %d distinct bonus numbers", bonusDiversity))
	}
}

// checkFreshness warns in tiers on the age of the latest draw date
func (v *DrawDataValidator) checkFreshness(rows []rowValidation, outcome *models.ValidationOutcome) {
	latest := time.Time{}
	for _, row := range rows {
		if parsed, err := time.Parse("2006-01-02", row.date); err == nil && parsed.After(latest) {
			latest = parsed
		}
	}
	if latest.IsZero() {
		return
	}

	ageDays := int(v.now().Sub(latest).Hours() / 24)
	switch {
	case ageDays > 90:
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("Data is severely outdated: latest draw is %d days old", ageDays))
	case ageDays > 30:
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("Data is outdated: latest draw is %d days old", ageDays))
	case ageDays > 7:
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("Data is slightly stale: latest draw is %d days old", ageDays))
	}
}

func countDiversity(rows []rowValidation) (int, int) {
	mains := make(map[int]bool)
	bonuses := make(map[int]bool)
	for _, row := range rows {
		for _, n := range row.numbers {
			mains[n] = true
		}
		if row.bonus > 0 {
			bonuses[row.bonus] = true
		}
	}
	return len(mains), len(bonuses)
}

func dateRange(rows []rowValidation) (string, string) {
	earliest, latest := "", ""
	for _, row := range rows {
		if row.date == "" {
			continue
		}
		if earliest == "" || row.date < earliest {
			earliest = row.date
		}
		if latest == "" || row.date > latest {
			latest = row.date
		}
	}
	return earliest, latest
}

func nonEmptyLines(rawText string) []string {
	var lines []string
	for _, line := range strings.Split(rawText, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// appendBounded appends message unless the list already holds limit
// entries, keeping error lists readable on pathological inputs.
func appendBounded(list []string, message string, limit int) []string {
	if len(list) >= limit {
		return list
	}
	return append(list, message)
}
