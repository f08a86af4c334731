package services

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/NanoLinuxDevops/WinSphere/models"
	"github.com/sirupsen/logrus"
)

const (
	// minimumRecordFields is the smallest column count a data row may
	// carry: draw id, date, six main numbers and the bonus. Trailing
	// extra columns are ignored.
	minimumRecordFields = 9

	// chunkedParseThresholdBytes switches parsing to bounded chunks with
	// yield points so a very large archive download does not monopolize
	// the scheduler.
	chunkedParseThresholdBytes = 1 << 20

	// parseChunkLines is the number of rows handled between yield points
	parseChunkLines = 2000
)

// DrawRecordParser converts raw delimited archive text into typed draw
// records. It is tolerant: a malformed row is dropped and parsing
// continues; no single bad row aborts the whole parse.
type DrawRecordParser struct {
	maxRecords int
}

// NewDrawRecordParser creates a parser that trims its output to maxRecords,
// keeping the most recent draws (highest draw id).
func NewDrawRecordParser(maxRecords int) *DrawRecordParser {
	if maxRecords <= 0 {
		maxRecords = 2000
	}
	return &DrawRecordParser{maxRecords: maxRecords}
}

// Parse converts raw text into draw records sorted descending by draw id.
// The first non-empty line is treated as the header and skipped. The only
// error returned is context cancellation during chunked parsing.
func (p *DrawRecordParser) Parse(ctx context.Context, rawText string) ([]models.DrawRecord, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "DrawRecordParser",
		"method":    "Parse",
	})

	lines := strings.Split(rawText, "\n")
	chunked := len(rawText) > chunkedParseThresholdBytes

	// Peak memory during a large parse is bounded at twice the final cap;
	// the result is trimmed to the cap at the end.
	intermediateCap := p.maxRecords * 2

	records := make([]models.DrawRecord, 0, min(len(lines), intermediateCap))
	headerSkipped := false
	droppedRows := 0

	for i, line := range lines {
		if chunked && i > 0 && i%parseChunkLines == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
				runtime.Gosched()
			}
			if len(records) > intermediateCap {
				records = p.trimToMostRecent(records, intermediateCap)
			}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !headerSkipped {
			headerSkipped = true
			continue
		}

		record, ok := p.parseLine(line)
		if !ok {
			droppedRows++
			continue
		}
		records = append(records, record)
	}

	records = p.trimToMostRecent(records, p.maxRecords)

	logger.WithFields(logrus.Fields{
		"parsed_records": len(records),
		"dropped_rows":   droppedRows,
		"chunked":        chunked,
	}).Debug("Completed parsing draw archive text")

	return records, nil
}

// parseLine parses one candidate data row. Any field that fails to parse
// or falls outside its valid range drops the whole row.
func (p *DrawRecordParser) parseLine(line string) (models.DrawRecord, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < minimumRecordFields {
		return models.DrawRecord{}, false
	}

	drawID, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || drawID <= 0 {
		return models.DrawRecord{}, false
	}

	date, ok := NormalizeDrawDate(strings.TrimSpace(fields[1]))
	if !ok {
		// A row whose date cannot be parsed is rejected rather than
		// silently stamped with today's date; the substitution would
		// corrupt the record.
		return models.DrawRecord{}, false
	}

	numbers := make([]int, 0, models.MainNumberCount)
	seen := make(map[int]bool, models.MainNumberCount)
	for i := 2; i < 2+models.MainNumberCount; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil || n < models.MainNumberMin || n > models.MainNumberMax || seen[n] {
			return models.DrawRecord{}, false
		}
		seen[n] = true
		numbers = append(numbers, n)
	}

	bonus, err := strconv.Atoi(strings.TrimSpace(fields[8]))
	if err != nil || bonus < models.BonusNumberMin || bonus > models.BonusNumberMax {
		return models.DrawRecord{}, false
	}

	return models.DrawRecord{
		DrawID:  drawID,
		Date:    date,
		Numbers: numbers,
		Bonus:   bonus,
	}, true
}

// trimToMostRecent sorts descending by draw id and keeps the first limit records
func (p *DrawRecordParser) trimToMostRecent(records []models.DrawRecord, limit int) []models.DrawRecord {
	sort.Slice(records, func(i, j int) bool {
		return records[i].DrawID > records[j].DrawID
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

// NormalizeDrawDate converts DD/MM/YYYY or DD.MM.YYYY archive dates to an
// ISO YYYY-MM-DD string. The second return value reports whether the input
// was a plausible calendar date.
func NormalizeDrawDate(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	separator := ""
	switch {
	case strings.Contains(raw, "/"):
		separator = "/"
	case strings.Contains(raw, "."):
		separator = "."
	case strings.Count(raw, "-") == 2 && len(raw) == 10 && raw[4] == '-':
		// Already ISO
		if _, err := time.Parse("2006-01-02", raw); err == nil {
			return raw, true
		}
		return "", false
	default:
		return "", false
	}

	parts := strings.Split(raw, separator)
	if len(parts) != 3 {
		return "", false
	}

	day, errDay := strconv.Atoi(parts[0])
	month, errMonth := strconv.Atoi(parts[1])
	year, errYear := strconv.Atoi(parts[2])
	if errDay != nil || errMonth != nil || errYear != nil {
		return "", false
	}

	iso := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	if _, err := time.Parse("2006-01-02", iso); err != nil {
		return "", false
	}
	return iso, true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
