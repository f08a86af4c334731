package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// safeNumberSets are combinations that trip none of the suspicious
// pattern detectors: no four consecutive values, spread across the range.
var safeNumberSets = [][]int{
	{3, 11, 17, 22, 29, 36},
	{2, 9, 16, 24, 31, 37},
	{5, 7, 12, 19, 26, 33},
	{1, 8, 15, 23, 30, 35},
}

func archiveHeader() string {
	return "DrawNumber,Date,Num1,Num2,Num3,Num4,Num5,Num6,Bonus"
}

func archiveRow(drawID int, date string, numbers []int, bonus int) string {
	fields := []string{fmt.Sprintf("%d", drawID), date}
	for _, n := range numbers {
		fields = append(fields, fmt.Sprintf("%d", n))
	}
	fields = append(fields, fmt.Sprintf("%d", bonus))
	return strings.Join(fields, ",")
}

// validArchiveCSV builds a payload of count well-formed rows with recent
// dates and descending draw ids starting at 4000.
func validArchiveCSV(count int) string {
	lines := []string{archiveHeader()}
	for i := 0; i < count; i++ {
		date := time.Now().AddDate(0, 0, -3*i).Format("02/01/2006")
		numbers := safeNumberSets[i%len(safeNumberSets)]
		lines = append(lines, archiveRow(4000-i, date, numbers, i%7+1))
	}
	return strings.Join(lines, "\n")
}

func TestParseValidArchive(t *testing.T) {
	parser := NewDrawRecordParser(2000)

	records, err := parser.Parse(context.Background(), validArchiveCSV(10))
	require.NoError(t, err)
	require.Len(t, records, 10)

	// Sorted descending by draw id
	for i := 1; i < len(records); i++ {
		assert.Greater(t, records[i-1].DrawID, records[i].DrawID)
	}
	assert.Equal(t, 4000, records[0].DrawID)
	assert.Len(t, records[0].Numbers, 6)
	assert.True(t, records[0].IsValid())
}

func TestParseDropsMalformedRows(t *testing.T) {
	// Bad rows in order: too few columns, impossible date, number out of
	// range, duplicate numbers, bonus out of range, negative draw id
	lines := []string{
		archiveHeader(),
		archiveRow(4000, "01/06/2026", []int{3, 11, 17, 22, 29, 36}, 4),
		"not,a,row",
		archiveRow(3999, "31/02/2026", []int{3, 11, 17, 22, 29, 36}, 4),
		archiveRow(3998, "01/06/2026", []int{3, 11, 17, 22, 29, 99}, 4),
		archiveRow(3997, "01/06/2026", []int{3, 3, 17, 22, 29, 36}, 4),
		archiveRow(3996, "01/06/2026", []int{3, 11, 17, 22, 29, 36}, 9),
		archiveRow(-12, "01/06/2026", []int{3, 11, 17, 22, 29, 36}, 4),
		archiveRow(3995, "01/06/2026", []int{2, 9, 16, 24, 31, 37}, 7),
	}
	parser := NewDrawRecordParser(2000)

	records, err := parser.Parse(context.Background(), strings.Join(lines, "\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 4000, records[0].DrawID)
	assert.Equal(t, 3995, records[1].DrawID)
}

func TestParseTrimsToMostRecent(t *testing.T) {
	parser := NewDrawRecordParser(5)

	records, err := parser.Parse(context.Background(), validArchiveCSV(20))
	require.NoError(t, err)
	require.Len(t, records, 5)

	// The five highest draw ids survive
	assert.Equal(t, 4000, records[0].DrawID)
	assert.Equal(t, 3996, records[4].DrawID)
}

func TestParseSkipsHeaderOnly(t *testing.T) {
	parser := NewDrawRecordParser(2000)

	records, err := parser.Parse(context.Background(), archiveHeader())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNormalizeDrawDate(t *testing.T) {
	cases := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"15/06/2026", "2026-06-15", true},
		{"15.06.2026", "2026-06-15", true},
		{"2026-06-15", "2026-06-15", true},
		{"1/1/2026", "2026-01-01", true},
		{"31/02/2026", "", false},
		{"15-06-2026", "", false},
		{"June 15 2026", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		normalized, ok := NormalizeDrawDate(tc.input)
		assert.Equal(t, tc.ok, ok, "input %q", tc.input)
		if tc.ok {
			assert.Equal(t, tc.expected, normalized, "input %q", tc.input)
		}
	}
}
