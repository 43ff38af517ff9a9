package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"01/05/2024", day(2024, 1, 5)},
		{"1/5/2024", day(2024, 1, 5)},
		{"01/05/24", day(2024, 1, 5)},
		{"01-05-24", day(2024, 1, 5)},
		{"2024-01-05", day(2024, 1, 5)},
		{"2024-01-05 13:45:00", day(2024, 1, 5)},
		{"2024-01-05T00:00:00Z", day(2024, 1, 5)},
		{"  12/31/2023  ", day(2023, 12, 31)},
		{"", time.Time{}},
		{"  /  /    ", time.Time{}},
		{"13/45/2024", time.Time{}},
		{"45296", time.Time{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseDate(tt.in), "parseDate(%q)", tt.in)
	}
}

func TestParseSheetDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"45292", day(2024, 1, 1)},
		{"45296", day(2024, 1, 5)},
		{"45296.75", day(2024, 1, 5)},
		{"01/05/2024", day(2024, 1, 5)},
		{"0", time.Time{}},
		{"-3", time.Time{}},
		{"n/a", time.Time{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSheetDate(tt.in), "parseSheetDate(%q)", tt.in)
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.30", "1.3"},
		{"-2.00", "-2"},
		{"$1,234.50", "1234.5"},
		{"(12.00)", "-12"},
		{"3.5-", "-3.5"},
		{"", "0"},
		{"abc", "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseDecimal(tt.in).String(), "parseDecimal(%q)", tt.in)
	}
}

func TestChargeFromFields_ShortRow(t *testing.T) {
	c := chargeFromFields([]string{"01/08/2024", "01/05/2024", " Lee , Jonathan MD "}, parseDate)
	assert.Equal(t, day(2024, 1, 8), c.PostedDate)
	assert.Equal(t, "Lee , Jonathan MD", c.Provider)
	assert.Empty(t, c.CPT)
	assert.True(t, c.WRVU.IsZero())
}
