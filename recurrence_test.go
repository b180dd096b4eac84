package jevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNDay(t *testing.T) {
	nd, err := ParseNDay("MO")
	require.NoError(t, err)
	assert.Equal(t, NDay{Day: "mo"}, nd)

	nd, err = ParseNDay("-1SU")
	require.NoError(t, err)
	require.NotNil(t, nd.NthOfPeriod)
	assert.Equal(t, "su", nd.Day)
	assert.Equal(t, -1, *nd.NthOfPeriod)
	assert.Equal(t, "-1SU", nd.String())

	for _, bad := range []string{"", "M", "XX", "0MO", "xMO"} {
		_, err := ParseNDay(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestRecurrenceRuleValidateRanges(t *testing.T) {
	tests := []struct {
		name string
		rule RecurrenceRule
		path string
	}{
		{"byDate zero", RecurrenceRule{Frequency: FreqMonthly, ByDate: []int{0}}, "byDate[0]"},
		{"byDate high", RecurrenceRule{Frequency: FreqMonthly, ByDate: []int{32}}, "byDate[0]"},
		{"byMonth zero", RecurrenceRule{Frequency: FreqYearly, ByMonth: []int{0}}, "byMonth[0]"},
		{"byMonth high", RecurrenceRule{Frequency: FreqYearly, ByMonth: []int{13}}, "byMonth[0]"},
		{"byYearDay", RecurrenceRule{Frequency: FreqYearly, ByYearDay: []int{-367}}, "byYearDay[0]"},
		{"byWeekNo", RecurrenceRule{Frequency: FreqYearly, ByWeekNo: []int{54}}, "byWeekNo[0]"},
		{"byHour", RecurrenceRule{Frequency: FreqDaily, ByHour: []int{24}}, "byHour[0]"},
		{"byMinute", RecurrenceRule{Frequency: FreqDaily, ByMinute: []int{60}}, "byMinute[0]"},
		{"bySecond", RecurrenceRule{Frequency: FreqDaily, BySecond: []int{60}}, "bySecond[0]"},
		{"bySetPosition", RecurrenceRule{Frequency: FreqDaily, BySetPosition: []int{400}}, "bySetPosition[0]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, errorPaths(tc.rule.Validate()), tc.path)
		})
	}

	// Zero is valid where the range permits it.
	ok := RecurrenceRule{
		Frequency:     FreqDaily,
		ByHour:        []int{0, 23},
		ByMinute:      []int{0, 59},
		BySecond:      []int{0, 59},
		BySetPosition: []int{0},
	}
	assert.Empty(t, ok.Validate())
}

func TestRecurrenceRuleValidateMisc(t *testing.T) {
	bad := 0
	rule := RecurrenceRule{
		Frequency: Frequency("fortnightly"),
		Interval:  &bad,
		ByDay:     []NDay{{Day: "mo", NthOfPeriod: &bad}},
	}
	paths := errorPaths(rule.Validate())
	assert.Contains(t, paths, "frequency")
	assert.Contains(t, paths, "interval")
	assert.Contains(t, paths, "byDay[0].nthOfPeriod")
}

func TestRecurrenceRuleBounded(t *testing.T) {
	rule := RecurrenceRule{Frequency: FreqWeekly}
	assert.False(t, rule.IsBounded())

	count := 3
	rule.Count = &count
	assert.True(t, rule.IsBounded())
	assert.Empty(t, rule.Validate())

	rule.Count = nil
	until, err := ParseLocalDateTime("2024-06-01T00:00:00")
	require.NoError(t, err)
	rule.Until = &until
	assert.True(t, rule.IsBounded())
	assert.Empty(t, rule.Validate())
}
