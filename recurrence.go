package jevent

import (
	"fmt"
	"strings"
)

// RecurrenceRule describes how an event repeats. Exactly zero or one of
// Count and Until may be set. Until is a local date-time in the event's
// start timezone; the codec converts it to a UTC instant on the wire.
type RecurrenceRule struct {
	Frequency      Frequency      `json:"frequency"`
	Interval       *int           `json:"interval,omitempty"`
	RScale         *string        `json:"rscale,omitempty"`
	Skip           *Skip          `json:"skip,omitempty"`
	FirstDayOfWeek *string        `json:"firstDayOfWeek,omitempty"`
	ByDay          []NDay         `json:"byDay,omitempty"`
	ByMonth        []int          `json:"byMonth,omitempty"`
	ByDate         []int          `json:"byDate,omitempty"`
	ByYearDay      []int          `json:"byYearDay,omitempty"`
	ByWeekNo       []int          `json:"byWeekNo,omitempty"`
	ByHour         []int          `json:"byHour,omitempty"`
	ByMinute       []int          `json:"byMinute,omitempty"`
	BySecond       []int          `json:"bySecond,omitempty"`
	BySetPosition  []int          `json:"bySetPosition,omitempty"`
	Count          *int           `json:"count,omitempty"`
	Until          *LocalDateTime `json:"until,omitempty"`
}

// NDay is a weekday, optionally restricted to the nth occurrence within the
// recurrence period. NthOfPeriod is never zero.
type NDay struct {
	Day         string `json:"day"`
	NthOfPeriod *int   `json:"nthOfPeriod,omitempty"`
}

// Frequency is the base recurrence frequency.
type Frequency string

const (
	FreqSecondly Frequency = "secondly"
	FreqMinutely Frequency = "minutely"
	FreqHourly   Frequency = "hourly"
	FreqDaily    Frequency = "daily"
	FreqWeekly   Frequency = "weekly"
	FreqMonthly  Frequency = "monthly"
	FreqYearly   Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FreqSecondly, FreqMinutely, FreqHourly, FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return true
	}
	return false
}

// Skip is the RFC 7529 skip behavior for non-existent dates under RSCALE.
type Skip string

const (
	SkipOmit     Skip = "omit"
	SkipBackward Skip = "backward"
	SkipForward  Skip = "forward"
)

func (s Skip) Valid() bool {
	switch s {
	case SkipOmit, SkipBackward, SkipForward:
		return true
	}
	return false
}

var weekdayNames = map[string]bool{
	"mo": true, "tu": true, "we": true, "th": true,
	"fr": true, "sa": true, "su": true,
}

// ValidWeekday reports whether s is a lowercase two-letter weekday name.
func ValidWeekday(s string) bool {
	return weekdayNames[s]
}

// byRange is a closed range constraint on a by-X array.
type byRange struct {
	min, max int
	zeroOK   bool
}

func (r byRange) check(vals []int, field string) []PropertyError {
	var errs []PropertyError
	for i, v := range vals {
		if v < r.min || v > r.max || (v == 0 && !r.zeroOK) {
			errs = append(errs, PropertyError{
				Path:    fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("value %d out of range", v),
			})
		}
	}
	return errs
}

// Validate checks every field of the rule. Paths are relative to the rule.
func (r *RecurrenceRule) Validate() []PropertyError {
	var errs []PropertyError
	if !r.Frequency.Valid() {
		errs = append(errs, PropertyError{Path: "frequency", Message: fmt.Sprintf("invalid value %q", r.Frequency)})
	}
	if r.Interval != nil && *r.Interval < 1 {
		errs = append(errs, PropertyError{Path: "interval", Message: "must be at least 1"})
	}
	if r.Skip != nil && !r.Skip.Valid() {
		errs = append(errs, PropertyError{Path: "skip", Message: fmt.Sprintf("invalid value %q", *r.Skip)})
	}
	if r.FirstDayOfWeek != nil && !ValidWeekday(*r.FirstDayOfWeek) {
		errs = append(errs, PropertyError{Path: "firstDayOfWeek", Message: fmt.Sprintf("invalid weekday %q", *r.FirstDayOfWeek)})
	}
	for i, nd := range r.ByDay {
		if !ValidWeekday(nd.Day) {
			errs = append(errs, PropertyError{Path: fmt.Sprintf("byDay[%d].day", i), Message: fmt.Sprintf("invalid weekday %q", nd.Day)})
		}
		if nd.NthOfPeriod != nil && *nd.NthOfPeriod == 0 {
			errs = append(errs, PropertyError{Path: fmt.Sprintf("byDay[%d].nthOfPeriod", i), Message: "must not be zero"})
		}
	}
	errs = append(errs, byRange{1, 12, false}.check(r.ByMonth, "byMonth")...)
	errs = append(errs, byRange{-31, 31, false}.check(r.ByDate, "byDate")...)
	errs = append(errs, byRange{-366, 366, false}.check(r.ByYearDay, "byYearDay")...)
	errs = append(errs, byRange{-53, 53, false}.check(r.ByWeekNo, "byWeekNo")...)
	errs = append(errs, byRange{0, 23, true}.check(r.ByHour, "byHour")...)
	errs = append(errs, byRange{0, 59, true}.check(r.ByMinute, "byMinute")...)
	errs = append(errs, byRange{0, 59, true}.check(r.BySecond, "bySecond")...)
	errs = append(errs, byRange{-366, 366, true}.check(r.BySetPosition, "bySetPosition")...)
	if r.Count != nil && r.Until != nil {
		errs = append(errs, PropertyError{Path: "count", Message: "count and until are mutually exclusive"})
	}
	if r.Count != nil && *r.Count < 1 {
		errs = append(errs, PropertyError{Path: "count", Message: "must be at least 1"})
	}
	return errs
}

// IsBounded reports whether the rule has a finite number of occurrences.
func (r *RecurrenceRule) IsBounded() bool {
	return r.Count != nil || r.Until != nil
}

// ParseNDay parses an RRULE BYDAY entry such as "MO" or "-1SU".
func ParseNDay(s string) (NDay, error) {
	if len(s) < 2 {
		return NDay{}, fmt.Errorf("jevent: invalid BYDAY entry %q", s)
	}
	day := strings.ToLower(s[len(s)-2:])
	if !ValidWeekday(day) {
		return NDay{}, fmt.Errorf("jevent: invalid BYDAY entry %q", s)
	}
	nd := NDay{Day: day}
	if num := s[:len(s)-2]; num != "" {
		n := 0
		if _, err := fmt.Sscanf(num, "%d", &n); err != nil || n == 0 {
			return NDay{}, fmt.Errorf("jevent: invalid BYDAY entry %q", s)
		}
		nd.NthOfPeriod = &n
	}
	return nd, nil
}

// String renders the entry in RRULE form.
func (nd NDay) String() string {
	if nd.NthOfPeriod != nil {
		return fmt.Sprintf("%d%s", *nd.NthOfPeriod, strings.ToUpper(nd.Day))
	}
	return strings.ToUpper(nd.Day)
}
