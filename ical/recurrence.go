package ical

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/calens/go-jevent"
)

// decodeRecurrenceRule parses an RRULE value. Until instants on the wire are
// UTC; they are stored as local date-times in the event's start zone.
func (c *conv) decodeRecurrenceRule(value string, start tzBinding) *jevent.RecurrenceRule {
	rule := &jevent.RecurrenceRule{}
	ok := true
	for _, part := range strings.Split(value, ";") {
		key, val, found := strings.Cut(part, "=")
		if !found {
			c.errf("malformed rule part %q", part)
			ok = false
			continue
		}
		switch strings.ToUpper(key) {
		case "FREQ":
			rule.Frequency = jevent.Frequency(strings.ToLower(val))
		case "INTERVAL":
			n, err := strconv.Atoi(val)
			if err != nil {
				c.errAt("interval", "invalid value %q", val)
				ok = false
				continue
			}
			rule.Interval = &n
		case "RSCALE":
			scale := strings.ToLower(val)
			rule.RScale = &scale
		case "SKIP":
			skip := jevent.Skip(strings.ToLower(val))
			rule.Skip = &skip
		case "WKST":
			day := strings.ToLower(val)
			rule.FirstDayOfWeek = &day
		case "COUNT":
			n, err := strconv.Atoi(val)
			if err != nil {
				c.errAt("count", "invalid value %q", val)
				ok = false
				continue
			}
			rule.Count = &n
		case "UNTIL":
			t, isDate, err := parseICalValue(val, start.location())
			if err != nil {
				c.errAt("until", "invalid value %q", val)
				ok = false
				continue
			}
			var local jevent.LocalDateTime
			if isDate {
				local = jevent.NewLocalDateTime(t)
			} else {
				local = jevent.NewLocalDateTime(t.In(start.location()))
			}
			rule.Until = &local
		case "BYDAY":
			for i, entry := range strings.Split(val, ",") {
				nd, err := jevent.ParseNDay(entry)
				if err != nil {
					c.errAt(fmt.Sprintf("byDay[%d]", i), "invalid value %q", entry)
					ok = false
					continue
				}
				rule.ByDay = append(rule.ByDay, nd)
			}
		case "BYMONTH":
			rule.ByMonth = c.decodeIntList(val, "byMonth", &ok)
		case "BYMONTHDAY":
			rule.ByDate = c.decodeIntList(val, "byDate", &ok)
		case "BYYEARDAY":
			rule.ByYearDay = c.decodeIntList(val, "byYearDay", &ok)
		case "BYWEEKNO":
			rule.ByWeekNo = c.decodeIntList(val, "byWeekNo", &ok)
		case "BYHOUR":
			rule.ByHour = c.decodeIntList(val, "byHour", &ok)
		case "BYMINUTE":
			rule.ByMinute = c.decodeIntList(val, "byMinute", &ok)
		case "BYSECOND":
			rule.BySecond = c.decodeIntList(val, "bySecond", &ok)
		case "BYSETPOS":
			rule.BySetPosition = c.decodeIntList(val, "bySetPosition", &ok)
		}
	}
	for _, err := range rule.Validate() {
		c.errs = append(c.errs, err.Under(c.pathString()))
		ok = false
	}
	if !ok {
		return nil
	}
	return rule
}

func (c *conv) decodeIntList(val, field string, ok *bool) []int {
	var out []int
	for i, entry := range strings.Split(val, ",") {
		n, err := strconv.Atoi(entry)
		if err != nil {
			c.errAt(fmt.Sprintf("%s[%d]", field, i), "invalid value %q", entry)
			*ok = false
			continue
		}
		out = append(out, n)
	}
	return out
}

// encodeRecurrenceRule renders the rule as an RRULE value. Every by-X array
// is emitted in ascending order.
func encodeRecurrenceRule(r *jevent.RecurrenceRule, start tzBinding, isAllDay bool) string {
	parts := []string{"FREQ=" + strings.ToUpper(string(r.Frequency))}
	if r.RScale != nil {
		parts = append(parts, "RSCALE="+strings.ToUpper(*r.RScale))
	}
	if r.Skip != nil {
		parts = append(parts, "SKIP="+strings.ToUpper(string(*r.Skip)))
	}
	if r.Interval != nil && *r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", *r.Interval))
	}
	if r.Count != nil {
		parts = append(parts, fmt.Sprintf("COUNT=%d", *r.Count))
	} else if r.Until != nil {
		if isAllDay {
			parts = append(parts, "UNTIL="+r.Until.Time(nil).Format(icalDateLayout))
		} else {
			instant := r.Until.Time(start.location()).UTC()
			parts = append(parts, "UNTIL="+instant.Format(icalDateTimeUTCLayout))
		}
	}
	if len(r.ByDay) > 0 {
		sorted := make([]jevent.NDay, len(r.ByDay))
		copy(sorted, r.ByDay)
		sort.SliceStable(sorted, func(i, j int) bool {
			ni, nj := 0, 0
			if sorted[i].NthOfPeriod != nil {
				ni = *sorted[i].NthOfPeriod
			}
			if sorted[j].NthOfPeriod != nil {
				nj = *sorted[j].NthOfPeriod
			}
			if ni != nj {
				return ni < nj
			}
			return weekdayIndex(sorted[i].Day) < weekdayIndex(sorted[j].Day)
		})
		entries := make([]string, len(sorted))
		for i, nd := range sorted {
			entries[i] = nd.String()
		}
		parts = append(parts, "BYDAY="+strings.Join(entries, ","))
	}
	parts = appendIntList(parts, "BYMONTH", r.ByMonth)
	parts = appendIntList(parts, "BYMONTHDAY", r.ByDate)
	parts = appendIntList(parts, "BYYEARDAY", r.ByYearDay)
	parts = appendIntList(parts, "BYWEEKNO", r.ByWeekNo)
	parts = appendIntList(parts, "BYHOUR", r.ByHour)
	parts = appendIntList(parts, "BYMINUTE", r.ByMinute)
	parts = appendIntList(parts, "BYSECOND", r.BySecond)
	parts = appendIntList(parts, "BYSETPOS", r.BySetPosition)
	if r.FirstDayOfWeek != nil {
		parts = append(parts, "WKST="+strings.ToUpper(*r.FirstDayOfWeek))
	}
	return strings.Join(parts, ";")
}

func appendIntList(parts []string, key string, vals []int) []string {
	if len(vals) == 0 {
		return parts
	}
	sorted := make([]int, len(vals))
	copy(sorted, vals)
	sort.Ints(sorted)
	entries := make([]string, len(sorted))
	for i, v := range sorted {
		entries[i] = strconv.Itoa(v)
	}
	return append(parts, key+"="+strings.Join(entries, ","))
}

var weekdayOrder = []string{"mo", "tu", "we", "th", "fr", "sa", "su"}

func weekdayIndex(day string) int {
	for i, d := range weekdayOrder {
		if d == day {
			return i
		}
	}
	return len(weekdayOrder)
}

var rruleWeekdays = map[string]rrule.Weekday{
	"mo": rrule.MO, "tu": rrule.TU, "we": rrule.WE, "th": rrule.TH,
	"fr": rrule.FR, "sa": rrule.SA, "su": rrule.SU,
}

var rruleFrequencies = map[jevent.Frequency]rrule.Frequency{
	jevent.FreqSecondly: rrule.SECONDLY,
	jevent.FreqMinutely: rrule.MINUTELY,
	jevent.FreqHourly:   rrule.HOURLY,
	jevent.FreqDaily:    rrule.DAILY,
	jevent.FreqWeekly:   rrule.WEEKLY,
	jevent.FreqMonthly:  rrule.MONTHLY,
	jevent.FreqYearly:   rrule.YEARLY,
}

// recurrenceROption converts a rule into the expander's options for
// occurrence enumeration. RScale and skip have no expander counterpart and
// are ignored here; they only matter for calendar scales other than
// Gregorian.
func recurrenceROption(r *jevent.RecurrenceRule, dtstart time.Time) (*rrule.ROption, error) {
	freq, ok := rruleFrequencies[r.Frequency]
	if !ok {
		return nil, fmt.Errorf("unsupported frequency %q", r.Frequency)
	}
	opt := &rrule.ROption{
		Freq:    freq,
		Dtstart: dtstart,
	}
	if r.Interval != nil {
		opt.Interval = *r.Interval
	}
	if r.Count != nil {
		opt.Count = *r.Count
	}
	if r.Until != nil {
		opt.Until = r.Until.Time(dtstart.Location()).UTC()
	}
	if r.FirstDayOfWeek != nil {
		if wd, ok := rruleWeekdays[*r.FirstDayOfWeek]; ok {
			opt.Wkst = wd
		}
	}
	for _, nd := range r.ByDay {
		wd, ok := rruleWeekdays[nd.Day]
		if !ok {
			return nil, fmt.Errorf("unsupported weekday %q", nd.Day)
		}
		if nd.NthOfPeriod != nil {
			wd = wd.Nth(*nd.NthOfPeriod)
		}
		opt.Byweekday = append(opt.Byweekday, wd)
	}
	opt.Bymonth = r.ByMonth
	opt.Bymonthday = r.ByDate
	opt.Byyearday = r.ByYearDay
	opt.Byweekno = r.ByWeekNo
	opt.Byhour = r.ByHour
	opt.Byminute = r.ByMinute
	opt.Bysecond = r.BySecond
	opt.Bysetpos = r.BySetPosition
	return opt, nil
}
