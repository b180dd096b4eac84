package jevent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	localDateTimeLayout = "2006-01-02T15:04:05"
	utcDateTimeLayout   = "2006-01-02T15:04:05Z"
)

// LocalDateTime is a date-time without a UTC offset. It is rendered as
// "YYYY-MM-DDThh:mm:ss"; the timezone it is interpreted in is carried
// separately (the event's timeZone field, or the viewer's zone for floating
// events).
type LocalDateTime struct {
	t time.Time
}

// NewLocalDateTime builds a LocalDateTime from the wall-clock fields of t.
// The location of t is discarded.
func NewLocalDateTime(t time.Time) LocalDateTime {
	return LocalDateTime{time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// ParseLocalDateTime parses "YYYY-MM-DDThh:mm:ss". Anything else, including a
// trailing "Z" or an offset, is rejected.
func ParseLocalDateTime(s string) (LocalDateTime, error) {
	t, err := time.Parse(localDateTimeLayout, s)
	if err != nil {
		return LocalDateTime{}, fmt.Errorf("jevent: invalid local date-time %q", s)
	}
	return LocalDateTime{t}, nil
}

// Time returns the wall-clock value bound to loc. A nil loc means UTC.
func (ldt LocalDateTime) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := ldt.t
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

func (ldt LocalDateTime) String() string {
	return ldt.t.Format(localDateTimeLayout)
}

func (ldt LocalDateTime) IsZero() bool {
	return ldt.t.IsZero()
}

// IsMidnight reports whether the time component is zero, as required of the
// start of an all-day event.
func (ldt LocalDateTime) IsMidnight() bool {
	return ldt.t.Hour() == 0 && ldt.t.Minute() == 0 && ldt.t.Second() == 0
}

func (ldt LocalDateTime) Equal(other LocalDateTime) bool {
	return ldt.t.Equal(other.t)
}

func (ldt LocalDateTime) Before(other LocalDateTime) bool {
	return ldt.t.Before(other.t)
}

// Add applies d to the wall-clock value without any timezone awareness.
func (ldt LocalDateTime) Add(d Duration) LocalDateTime {
	return LocalDateTime{ldt.t.Add(time.Duration(d.Seconds()) * time.Second)}
}

func (ldt LocalDateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ldt.String())
}

func (ldt *LocalDateTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLocalDateTime(s)
	if err != nil {
		return err
	}
	*ldt = parsed
	return nil
}

// UTCDateTime is an instant, rendered as "YYYY-MM-DDThh:mm:ssZ".
type UTCDateTime struct {
	t time.Time
}

func NewUTCDateTime(t time.Time) UTCDateTime {
	return UTCDateTime{t.UTC().Truncate(time.Second)}
}

// ParseUTCDateTime parses "YYYY-MM-DDThh:mm:ssZ".
func ParseUTCDateTime(s string) (UTCDateTime, error) {
	t, err := time.Parse(utcDateTimeLayout, s)
	if err != nil {
		return UTCDateTime{}, fmt.Errorf("jevent: invalid UTC date-time %q", s)
	}
	return UTCDateTime{t.UTC()}, nil
}

func (udt UTCDateTime) Time() time.Time {
	return udt.t
}

func (udt UTCDateTime) String() string {
	return udt.t.Format(utcDateTimeLayout)
}

func (udt UTCDateTime) IsZero() bool {
	return udt.t.IsZero()
}

func (udt UTCDateTime) Equal(other UTCDateTime) bool {
	return udt.t.Equal(other.t)
}

// Local converts the instant to its wall-clock value in loc. A nil loc leaves
// the instant in UTC.
func (udt UTCDateTime) Local(loc *time.Location) LocalDateTime {
	if loc == nil {
		loc = time.UTC
	}
	return NewLocalDateTime(udt.t.In(loc))
}

func (udt UTCDateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(udt.String())
}

func (udt *UTCDateTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseUTCDateTime(s)
	if err != nil {
		return err
	}
	*udt = parsed
	return nil
}

// Duration is a signed ISO-8601 duration restricted to weeks, days, hours,
// minutes and seconds. Calendar units (months, years) are not representable,
// matching RFC 5545 durations.
type Duration struct {
	Negative bool
	Weeks    int
	Days     int
	Hours    int
	Minutes  int
	Secs     int
}

// ParseDuration parses an ISO-8601/RFC 5545 duration such as "P1D", "PT1H30M"
// or "-PT15M". The weeks form cannot be mixed with other units.
func ParseDuration(s string) (Duration, error) {
	var d Duration
	orig := s
	if s == "" {
		return d, fmt.Errorf("jevent: empty duration")
	}
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		d.Negative = true
		s = s[1:]
	}
	if len(s) == 0 || s[0] != 'P' {
		return d, fmt.Errorf("jevent: invalid duration %q", orig)
	}
	s = s[1:]

	inTime := false
	sawUnit := false
	seen := make(map[byte]bool)
	for len(s) > 0 {
		if s[0] == 'T' {
			if inTime {
				return d, fmt.Errorf("jevent: invalid duration %q", orig)
			}
			inTime = true
			s = s[1:]
			continue
		}
		i := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 0 || i == len(s) {
			return d, fmt.Errorf("jevent: invalid duration %q", orig)
		}
		var n int
		for _, c := range s[:i] {
			n = n*10 + int(c-'0')
		}
		unit := s[i]
		s = s[i+1:]
		sawUnit = true
		if seen[unit] {
			return d, fmt.Errorf("jevent: invalid duration %q", orig)
		}
		seen[unit] = true
		switch {
		case unit == 'W' && !inTime:
			d.Weeks = n
		case unit == 'D' && !inTime:
			d.Days = n
		case unit == 'H' && inTime:
			d.Hours = n
		case unit == 'M' && inTime:
			d.Minutes = n
		case unit == 'S' && inTime:
			d.Secs = n
		default:
			return d, fmt.Errorf("jevent: invalid duration %q", orig)
		}
	}
	if inTime && !sawUnit {
		return d, fmt.Errorf("jevent: invalid duration %q", orig)
	}
	if d.Weeks != 0 && (d.Days != 0 || d.Hours != 0 || d.Minutes != 0 || d.Secs != 0) {
		return d, fmt.Errorf("jevent: weeks cannot be mixed with other units in %q", orig)
	}
	return d, nil
}

// DurationFromSeconds normalizes a second count into days/hours/minutes/
// seconds. Negative inputs produce a negative duration.
func DurationFromSeconds(secs int64) Duration {
	var d Duration
	if secs < 0 {
		d.Negative = true
		secs = -secs
	}
	d.Days = int(secs / 86400)
	secs %= 86400
	d.Hours = int(secs / 3600)
	secs %= 3600
	d.Minutes = int(secs / 60)
	d.Secs = int(secs % 60)
	return d
}

// Seconds returns the signed total length in seconds.
func (d Duration) Seconds() int64 {
	n := int64(d.Weeks)*7*86400 + int64(d.Days)*86400 + int64(d.Hours)*3600 + int64(d.Minutes)*60 + int64(d.Secs)
	if d.Negative {
		n = -n
	}
	return n
}

func (d Duration) IsZero() bool {
	return d.Weeks == 0 && d.Days == 0 && d.Hours == 0 && d.Minutes == 0 && d.Secs == 0
}

// HasTime reports whether any sub-day unit is present. All-day events must
// carry a duration without a time component.
func (d Duration) HasTime() bool {
	return d.Hours != 0 || d.Minutes != 0 || d.Secs != 0
}

// Abs returns the duration with the sign cleared.
func (d Duration) Abs() Duration {
	d.Negative = false
	return d
}

// String renders the duration in its canonical form. The zero duration is
// "P0D".
func (d Duration) String() string {
	var sb strings.Builder
	if d.Negative && !d.IsZero() {
		sb.WriteByte('-')
	}
	sb.WriteByte('P')
	if d.IsZero() {
		sb.WriteString("0D")
		return sb.String()
	}
	if d.Weeks != 0 {
		fmt.Fprintf(&sb, "%dW", d.Weeks)
		return sb.String()
	}
	if d.Days != 0 {
		fmt.Fprintf(&sb, "%dD", d.Days)
	}
	if d.HasTime() {
		sb.WriteByte('T')
		if d.Hours != 0 {
			fmt.Fprintf(&sb, "%dH", d.Hours)
		}
		if d.Minutes != 0 {
			fmt.Fprintf(&sb, "%dM", d.Minutes)
		}
		if d.Secs != 0 {
			fmt.Fprintf(&sb, "%dS", d.Secs)
		}
	}
	return sb.String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
