package ical

import (
	"fmt"
	"sync"
	"time"

	ics "github.com/emersion/go-ical"
)

// utcZoneName is the JSON timeZone value for UTC-bound events.
const utcZoneName = "Etc/UTC"

// UnknownTimeZoneError reports a TZID or timeZone value that names no known
// IANA zone.
type UnknownTimeZoneError struct {
	Name string
}

func (e *UnknownTimeZoneError) Error() string {
	return fmt.Sprintf("ical: unknown timezone %q", e.Name)
}

// TimeZoneRegistry maps IANA names to timezone rules. It is read-only after
// construction apart from an internal cache, so concurrent conversions may
// share one registry.
type TimeZoneRegistry struct {
	mu    sync.RWMutex
	cache map[string]*time.Location
}

func NewTimeZoneRegistry() *TimeZoneRegistry {
	return &TimeZoneRegistry{cache: make(map[string]*time.Location)}
}

// LoadLocation resolves an IANA name. "UTC" and the alias "Etc/UTC" resolve
// to time.UTC.
func (r *TimeZoneRegistry) LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, &UnknownTimeZoneError{Name: name}
	}
	if name == "UTC" || name == utcZoneName {
		return time.UTC, nil
	}
	r.mu.RLock()
	loc, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &UnknownTimeZoneError{Name: name}
	}
	r.mu.Lock()
	r.cache[name] = loc
	r.mu.Unlock()
	return loc, nil
}

// span is the UTC interval covered by all occurrences of an event.
type span struct {
	start, end time.Time
}

// eternity is the sentinel end for unbounded recurrences.
var eternity = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)

// unboundedZoneWindow caps the transition scan when the span end is the
// eternity sentinel.
const unboundedZoneWindow = 4 * 365 * 24 * time.Hour

// transition is one offset change of a zone.
type transition struct {
	at       time.Time // first instant of the new offset
	from, to int       // offsets in seconds east of UTC
	name     string    // abbreviation after the transition
	dst      bool
}

// TimeZone emits a VTIMEZONE component for name, truncated to the span of
// the event's occurrences.
func (r *TimeZoneRegistry) TimeZone(name string, sp span) (*ics.Component, error) {
	loc, err := r.LoadLocation(name)
	if err != nil {
		return nil, err
	}

	comp := ics.NewComponent(ics.CompTimezone)
	comp.Props.SetText(ics.PropTimezoneID, name)

	from := sp.start.Add(-365 * 24 * time.Hour)
	to := sp.end
	if !to.Before(eternity) {
		to = sp.start.Add(unboundedZoneWindow)
	}
	if to.Before(sp.start) {
		to = sp.start
	}

	transitions := zoneTransitions(loc, from, to)
	if len(transitions) == 0 {
		// Fixed-offset zone, or no change inside the window: a single
		// observance describes the whole span.
		abbr, offset := sp.start.In(loc).Zone()
		child := zoneObservance(sp.start.In(loc), offset, offset, abbr, sp.start.In(loc).IsDST())
		comp.Children = append(comp.Children, child)
		return comp, nil
	}
	for _, tr := range transitions {
		local := tr.at.In(loc)
		comp.Children = append(comp.Children, zoneObservance(local, tr.from, tr.to, tr.name, tr.dst))
	}
	return comp, nil
}

func zoneObservance(onset time.Time, fromOffset, toOffset int, abbr string, dst bool) *ics.Component {
	name := ics.CompTimezoneStandard
	if dst {
		name = ics.CompTimezoneDaylight
	}
	child := ics.NewComponent(name)
	setValueProp(child.Props, ics.PropDateTimeStart, onset.Format(icalDateTimeLayout))
	setValueProp(child.Props, ics.PropTimezoneOffsetFrom, formatUTCOffset(fromOffset))
	setValueProp(child.Props, ics.PropTimezoneOffsetTo, formatUTCOffset(toOffset))
	if abbr != "" {
		child.Props.SetText(ics.PropTimezoneName, abbr)
	}
	return child
}

// zoneTransitions finds the offset changes of loc within [from, to]. The
// stdlib does not expose the transition table, so changes are located by
// probing at an interval shorter than any gap between real transitions and
// bisecting down to the second.
func zoneTransitions(loc *time.Location, from, to time.Time) []transition {
	const probe = 14 * 24 * time.Hour

	var out []transition
	prev := from
	_, prevOffset := prev.In(loc).Zone()
	for t := from.Add(probe); prev.Before(to); t = t.Add(probe) {
		if t.After(to) {
			t = to
		}
		_, offset := t.In(loc).Zone()
		if offset != prevOffset {
			at := bisectTransition(loc, prev, t)
			abbr, toOffset := at.In(loc).Zone()
			out = append(out, transition{
				at:   at,
				from: prevOffset,
				to:   toOffset,
				name: abbr,
				dst:  at.In(loc).IsDST(),
			})
			prevOffset = toOffset
		}
		if !t.Before(to) {
			break
		}
		prev = t
	}
	return out
}

// bisectTransition narrows an interval known to contain exactly one offset
// change down to its first instant.
func bisectTransition(loc *time.Location, lo, hi time.Time) time.Time {
	_, loOffset := lo.In(loc).Zone()
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2).Truncate(time.Second)
		if mid.Equal(lo) {
			break
		}
		if _, offset := mid.In(loc).Zone(); offset == loOffset {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi
}

func formatUTCOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if s := seconds % 60; s != 0 {
		return fmt.Sprintf("%s%02d%02d%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%s%02d%02d", sign, h, m)
}
