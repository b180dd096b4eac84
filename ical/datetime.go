package ical

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/emersion/go-ical"

	"github.com/calens/go-jevent"
)

const (
	icalDateTimeUTCLayout = "20060102T150405Z"
	icalDateTimeLayout    = "20060102T150405"
	icalDateLayout        = "20060102"
)

// tzKind distinguishes how a date-time value is bound to a timezone.
type tzKind int

const (
	tzFloating tzKind = iota
	tzNamed
	tzUTC
)

// tzBinding is the timezone binding of a date-time property: floating (no
// TZID, no Z), a named IANA zone, or UTC.
type tzBinding struct {
	kind tzKind
	name string         // IANA name when kind is tzNamed
	loc  *time.Location // nil when floating
}

var utcBinding = tzBinding{kind: tzUTC, loc: time.UTC}

// location returns the zone for instant arithmetic. Floating values are
// computed as if they were UTC.
func (b tzBinding) location() *time.Location {
	if b.loc == nil {
		return time.UTC
	}
	return b.loc
}

// zoneName returns the JSON timeZone value for the binding, or nil when
// floating.
func (b tzBinding) zoneName() *string {
	switch b.kind {
	case tzNamed:
		name := b.name
		return &name
	case tzUTC:
		name := utcZoneName
		return &name
	}
	return nil
}

// parseICalValue parses an ICAL DATE or DATE-TIME value. A trailing Z forces
// UTC; otherwise the wall clock is bound to loc (UTC when loc is nil).
func parseICalValue(value string, loc *time.Location) (t time.Time, isDate bool, err error) {
	if loc == nil {
		loc = time.UTC
	}
	switch {
	case strings.HasSuffix(value, "Z"):
		t, err = time.ParseInLocation(icalDateTimeUTCLayout, value, time.UTC)
	case len(value) == len(icalDateLayout):
		t, err = time.ParseInLocation(icalDateLayout, value, loc)
		isDate = true
	default:
		t, err = time.ParseInLocation(icalDateTimeLayout, value, loc)
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date-time value %q", value)
	}
	return t, isDate, nil
}

// propBinding resolves the timezone binding of a date-time property from its
// TZID parameter and value shape. An unknown TZID is returned as an error.
func (c *conv) propBinding(prop *ics.Prop) (tzBinding, error) {
	if strings.HasSuffix(prop.Value, "Z") {
		return utcBinding, nil
	}
	tzid := prop.Params.Get(ics.PropTimezoneID)
	if tzid == "" {
		return tzBinding{kind: tzFloating}, nil
	}
	loc, err := c.codec.TimeZones.LoadLocation(tzid)
	if err != nil {
		return tzBinding{}, err
	}
	if loc == time.UTC {
		return utcBinding, nil
	}
	return tzBinding{kind: tzNamed, name: tzid, loc: loc}, nil
}

// setDateTimeProp writes a DATE-TIME value bound to b. UTC bindings use the
// Z form; named zones carry a TZID parameter; floating values carry neither.
func setDateTimeProp(props ics.Props, name string, t time.Time, b tzBinding) {
	prop := ics.NewProp(name)
	switch b.kind {
	case tzUTC:
		prop.Value = t.UTC().Format(icalDateTimeUTCLayout)
	case tzNamed:
		prop.Params.Set(ics.PropTimezoneID, b.name)
		prop.Value = t.In(b.loc).Format(icalDateTimeLayout)
	default:
		prop.Value = t.Format(icalDateTimeLayout)
	}
	props.Set(prop)
}

// setDateProp writes a date-only value for all-day events.
func setDateProp(props ics.Props, name string, ldt jevent.LocalDateTime) {
	prop := ics.NewProp(name)
	prop.SetValueType(ics.ValueDate)
	prop.Value = ldt.Time(nil).Format(icalDateLayout)
	props.Set(prop)
}

// setValueProp writes a property value in the property's default value
// type, bypassing the text escaping of SetText.
func setValueProp(props ics.Props, name, value string) {
	prop := ics.NewProp(name)
	prop.Value = value
	props.Set(prop)
}

// setUTCProp writes a UTC timestamp property.
func setUTCProp(props ics.Props, name string, t time.Time) {
	prop := ics.NewProp(name)
	prop.Value = t.UTC().Format(icalDateTimeUTCLayout)
	props.Set(prop)
}
