package ical

import (
	"strings"
	"testing"

	ics "github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calens/go-jevent"
)

func parseCal(t *testing.T, s string) *ics.Calendar {
	t.Helper()
	cal, err := ics.NewDecoder(strings.NewReader(s)).Decode()
	require.NoError(t, err)
	return cal
}

func calEvents(cal *ics.Calendar) []*ics.Component {
	var events []*ics.Component
	for _, child := range cal.Children {
		if child.Name == ics.CompEvent {
			events = append(events, child)
		}
	}
	return events
}

func calTimezones(cal *ics.Calendar) []*ics.Component {
	var zones []*ics.Component
	for _, child := range cal.Children {
		if child.Name == ics.CompTimezone {
			zones = append(zones, child)
		}
	}
	return zones
}

func mustLocal(t *testing.T, s string) *jevent.LocalDateTime {
	t.Helper()
	ldt, err := jevent.ParseLocalDateTime(s)
	require.NoError(t, err)
	return &ldt
}

func mustDuration(t *testing.T, s string) *jevent.Duration {
	t.Helper()
	d, err := jevent.ParseDuration(s)
	require.NoError(t, err)
	return &d
}

func minimalEvent(t *testing.T) *jevent.Event {
	t.Helper()
	return &jevent.Event{
		UID:      "A",
		Start:    mustLocal(t, "2024-03-10T09:00:00"),
		TimeZone: jevent.String("Europe/Berlin"),
		Duration: mustDuration(t, "PT1H"),
		Title:    jevent.String("x"),
	}
}

func TestEncodeMinimalEvent(t *testing.T) {
	codec := NewCodec()
	cal, err := codec.Encode(minimalEvent(t), nil, "", nil)
	require.NoError(t, err)

	events := calEvents(cal)
	require.Len(t, events, 1)
	master := events[0]

	uid, err := master.Props.Text(ics.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "A", uid)

	dtstart := master.Props.Get(ics.PropDateTimeStart)
	require.NotNil(t, dtstart)
	assert.Equal(t, "20240310T090000", dtstart.Value)
	assert.Equal(t, "Europe/Berlin", dtstart.Params.Get("TZID"))

	duration := master.Props.Get(ics.PropDuration)
	require.NotNil(t, duration)
	assert.Equal(t, "PT1H", duration.Value)

	summary, err := master.Props.Text(ics.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "x", summary)

	zones := calTimezones(cal)
	require.Len(t, zones, 1)
	tzid, err := zones[0].Props.Text(ics.PropTimezoneID)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", tzid)
	assert.NotEmpty(t, zones[0].Children)
	for _, observance := range zones[0].Children {
		assert.Contains(t, []string{ics.CompTimezoneStandard, ics.CompTimezoneDaylight}, observance.Name)
		assert.NotNil(t, observance.Props.Get(ics.PropTimezoneOffsetFrom))
		assert.NotNil(t, observance.Props.Get(ics.PropTimezoneOffsetTo))
	}

	// Zones are appended after all events.
	assert.Equal(t, ics.CompEvent, cal.Children[0].Name)
	assert.Equal(t, ics.CompTimezone, cal.Children[len(cal.Children)-1].Name)
}

func TestEncodeMissingUID(t *testing.T) {
	e := minimalEvent(t)
	e.UID = ""
	_, err := NewCodec().Encode(e, nil, "", nil)
	var convErr *ConvertError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, KindMissingUID, convErr.Kind)

	// The uid argument substitutes for the event's own.
	cal, err := NewCodec().Encode(e, nil, "B", nil)
	require.NoError(t, err)
	uid, err := calEvents(cal)[0].Props.Text(ics.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "B", uid)
}

func TestEncodeAllDay(t *testing.T) {
	e := &jevent.Event{
		UID:      "A",
		IsAllDay: true,
		Start:    mustLocal(t, "2024-01-01T00:00:00"),
		Duration: mustDuration(t, "P1D"),
	}
	cal, err := NewCodec().Encode(e, nil, "", nil)
	require.NoError(t, err)

	master := calEvents(cal)[0]
	dtstart := master.Props.Get(ics.PropDateTimeStart)
	require.NotNil(t, dtstart)
	assert.Equal(t, "20240101", dtstart.Value)
	assert.Equal(t, "DATE", dtstart.Params.Get("VALUE"))
	assert.Empty(t, dtstart.Params.Get("TZID"))

	duration := master.Props.Get(ics.PropDuration)
	require.NotNil(t, duration)
	assert.Equal(t, "P1D", duration.Value)
	assert.Empty(t, calTimezones(cal))
}

func TestEncodeWeeklyWithCancelOverride(t *testing.T) {
	e := minimalEvent(t)
	e.RecurrenceRule = &jevent.RecurrenceRule{
		Frequency: jevent.FreqWeekly,
		ByDay:     []jevent.NDay{{Day: "mo"}},
	}
	e.RecurrenceOverrides = map[string]jevent.PatchObject{
		"2024-03-18T09:00:00": nil,
	}
	cal, err := NewCodec().Encode(e, nil, "", nil)
	require.NoError(t, err)

	events := calEvents(cal)
	require.Len(t, events, 1)
	master := events[0]

	rruleProp := master.Props.Get(ics.PropRecurrenceRule)
	require.NotNil(t, rruleProp)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", rruleProp.Value)

	exdate := master.Props.Get(ics.PropExceptionDates)
	require.NotNil(t, exdate)
	assert.Equal(t, "20240318T090000", exdate.Value)
	assert.Equal(t, "Europe/Berlin", exdate.Params.Get("TZID"))
}

func TestDecodeMinimalEvent(t *testing.T) {
	cal := parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Example Corp.//Test//EN
BEGIN:VEVENT
UID:A
DTSTART;TZID=Europe/Berlin:20240310T090000
DURATION:PT1H
SUMMARY:x
END:VEVENT
END:VCALENDAR`)

	event, err := NewCodec().Decode(cal, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "A", event.UID)
	assert.False(t, event.IsAllDay)
	require.NotNil(t, event.Start)
	assert.Equal(t, "2024-03-10T09:00:00", event.Start.String())
	require.NotNil(t, event.TimeZone)
	assert.Equal(t, "Europe/Berlin", *event.TimeZone)
	require.NotNil(t, event.Duration)
	assert.Equal(t, "PT1H", event.Duration.String())
	require.NotNil(t, event.Title)
	assert.Equal(t, "x", *event.Title)
	require.NotNil(t, event.ProdID)
	assert.Equal(t, "-//Example Corp.//Test//EN", *event.ProdID)
	assert.Nil(t, event.Locations)
	assert.Nil(t, event.Participants)
}

func TestDecodeUTCAndFloating(t *testing.T) {
	cal := parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//t//EN
BEGIN:VEVENT
UID:A
DTSTART:20240310T090000Z
DTEND:20240310T100000Z
END:VEVENT
END:VCALENDAR`)
	event, err := NewCodec().Decode(cal, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, event.TimeZone)
	assert.Equal(t, "Etc/UTC", *event.TimeZone)
	assert.Equal(t, "2024-03-10T09:00:00", event.Start.String())
	assert.Equal(t, "PT1H", event.Duration.String())

	cal = parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//t//EN
BEGIN:VEVENT
UID:A
DTSTART:20240310T090000
DURATION:PT30M
END:VEVENT
END:VCALENDAR`)
	event, err = NewCodec().Decode(cal, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, event.TimeZone)
	assert.Equal(t, "2024-03-10T09:00:00", event.Start.String())
}

func TestDecodeAllDayDefaultDuration(t *testing.T) {
	cal := parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//t//EN
BEGIN:VEVENT
UID:A
DTSTART;VALUE=DATE:20240101
END:VEVENT
END:VCALENDAR`)
	event, err := NewCodec().Decode(cal, nil, nil)
	require.NoError(t, err)
	assert.True(t, event.IsAllDay)
	assert.Nil(t, event.TimeZone)
	assert.Equal(t, "2024-01-01T00:00:00", event.Start.String())
	require.NotNil(t, event.Duration)
	assert.Equal(t, "P1D", event.Duration.String())
}

func TestDecodeDelegationChain(t *testing.T) {
	cal := parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//t//EN
BEGIN:VEVENT
UID:A
DTSTART;TZID=Europe/Berlin:20240310T090000
DURATION:PT1H
SUMMARY:sync
ORGANIZER;CN=Boss:mailto:boss@example.com
ATTENDEE;PARTSTAT=DELEGATED;DELEGATED-TO="mailto:b@example.com":mailto:a@example.com
ATTENDEE;PARTSTAT=ACCEPTED;DELEGATED-FROM="mailto:a@example.com":mailto:b@example.com
END:VEVENT
END:VCALENDAR`)

	event, err := NewCodec().Decode(cal, nil, nil)
	require.NoError(t, err)

	require.NotNil(t, event.ReplyTo)
	assert.Equal(t, "boss@example.com", *event.ReplyTo)
	require.Len(t, event.Participants, 3)

	a := event.Participants["a@example.com"]
	require.NotNil(t, a)
	require.NotNil(t, a.ScheduleStatus)
	assert.Equal(t, jevent.ScheduleAccepted, *a.ScheduleStatus)

	boss := event.Participants["boss@example.com"]
	require.NotNil(t, boss)
	assert.True(t, boss.HasRole(jevent.RoleOwner))
	require.NotNil(t, boss.Name)
	assert.Equal(t, "Boss", *boss.Name)
}

func TestDecodeDelegationLoop(t *testing.T) {
	cal := parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//t//EN
BEGIN:VEVENT
UID:A
DTSTART:20240310T090000Z
DURATION:PT1H
ATTENDEE;PARTSTAT=DELEGATED;DELEGATED-TO="mailto:b@example.com":mailto:a@example.com
ATTENDEE;PARTSTAT=DELEGATED;DELEGATED-TO="mailto:a@example.com":mailto:b@example.com
END:VEVENT
END:VCALENDAR`)

	event, err := NewCodec().Decode(cal, nil, nil)
	require.NoError(t, err)
	for _, key := range []string{"a@example.com", "b@example.com"} {
		p := event.Participants[key]
		require.NotNil(t, p, key)
		require.NotNil(t, p.ScheduleStatus, key)
		assert.Equal(t, jevent.ScheduleNeedsAction, *p.ScheduleStatus, key)
	}
}

func TestLocationRoundTrip(t *testing.T) {
	e := minimalEvent(t)
	e.Locations = map[string]*jevent.Location{
		"hq": {
			Name:        jevent.String("Head Office"),
			Coordinates: jevent.String("geo:52.520008,13.404954"),
			Address: &jevent.Address{
				Street:   jevent.String("Unter den Linden 1"),
				Locality: jevent.String("Berlin"),
				Country:  jevent.String("DE"),
			},
			AccessInstruction: jevent.String("ring twice"),
		},
	}
	codec := NewCodec()
	cal, err := codec.Encode(e, nil, "", nil)
	require.NoError(t, err)

	master := calEvents(cal)[0]
	loc := master.Props.Get(propLocation)
	require.NotNil(t, loc)
	assert.Equal(t, "Head Office", loc.Value)
	assert.Equal(t, "hq", loc.Params.Get(paramID))
	assert.True(t, strings.HasPrefix(loc.Params.Get("ALTREP"), sidecarPrefix))

	geo := master.Props.Get(ics.PropGeo)
	require.NotNil(t, geo)
	assert.Equal(t, "52.520008;13.404954", geo.Value)

	decoded, err := codec.Decode(cal, nil, nil)
	require.NoError(t, err)
	require.Len(t, decoded.Locations, 1)
	assert.Equal(t, e.Locations["hq"], decoded.Locations["hq"])
}

func TestDecodeTranslation(t *testing.T) {
	cal := parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//t//EN
BEGIN:VEVENT
UID:A
DTSTART;TZID=Europe/Berlin:20240310T090000
DURATION:PT1H
SUMMARY:Test event
X-JMAP-TRANSLATION;LANGUAGE=de;X-JMAP-PROP=title:Test
END:VEVENT
END:VCALENDAR`)

	event, err := NewCodec().Decode(cal, nil, nil)
	require.NoError(t, err)
	require.Contains(t, event.Translations, "de")
	require.NotNil(t, event.Translations["de"].Title)
	assert.Equal(t, "Test", *event.Translations["de"].Title)
}

func TestDecodePropsFilter(t *testing.T) {
	cal := parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//t//EN
BEGIN:VEVENT
UID:A
DTSTART;TZID=Europe/Berlin:20240310T090000
DURATION:PT1H
SUMMARY:x
DESCRIPTION:details
ORGANIZER:mailto:boss@example.com
ATTENDEE:mailto:a@example.com
END:VEVENT
END:VCALENDAR`)

	event, err := NewCodec().Decode(cal, NewPropsFilter("title"), nil)
	require.NoError(t, err)
	require.NotNil(t, event.Title)
	assert.Equal(t, "x", *event.Title)
	assert.Equal(t, "A", event.UID)
	assert.Nil(t, event.Description)
	assert.Nil(t, event.Start)
	assert.Nil(t, event.TimeZone)
	assert.Nil(t, event.Participants)
	assert.Nil(t, event.ReplyTo)
}

func TestDecodeExceptionPatches(t *testing.T) {
	cal := parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//t//EN
BEGIN:VEVENT
UID:A
DTSTART;TZID=Europe/Berlin:20240311T090000
DURATION:PT1H
SUMMARY:standup
RRULE:FREQ=WEEKLY;BYDAY=MO
ATTENDEE;PARTSTAT=ACCEPTED:mailto:a@example.com
ATTENDEE;PARTSTAT=ACCEPTED:mailto:b@example.com
END:VEVENT
BEGIN:VEVENT
UID:A
RECURRENCE-ID;TZID=Europe/Berlin:20240318T090000
DTSTART;TZID=Europe/Berlin:20240318T090000
DURATION:PT1H
SUMMARY:standup
ATTENDEE;PARTSTAT=ACCEPTED:mailto:a@example.com
ATTENDEE;PARTSTAT=NEEDS-ACTION:mailto:c@example.com
END:VEVENT
END:VCALENDAR`)

	event, err := NewCodec().Decode(cal, nil, nil)
	require.NoError(t, err)

	patch, ok := event.RecurrenceOverrides["2024-03-18T09:00:00"]
	require.True(t, ok)
	require.NotNil(t, patch)

	// Added participant appears keyed, removed one nullifies.
	added, ok := patch["participants/c@example.com"]
	require.True(t, ok)
	assert.NotNil(t, added)
	removed, ok := patch["participants/b@example.com"]
	require.True(t, ok)
	assert.Nil(t, removed)
	assert.NotContains(t, patch, "participants/a@example.com")
	assert.NotContains(t, patch, "title")
}

func TestDecodeExdateAndRdate(t *testing.T) {
	cal := parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//t//EN
BEGIN:VEVENT
UID:A
DTSTART;TZID=Europe/Berlin:20240311T090000
DURATION:PT1H
RRULE:FREQ=WEEKLY;BYDAY=MO
EXDATE;TZID=Europe/Berlin:20240318T090000
RDATE;TZID=Europe/Berlin:20240320T090000
RDATE;VALUE=PERIOD;TZID=Europe/Berlin:20240321T090000/20240321T110000
END:VEVENT
END:VCALENDAR`)

	event, err := NewCodec().Decode(cal, nil, nil)
	require.NoError(t, err)

	patch, ok := event.RecurrenceOverrides["2024-03-18T09:00:00"]
	require.True(t, ok)
	assert.Nil(t, patch)

	patch, ok = event.RecurrenceOverrides["2024-03-20T09:00:00"]
	require.True(t, ok)
	require.NotNil(t, patch)
	assert.Empty(t, patch)

	// Period with an explicit end: duration is end minus start.
	patch, ok = event.RecurrenceOverrides["2024-03-21T09:00:00"]
	require.True(t, ok)
	assert.Equal(t, jevent.PatchObject{"duration": "PT2H"}, patch)
}

func TestEncodeExceptionComponent(t *testing.T) {
	count := 4
	e := minimalEvent(t)
	e.RecurrenceRule = &jevent.RecurrenceRule{Frequency: jevent.FreqWeekly, Count: &count}
	e.RecurrenceOverrides = map[string]jevent.PatchObject{
		"2024-03-17T09:00:00": {"title": "moved standup", "start": "2024-03-17T10:00:00"},
	}
	cal, err := NewCodec().Encode(e, nil, "", nil)
	require.NoError(t, err)

	events := calEvents(cal)
	require.Len(t, events, 2)

	exc := events[1]
	recurrenceID := exc.Props.Get(ics.PropRecurrenceID)
	require.NotNil(t, recurrenceID)
	assert.Equal(t, "20240317T090000", recurrenceID.Value)
	assert.Equal(t, "Europe/Berlin", recurrenceID.Params.Get("TZID"))

	uid, err := exc.Props.Text(ics.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "A", uid)
	assert.Nil(t, exc.Props.Get(ics.PropRecurrenceRule))

	title, err := exc.Props.Text(ics.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "moved standup", title)
	dtstart := exc.Props.Get(ics.PropDateTimeStart)
	require.NotNil(t, dtstart)
	assert.Equal(t, "20240317T100000", dtstart.Value)
}

func TestEncodeUpdateBumpsSequence(t *testing.T) {
	codec := NewCodec()
	e := minimalEvent(t)
	prior, err := codec.Encode(e, nil, "", nil)
	require.NoError(t, err)
	assert.Nil(t, calEvents(prior)[0].Props.Get(ics.PropSequence))

	updated := minimalEvent(t)
	updated.Title = jevent.String("y")
	cal, err := codec.Encode(updated, prior, "", nil)
	require.NoError(t, err)

	seq := calEvents(cal)[0].Props.Get(ics.PropSequence)
	require.NotNil(t, seq)
	assert.Equal(t, "1", seq.Value)

	cal2, err := codec.Encode(updated, cal, "", nil)
	require.NoError(t, err)
	seq = calEvents(cal2)[0].Props.Get(ics.PropSequence)
	require.NotNil(t, seq)
	assert.Equal(t, "2", seq.Value)
}

func TestEncodeUpdateCarriesUnknownProps(t *testing.T) {
	codec := NewCodec()
	prior, err := codec.Encode(minimalEvent(t), nil, "", nil)
	require.NoError(t, err)
	custom := ics.NewProp("X-CUSTOM-STATE")
	custom.Value = "opaque"
	calEvents(prior)[0].Props.Add(custom)

	cal, err := codec.Encode(minimalEvent(t), prior, "", nil)
	require.NoError(t, err)
	carried := calEvents(cal)[0].Props.Get("X-CUSTOM-STATE")
	require.NotNil(t, carried)
	assert.Equal(t, "opaque", carried.Value)
}

func TestUntilReanchoredOnZoneChange(t *testing.T) {
	codec := NewCodec()
	e := minimalEvent(t)
	e.RecurrenceRule = &jevent.RecurrenceRule{
		Frequency: jevent.FreqWeekly,
		Until:     mustLocal(t, "2024-06-03T09:00:00"),
	}
	cal, err := codec.Encode(e, nil, "", nil)
	require.NoError(t, err)
	rruleProp := calEvents(cal)[0].Props.Get(ics.PropRecurrenceRule)
	require.NotNil(t, rruleProp)
	// 09:00 Berlin in June is 07:00 UTC.
	assert.Contains(t, rruleProp.Value, "UNTIL=20240603T070000Z")

	// Rebinding the same local until to a new start zone yields the same
	// bytes as encoding from scratch with that zone.
	moved := minimalEvent(t)
	moved.TimeZone = jevent.String("America/New_York")
	moved.RecurrenceRule = e.RecurrenceRule
	fresh, err := codec.Encode(moved, nil, "", nil)
	require.NoError(t, err)
	update, err := codec.Encode(moved, cal, "", nil)
	require.NoError(t, err)

	freshRule := calEvents(fresh)[0].Props.Get(ics.PropRecurrenceRule)
	require.NotNil(t, freshRule)
	updateRule := calEvents(update)[0].Props.Get(ics.PropRecurrenceRule)
	require.NotNil(t, updateRule)
	assert.Contains(t, freshRule.Value, "UNTIL=20240603T130000Z")
	assert.Equal(t, freshRule.Value, updateRule.Value)
}

func TestRoundTripStability(t *testing.T) {
	status := jevent.StatusConfirmed
	e := minimalEvent(t)
	e.Description = jevent.String("planning session")
	e.Status = &status
	e.ShowAsFree = true
	e.ReplyTo = jevent.String("boss@example.com")
	e.Participants = map[string]*jevent.Participant{
		"boss@example.com": {Email: "boss@example.com", Roles: []jevent.Role{jevent.RoleOwner}},
		"a@example.com": {
			Email: "a@example.com",
			Roles: []jevent.Role{jevent.RoleAttendee},
		},
	}
	e.Alerts = map[string]*jevent.Alert{
		"alarm-1": {
			Offset:     *mustDuration(t, "PT15M"),
			RelativeTo: relativeTo(jevent.BeforeStart),
			Action:     &jevent.AlertAction{Type: jevent.ActionDisplay},
		},
	}
	e.Translations = map[string]*jevent.Translation{
		"de": {Title: jevent.String("Planung")},
	}

	codec := NewCodec()
	cal, err := codec.Encode(e, nil, "", nil)
	require.NoError(t, err)
	first, err := codec.Decode(cal, nil, nil)
	require.NoError(t, err)

	cal2, err := codec.Encode(first, nil, "", nil)
	require.NoError(t, err)
	second, err := codec.Decode(cal2, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func relativeTo(r jevent.RelativeTo) *jevent.RelativeTo {
	return &r
}

func TestDecodeNoMasterEvent(t *testing.T) {
	cal := parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//t//EN
END:VCALENDAR`)
	_, err := NewCodec().Decode(cal, nil, nil)
	var convErr *ConvertError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, KindInvalidICal, convErr.Kind)
}

func TestDecodeMissingUID(t *testing.T) {
	cal := parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//t//EN
BEGIN:VEVENT
DTSTART:20240310T090000Z
DURATION:PT1H
END:VEVENT
END:VCALENDAR`)
	_, err := NewCodec().Decode(cal, nil, nil)
	var convErr *ConvertError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, KindMissingUID, convErr.Kind)
}

func TestDecodeUnknownTimeZone(t *testing.T) {
	cal := parseCal(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//t//EN
BEGIN:VEVENT
UID:A
DTSTART;TZID=Mars/Olympus:20240310T090000
DURATION:PT1H
END:VEVENT
END:VCALENDAR`)
	_, err := NewCodec().Decode(cal, nil, nil)
	var convErr *ConvertError
	require.ErrorAs(t, err, &convErr)
	require.Equal(t, KindPropertyErrors, convErr.Kind)
	require.NotEmpty(t, convErr.Props)
	assert.Equal(t, "timeZone", convErr.Props[0].Path)
}

func TestEncodeRejectsCountAndUntil(t *testing.T) {
	count := 3
	e := minimalEvent(t)
	e.RecurrenceRule = &jevent.RecurrenceRule{
		Frequency: jevent.FreqWeekly,
		Count:     &count,
		Until:     mustLocal(t, "2024-06-01T00:00:00"),
	}
	_, err := NewCodec().Encode(e, nil, "", nil)
	var convErr *ConvertError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, KindPropertyErrors, convErr.Kind)
}
