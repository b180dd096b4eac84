// Package ical translates between the jevent JSON model and RFC 5545
// component trees.
//
// The two formats are not isomorphic; round-trip fidelity relies on a small
// family of X- parameters carrying stable identifiers and sidecar state. The
// codec is pure apart from timezone lookups, which consult a process-wide
// read-only registry, so one Codec may serve concurrent conversions.
package ical

import (
	"strconv"
	"strings"
	"time"

	ics "github.com/emersion/go-ical"

	"github.com/calens/go-jevent"
)

// Codec holds the per-process conversion state: the product identifier
// stamped on emitted calendars and the timezone registry. Construct one with
// NewCodec and share it.
type Codec struct {
	ProdID    string
	TimeZones *TimeZoneRegistry
}

func NewCodec() *Codec {
	return &Codec{
		ProdID:    defaultProdID,
		TimeZones: NewTimeZoneRegistry(),
	}
}

// Options tunes a single conversion call.
type Options struct {
	// IsYou marks the viewing participant. It affects no persisted bytes,
	// only the isYou flag of decoded participants.
	IsYou func(email string) bool
}

// PropsFilter selects a subset of event fields to decode. A nil filter
// decodes everything. Fields left out are not decoded but never fail.
type PropsFilter map[string]bool

func NewPropsFilter(fields ...string) PropsFilter {
	f := make(PropsFilter, len(fields))
	for _, field := range fields {
		f[field] = true
	}
	return f
}

func (f PropsFilter) wants(field string) bool {
	return f == nil || f[field]
}

// eventTimes carries the resolved temporal shape of one component, needed by
// the alert and override codecs.
type eventTimes struct {
	binding  tzBinding
	start    time.Time
	end      time.Time
	duration jevent.Duration
	allDay   bool
}

// Decode translates a calendar into an event. The calendar must contain one
// master VEVENT; components sharing its uid but carrying a RECURRENCE-ID
// become recurrence overrides.
func (codec *Codec) Decode(cal *ics.Calendar, filter PropsFilter, opts *Options) (*jevent.Event, error) {
	if cal == nil || cal.Component == nil {
		return nil, invalidICalf("empty calendar")
	}
	var master *ics.Component
	var exceptions []*ics.Component
	for _, child := range cal.Children {
		if child.Name != ics.CompEvent {
			continue
		}
		if child.Props.Get(ics.PropRecurrenceID) != nil {
			exceptions = append(exceptions, child)
			continue
		}
		if master == nil {
			master = child
		}
	}
	if master == nil {
		return nil, invalidICalf("calendar without a master event")
	}

	c := &conv{codec: codec, opts: opts, filter: filter}
	event, times, err := c.decodeEventComponent(master, false)
	if err != nil {
		return nil, err
	}
	if filter.wants("prodId") {
		if prodID := cal.Props.Get(ics.PropProductID); prodID != nil && prodID.Value != "" {
			event.ProdID = &prodID.Value
		}
	}
	if filter.wants("recurrenceOverrides") {
		event.RecurrenceOverrides = c.decodeOverrides(master, exceptions, event, times.binding)
	}
	if filter == nil {
		c.errs = append(c.errs, event.Validate()...)
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return event, nil
}

// decodeEventComponent decodes one VEVENT. In exception mode the uid and
// recurrence fields are suppressed; the result is diffed against the master.
func (c *conv) decodeEventComponent(comp *ics.Component, exception bool) (*jevent.Event, eventTimes, error) {
	event := &jevent.Event{}
	var times eventTimes

	if !exception {
		uid, err := comp.Props.Text(ics.PropUID)
		if err != nil || uid == "" {
			return nil, times, &ConvertError{Kind: KindMissingUID}
		}
		event.UID = uid
	}

	dtstart := comp.Props.Get(ics.PropDateTimeStart)
	if dtstart == nil {
		return nil, times, invalidICalf("event without DTSTART")
	}
	binding, err := c.propBinding(dtstart)
	if err != nil {
		c.errAt("timeZone", "%v", err)
		binding = tzBinding{kind: tzFloating}
	}
	start, isDate, err := parseICalValue(dtstart.Value, binding.location())
	if err != nil {
		return nil, times, invalidICalf("invalid DTSTART value %q", dtstart.Value)
	}
	times.binding = binding
	times.start = start
	times.allDay = isDate

	event.IsAllDay = isDate
	if c.filter.wants("start") {
		startLocal := jevent.NewLocalDateTime(start)
		event.Start = &startLocal
	}
	if !isDate && c.filter.wants("timeZone") {
		event.TimeZone = binding.zoneName()
	}

	times.duration = c.decodeDuration(comp, &times)
	if c.filter.wants("duration") && !times.duration.IsZero() {
		dur := times.duration
		event.Duration = &dur
	}
	times.end = start.Add(time.Duration(times.duration.Seconds()) * time.Second)

	if dtend := comp.Props.Get(ics.PropDateTimeEnd); dtend != nil && c.filter.wants("locations") {
		if id := dtend.Params.Get(paramID); id != "" {
			endBinding, err := c.propBinding(dtend)
			if err != nil {
				c.errAt("locations", "%v", err)
			} else if name := endBinding.zoneName(); name != nil {
				event.Locations = applyEndLocation(event.Locations, id, *name)
			}
		}
	}

	summary := comp.Props.Get(ics.PropSummary)
	if summary != nil && c.filter.wants("title") {
		if title, err := summary.Text(); err == nil && title != "" {
			event.Title = &title
		}
	}
	description := comp.Props.Get(ics.PropDescription)
	if description != nil && c.filter.wants("description") {
		if text, err := description.Text(); err == nil && text != "" {
			event.Description = &text
		}
	}
	if c.filter.wants("language") {
		lang := ""
		if summary != nil {
			lang = summary.Params.Get("LANGUAGE")
		}
		if lang == "" && description != nil {
			lang = description.Params.Get("LANGUAGE")
		}
		if lang != "" {
			event.Language = &lang
		}
	}

	if c.filter.wants("created") {
		if prop := comp.Props.Get(ics.PropCreated); prop != nil {
			if t, _, err := parseICalValue(prop.Value, time.UTC); err == nil {
				created := jevent.NewUTCDateTime(t)
				event.Created = &created
			} else {
				c.errAt("created", "invalid value %q", prop.Value)
			}
		}
	}
	if c.filter.wants("updated") {
		prop := comp.Props.Get(ics.PropDateTimeStamp)
		if prop == nil {
			prop = comp.Props.Get(ics.PropLastModified)
		}
		if prop != nil {
			if t, _, err := parseICalValue(prop.Value, time.UTC); err == nil {
				updated := jevent.NewUTCDateTime(t)
				event.Updated = &updated
			} else {
				c.errAt("updated", "invalid value %q", prop.Value)
			}
		}
	}

	if !exception && c.filter.wants("sequence") {
		if prop := comp.Props.Get(ics.PropSequence); prop != nil {
			if seq, err := strconv.Atoi(prop.Value); err == nil && seq >= 0 {
				event.Sequence = &seq
			} else {
				c.errAt("sequence", "invalid value %q", prop.Value)
			}
		}
	}
	if c.filter.wants("status") {
		if prop := comp.Props.Get(ics.PropStatus); prop != nil {
			if status, err := jevent.ParseStatus(prop.Value); err == nil {
				event.Status = &status
			} else {
				c.errAt("status", "invalid value %q", prop.Value)
			}
		}
	}
	if c.filter.wants("showAsFree") {
		if prop := comp.Props.Get(ics.PropTransparency); prop != nil {
			event.ShowAsFree = strings.EqualFold(prop.Value, "TRANSPARENT")
		}
	}
	if c.filter.wants("replyTo") {
		if prop := comp.Props.Get(ics.PropOrganizer); prop != nil {
			if email := jevent.CanonicalEmail(prop.Value); email != "" {
				event.ReplyTo = &email
			}
		}
	}
	if c.filter.wants("relatedTo") {
		for _, prop := range comp.Props[ics.PropRelatedTo] {
			if prop.Value != "" {
				event.RelatedTo = append(event.RelatedTo, prop.Value)
			}
		}
	}

	if c.filter.wants("participants") {
		event.Participants = c.decodeParticipants(comp)
	}
	if c.filter.wants("locations") {
		if locations := c.decodeLocations(comp); locations != nil {
			if event.Locations == nil {
				event.Locations = locations
			} else {
				for id, loc := range locations {
					if existing, ok := event.Locations[id]; ok {
						mergeEndLocation(existing, loc)
					} else {
						event.Locations[id] = loc
					}
				}
			}
		}
	}
	if c.filter.wants("links") {
		event.Links = c.decodeLinks(comp)
	}
	if c.filter.wants("alerts") {
		event.Alerts = c.decodeAlerts(comp, times.start, times.end)
	}
	if c.filter.wants("translations") {
		event.Translations = c.decodeTranslations(comp)
	}

	if !exception && c.filter.wants("recurrenceRule") {
		if prop := comp.Props.Get(ics.PropRecurrenceRule); prop != nil {
			c.push("recurrenceRule")
			event.RecurrenceRule = c.decodeRecurrenceRule(prop.Value, binding)
			c.pop()
		}
	}

	return event, times, nil
}

// mergeEndLocation folds a decoded X-LOCATION object into the stub created
// from the DTEND binding, keeping the binding's rel and timezone.
func mergeEndLocation(dst, src *jevent.Location) {
	if dst.Name == nil {
		dst.Name = src.Name
	}
	if dst.Coordinates == nil {
		dst.Coordinates = src.Coordinates
	}
	if dst.URI == nil {
		dst.URI = src.URI
	}
	if dst.Address == nil {
		dst.Address = src.Address
	}
	if dst.AccessInstruction == nil {
		dst.AccessInstruction = src.AccessInstruction
	}
	if dst.TimeZone == nil {
		dst.TimeZone = src.TimeZone
	}
	if dst.Rel == nil {
		dst.Rel = src.Rel
	}
}

// decodeDuration derives the event length from DURATION or DTEND. All-day
// events without either last one day.
func (c *conv) decodeDuration(comp *ics.Component, times *eventTimes) jevent.Duration {
	if prop := comp.Props.Get(ics.PropDuration); prop != nil {
		dur, err := jevent.ParseDuration(prop.Value)
		if err != nil {
			c.errAt("duration", "invalid value %q", prop.Value)
			return jevent.Duration{}
		}
		return dur
	}
	if prop := comp.Props.Get(ics.PropDateTimeEnd); prop != nil {
		binding, err := c.propBinding(prop)
		if err != nil {
			binding = times.binding
		}
		end, _, err := parseICalValue(prop.Value, binding.location())
		if err != nil {
			c.errAt("duration", "invalid DTEND value %q", prop.Value)
			return jevent.Duration{}
		}
		secs := int64(end.Sub(times.start) / time.Second)
		if secs < 0 {
			c.errAt("duration", "event ends before it starts")
			return jevent.Duration{}
		}
		return jevent.DurationFromSeconds(secs)
	}
	if times.allDay {
		return jevent.Duration{Days: 1}
	}
	return jevent.Duration{}
}

// Encode translates an event into a calendar. With a prior calendar the
// update path is taken: the sequence number is advanced past the prior one
// and unrecognized master properties plus unknown-zone VTIMEZONE components
// are carried over. The uid argument, when non-empty, overrides the event's
// own.
func (codec *Codec) Encode(e *jevent.Event, prior *ics.Calendar, uid string, opts *Options) (*ics.Calendar, error) {
	if uid == "" {
		uid = e.UID
	}
	if uid == "" {
		return nil, &ConvertError{Kind: KindMissingUID}
	}

	c := &conv{codec: codec, opts: opts, zones: make(map[string]bool)}
	if e.Start == nil {
		c.errAt("start", "missing")
	}
	c.errs = append(c.errs, e.Validate()...)
	if err := c.finish(); err != nil {
		return nil, err
	}

	cal := ics.NewCalendar()
	cal.Props.SetText(ics.PropVersion, "2.0")
	prodID := codec.ProdID
	if e.ProdID != nil && *e.ProdID != "" {
		prodID = *e.ProdID
	}
	cal.Props.SetText(ics.PropProductID, prodID)

	master, err := c.encodeEventComponent(e, uid, false)
	if err != nil {
		return nil, err
	}

	var priorMaster *ics.Component
	if prior != nil && prior.Component != nil {
		for _, child := range prior.Children {
			if child.Name == ics.CompEvent && child.Props.Get(ics.PropRecurrenceID) == nil {
				priorMaster = child
				break
			}
		}
	}
	if priorMaster != nil {
		c.carryUnknownProps(priorMaster, master)
		setValueProp(master.Props, ics.PropSequence, strconv.Itoa(nextSequence(priorMaster, e)))
	} else if e.Sequence != nil {
		setValueProp(master.Props, ics.PropSequence, strconv.Itoa(*e.Sequence))
	}
	cal.Children = append(cal.Children, master)

	binding := c.eventBinding(e)
	c.encodeOverrides(cal, master, e, binding, uid)

	if err := c.finish(); err != nil {
		return nil, err
	}

	// Zones come after all events, matching the broader interchange
	// precedent of referencing before definition.
	duration := jevent.Duration{}
	if e.Duration != nil {
		duration = *e.Duration
	}
	sp := eventSpan(e, binding, duration)
	for _, name := range sortedKeys(c.zones) {
		tz, err := codec.TimeZones.TimeZone(name, sp)
		if err != nil {
			c.errAt("timeZone", "%v", err)
			continue
		}
		cal.Children = append(cal.Children, tz)
	}
	if prior != nil && prior.Component != nil {
		for _, child := range prior.Children {
			if child.Name != ics.CompTimezone {
				continue
			}
			tzid, err := child.Props.Text(ics.PropTimezoneID)
			if err != nil || tzid == "" {
				continue
			}
			if _, err := codec.TimeZones.LoadLocation(tzid); err != nil {
				// Unknown zone: preserve the prior definition verbatim.
				cal.Children = append(cal.Children, child)
			}
		}
	}

	if err := c.finish(); err != nil {
		return nil, err
	}
	return cal, nil
}

// eventBinding resolves the event's start timezone binding. Lookup failures
// accumulate and leave the event floating.
func (c *conv) eventBinding(e *jevent.Event) tzBinding {
	if e.IsAllDay || e.TimeZone == nil {
		return tzBinding{kind: tzFloating}
	}
	loc, err := c.codec.TimeZones.LoadLocation(*e.TimeZone)
	if err != nil {
		c.errAt("timeZone", "%v", err)
		return tzBinding{kind: tzFloating}
	}
	if loc == time.UTC {
		return utcBinding
	}
	c.zones[*e.TimeZone] = true
	return tzBinding{kind: tzNamed, name: *e.TimeZone, loc: loc}
}

// encodeEventComponent builds one VEVENT. Exception components suppress the
// recurrence rule; the caller attaches RECURRENCE-ID.
func (c *conv) encodeEventComponent(e *jevent.Event, uid string, exception bool) (*ics.Component, error) {
	comp := ics.NewComponent(ics.CompEvent)
	comp.Props.SetText(ics.PropUID, uid)

	binding := c.eventBinding(e)
	if e.Start != nil {
		if e.IsAllDay {
			setDateProp(comp.Props, ics.PropDateTimeStart, *e.Start)
		} else {
			setDateTimeProp(comp.Props, ics.PropDateTimeStart, e.Start.Time(binding.location()), binding)
		}
	}

	duration := jevent.Duration{}
	if e.Duration != nil {
		duration = *e.Duration
	}

	endID, endLoc := c.encodeLocations(comp, e)
	if endLoc != nil && endLoc.TimeZone != nil && e.Start != nil && !e.IsAllDay {
		if endLocZone, err := c.codec.TimeZones.LoadLocation(*endLoc.TimeZone); err != nil {
			c.errAt(`locations["`+endID+`"].timeZone`, "%v", err)
		} else {
			endBinding := utcBinding
			if endLocZone != time.UTC {
				endBinding = tzBinding{kind: tzNamed, name: *endLoc.TimeZone, loc: endLocZone}
				c.zones[*endLoc.TimeZone] = true
			}
			end := e.Start.Time(binding.location()).Add(time.Duration(duration.Seconds()) * time.Second)
			setDateTimeProp(comp.Props, ics.PropDateTimeEnd, end, endBinding)
			if dtend := comp.Props.Get(ics.PropDateTimeEnd); dtend != nil {
				dtend.Params.Set(paramID, endID)
			}
		}
	}
	if comp.Props.Get(ics.PropDateTimeEnd) == nil && !duration.IsZero() {
		setValueProp(comp.Props, ics.PropDuration, duration.String())
	}

	if e.Title != nil {
		prop := ics.NewProp(ics.PropSummary)
		prop.SetText(*e.Title)
		if e.Language != nil {
			prop.Params.Set("LANGUAGE", *e.Language)
		}
		comp.Props.Set(prop)
	}
	if e.Description != nil {
		prop := ics.NewProp(ics.PropDescription)
		prop.SetText(*e.Description)
		comp.Props.Set(prop)
	}
	if e.Created != nil {
		setUTCProp(comp.Props, ics.PropCreated, e.Created.Time())
	}
	if e.Updated != nil {
		setUTCProp(comp.Props, ics.PropDateTimeStamp, e.Updated.Time())
	}
	if e.Status != nil {
		comp.Props.SetText(ics.PropStatus, strings.ToUpper(string(*e.Status)))
	}
	if e.ShowAsFree {
		comp.Props.SetText(ics.PropTransparency, "TRANSPARENT")
	}
	for _, related := range e.RelatedTo {
		prop := ics.NewProp(ics.PropRelatedTo)
		prop.Value = related
		comp.Props.Add(prop)
	}

	c.encodeParticipants(comp, e)
	c.encodeLinks(comp, e)
	c.encodeAlerts(comp, e)
	c.encodeTranslations(comp, e)

	if !exception && e.RecurrenceRule != nil {
		setValueProp(comp.Props, ics.PropRecurrenceRule, encodeRecurrenceRule(e.RecurrenceRule, binding, e.IsAllDay))
	}
	return comp, nil
}

// knownEventProps are the master properties the codec owns. Anything else on
// a prior master is carried over on update.
var knownEventProps = map[string]bool{
	ics.PropUID: true, ics.PropDateTimeStart: true, ics.PropDateTimeEnd: true,
	ics.PropDuration: true, ics.PropSummary: true, ics.PropDescription: true,
	ics.PropCreated: true, ics.PropDateTimeStamp: true, ics.PropLastModified: true,
	ics.PropSequence: true, ics.PropStatus: true, ics.PropTransparency: true,
	ics.PropOrganizer: true, ics.PropAttendee: true, ics.PropAttach: true,
	ics.PropURL: true, ics.PropRelatedTo: true, ics.PropRecurrenceRule: true,
	ics.PropExceptionDates: true, ics.PropRecurrenceDates: true,
	ics.PropRecurrenceID: true, ics.PropGeo: true,
	propLocation: true, propTranslation: true,
}

func (c *conv) carryUnknownProps(prior, master *ics.Component) {
	for name, props := range prior.Props {
		if knownEventProps[name] {
			continue
		}
		for i := range props {
			prop := props[i]
			master.Props.Add(&prop)
		}
	}
}

// nextSequence advances the sequence number past the prior calendar's.
func nextSequence(priorMaster *ics.Component, e *jevent.Event) int {
	priorSeq := 0
	if prop := priorMaster.Props.Get(ics.PropSequence); prop != nil {
		if n, err := strconv.Atoi(prop.Value); err == nil {
			priorSeq = n
		}
	}
	next := priorSeq + 1
	if e.Sequence != nil && *e.Sequence > next {
		next = *e.Sequence
	}
	return next
}
