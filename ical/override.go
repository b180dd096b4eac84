package ical

import (
	"encoding/json"
	"strings"
	"time"

	ics "github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/calens/go-jevent"
	"github.com/calens/go-jevent/internal/jsonpatch"
)

// nonOverridable lists the fields an exception can never change. They are
// stripped from both sides before diffing and from patches before applying.
var nonOverridable = []string{
	"uid", "prodId", "sequence", "relatedTo",
	"recurrenceRule", "recurrenceOverrides",
}

// eventJSON converts an event to its generic JSON object form, for diffing
// and patching.
func eventJSON(e *jevent.Event) (map[string]interface{}, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func eventFromJSON(obj map[string]interface{}) (*jevent.Event, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var e jevent.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func stripNonOverridable(obj map[string]interface{}) {
	for _, field := range nonOverridable {
		delete(obj, field)
	}
}

// overrideKey renders an occurrence instant as a local date-time in the
// event's start timezone, the form every override key takes.
func overrideKey(t time.Time, start tzBinding) string {
	return jevent.NewLocalDateTime(t.In(start.location())).String()
}

// decodeOverrides collects recurrence exceptions from EXDATE and RDATE
// properties of the master and from sibling exception components, producing
// the patch map. Keys that do not match the master's expansion are kept as
// additions rather than dropped.
func (c *conv) decodeOverrides(master *ics.Component, exceptions []*ics.Component, masterEvent *jevent.Event, start tzBinding) map[string]jevent.PatchObject {
	overrides := make(map[string]jevent.PatchObject)
	c.push("recurrenceOverrides")
	defer c.pop()

	for _, prop := range master.Props[ics.PropExceptionDates] {
		binding := start
		if b, err := c.propBinding(&prop); err == nil {
			binding = b
		}
		for _, value := range strings.Split(prop.Value, ",") {
			t, _, err := parseICalValue(value, binding.location())
			if err != nil {
				c.errf("invalid EXDATE value %q", value)
				continue
			}
			overrides[overrideKey(t, start)] = nil
		}
	}

	for _, prop := range master.Props[ics.PropRecurrenceDates] {
		c.decodeRecurrenceDates(&prop, start, overrides)
	}

	var masterObj map[string]interface{}
	if len(exceptions) > 0 {
		obj, err := eventJSON(masterEvent)
		if err != nil {
			c.errf("unencodable master event")
			return overrides
		}
		stripNonOverridable(obj)
		masterObj = obj
	}
	for _, exc := range exceptions {
		recurrenceID := exc.Props.Get(ics.PropRecurrenceID)
		if recurrenceID == nil {
			continue
		}
		binding := start
		if b, err := c.propBinding(recurrenceID); err == nil {
			binding = b
		}
		at, _, err := parseICalValue(recurrenceID.Value, binding.location())
		if err != nil {
			c.errf("invalid recurrence id %q", recurrenceID.Value)
			continue
		}
		key := overrideKey(at, start)
		c.push(`["` + key + `"]`)
		excEvent, _, err := c.decodeEventComponent(exc, true)
		if err != nil {
			c.errf("unreadable exception")
			c.pop()
			continue
		}
		excObj, err := eventJSON(excEvent)
		if err != nil {
			c.errf("unencodable exception")
			c.pop()
			continue
		}
		stripNonOverridable(excObj)
		// The diff base starts at the occurrence itself, so an exception
		// beginning at its recurrence id is not a move.
		base := jsonpatch.Apply(masterObj, map[string]interface{}{"start": key})
		overrides[key] = jsonpatch.Diff(base, excObj)
		c.pop()
	}

	if len(overrides) == 0 {
		return nil
	}
	return overrides
}

// decodeRecurrenceDates adds RDATE occurrences. A PERIOD value carries an
// end or a duration; when both could apply the end wins and the duration is
// derived from it.
func (c *conv) decodeRecurrenceDates(prop *ics.Prop, start tzBinding, overrides map[string]jevent.PatchObject) {
	binding := start
	if b, err := c.propBinding(prop); err == nil {
		binding = b
	}
	isPeriod := strings.EqualFold(prop.Params.Get("VALUE"), "PERIOD")
	for _, value := range strings.Split(prop.Value, ",") {
		if !isPeriod {
			t, _, err := parseICalValue(value, binding.location())
			if err != nil {
				c.errf("invalid RDATE value %q", value)
				continue
			}
			overrides[overrideKey(t, start)] = jevent.PatchObject{}
			continue
		}
		from, rest, found := strings.Cut(value, "/")
		if !found {
			c.errf("invalid RDATE period %q", value)
			continue
		}
		t, _, err := parseICalValue(from, binding.location())
		if err != nil {
			c.errf("invalid RDATE period %q", value)
			continue
		}
		patch := jevent.PatchObject{}
		if strings.HasPrefix(rest, "P") || strings.HasPrefix(rest, "+P") || strings.HasPrefix(rest, "-P") {
			dur, err := jevent.ParseDuration(rest)
			if err != nil {
				c.errf("invalid RDATE period %q", value)
				continue
			}
			patch["duration"] = dur.String()
		} else {
			end, _, err := parseICalValue(rest, binding.location())
			if err != nil {
				c.errf("invalid RDATE period %q", value)
				continue
			}
			patch["duration"] = jevent.DurationFromSeconds(int64(end.Sub(t) / time.Second)).String()
		}
		overrides[overrideKey(t, start)] = patch
	}
}

// encodeOverrides writes the override map back out: cancellations as EXDATE,
// plain additions as RDATE, duration-only additions as RDATE periods, and
// everything else as a full exception component.
func (c *conv) encodeOverrides(cal *ics.Calendar, master *ics.Component, e *jevent.Event, start tzBinding, uid string) {
	if len(e.RecurrenceOverrides) == 0 {
		return
	}
	masterObj, err := eventJSON(e)
	if err != nil {
		c.errAt("recurrenceOverrides", "unencodable master event")
		return
	}
	stripNonOverridable(masterObj)

	// Overrides of a bounded rule are checked against its expansion; keys
	// outside it are additions and get an RDATE so the occurrence
	// materializes. Unbounded rules skip the check.
	var known map[string]bool
	if e.RecurrenceRule != nil && e.RecurrenceRule.IsBounded() {
		known = expandedKeys(e, start, maxExpandedOccurrences)
	}

	c.push("recurrenceOverrides")
	defer c.pop()

	for _, key := range sortedKeys(e.RecurrenceOverrides) {
		patch := e.RecurrenceOverrides[key]
		c.push(`["` + key + `"]`)
		local, err := jevent.ParseLocalDateTime(key)
		if err != nil {
			c.errf("key must be a local date-time")
			c.pop()
			continue
		}
		at := local.Time(start.location())

		switch {
		case patch == nil:
			prop := ics.NewProp(ics.PropExceptionDates)
			writeOccurrenceValue(prop, at, local, start, e.IsAllDay)
			master.Props.Add(prop)

		case len(patch) == 0:
			prop := ics.NewProp(ics.PropRecurrenceDates)
			writeOccurrenceValue(prop, at, local, start, e.IsAllDay)
			master.Props.Add(prop)

		case len(patch) == 1 && patch["duration"] != nil:
			raw, _ := patch["duration"].(string)
			dur, err := jevent.ParseDuration(raw)
			if err != nil {
				c.errAt("duration", "invalid value %q", raw)
				c.pop()
				continue
			}
			prop := ics.NewProp(ics.PropRecurrenceDates)
			prop.Params.Set("VALUE", "PERIOD")
			prop.Value = formatOccurrenceTime(at, start) + "/" + dur.String()
			if start.kind == tzNamed {
				prop.Params.Set("TZID", start.name)
			}
			master.Props.Add(prop)

		default:
			if known != nil && !known[key] {
				prop := ics.NewProp(ics.PropRecurrenceDates)
				writeOccurrenceValue(prop, at, local, start, e.IsAllDay)
				master.Props.Add(prop)
			}
			c.encodeException(cal, patch, masterObj, at, local, start, uid, e.IsAllDay)
		}
		c.pop()
	}
}

// encodeException applies the patch to the master and emits the result as a
// sibling component carrying a RECURRENCE-ID.
func (c *conv) encodeException(cal *ics.Calendar, patch jevent.PatchObject, masterObj map[string]interface{}, at time.Time, local jevent.LocalDateTime, start tzBinding, uid string, isAllDay bool) {
	base := jsonpatch.Apply(masterObj, map[string]interface{}{"start": local.String()})
	patched := jsonpatch.Apply(base, patch)
	stripNonOverridable(patched)
	excEvent, err := eventFromJSON(patched)
	if err != nil {
		c.errf("invalid patch")
		return
	}
	excEvent.UID = uid

	comp, err := c.encodeEventComponent(excEvent, uid, true)
	if err != nil {
		c.errf("unencodable exception")
		return
	}
	recurrenceID := ics.NewProp(ics.PropRecurrenceID)
	writeOccurrenceValue(recurrenceID, at, local, start, isAllDay)
	comp.Props.Set(recurrenceID)
	cal.Children = append(cal.Children, comp)
}

// writeOccurrenceValue fills a date-time property addressing one occurrence
// in the start timezone.
func writeOccurrenceValue(prop *ics.Prop, at time.Time, local jevent.LocalDateTime, start tzBinding, isAllDay bool) {
	if isAllDay {
		prop.SetValueType(ics.ValueDate)
		prop.Value = local.Time(nil).Format(icalDateLayout)
		return
	}
	prop.Value = formatOccurrenceTime(at, start)
	if start.kind == tzNamed {
		prop.Params.Set("TZID", start.name)
	}
}

func formatOccurrenceTime(at time.Time, start tzBinding) string {
	if start.kind == tzUTC {
		return at.UTC().Format(icalDateTimeUTCLayout)
	}
	return at.In(start.location()).Format(icalDateTimeLayout)
}

// eventSpan computes the UTC interval covered by every occurrence of the
// event, including overrides. Unbounded rules yield the eternity sentinel.
// The expansion works from the JSON rule alone, so the master's RRULE needs
// no temporary removal to avoid double-counting RDATE entries.
func eventSpan(e *jevent.Event, start tzBinding, duration jevent.Duration) span {
	startAt := e.Start.Time(start.location())
	length := time.Duration(duration.Seconds()) * time.Second
	sp := span{start: startAt.UTC(), end: startAt.Add(length).UTC()}

	if rule := e.RecurrenceRule; rule != nil {
		if !rule.IsBounded() {
			sp.end = eternity
		} else if opt, err := recurrenceROption(rule, startAt); err == nil {
			if r, err := rrule.NewRRule(*opt); err == nil {
				occurrences := r.All()
				if n := len(occurrences); n > 0 {
					last := occurrences[n-1].Add(length).UTC()
					if last.After(sp.end) {
						sp.end = last
					}
				}
			}
		}
	}

	for key, patch := range e.RecurrenceOverrides {
		if patch == nil {
			continue
		}
		local, err := jevent.ParseLocalDateTime(key)
		if err != nil {
			continue
		}
		at := local.Time(start.location())
		if raw, ok := patch["start"].(string); ok {
			if moved, err := jevent.ParseLocalDateTime(raw); err == nil {
				at = moved.Time(start.location())
			}
		}
		end := at.Add(length)
		if raw, ok := patch["duration"].(string); ok {
			if dur, err := jevent.ParseDuration(raw); err == nil {
				end = at.Add(time.Duration(dur.Seconds()) * time.Second)
			}
		}
		if at.UTC().Before(sp.start) {
			sp.start = at.UTC()
		}
		if end.UTC().After(sp.end) && sp.end.Before(eternity) {
			sp.end = end.UTC()
		}
	}
	return sp
}

// maxExpandedOccurrences bounds expansion when matching override keys
// against a rule.
const maxExpandedOccurrences = 10000

// expandedKeys enumerates the master expansion as override keys, used to
// distinguish overrides of real occurrences from additions.
func expandedKeys(e *jevent.Event, start tzBinding, limit int) map[string]bool {
	if e.RecurrenceRule == nil || e.Start == nil {
		return nil
	}
	startAt := e.Start.Time(start.location())
	opt, err := recurrenceROption(e.RecurrenceRule, startAt)
	if err != nil {
		return nil
	}
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil
	}
	keys := make(map[string]bool)
	it := r.Iterator()
	for i := 0; i < limit; i++ {
		at, ok := it()
		if !ok {
			break
		}
		keys[overrideKey(at, start)] = true
	}
	return keys
}
