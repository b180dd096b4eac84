package ical

import (
	"sort"
	"strings"
	"time"

	ics "github.com/emersion/go-ical"

	"github.com/calens/go-jevent"
)

// decodeAlerts translates each VALARM child into an alert. The alarm's UID
// property keys the map; alarms without one get a derived id.
func (c *conv) decodeAlerts(comp *ics.Component, start, end time.Time) map[string]*jevent.Alert {
	var alerts map[string]*jevent.Alert
	c.push("alerts")
	defer c.pop()

	for _, child := range comp.Children {
		if child.Name != ics.CompAlarm {
			continue
		}
		trigger := child.Props.Get(ics.PropTrigger)
		if trigger == nil {
			c.errf("alarm without trigger")
			continue
		}
		id, err := child.Props.Text(ics.PropUID)
		if err != nil || id == "" {
			id = deriveID("TRIGGER:" + trigger.Value)
		}
		c.push(`["` + id + `"]`)

		alert := &jevent.Alert{}
		if !c.decodeTrigger(trigger, start, end, alert) {
			c.pop()
			continue
		}
		alert.Action = c.decodeAlarmAction(child)

		if alerts == nil {
			alerts = make(map[string]*jevent.Alert)
		}
		alerts[id] = alert
		c.pop()
	}
	return alerts
}

// decodeTrigger reads either a relative duration trigger or an absolute
// date-time trigger. Absolute triggers become offsets from the event's UTC
// start (the end is never used as their anchor); floating events compare
// local values directly, so the resulting offset shifts with the viewer's
// zone.
func (c *conv) decodeTrigger(trigger *ics.Prop, start, end time.Time, alert *jevent.Alert) bool {
	value := trigger.Value
	if strings.EqualFold(trigger.Params.Get("VALUE"), "DATE-TIME") || strings.HasSuffix(value, "Z") {
		at, _, err := parseICalValue(value, time.UTC)
		if err != nil {
			c.errAt("offset", "invalid trigger %q", value)
			return false
		}
		secs := int64(at.Sub(start) / time.Second)
		alert.Offset = jevent.DurationFromSeconds(secs).Abs()
		rel := jevent.AfterStart
		if secs < 0 {
			rel = jevent.BeforeStart
		}
		alert.RelativeTo = &rel
		return true
	}

	dur, err := jevent.ParseDuration(value)
	if err != nil {
		c.errAt("offset", "invalid trigger %q", value)
		return false
	}
	anchorEnd := strings.EqualFold(trigger.Params.Get("RELATED"), "END")
	var rel jevent.RelativeTo
	switch {
	case dur.Negative && anchorEnd:
		rel = jevent.BeforeEnd
	case dur.Negative:
		rel = jevent.BeforeStart
	case anchorEnd:
		rel = jevent.AfterEnd
	default:
		rel = jevent.AfterStart
	}
	alert.Offset = dur.Abs()
	alert.RelativeTo = &rel
	return true
}

// decodeAlarmAction maps the ACTION property. Unknown actions are preserved
// as the unknown arm so they are neither triggered nor deleted.
func (c *conv) decodeAlarmAction(child *ics.Component) *jevent.AlertAction {
	raw, err := child.Props.Text(ics.PropAction)
	if err != nil || raw == "" {
		return nil
	}
	switch strings.ToUpper(raw) {
	case "DISPLAY":
		return &jevent.AlertAction{Type: jevent.ActionDisplay}
	case "EMAIL":
		action := &jevent.AlertAction{Type: jevent.ActionEmail}
		for _, att := range child.Props[ics.PropAttendee] {
			if to := jevent.CanonicalEmail(att.Value); to != "" {
				action.To = append(action.To, to)
			}
		}
		if subject, err := child.Props.Text(ics.PropSummary); err == nil && subject != "" {
			action.Subject = &subject
		}
		if body, err := child.Props.Text(ics.PropDescription); err == nil && body != "" {
			action.TextBody = &body
		}
		return action
	}
	return &jevent.AlertAction{Type: jevent.ActionUnknown}
}

// encodeAlerts writes one VALARM per alert. Alerts with an unknown action
// are dropped.
func (c *conv) encodeAlerts(comp *ics.Component, e *jevent.Event) {
	keys := make([]string, 0, len(e.Alerts))
	for key := range e.Alerts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	c.push("alerts")
	defer c.pop()

	for _, id := range keys {
		alert := e.Alerts[id]
		c.push(`["` + id + `"]`)
		if alert.Action != nil && alert.Action.Type == jevent.ActionUnknown {
			c.pop()
			continue
		}
		if alert.Action != nil && alert.Action.Type == jevent.ActionEmail && len(alert.Action.To) == 0 {
			c.errAt("action.to", "email actions need at least one recipient")
			c.pop()
			continue
		}

		child := ics.NewComponent(ics.CompAlarm)
		child.Props.SetText(ics.PropUID, id)

		rel := jevent.BeforeStart
		if alert.RelativeTo != nil {
			rel = *alert.RelativeTo
		} else if !alert.Offset.Negative {
			rel = jevent.AfterStart
		}
		before := rel.IsBefore() != alert.Offset.Negative
		wire := alert.Offset.Abs()
		wire.Negative = before
		trigger := ics.NewProp(ics.PropTrigger)
		trigger.Value = wire.String()
		if rel.AnchorsEnd() {
			trigger.Params.Set("RELATED", "END")
		}
		child.Props.Set(trigger)

		if alert.Action != nil && alert.Action.Type == jevent.ActionEmail {
			child.Props.SetText(ics.PropAction, "EMAIL")
			for _, to := range alert.Action.To {
				att := ics.NewProp(ics.PropAttendee)
				att.Value = "mailto:" + jevent.CanonicalEmail(to)
				child.Props.Add(att)
			}
			if alert.Action.Subject != nil {
				child.Props.SetText(ics.PropSummary, *alert.Action.Subject)
			}
			if alert.Action.TextBody != nil {
				child.Props.SetText(ics.PropDescription, *alert.Action.TextBody)
			}
		} else {
			child.Props.SetText(ics.PropAction, "DISPLAY")
			description := ""
			if e.Title != nil {
				description = *e.Title
			}
			child.Props.SetText(ics.PropDescription, description)
		}
		comp.Children = append(comp.Children, child)
		c.pop()
	}
}
