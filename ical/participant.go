package ical

import (
	"sort"
	"strings"

	ics "github.com/emersion/go-ical"

	"github.com/calens/go-jevent"
)

// maxDelegationHops bounds delegation chain traversal. Chains longer than
// this, or containing a cycle, resolve to needs-action.
const maxDelegationHops = 64

// attendeeRecord is one slot of the attendee arena. Delegation links are
// resolved through the email index rather than pointers.
type attendeeRecord struct {
	email       string // canonical
	partstat    string // uppercase, "" when absent
	delegatedTo string // canonical, "" when absent
}

// decodeParticipants builds the participant map from the ORGANIZER property
// and the attendee list. The map is keyed by canonical email; an organizer
// sharing an attendee's address merges into one entry with the owner role.
func (c *conv) decodeParticipants(comp *ics.Component) map[string]*jevent.Participant {
	attendees := comp.Props[ics.PropAttendee]
	organizer := comp.Props.Get(ics.PropOrganizer)
	if len(attendees) == 0 && organizer == nil {
		return nil
	}

	// Arena plus canonical-email index, for delegation lookups.
	arena := make([]attendeeRecord, 0, len(attendees))
	index := make(map[string]int, len(attendees))
	for _, prop := range attendees {
		rec := attendeeRecord{
			email:       jevent.CanonicalEmail(prop.Value),
			partstat:    strings.ToUpper(prop.Params.Get("PARTSTAT")),
			delegatedTo: jevent.CanonicalEmail(prop.Params.Get("DELEGATED-TO")),
		}
		if _, ok := index[rec.email]; !ok {
			index[rec.email] = len(arena)
			arena = append(arena, rec)
		}
	}

	participants := make(map[string]*jevent.Participant)
	c.push("participants")
	defer c.pop()

	for i := range attendees {
		prop := &attendees[i]
		email := jevent.CanonicalEmail(prop.Value)
		if email == "" {
			c.errf("attendee without address")
			continue
		}
		if _, ok := participants[email]; ok {
			continue
		}
		p := &jevent.Participant{Email: email}
		c.push(`["` + email + `"]`)

		if cn := prop.Params.Get("CN"); cn != "" {
			p.Name = &cn
		}
		if kind := decodeUserType(prop.Params.Get("CUTYPE")); kind != nil {
			p.Kind = kind
		}
		p.AddRole(jevent.RoleAttendee)
		role := strings.ToUpper(prop.Params.Get("ROLE"))
		if role == "CHAIR" {
			p.AddRole(jevent.RoleChair)
		}
		if prio := decodeSchedulePriority(role); prio != nil {
			p.SchedulePriority = prio
		}
		if strings.EqualFold(prop.Params.Get("RSVP"), "TRUE") {
			p.ScheduleRSVP = true
		}
		if raw := prop.Params.Get(paramDTStart); raw != "" {
			if updated, err := jevent.ParseUTCDateTime(raw); err == nil {
				p.ScheduleUpdated = &updated
			} else {
				c.errAt("scheduleUpdated", "invalid timestamp %q", raw)
			}
		}
		if status := resolveScheduleStatus(arena, index, index[email]); status != nil {
			p.ScheduleStatus = status
		}
		if c.opts != nil && c.opts.IsYou != nil && c.opts.IsYou(email) {
			p.IsYou = true
		}
		participants[email] = p
		c.pop()
	}

	if organizer != nil {
		email := jevent.CanonicalEmail(organizer.Value)
		if email == "" {
			c.errf("organizer without address")
		} else {
			p, ok := participants[email]
			if !ok {
				p = &jevent.Participant{Email: email}
				if cn := organizer.Params.Get("CN"); cn != "" {
					p.Name = &cn
				}
				if c.opts != nil && c.opts.IsYou != nil && c.opts.IsYou(email) {
					p.IsYou = true
				}
				participants[email] = p
			}
			p.AddRole(jevent.RoleOwner)
		}
	}

	return participants
}

// resolveScheduleStatus maps a partstat to a schedule status, following
// delegation chains through the arena. Chains that miss, loop or exceed the
// hop limit fall back to needs-action.
func resolveScheduleStatus(arena []attendeeRecord, index map[string]int, at int) *jevent.ScheduleStatus {
	for hop := 0; hop < maxDelegationHops; hop++ {
		rec := arena[at]
		if rec.partstat != "DELEGATED" {
			return decodePartStat(rec.partstat)
		}
		next, ok := index[rec.delegatedTo]
		if !ok || rec.delegatedTo == "" {
			break
		}
		at = next
	}
	status := jevent.ScheduleNeedsAction
	return &status
}

func decodePartStat(partstat string) *jevent.ScheduleStatus {
	var status jevent.ScheduleStatus
	switch partstat {
	case "NEEDS-ACTION":
		status = jevent.ScheduleNeedsAction
	case "ACCEPTED":
		status = jevent.ScheduleAccepted
	case "DECLINED":
		status = jevent.ScheduleDeclined
	case "TENTATIVE":
		status = jevent.ScheduleTentative
	default:
		return nil
	}
	return &status
}

func decodeUserType(cutype string) *jevent.Kind {
	var kind jevent.Kind
	switch strings.ToUpper(cutype) {
	case "":
		return nil
	case "INDIVIDUAL":
		kind = jevent.KindIndividual
	case "GROUP":
		kind = jevent.KindGroup
	case "RESOURCE":
		kind = jevent.KindResource
	case "ROOM":
		kind = jevent.KindLocation
	default:
		kind = jevent.KindUnknown
	}
	return &kind
}

func decodeSchedulePriority(role string) *jevent.SchedulePriority {
	var prio jevent.SchedulePriority
	switch role {
	case "OPT-PARTICIPANT":
		prio = jevent.PriorityOptional
	case "NON-PARTICIPANT":
		prio = jevent.PriorityNonParticipant
	case "REQ-PARTICIPANT":
		prio = jevent.PriorityRequired
	default:
		return nil
	}
	return &prio
}

// encodeParticipants reconstructs the ORGANIZER property and one ATTENDEE
// per non-owner-only participant. Keys are processed in sorted order so that
// successive owner assignments resolve deterministically: the last owner
// wins.
func (c *conv) encodeParticipants(comp *ics.Component, e *jevent.Event) {
	if len(e.Participants) == 0 {
		return
	}
	keys := make([]string, 0, len(e.Participants))
	for key := range e.Participants {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var owner *jevent.Participant
	for _, key := range keys {
		if p := e.Participants[key]; p.HasRole(jevent.RoleOwner) {
			owner = p
		}
	}

	replyTo := ""
	if e.ReplyTo != nil {
		replyTo = jevent.CanonicalEmail(*e.ReplyTo)
	} else if owner != nil {
		replyTo = owner.Email
	}
	if replyTo != "" {
		prop := ics.NewProp(ics.PropOrganizer)
		prop.Value = "mailto:" + replyTo
		if owner != nil && owner.Name != nil {
			prop.Params.Set("CN", *owner.Name)
		}
		comp.Props.Set(prop)
	}

	for _, key := range keys {
		p := e.Participants[key]
		if p.HasRole(jevent.RoleOwner) && !p.HasRole(jevent.RoleAttendee) && !p.HasRole(jevent.RoleChair) {
			continue
		}
		prop := ics.NewProp(ics.PropAttendee)
		prop.Value = "mailto:" + p.Email
		if p.Name != nil {
			prop.Params.Set("CN", *p.Name)
		}
		if p.Kind != nil {
			if cutype := encodeUserType(*p.Kind); cutype != "" {
				prop.Params.Set("CUTYPE", cutype)
			}
		}
		if role := encodeRole(p); role != "" {
			prop.Params.Set("ROLE", role)
		}
		if p.ScheduleStatus != nil {
			prop.Params.Set("PARTSTAT", encodePartStat(*p.ScheduleStatus))
		}
		if p.ScheduleRSVP {
			prop.Params.Set("RSVP", "TRUE")
		}
		if p.ScheduleUpdated != nil {
			prop.Params.Set(paramDTStart, p.ScheduleUpdated.String())
		}
		comp.Props.Add(prop)
	}
}

func encodeUserType(kind jevent.Kind) string {
	switch kind {
	case jevent.KindIndividual:
		return "INDIVIDUAL"
	case jevent.KindGroup:
		return "GROUP"
	case jevent.KindResource:
		return "RESOURCE"
	case jevent.KindLocation:
		return "ROOM"
	}
	return ""
}

func encodeRole(p *jevent.Participant) string {
	if p.HasRole(jevent.RoleChair) {
		return "CHAIR"
	}
	if p.SchedulePriority != nil {
		switch *p.SchedulePriority {
		case jevent.PriorityOptional:
			return "OPT-PARTICIPANT"
		case jevent.PriorityNonParticipant:
			return "NON-PARTICIPANT"
		case jevent.PriorityRequired:
			return "REQ-PARTICIPANT"
		}
	}
	return ""
}

func encodePartStat(status jevent.ScheduleStatus) string {
	switch status {
	case jevent.ScheduleAccepted:
		return "ACCEPTED"
	case jevent.ScheduleDeclined:
		return "DECLINED"
	case jevent.ScheduleTentative:
		return "TENTATIVE"
	}
	return "NEEDS-ACTION"
}
