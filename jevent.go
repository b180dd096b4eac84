// Package jevent defines a JSON representation of a single calendar event.
//
// The model mirrors the JMAP calendar event shape: nested objects
// (participants, locations, alerts, links) are keyed by stable string
// identifiers, date-times are ISO-8601 local values interpreted in the
// event's IANA timezone, and recurrence exceptions are sparse patches over
// the master event. The ical sub-package translates between this model and
// RFC 5545 component trees.
package jevent

import (
	"fmt"
	"strings"
)

// Event is the user-visible calendar entry. UID is the only required field;
// everything else is optional and omitted from JSON when unset.
type Event struct {
	UID                 string                  `json:"uid"`
	IsAllDay            bool                    `json:"isAllDay,omitempty"`
	Start               *LocalDateTime          `json:"start,omitempty"`
	TimeZone            *string                 `json:"timeZone,omitempty"`
	Duration            *Duration               `json:"duration,omitempty"`
	Title               *string                 `json:"title,omitempty"`
	Description         *string                 `json:"description,omitempty"`
	Language            *string                 `json:"language,omitempty"`
	ProdID              *string                 `json:"prodId,omitempty"`
	Created             *UTCDateTime            `json:"created,omitempty"`
	Updated             *UTCDateTime            `json:"updated,omitempty"`
	Sequence            *int                    `json:"sequence,omitempty"`
	Status              *Status                 `json:"status,omitempty"`
	ShowAsFree          bool                    `json:"showAsFree,omitempty"`
	ReplyTo             *string                 `json:"replyTo,omitempty"`
	Participants        map[string]*Participant `json:"participants,omitempty"`
	Locations           map[string]*Location    `json:"locations,omitempty"`
	Alerts              map[string]*Alert       `json:"alerts,omitempty"`
	Links               map[string]*Link        `json:"links,omitempty"`
	RelatedTo           []string                `json:"relatedTo,omitempty"`
	RecurrenceRule      *RecurrenceRule         `json:"recurrenceRule,omitempty"`
	RecurrenceOverrides map[string]PatchObject  `json:"recurrenceOverrides,omitempty"`
	Translations        map[string]*Translation `json:"translations,omitempty"`
}

// PatchObject is a sparse JSON-pointer-keyed patch over the master event.
// A nil PatchObject marshals to JSON null and cancels the occurrence.
type PatchObject = map[string]interface{}

// Status is the scheduling status of an event.
type Status string

const (
	StatusTentative Status = "tentative"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus maps either a JSON status or an ICAL STATUS value to a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(s) {
	case "tentative":
		return StatusTentative, nil
	case "confirmed":
		return StatusConfirmed, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("jevent: invalid status %q", s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusTentative, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Validate checks the cross-field invariants of the event and returns one
// PropertyError per violation. Field paths are relative to the event root.
func (e *Event) Validate() []PropertyError {
	var errs []PropertyError

	if e.UID == "" {
		errs = append(errs, PropertyError{Path: "uid", Message: "missing"})
	}
	if e.IsAllDay {
		if e.Start != nil && !e.Start.IsMidnight() {
			errs = append(errs, PropertyError{Path: "start", Message: "all-day events must start at midnight"})
		}
		if e.TimeZone != nil {
			errs = append(errs, PropertyError{Path: "timeZone", Message: "all-day events must be floating"})
		}
		if e.Duration != nil && e.Duration.HasTime() {
			errs = append(errs, PropertyError{Path: "duration", Message: "all-day events cannot have a time component"})
		}
	}
	if e.Status != nil && !e.Status.Valid() {
		errs = append(errs, PropertyError{Path: "status", Message: fmt.Sprintf("invalid value %q", *e.Status)})
	}
	if e.Duration != nil && e.Duration.Negative {
		errs = append(errs, PropertyError{Path: "duration", Message: "must not be negative"})
	}

	// The end-location timezone and the event timezone are either both
	// floating or both set.
	for id, loc := range e.Locations {
		for _, locErr := range loc.Validate() {
			errs = append(errs, locErr.Under(fmt.Sprintf("locations[%q]", id)))
		}
		if loc.Rel != nil && *loc.Rel == "end" && loc.TimeZone != nil && e.TimeZone == nil {
			errs = append(errs, PropertyError{
				Path:    fmt.Sprintf("locations[%q].timeZone", id),
				Message: "end timezone set on a floating event",
			})
		}
	}

	hasOwner := false
	hasNonOwner := false
	for key, p := range e.Participants {
		for _, pErr := range p.Validate() {
			errs = append(errs, pErr.Under(fmt.Sprintf("participants[%q]", key)))
		}
		if p.Email != "" && CanonicalEmail(p.Email) != key {
			errs = append(errs, PropertyError{
				Path:    fmt.Sprintf("participants[%q].email", key),
				Message: "key must be the canonical email",
			})
		}
		if p.HasRole(RoleOwner) {
			hasOwner = true
		} else {
			hasNonOwner = true
		}
	}
	if e.ReplyTo != nil && (!hasOwner || !hasNonOwner) {
		errs = append(errs, PropertyError{Path: "replyTo", Message: "requires an owner and at least one other participant"})
	}
	if e.ReplyTo == nil && hasOwner && hasNonOwner {
		errs = append(errs, PropertyError{Path: "replyTo", Message: "missing for an event with an owner"})
	}

	for id, alert := range e.Alerts {
		for _, aErr := range alert.Validate() {
			errs = append(errs, aErr.Under(fmt.Sprintf("alerts[%q]", id)))
		}
	}
	if e.RecurrenceRule != nil {
		for _, rErr := range e.RecurrenceRule.Validate() {
			errs = append(errs, rErr.Under("recurrenceRule"))
		}
	}
	for key := range e.RecurrenceOverrides {
		if _, err := ParseLocalDateTime(key); err != nil {
			errs = append(errs, PropertyError{
				Path:    fmt.Sprintf("recurrenceOverrides[%q]", key),
				Message: "key must be a local date-time",
			})
		}
	}
	for lang, tr := range e.Translations {
		for _, tErr := range tr.Validate() {
			errs = append(errs, tErr.Under(fmt.Sprintf("translations[%q]", lang)))
		}
	}
	return errs
}

// PropertyError is a semantic violation at a known field path.
type PropertyError struct {
	Path    string
	Message string
}

func (e PropertyError) Error() string {
	return fmt.Sprintf("jevent: %s: %s", e.Path, e.Message)
}

// Under prefixes the error path with a parent segment.
func (e PropertyError) Under(parent string) PropertyError {
	if e.Path == "" {
		e.Path = parent
	} else if strings.HasPrefix(e.Path, "[") {
		e.Path = parent + e.Path
	} else {
		e.Path = parent + "." + e.Path
	}
	return e
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Int returns a pointer to i.
func Int(i int) *int { return &i }
