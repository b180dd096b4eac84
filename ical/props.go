package ical

// Non-standard properties and parameters carried as load-bearing state.
const (
	// propLocation is the bespoke location property; its text value is the
	// location name and its ALTREP parameter carries the structured sidecar.
	propLocation = "X-LOCATION"
	// propTranslation carries one language-tagged field value.
	propTranslation = "X-JMAP-TRANSLATION"

	// paramID is the stable object identifier of a keyed map member.
	paramID = "X-JMAP-ID"
	// paramProp is the field path a translation addresses.
	paramProp = "X-JMAP-PROP"
	// paramDTStart carries a participant's scheduleUpdated timestamp.
	paramDTStart = "X-DTSTART"
)

// sidecarPrefix is the literal data-URI prefix of the structured location
// sidecar. The payload is the base64 of the location's compact JSON.
const sidecarPrefix = "data:application/json;x-jmap-type=location;base64,"

// defaultProdID identifies this implementation in emitted calendars.
const defaultProdID = "-//calens//go-jevent//EN"
