package jevent

// Location is a physical place attached to an event. At least one field must
// be present. A location with Rel "end" may carry the timezone the event ends
// in.
type Location struct {
	Name              *string  `json:"name,omitempty"`
	Rel               *string  `json:"rel,omitempty"`
	TimeZone          *string  `json:"timeZone,omitempty"`
	Coordinates       *string  `json:"coordinates,omitempty"`
	URI               *string  `json:"uri,omitempty"`
	Address           *Address `json:"address,omitempty"`
	AccessInstruction *string  `json:"accessInstruction,omitempty"`
}

// Address is a structured postal address.
type Address struct {
	Street   *string `json:"street,omitempty"`
	Locality *string `json:"locality,omitempty"`
	Region   *string `json:"region,omitempty"`
	Postcode *string `json:"postcode,omitempty"`
	Country  *string `json:"country,omitempty"`
}

// IsEmpty reports whether every field is unset.
func (l *Location) IsEmpty() bool {
	return l.Name == nil && l.Rel == nil && l.TimeZone == nil &&
		l.Coordinates == nil && l.URI == nil && l.Address == nil &&
		l.AccessInstruction == nil
}

// HasDetail reports whether the location carries more than a name. Detailed
// locations need the structured sidecar to survive a round-trip.
func (l *Location) HasDetail() bool {
	return l.Rel != nil || l.TimeZone != nil || l.Coordinates != nil ||
		l.URI != nil || l.Address != nil || l.AccessInstruction != nil
}

// Validate checks the location in isolation.
func (l *Location) Validate() []PropertyError {
	var errs []PropertyError
	if l.IsEmpty() {
		errs = append(errs, PropertyError{Message: "must not be empty"})
	}
	return errs
}
