package jevent

import "fmt"

// Translation carries the language-tagged values of the translatable event
// fields. Nested maps address members of the keyed location and link maps.
type Translation struct {
	Title       *string                         `json:"title,omitempty"`
	Description *string                         `json:"description,omitempty"`
	Locations   map[string]*LocationTranslation `json:"locations,omitempty"`
	Links       map[string]*LinkTranslation     `json:"links,omitempty"`
}

// LocationTranslation is the translatable subset of a location.
type LocationTranslation struct {
	Name *string `json:"name,omitempty"`
}

// LinkTranslation is the translatable subset of a link.
type LinkTranslation struct {
	Title *string `json:"title,omitempty"`
}

// IsEmpty reports whether the translation carries no values.
func (t *Translation) IsEmpty() bool {
	return t.Title == nil && t.Description == nil && len(t.Locations) == 0 && len(t.Links) == 0
}

// Validate checks the translation in isolation.
func (t *Translation) Validate() []PropertyError {
	var errs []PropertyError
	if t.IsEmpty() {
		errs = append(errs, PropertyError{Message: "must not be empty"})
	}
	for id, lt := range t.Locations {
		if lt == nil || lt.Name == nil {
			errs = append(errs, PropertyError{Path: fmt.Sprintf("locations[%q].name", id), Message: "missing"})
		}
	}
	for id, lt := range t.Links {
		if lt == nil || lt.Title == nil {
			errs = append(errs, PropertyError{Path: fmt.Sprintf("links[%q].title", id), Message: "missing"})
		}
	}
	return errs
}
