package ical

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	ics "github.com/emersion/go-ical"

	"github.com/calens/go-jevent"
)

// locationPlaceholder stands in for an empty location name, because the
// property value must be non-empty text.
const locationPlaceholder = "_"

// deriveID synthesizes a stable identifier for a map member that carries no
// X-JMAP-ID parameter.
func deriveID(line string) string {
	sum := sha1.Sum([]byte(line))
	return hex.EncodeToString(sum[:]) + "-auto"
}

// decodeLocations reads every X-LOCATION property plus the GEO property.
// The ALTREP sidecar, when present, is preferred over the bare name.
func (c *conv) decodeLocations(comp *ics.Component) map[string]*jevent.Location {
	props := comp.Props[propLocation]
	geo := comp.Props.Get(ics.PropGeo)
	if len(props) == 0 && geo == nil {
		return nil
	}

	locations := make(map[string]*jevent.Location)
	order := make([]string, 0, len(props))
	c.push("locations")
	defer c.pop()

	for i := range props {
		prop := &props[i]
		id := prop.Params.Get(paramID)
		if id == "" {
			id = deriveID(propLocation + ":" + prop.Value)
		}
		c.push(`["` + id + `"]`)

		loc := &jevent.Location{}
		if sidecar := prop.Params.Get("ALTREP"); strings.HasPrefix(sidecar, sidecarPrefix) {
			if !c.decodeLocationSidecar(sidecar, loc) {
				c.pop()
				continue
			}
		} else if prop.Value != "" && prop.Value != locationPlaceholder {
			name, err := prop.Text()
			if err != nil {
				name = prop.Value
			}
			loc.Name = &name
		}
		if loc.IsEmpty() {
			c.errf("empty location")
			c.pop()
			continue
		}
		locations[id] = loc
		order = append(order, id)
		c.pop()
	}

	if geo != nil {
		c.decodeGeo(geo, locations, order)
	}
	if len(locations) == 0 {
		return nil
	}
	return locations
}

func (c *conv) decodeLocationSidecar(sidecar string, loc *jevent.Location) bool {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sidecar, sidecarPrefix))
	if err != nil {
		c.errf("malformed location sidecar")
		return false
	}
	if err := json.Unmarshal(raw, loc); err != nil {
		c.errf("malformed location sidecar")
		return false
	}
	return true
}

// decodeGeo folds a GEO property into the first location without
// coordinates, or synthesizes a location of its own. Nothing changes when a
// location earlier in order already carries the same coordinates.
func (c *conv) decodeGeo(prop *ics.Prop, locations map[string]*jevent.Location, order []string) {
	coords, ok := parseGeo(prop.Value)
	if !ok {
		c.errAt("coordinates", "invalid GEO value %q", prop.Value)
		return
	}
	for _, id := range order {
		loc := locations[id]
		if loc.Coordinates == nil {
			loc.Coordinates = &coords
			return
		}
		if *loc.Coordinates == coords {
			return
		}
	}
	id := deriveID("GEO:" + prop.Value)
	locations[id] = &jevent.Location{Coordinates: &coords}
}

// parseGeo accepts both the semicolon wire form ("52.5;13.4") and the comma
// geo-URI form, and always produces the comma form.
func parseGeo(value string) (string, bool) {
	value = strings.TrimPrefix(value, "geo:")
	sep := ";"
	if !strings.Contains(value, ";") {
		sep = ","
	}
	parts := strings.Split(value, sep)
	if len(parts) != 2 {
		return "", false
	}
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
		if _, err := strconv.ParseFloat(parts[i], 64); err != nil {
			return "", false
		}
	}
	return "geo:" + parts[0] + "," + parts[1], true
}

// geoPropValue renders a geo URI as a GEO property value, semicolon
// separated.
func geoPropValue(coords string) (string, bool) {
	parsed, ok := parseGeo(coords)
	if !ok {
		return "", false
	}
	parsed = strings.TrimPrefix(parsed, "geo:")
	return strings.Replace(parsed, ",", ";", 1), true
}

// applyEndLocation binds the end timezone carried by a DTEND property to the
// location it references, creating the location when the id is new.
func applyEndLocation(locations map[string]*jevent.Location, id, tzName string) map[string]*jevent.Location {
	if locations == nil {
		locations = make(map[string]*jevent.Location)
	}
	loc, ok := locations[id]
	if !ok {
		loc = &jevent.Location{}
		locations[id] = loc
	}
	rel := "end"
	loc.Rel = &rel
	if tzName != "" {
		loc.TimeZone = &tzName
	}
	return locations
}

// encodeLocations writes one X-LOCATION property per location, a sidecar for
// any location carrying more than a name, and a GEO property for the first
// location with coordinates. It returns the end-timezone location, if any,
// for DTEND binding.
func (c *conv) encodeLocations(comp *ics.Component, e *jevent.Event) (endID string, endLoc *jevent.Location) {
	keys := make([]string, 0, len(e.Locations))
	for key := range e.Locations {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	c.push("locations")
	defer c.pop()

	geoDone := false
	for _, id := range keys {
		loc := e.Locations[id]
		c.push(`["` + id + `"]`)
		if loc.IsEmpty() {
			c.errf("empty location")
			c.pop()
			continue
		}

		prop := ics.NewProp(propLocation)
		if loc.Name != nil && *loc.Name != "" {
			prop.SetText(*loc.Name)
		} else {
			prop.Value = locationPlaceholder
		}
		prop.Params.Set(paramID, id)
		if loc.HasDetail() {
			raw, err := json.Marshal(loc)
			if err != nil {
				c.errf("unencodable location")
				c.pop()
				continue
			}
			prop.Params.Set("ALTREP", sidecarPrefix+base64.StdEncoding.EncodeToString(raw))
		}
		comp.Props.Add(prop)

		if loc.Coordinates != nil && !geoDone {
			if value, ok := geoPropValue(*loc.Coordinates); ok {
				geoProp := ics.NewProp(ics.PropGeo)
				geoProp.Value = value
				comp.Props.Set(geoProp)
				geoDone = true
			} else {
				c.errAt("coordinates", "invalid geo URI %q", *loc.Coordinates)
			}
		}
		if loc.Rel != nil && *loc.Rel == "end" && endLoc == nil {
			endID, endLoc = id, loc
		}
		c.pop()
	}
	return endID, endLoc
}
