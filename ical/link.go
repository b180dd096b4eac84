package ical

import (
	"strconv"

	ics "github.com/emersion/go-ical"

	"github.com/calens/go-jevent"
)

// decodeLinks reads ATTACH properties, plus the URL property which maps to a
// link with the "describedby" relation.
func (c *conv) decodeLinks(comp *ics.Component) map[string]*jevent.Link {
	var links map[string]*jevent.Link
	put := func(id string, link *jevent.Link) {
		if links == nil {
			links = make(map[string]*jevent.Link)
		}
		links[id] = link
	}

	for _, prop := range comp.Props[ics.PropAttach] {
		if prop.Value == "" {
			c.errAt("links", "attachment without value")
			continue
		}
		id := prop.Params.Get(paramID)
		if id == "" {
			id = deriveID(ics.PropAttach + ":" + prop.Value)
		}
		link := &jevent.Link{Href: prop.Value}
		if ct := prop.Params.Get("FMTTYPE"); ct != "" {
			link.ContentType = &ct
		}
		if raw := prop.Params.Get("SIZE"); raw != "" {
			if size, err := strconv.Atoi(raw); err == nil {
				link.Size = &size
			}
		}
		if rel := prop.Params.Get("X-REL"); rel != "" {
			link.Rel = &rel
		}
		if title := prop.Params.Get("X-TITLE"); title != "" {
			link.Title = &title
		}
		put(id, link)
	}

	if url := comp.Props.Get(ics.PropURL); url != nil && url.Value != "" {
		id := url.Params.Get(paramID)
		if id == "" {
			id = deriveID(ics.PropURL + ":" + url.Value)
		}
		rel := "describedby"
		put(id, &jevent.Link{Href: url.Value, Rel: &rel})
	}
	return links
}

// encodeLinks writes the first bare "describedby" link as the URL property
// and everything else as ATTACH.
func (c *conv) encodeLinks(comp *ics.Component, e *jevent.Event) {
	urlDone := false
	for _, id := range sortedKeys(e.Links) {
		link := e.Links[id]
		c.push(`links["` + id + `"]`)
		if link.Href == "" {
			c.errAt("href", "missing")
			c.pop()
			continue
		}
		isDescribedBy := link.Rel != nil && *link.Rel == "describedby" &&
			link.ContentType == nil && link.Size == nil && link.Title == nil
		if isDescribedBy && !urlDone {
			prop := ics.NewProp(ics.PropURL)
			prop.Value = link.Href
			prop.Params.Set(paramID, id)
			comp.Props.Set(prop)
			urlDone = true
			c.pop()
			continue
		}
		prop := ics.NewProp(ics.PropAttach)
		prop.Value = link.Href
		prop.Params.Set(paramID, id)
		if link.ContentType != nil {
			prop.Params.Set("FMTTYPE", *link.ContentType)
		}
		if link.Size != nil {
			prop.Params.Set("SIZE", strconv.Itoa(*link.Size))
		}
		if link.Rel != nil {
			prop.Params.Set("X-REL", *link.Rel)
		}
		if link.Title != nil {
			prop.Params.Set("X-TITLE", *link.Title)
		}
		comp.Props.Add(prop)
		c.pop()
	}
}
