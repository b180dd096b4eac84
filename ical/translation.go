package ical

import (
	"sort"

	ics "github.com/emersion/go-ical"

	"github.com/calens/go-jevent"
	"github.com/calens/go-jevent/internal/fieldpath"
)

// decodeTranslations collapses X-JMAP-TRANSLATION properties into the nested
// translations object, keyed by language tag then field path.
func (c *conv) decodeTranslations(comp *ics.Component) map[string]*jevent.Translation {
	props := comp.Props[propTranslation]
	if len(props) == 0 {
		return nil
	}

	translations := make(map[string]*jevent.Translation)
	c.push("translations")
	defer c.pop()

	for i := range props {
		prop := &props[i]
		lang := prop.Params.Get("LANGUAGE")
		if lang == "" {
			c.errf("translation without language")
			continue
		}
		c.push(`["` + lang + `"]`)
		path, err := fieldpath.Parse(prop.Params.Get(paramProp))
		if err != nil {
			c.errf("invalid field path %q", prop.Params.Get(paramProp))
			c.pop()
			continue
		}
		id := prop.Params.Get(paramID)
		if path.IsNested() && id == "" {
			c.errf("translation for %q without object id", path.String())
			c.pop()
			continue
		}

		tr := translations[lang]
		if tr == nil {
			tr = &jevent.Translation{}
			translations[lang] = tr
		}
		value := prop.Value
		switch {
		case path == (fieldpath.Path{Field: "title"}):
			tr.Title = &value
		case path == (fieldpath.Path{Field: "description"}):
			tr.Description = &value
		case path.Object == "locations":
			if tr.Locations == nil {
				tr.Locations = make(map[string]*jevent.LocationTranslation)
			}
			tr.Locations[id] = &jevent.LocationTranslation{Name: &value}
		case path.Object == "links":
			if tr.Links == nil {
				tr.Links = make(map[string]*jevent.LinkTranslation)
			}
			tr.Links[id] = &jevent.LinkTranslation{Title: &value}
		}
		c.pop()
	}
	if len(translations) == 0 {
		return nil
	}
	return translations
}

// encodeTranslations writes one X-JMAP-TRANSLATION property per translated
// field value.
func (c *conv) encodeTranslations(comp *ics.Component, e *jevent.Event) {
	langs := make([]string, 0, len(e.Translations))
	for lang := range e.Translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	add := func(lang, path, id, value string) {
		prop := ics.NewProp(propTranslation)
		prop.Value = value
		prop.Params.Set("LANGUAGE", lang)
		prop.Params.Set(paramProp, path)
		if id != "" {
			prop.Params.Set(paramID, id)
		}
		comp.Props.Add(prop)
	}

	for _, lang := range langs {
		tr := e.Translations[lang]
		if tr.Title != nil {
			add(lang, "title", "", *tr.Title)
		}
		if tr.Description != nil {
			add(lang, "description", "", *tr.Description)
		}
		for _, id := range sortedKeys(tr.Locations) {
			if lt := tr.Locations[id]; lt != nil && lt.Name != nil {
				add(lang, "locations.name", id, *lt.Name)
			}
		}
		for _, id := range sortedKeys(tr.Links) {
			if lt := tr.Links[id]; lt != nil && lt.Title != nil {
				add(lang, "links.title", id, *lt.Title)
			}
		}
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
