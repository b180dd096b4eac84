// Package jsonpatch implements the sparse patch format used for recurrence
// overrides: a flat map from JSON pointer to replacement value, produced by
// deep-diffing two JSON objects.
package jsonpatch

import "strings"

// EscapeToken escapes a single JSON pointer reference token per RFC 6901.
func EscapeToken(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

// UnescapeToken reverses EscapeToken.
func UnescapeToken(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	return strings.ReplaceAll(s, "~0", "~")
}

// Diff produces the patch that transforms old into new. Keys are JSON
// pointers without the leading slash on the root level (i.e. "title",
// "locations/abc/name"). Values removed from old map to nil.
func Diff(old, new map[string]interface{}) map[string]interface{} {
	patch := make(map[string]interface{})
	diffObject("", old, new, patch)
	return patch
}

func diffObject(prefix string, old, new map[string]interface{}, patch map[string]interface{}) {
	for key, newVal := range new {
		path := joinPointer(prefix, key)
		oldVal, ok := old[key]
		if !ok {
			patch[path] = newVal
			continue
		}
		diffValue(path, oldVal, newVal, patch)
	}
	for key := range old {
		if _, ok := new[key]; !ok {
			patch[joinPointer(prefix, key)] = nil
		}
	}
}

func diffValue(path string, oldVal, newVal interface{}, patch map[string]interface{}) {
	if deepEqual(oldVal, newVal) {
		return
	}
	oldObj, oldOK := oldVal.(map[string]interface{})
	newObj, newOK := newVal.(map[string]interface{})
	if !oldOK || !newOK {
		patch[path] = newVal
		return
	}
	diffObject(path, oldObj, newObj, patch)
}

// Apply returns a copy of base with the patch applied. Nil patch values
// delete the addressed member. Intermediate objects are created as needed.
func Apply(base map[string]interface{}, patch map[string]interface{}) map[string]interface{} {
	out := deepCopyObject(base)
	for path, val := range patch {
		applyOne(out, splitPointer(path), val)
	}
	return out
}

func applyOne(obj map[string]interface{}, tokens []string, val interface{}) {
	if len(tokens) == 0 {
		return
	}
	key := tokens[0]
	if len(tokens) == 1 {
		if val == nil {
			delete(obj, key)
		} else {
			obj[key] = deepCopyValue(val)
		}
		return
	}
	child, ok := obj[key].(map[string]interface{})
	if !ok {
		if val == nil {
			return
		}
		child = make(map[string]interface{})
		obj[key] = child
	}
	applyOne(child, tokens[1:], val)
}

func joinPointer(prefix, key string) string {
	if prefix == "" {
		return EscapeToken(key)
	}
	return prefix + "/" + EscapeToken(key)
}

func splitPointer(path string) []string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = UnescapeToken(p)
	}
	return parts
}

// deepEqual compares two JSON-decoded values. Only the types produced by
// encoding/json appear here: nil, bool, float64, string, []interface{} and
// map[string]interface{}.
func deepEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !deepEqual(v, bvv) {
				return false
			}
		}
		return true
	}
	return false
}

func deepCopyObject(obj map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case map[string]interface{}:
		return deepCopyObject(tv)
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, e := range tv {
			out[i] = deepCopyValue(e)
		}
		return out
	}
	return v
}
