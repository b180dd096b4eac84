// Package fieldpath parses the dotted field paths carried by the
// X-JMAP-PROP translation parameter. A path is either a bare top-level
// field name ("title") or a two-segment path addressing a member of a keyed
// object map ("locations.name").
package fieldpath

import (
	"fmt"
	"strings"
)

// Path is a parsed field path. Object is empty for top-level fields.
type Path struct {
	Object string
	Field  string
}

// IsNested reports whether the path addresses a field inside a keyed map and
// therefore needs an object id to resolve.
func (p Path) IsNested() bool {
	return p.Object != ""
}

func (p Path) String() string {
	if p.Object == "" {
		return p.Field
	}
	return p.Object + "." + p.Field
}

// translatable is the closed set of paths a translation may address.
var translatable = map[Path]bool{
	{Field: "title"}:                     true,
	{Field: "description"}:               true,
	{Object: "locations", Field: "name"}: true,
	{Object: "links", Field: "title"}:    true,
}

// Parse parses and validates a field path. Malformed or unsupported paths
// are rejected rather than matched loosely.
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("fieldpath: empty path")
	}
	parts := strings.Split(s, ".")
	var p Path
	switch len(parts) {
	case 1:
		p = Path{Field: parts[0]}
	case 2:
		p = Path{Object: parts[0], Field: parts[1]}
	default:
		return Path{}, fmt.Errorf("fieldpath: too many segments in %q", s)
	}
	if p.Field == "" || (len(parts) == 2 && p.Object == "") {
		return Path{}, fmt.Errorf("fieldpath: empty segment in %q", s)
	}
	if !translatable[p] {
		return Path{}, fmt.Errorf("fieldpath: %q is not translatable", s)
	}
	return p, nil
}
