package ical

import (
	"fmt"
	"strings"

	"github.com/calens/go-jevent"
)

// Kind classifies a conversion failure.
type Kind int

const (
	// KindUnknown is an unclassified internal failure.
	KindUnknown Kind = iota
	// KindCallback means a caller-supplied callback failed.
	KindCallback
	// KindInvalidICal means the input tree is not a usable calendar.
	KindInvalidICal
	// KindPropertyErrors means one or more fields failed; the Props list
	// addresses each one.
	KindPropertyErrors
	// KindMissingUID means the event has no usable uid.
	KindMissingUID
)

func (k Kind) String() string {
	switch k {
	case KindCallback:
		return "callback error"
	case KindInvalidICal:
		return "invalid ical"
	case KindPropertyErrors:
		return "property errors"
	case KindMissingUID:
		return "missing uid"
	}
	return "unknown error"
}

// ConvertError is the failure type returned by Encode and Decode. Callers
// receive either a fully validated output or a ConvertError; partial outputs
// are never returned.
type ConvertError struct {
	Kind  Kind
	Props []jevent.PropertyError
	Err   error
}

func (e *ConvertError) Error() string {
	if e.Kind == KindPropertyErrors {
		paths := make([]string, len(e.Props))
		for i, p := range e.Props {
			paths[i] = p.Path
		}
		return fmt.Sprintf("ical: invalid properties: %s", strings.Join(paths, ", "))
	}
	if e.Err != nil {
		return fmt.Sprintf("ical: %s: %v", e.Kind, e.Err)
	}
	return "ical: " + e.Kind.String()
}

func (e *ConvertError) Unwrap() error {
	return e.Err
}

func invalidICalf(format string, args ...interface{}) *ConvertError {
	return &ConvertError{Kind: KindInvalidICal, Err: fmt.Errorf(format, args...)}
}

// conv carries the state shared by one conversion pass: the path stack that
// addresses the field being worked on and the accumulated field errors.
// Structural errors abort instead of accumulating.
type conv struct {
	codec  *Codec
	opts   *Options
	filter PropsFilter
	path   []string
	errs   []jevent.PropertyError
	// zones collects the named zones referenced while encoding, for
	// VTIMEZONE emission.
	zones map[string]bool
}

// push enters a path segment. Segments starting with '[' attach to the
// previous segment without a dot ("participants" + `["a@x"]`).
func (c *conv) push(seg string) {
	c.path = append(c.path, seg)
}

func (c *conv) pop() {
	c.path = c.path[:len(c.path)-1]
}

func (c *conv) pathString() string {
	var sb strings.Builder
	for _, seg := range c.path {
		if sb.Len() > 0 && !strings.HasPrefix(seg, "[") {
			sb.WriteByte('.')
		}
		sb.WriteString(seg)
	}
	return sb.String()
}

// errf records a field error at the current path.
func (c *conv) errf(format string, args ...interface{}) {
	c.errs = append(c.errs, jevent.PropertyError{
		Path:    c.pathString(),
		Message: fmt.Sprintf(format, args...),
	})
}

// errAt records a field error one segment below the current path.
func (c *conv) errAt(seg, format string, args ...interface{}) {
	c.push(seg)
	c.errf(format, args...)
	c.pop()
}

// finish returns the accumulated errors as a single ConvertError, or nil.
func (c *conv) finish() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &ConvertError{Kind: KindPropertyErrors, Props: c.errs}
}
