// Package diag provides the structured errors and warnings reported while
// resolving an API description into client code.
//
// Every failure carries a stable Kind and the identity of the offending
// operation or schema, so callers can branch with errors.Is:
//
//	_, err := generator.Generate(doc, client)
//	if errors.Is(err, diag.ErrNameCollision) {
//	    // two operations of one client share a name
//	}
package diag

import (
	"errors"
	"fmt"
)

// Kind identifies a category of generation failure or warning.
type Kind string

const (
	// KindUnresolvableReference is a dangling $ref.
	KindUnresolvableReference Kind = "UnresolvableReference"
	// KindNameCollision means two operations of one client resolved to the same name.
	KindNameCollision Kind = "NameCollision"
	// KindUnsupportedContentType means no construction rule exists for any declared body media type.
	KindUnsupportedContentType Kind = "UnsupportedContentType"
	// KindIncompatibleBodyEncoding is a binary field under application/x-www-form-urlencoded.
	KindIncompatibleBodyEncoding Kind = "IncompatibleBodyEncoding"
	// KindMissingPathParameter is a path placeholder and path parameter that do not line up.
	KindMissingPathParameter Kind = "MissingPathParameter"
	// KindInvalidRangeStatusCode is a malformed wildcard status pattern.
	KindInvalidRangeStatusCode Kind = "InvalidRangeStatusCode"
	// KindInvalidConfiguration is an option that cannot be applied (bad regex, unknown strategy).
	KindInvalidConfiguration Kind = "InvalidConfiguration"

	// KindUnregisteredDiscriminator is a discriminator value without a subtype; the base type is used.
	KindUnregisteredDiscriminator Kind = "UnregisteredDiscriminatorValue"
	// KindMissingSetting is an optional setting that fell back to its default.
	KindMissingSetting Kind = "MissingSetting"
	// KindOperationExcluded is an operation dropped by an exclusion predicate.
	KindOperationExcluded Kind = "OperationExcluded"
	// KindIgnoredParameter is a parameter location generated clients do not send (cookie).
	KindIgnoredParameter Kind = "IgnoredParameter"
)

// Sentinel errors for use with errors.Is().
var (
	ErrUnresolvableReference    = errors.New("unresolvable reference")
	ErrNameCollision            = errors.New("name collision")
	ErrUnsupportedContentType   = errors.New("unsupported content type")
	ErrIncompatibleBodyEncoding = errors.New("incompatible body encoding")
	ErrMissingPathParameter     = errors.New("missing path parameter")
	ErrInvalidRangeStatusCode   = errors.New("invalid range status code")
	ErrInvalidConfiguration     = errors.New("invalid configuration")
)

var sentinels = map[Kind]error{
	KindUnresolvableReference:    ErrUnresolvableReference,
	KindNameCollision:            ErrNameCollision,
	KindUnsupportedContentType:   ErrUnsupportedContentType,
	KindIncompatibleBodyEncoding: ErrIncompatibleBodyEncoding,
	KindMissingPathParameter:     ErrMissingPathParameter,
	KindInvalidRangeStatusCode:   ErrInvalidRangeStatusCode,
	KindInvalidConfiguration:     ErrInvalidConfiguration,
}

// Error is a fatal generation failure.
type Error struct {
	// Kind is the stable error category
	Kind Kind
	// Subject is the offending operation ("POST /files") or schema pointer ("#/components/schemas/Pet")
	Subject string
	// Message describes the failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Errorf builds an Error with a formatted message.
func Errorf(kind Kind, subject, format string, args ...any) *Error {
	return &Error{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// Error returns a human-readable error message.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Subject != "" {
		msg += " at " + e.Subject
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// Warning is a non-fatal condition that degraded to a documented fallback.
type Warning struct {
	Kind    Kind
	Subject string
	Message string
}

func (w Warning) String() string {
	if w.Subject == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s at %s: %s", w.Kind, w.Subject, w.Message)
}

// Warnings accumulates warnings in the order they were raised.
type Warnings struct {
	list []Warning
}

// Add records a warning.
func (w *Warnings) Add(kind Kind, subject, format string, args ...any) {
	w.list = append(w.list, Warning{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)})
}

// List returns the recorded warnings.
func (w *Warnings) List() []Warning {
	out := make([]Warning, len(w.list))
	copy(out, w.list)
	return out
}
