package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Location is where a parameter travels on the wire.
type Location string

const (
	InPath   Location = "path"
	InQuery  Location = "query"
	InHeader Location = "header"
	InForm   Location = "form"
	InBody   Location = "body"
)

// CallPlan is the fully resolved description of one operation's generated function.
type CallPlan struct {
	OperationID string
	Method      string
	Path        string
	Tags        []string
	Summary     string
	Description string
	Deprecated  bool

	ClientName    string
	OperationName string

	// Parameters in call-site order
	Parameters []Parameter
	Request    RequestPlan
	Responses  ResponsePlan
}

// ID identifies the operation in diagnostics ("GET /pets/{id}").
func (p *CallPlan) ID() string {
	return p.Method + " " + p.Path
}

// Parameter is one argument of a generated call.
type Parameter struct {
	// Name is the identifier used in generated code
	Name string
	// WireName is the name sent on the wire
	WireName    string
	Location    Location
	Type        *TypeRef
	Required    bool
	Nullable    bool
	Deprecated  bool
	Description string
	// Default is attached only when parameter defaults are enabled
	Default    any
	HasDefault bool
}

// FieldEncoding is how one value is written into a query, header or form.
type FieldEncoding string

const (
	EncodeScalar FieldEncoding = "scalar"
	EncodeDate   FieldEncoding = "date"
	EncodeArray  FieldEncoding = "array"
	EncodeObject FieldEncoding = "object"
	EncodeBinary FieldEncoding = "binary"
)

// Field binds a parameter to its wire encoding.
type Field struct {
	Param    string
	WireName string
	Encoding FieldEncoding
	// ItemEncoding is the element encoding when Encoding is EncodeArray
	ItemEncoding FieldEncoding
	Required     bool
	// DateOnly formats dates without a time component
	DateOnly bool
}

// BodyEncoding is the request body construction rule.
type BodyEncoding string

const (
	BodyNone      BodyEncoding = "none"
	BodyJSON      BodyEncoding = "json"
	BodyForm      BodyEncoding = "form-urlencoded"
	BodyMultipart BodyEncoding = "multipart"
	BodyBinary    BodyEncoding = "binary"
	BodyText      BodyEncoding = "text"
)

// Body describes how the request content is built.
type Body struct {
	Encoding  BodyEncoding
	MediaType string
	// Param is the body parameter for json, binary and text encodings
	Param string
	// Fields are the form fields for form-urlencoded and multipart encodings
	Fields []Field
}

// PathPart is a literal path chunk or a placeholder bound to a parameter.
type PathPart struct {
	Literal string
	Param   string
}

// RequestPlan is the request construction strategy of a call.
type RequestPlan struct {
	Method    string
	PathParts []PathPart
	Query     []Field
	Headers   []Field
	Body      Body
	// ContentType is the request Content-Type header, "" when none is sent.
	// Multipart bodies leave it to the transport, which adds the boundary.
	ContentType string
	Accept      string
	// NullValue is written for null and missing required values
	NullValue string
	// DateFormatter names the hook used for date values, "" for the runtime default
	DateFormatter string
	Cancellable   bool
}

// DecodeKind is how a response payload is read.
type DecodeKind string

const (
	DecodeNone   DecodeKind = "none"
	DecodeJSON   DecodeKind = "json"
	DecodeText   DecodeKind = "text"
	DecodeBinary DecodeKind = "binary"
)

// StatusMatcher matches a response status against one declared code.
type StatusMatcher struct {
	// Code is the code as declared ("200", "5XX", "default")
	Code    string
	Exact   int
	Pattern string
	Default bool
}

// ParseStatus compiles a declared status code. Range codes use one digit
// followed by x or X wildcards ("5XX", "4xx"); "default" matches anything.
func ParseStatus(code string) (StatusMatcher, error) {
	if code == "default" {
		return StatusMatcher{Code: code, Default: true}, nil
	}
	if len(code) != 3 {
		return StatusMatcher{}, fmt.Errorf("status code %q must have three positions", code)
	}
	if n, err := strconv.Atoi(code); err == nil && n >= 100 {
		return StatusMatcher{Code: code, Exact: n}, nil
	}
	pattern := strings.ToLower(code)
	if pattern[0] < '1' || pattern[0] > '5' {
		return StatusMatcher{}, fmt.Errorf("range status code %q must start with a digit 1-5", code)
	}
	for i := 1; i < len(pattern); i++ {
		c := pattern[i]
		if c != 'x' && (c < '0' || c > '9') {
			return StatusMatcher{}, fmt.Errorf("range status code %q has invalid position %q", code, c)
		}
	}
	return StatusMatcher{Code: code, Pattern: pattern}, nil
}

// Matches reports whether status satisfies the matcher.
func (m StatusMatcher) Matches(status int) bool {
	switch {
	case m.Default:
		return true
	case m.Pattern == "":
		return m.Exact == status
	}
	s := strconv.Itoa(status)
	if len(s) != len(m.Pattern) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if m.Pattern[i] != 'x' && m.Pattern[i] != s[i] {
			return false
		}
	}
	return true
}

// Success reports whether the matched statuses are successful (2xx).
func (m StatusMatcher) Success() bool {
	if m.Pattern != "" {
		return m.Pattern[0] == '2'
	}
	return m.Exact >= 200 && m.Exact < 300
}

// ResponseCase is one entry of the dispatch table.
type ResponseCase struct {
	Matcher     StatusMatcher
	Type        *TypeRef // nil for no payload
	Decode      DecodeKind
	MediaType   string
	IsError     bool
	Description string
}

// ResponsePlan is the ordered dispatch table of a call. Dispatch is a first-match
// scan; an unmatched status is a generic error carrying the status and body text.
type ResponsePlan struct {
	Cases []ResponseCase
	// Result is the success payload type, nil for void
	Result *TypeRef
}

// Dispatch returns the first case matching status.
func (p ResponsePlan) Dispatch(status int) (ResponseCase, bool) {
	for _, c := range p.Cases {
		if c.Matcher.Matches(status) {
			return c, true
		}
	}
	return ResponseCase{}, false
}
