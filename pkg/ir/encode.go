package ir

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/blimu-dev/clientgen/pkg/diag"
)

// The encoders below evaluate a RequestPlan in Go. They write exactly what the
// generated clients write, so plans can be checked without a JavaScript runtime.

// Values are call arguments keyed by parameter name. A missing key is an absent argument.
type Values map[string]any

// DateFormat formats a date value for the wire.
type DateFormat func(t time.Time, dateOnly bool) string

// ISODate is the runtime default date formatter.
func ISODate(t time.Time, dateOnly bool) string {
	if dateOnly {
		return t.UTC().Format("2006-01-02")
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// EscapeComponent escapes s like JavaScript's encodeURIComponent.
func EscapeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// BuildPath substitutes path placeholders with escaped argument values.
func (p *RequestPlan) BuildPath(args Values) string {
	var b strings.Builder
	for _, part := range p.PathParts {
		if part.Param == "" {
			b.WriteString(part.Literal)
			continue
		}
		b.WriteString(EscapeComponent(p.text(args[part.Param], false, nil)))
	}
	return b.String()
}

// EncodeQuery writes the query string as "name=value&" segments. Array values
// repeat the name once per element in order. The trailing separator is kept;
// the URL builder trims it.
func (p *RequestPlan) EncodeQuery(args Values, df DateFormat) string {
	var b strings.Builder
	for _, f := range p.Query {
		p.writeField(&b, f, args, df)
	}
	return b.String()
}

// EncodeForm writes an application/x-www-form-urlencoded body.
func (p *RequestPlan) EncodeForm(args Values, df DateFormat) (string, error) {
	var b strings.Builder
	for _, f := range p.Body.Fields {
		if f.Encoding == EncodeBinary || f.ItemEncoding == EncodeBinary {
			return "", diag.Errorf(diag.KindIncompatibleBodyEncoding, f.WireName, "binary values cannot be url-encoded")
		}
		p.writeField(&b, f, args, df)
	}
	return b.String(), nil
}

// EncodeHeaders returns the escaped header values of present arguments, by wire name.
func (p *RequestPlan) EncodeHeaders(args Values, df DateFormat) map[string]string {
	out := make(map[string]string, len(p.Headers))
	for _, f := range p.Headers {
		v, ok := args[f.Param]
		if !ok && !f.Required {
			continue
		}
		out[f.WireName] = EscapeComponent(p.text(v, f.DateOnly, df))
	}
	return out
}

func (p *RequestPlan) writeField(b *strings.Builder, f Field, args Values, df DateFormat) {
	v, ok := args[f.Param]
	if !ok && !f.Required {
		return
	}
	if f.Encoding == EncodeArray && v != nil {
		for _, item := range elements(v) {
			b.WriteString(EscapeComponent(f.WireName) + "=" + EscapeComponent(p.value(item, f.ItemEncoding, f.DateOnly, df)) + "&")
		}
		return
	}
	b.WriteString(EscapeComponent(f.WireName) + "=" + EscapeComponent(p.value(v, f.Encoding, f.DateOnly, df)) + "&")
}

// Part is one multipart/form-data part.
type Part struct {
	Name   string
	Value  string
	Binary bool
	// Blob is the caller supplied payload of a binary part
	Blob any
}

// MultipartParts lists the parts of a multipart body. Arrays become one part
// per element, objects are JSON encoded and binary values pass through as-is.
func (p *RequestPlan) MultipartParts(args Values, df DateFormat) []Part {
	var parts []Part
	add := func(name string, v any, enc FieldEncoding, dateOnly bool) {
		if enc == EncodeBinary {
			parts = append(parts, Part{Name: name, Binary: true, Blob: v})
			return
		}
		parts = append(parts, Part{Name: name, Value: p.value(v, enc, dateOnly, df)})
	}
	for _, f := range p.Body.Fields {
		v, ok := args[f.Param]
		if !ok && !f.Required {
			continue
		}
		if f.Encoding == EncodeArray && v != nil {
			for _, item := range elements(v) {
				add(f.WireName, item, f.ItemEncoding, f.DateOnly)
			}
			continue
		}
		add(f.WireName, v, f.Encoding, f.DateOnly)
	}
	return parts
}

func (p *RequestPlan) value(v any, enc FieldEncoding, dateOnly bool, df DateFormat) string {
	if v != nil && enc == EncodeObject {
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
	}
	return p.text(v, dateOnly, df)
}

func (p *RequestPlan) text(v any, dateOnly bool, df DateFormat) string {
	if df == nil {
		df = ISODate
	}
	switch x := v.(type) {
	case nil:
		return p.NullValue
	case time.Time:
		return df(x, dateOnly)
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func elements(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
