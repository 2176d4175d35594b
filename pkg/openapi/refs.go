package openapi

import (
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/blimu-dev/clientgen/pkg/diag"
)

// Component sections addressable by local references.
const (
	SectionSchemas       = "schemas"
	SectionParameters    = "parameters"
	SectionRequestBodies = "requestBodies"
	SectionResponses     = "responses"
)

// maxRefDepth bounds chains of components that are themselves references.
const maxRefDepth = 32

// EscapePointer escapes one JSON pointer token.
func EscapePointer(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~", "~0"), "/", "~1")
}

// UnescapePointer reverses EscapePointer.
func UnescapePointer(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
}

// Pointer joins tokens into a JSON pointer, escaping each token.
func Pointer(tokens ...string) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(EscapePointer(t))
	}
	return b.String()
}

// Order returns keys sorted by their declaration order under pointer.
// Keys the source text did not declare follow in lexical order.
func (d *Document) Order(pointer string, keys []string) []string {
	declared := d.order[pointer]
	rank := make(map[string]int, len(declared))
	for i, k := range declared {
		rank[k] = i
	}
	out := append([]string(nil), keys...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i]]
		rj, jok := rank[out[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// OrderedKeys returns the keys of m in declaration order under pointer.
func OrderedKeys[V any](d *Document, pointer string, m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return d.Order(pointer, keys)
}

// ComponentName splits a local reference "#/components/<section>/<name>".
func ComponentName(ref string) (section, name string, ok bool) {
	if !strings.HasPrefix(ref, "#/components/") {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(ref, "#/components/"), "/")
	if len(parts) != 2 || parts[1] == "" {
		return "", "", false
	}
	name = UnescapePointer(parts[1])
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return parts[0], name, true
}

func unresolvable(ref, format string, args ...any) *diag.Error {
	return diag.Errorf(diag.KindUnresolvableReference, ref, format, args...)
}

func checkRef(ref, section string) (string, error) {
	sec, name, ok := ComponentName(ref)
	if !ok {
		if !strings.HasPrefix(ref, "#") {
			return "", unresolvable(ref, "external references are not supported")
		}
		return "", unresolvable(ref, "only #/components/%s/<name> references are supported", section)
	}
	if sec != section {
		return "", unresolvable(ref, "expected a reference into components/%s", section)
	}
	return name, nil
}

// ResolveSchema follows a schema reference to its component definition.
// name is the component the chain ends on, or "" for an inline schema.
func (d *Document) ResolveSchema(s *openapi3.SchemaRef) (name string, schema *openapi3.Schema, err error) {
	for depth := 0; s != nil && s.Ref != ""; depth++ {
		if depth > maxRefDepth {
			return "", nil, unresolvable(s.Ref, "reference chain too deep")
		}
		if name, err = checkRef(s.Ref, SectionSchemas); err != nil {
			return "", nil, err
		}
		next, ok := d.components().Schemas[name]
		if !ok || next == nil {
			return "", nil, unresolvable(s.Ref, "schema %q is not defined", name)
		}
		s = next
	}
	if s == nil || s.Value == nil {
		return name, &openapi3.Schema{}, nil
	}
	return name, s.Value, nil
}

// ResolveParameter follows a parameter reference.
func (d *Document) ResolveParameter(p *openapi3.ParameterRef) (*openapi3.Parameter, error) {
	for depth := 0; p != nil && p.Ref != ""; depth++ {
		if depth > maxRefDepth {
			return nil, unresolvable(p.Ref, "reference chain too deep")
		}
		name, err := checkRef(p.Ref, SectionParameters)
		if err != nil {
			return nil, err
		}
		next, ok := d.components().Parameters[name]
		if !ok || next == nil {
			return nil, unresolvable(p.Ref, "parameter %q is not defined", name)
		}
		p = next
	}
	if p == nil || p.Value == nil {
		return nil, unresolvable("", "empty parameter")
	}
	return p.Value, nil
}

// ResolveRequestBody follows a request body reference.
func (d *Document) ResolveRequestBody(b *openapi3.RequestBodyRef) (*openapi3.RequestBody, error) {
	for depth := 0; b != nil && b.Ref != ""; depth++ {
		if depth > maxRefDepth {
			return nil, unresolvable(b.Ref, "reference chain too deep")
		}
		name, err := checkRef(b.Ref, SectionRequestBodies)
		if err != nil {
			return nil, err
		}
		next, ok := d.components().RequestBodies[name]
		if !ok || next == nil {
			return nil, unresolvable(b.Ref, "request body %q is not defined", name)
		}
		b = next
	}
	if b == nil {
		return nil, nil
	}
	return b.Value, nil
}

// ResolveResponse follows a response reference.
func (d *Document) ResolveResponse(r *openapi3.ResponseRef) (*openapi3.Response, error) {
	for depth := 0; r != nil && r.Ref != ""; depth++ {
		if depth > maxRefDepth {
			return nil, unresolvable(r.Ref, "reference chain too deep")
		}
		name, err := checkRef(r.Ref, SectionResponses)
		if err != nil {
			return nil, err
		}
		next, ok := d.components().Responses[name]
		if !ok || next == nil {
			return nil, unresolvable(r.Ref, "response %q is not defined", name)
		}
		r = next
	}
	if r == nil || r.Value == nil {
		return &openapi3.Response{}, nil
	}
	return r.Value, nil
}

// SchemaNames returns the component schema names in definition order.
func (d *Document) SchemaNames() []string {
	return OrderedKeys(d, Pointer("components", "schemas"), d.components().Schemas)
}

// PathNames returns the declared paths in declaration order.
func (d *Document) PathNames() []string {
	if d.Spec == nil || d.Spec.Paths == nil {
		return nil
	}
	return OrderedKeys(d, Pointer("paths"), d.Spec.Paths.Map())
}

func (d *Document) components() *openapi3.Components {
	if d.Spec == nil || d.Spec.Components == nil {
		return &openapi3.Components{}
	}
	return d.Spec.Components
}
