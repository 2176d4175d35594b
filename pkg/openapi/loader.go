package openapi

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Document is a parsed API description plus the declaration order of every
// mapping in the source text. kin-openapi keeps paths, responses and schema
// properties in Go maps, so order has to be recovered from the YAML tree.
type Document struct {
	Spec *openapi3.T
	// Source is the file path or URL the document was read from, if any
	Source string

	order map[string][]string
}

// NewDocument wraps a programmatically built document. Without source text
// there is no declaration order, so keys are visited in lexical order.
func NewDocument(spec *openapi3.T) *Document {
	return &Document{Spec: spec}
}

// LoadDocument loads an OpenAPI document from a local file path or an HTTP(S) URL
func LoadDocument(input string) (*Document, error) {
	loader := openapi3.NewLoader()
	location, err := locate(input)
	if err != nil {
		return nil, err
	}
	data, err := openapi3.DefaultReadFromURI(loader, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", input, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", input, err)
	}
	doc.Source = input
	return doc, nil
}

func locate(input string) (*url.URL, error) {
	// Try to parse as URL; if it looks like http(s), fetch via URL
	if u, err := url.Parse(input); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return u, nil
	}
	// Fallback to a filesystem path
	return &url.URL{Path: input}, nil
}

// ParseDocument decodes a JSON or YAML OpenAPI 3.x or Swagger 2.0 document.
// References are left unresolved; see ResolveSchema and friends.
func ParseDocument(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	order := make(map[string][]string)
	value, err := plain(&root, "", order)
	if err != nil {
		return nil, err
	}
	top, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root must be a mapping")
	}
	raw, err := json.Marshal(top)
	if err != nil {
		return nil, err
	}

	if v, ok := top["swagger"].(string); ok && strings.HasPrefix(v, "2") {
		var doc2 openapi2.T
		if err := json.Unmarshal(raw, &doc2); err != nil {
			return nil, fmt.Errorf("failed to decode swagger 2.0 document: %w", err)
		}
		spec, err := openapi2conv.ToV3(&doc2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert swagger 2.0 document: %w", err)
		}
		return &Document{Spec: spec, order: swaggerOrder(order)}, nil
	}

	var spec openapi3.T
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode openapi document: %w", err)
	}
	return &Document{Spec: &spec, order: order}, nil
}

// plain converts a YAML node into JSON-compatible values and records the key
// order of every mapping under its JSON pointer.
func plain(n *yaml.Node, pointer string, order map[string][]string) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return plain(n.Content[0], pointer, order)
	case yaml.AliasNode:
		return plain(n.Alias, pointer, order)
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		keys := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			// Numeric keys such as response codes stay strings
			key := n.Content[i].Value
			v, err := plain(n.Content[i+1], pointer+"/"+EscapePointer(key), order)
			if err != nil {
				return nil, err
			}
			if _, dup := m[key]; !dup {
				keys = append(keys, key)
			}
			m[key] = v
		}
		order[pointer] = keys
		return m, nil
	case yaml.SequenceNode:
		s := make([]any, 0, len(n.Content))
		for i, c := range n.Content {
			v, err := plain(c, pointer+"/"+strconv.Itoa(i), order)
			if err != nil {
				return nil, err
			}
			s = append(s, v)
		}
		return s, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
}

var swaggerSections = map[string]string{
	"/definitions": "/components/schemas",
	"/parameters":  "/components/parameters",
	"/responses":   "/components/responses",
}

// swaggerOrder moves Swagger 2.0 pointers to where the converted document keeps them.
func swaggerOrder(order map[string][]string) map[string][]string {
	out := make(map[string][]string, len(order))
	for p, keys := range order {
		for from, to := range swaggerSections {
			if p == from || strings.HasPrefix(p, from+"/") {
				p = to + strings.TrimPrefix(p, from)
				break
			}
		}
		out[p] = keys
	}
	return out
}

// ValidateDocument validates an OpenAPI document. Swagger 2.0 input is
// validated after conversion.
func ValidateDocument(input string) error {
	doc, err := LoadDocument(input)
	if err != nil {
		return err
	}
	location, err := locate(input)
	if err != nil {
		return err
	}
	loader := &openapi3.Loader{IsExternalRefsAllowed: true}
	if err := loader.ResolveRefsIn(doc.Spec, location); err != nil {
		return err
	}
	return doc.Spec.Validate(loader.Context)
}

// Title returns the document title, or "" when info is missing.
func (d *Document) Title() string {
	if d.Spec == nil || d.Spec.Info == nil {
		return ""
	}
	return d.Spec.Info.Title
}

// BaseURL returns the first declared server URL.
func (d *Document) BaseURL() string {
	if d.Spec == nil || len(d.Spec.Servers) == 0 || d.Spec.Servers[0] == nil {
		return ""
	}
	return d.Spec.Servers[0].URL
}
