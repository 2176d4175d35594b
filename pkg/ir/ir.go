package ir

import (
	"github.com/blimu-dev/clientgen/pkg/diag"
)

// IR represents the complete intermediate representation of one API document:
// the resolved Type Model plus one Call Plan per emitted operation, grouped by client.
type IR struct {
	Title   string
	BaseURL string
	Types   *TypeModel
	Clients []ClientUnit
	// SecuritySchemes in declaration order
	SecuritySchemes []SecurityScheme
	// Warnings raised while resolving, in the order they were raised
	Warnings []diag.Warning
}

// ClientUnit is a group of operations sharing one resolved client name.
type ClientUnit struct {
	// Name is the resolved client name ("Pets")
	Name string
	// UnitName is the emitted identifier after applying the client name template ("PetsClient")
	UnitName string
	Plans    []*CallPlan
}

// SecurityScheme describes one authentication scheme of the API.
type SecurityScheme struct {
	// Key is the name of the security scheme in components.securitySchemes
	Key string
	// Type is one of: http, apiKey, oauth2, openIdConnect
	Type string
	// Scheme is used when Type is http ("basic", "bearer")
	Scheme string
	// In is used when Type is apiKey ("header", "query", "cookie")
	In string
	// Name is the header, query or cookie name of an apiKey
	Name         string
	BearerFormat string
}

// TypeKind is the kind of an emitted type.
type TypeKind string

const (
	KindPrimitive  TypeKind = "primitive-alias"
	KindEnum       TypeKind = "enum"
	KindObject     TypeKind = "object"
	KindArray      TypeKind = "array"
	KindDictionary TypeKind = "dictionary"
	KindUnion      TypeKind = "union"
	KindAny        TypeKind = "any"
)

// TypeNode represents one emitted, named type.
type TypeNode struct {
	Name string
	Kind TypeKind
	// SchemaPath is the JSON pointer of the defining schema
	SchemaPath  string
	Description string
	Deprecated  bool

	// Alias is the aliased primitive for KindPrimitive
	Alias *TypeRef

	// Enum
	Enum     []EnumValue
	EnumBase string // string, number, integer, boolean

	// Object
	Properties []Property
	// Base is the single parent type name, "" when none
	Base string
	// AdditionalProperties types extra keys on an object, nil when closed
	AdditionalProperties *TypeRef
	Discriminator        *Discriminator
	// DiscriminatorValue identifies this type among its parent's subtypes
	DiscriminatorValue string
	Abstract           bool
	// Subtypes lists the registered direct subtypes in declaration order
	Subtypes []string

	// Items is the element type for KindArray and the value type for KindDictionary
	Items *TypeRef

	// Members for KindUnion
	Members []*TypeRef
}

// EnumValue is one enum member.
type EnumValue struct {
	// Name is the emitted member identifier
	Name  string
	Value any
}

// Property is one property of an object type.
type Property struct {
	Name        string
	Type        *TypeRef
	Required    bool
	Nullable    bool
	ReadOnly    bool
	Deprecated  bool
	Default     any
	HasDefault  bool
	Description string
}

// Discriminator maps discriminator values to subtypes.
type Discriminator struct {
	Property string
	// Cases in declaration order: explicit mapping first, then inferred subtypes
	Cases []DiscriminatorCase
}

// DiscriminatorCase binds one discriminator value to a type name.
type DiscriminatorCase struct {
	Value string
	Type  string
}

// TypeModel is the ordered, deduplicated set of emitted types.
type TypeModel struct {
	Types []*TypeNode
	index map[string]*TypeNode
}

// NewTypeModel indexes types by name. Order is preserved.
func NewTypeModel(types []*TypeNode) *TypeModel {
	m := &TypeModel{Types: types, index: make(map[string]*TypeNode, len(types))}
	for _, t := range types {
		m.index[t.Name] = t
	}
	return m
}

// Lookup returns the type with the given name.
func (m *TypeModel) Lookup(name string) (*TypeNode, bool) {
	if m == nil {
		return nil, false
	}
	t, ok := m.index[name]
	return t, ok
}

// Leaves returns the concrete subtypes of name that have no further
// registered subtypes, in declaration order. A type without subtypes is its
// own leaf unless it is abstract.
func (m *TypeModel) Leaves(name string) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(string)
	walk = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		t, ok := m.Lookup(n)
		if !ok {
			return
		}
		if len(t.Subtypes) == 0 {
			if !t.Abstract {
				out = append(out, n)
			}
			return
		}
		for _, s := range t.Subtypes {
			walk(s)
		}
	}
	walk(name)
	return out
}

// Add appends a type while the model is being resolved. Types are never
// removed or renamed once added.
func (m *TypeModel) Add(t *TypeNode) {
	if m.index == nil {
		m.index = make(map[string]*TypeNode)
	}
	m.Types = append(m.Types, t)
	m.index[t.Name] = t
}

// Polymorphic reports whether name has registered subtypes and a
// discriminator of its own or inherited from an ancestor.
func (m *TypeModel) Polymorphic(name string) bool {
	t, ok := m.Lookup(name)
	if !ok || len(t.Subtypes) == 0 {
		return false
	}
	seen := map[string]bool{}
	for t != nil && !seen[t.Name] {
		if t.Discriminator != nil {
			return true
		}
		seen[t.Name] = true
		t, _ = m.Lookup(t.Base)
	}
	return false
}

// DiscriminatorOf returns the discriminator governing name, its own or the nearest ancestor's.
func (m *TypeModel) DiscriminatorOf(name string) *Discriminator {
	seen := map[string]bool{}
	for t, ok := m.Lookup(name); ok && !seen[t.Name]; t, ok = m.Lookup(t.Base) {
		if t.Discriminator != nil {
			return t.Discriminator
		}
		seen[t.Name] = true
	}
	return nil
}

// Underlying unwraps named primitive aliases, arrays and dictionaries to
// their structural form. Other references are returned unchanged.
func (m *TypeModel) Underlying(ref *TypeRef) *TypeRef {
	for i := 0; ref != nil && ref.Kind == RefNamed && i < 16; i++ {
		t, ok := m.Lookup(ref.Name)
		if !ok {
			return ref
		}
		var next *TypeRef
		switch t.Kind {
		case KindPrimitive:
			next = t.Alias
		case KindArray:
			next = ArrayOf(t.Items)
		case KindDictionary:
			next = DictionaryOf(t.Items)
		case KindAny:
			next = Any()
		default:
			return ref
		}
		next = next.WithNullable(ref.Nullable || next.Nullable)
		ref = next
	}
	return ref
}

// BaseFirst returns the types ordered so every base precedes its subtypes.
// Otherwise declaration order is kept.
func (m *TypeModel) BaseFirst() []*TypeNode {
	out := make([]*TypeNode, 0, len(m.Types))
	done := make(map[string]bool, len(m.Types))
	var visit func(t *TypeNode)
	visit = func(t *TypeNode) {
		if done[t.Name] {
			return
		}
		done[t.Name] = true
		if b, ok := m.Lookup(t.Base); ok {
			visit(b)
		}
		out = append(out, t)
	}
	for _, t := range m.Types {
		visit(t)
	}
	return out
}

// AllProperties returns the properties of an object including inherited ones, base first.
func (m *TypeModel) AllProperties(name string) []Property {
	var chain []*TypeNode
	seen := map[string]bool{}
	for n := name; n != "" && !seen[n]; {
		seen[n] = true
		t, ok := m.Lookup(n)
		if !ok {
			break
		}
		chain = append(chain, t)
		n = t.Base
	}
	var out []Property
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].Properties...)
	}
	return out
}

// Artifact is one rendered output file.
type Artifact struct {
	// Path is relative to the client output directory, slash separated
	Path    string
	Content []byte
}
