package ir

import "strings"

// RefKind is the shape of a type reference.
type RefKind string

const (
	RefNamed      RefKind = "named"
	RefPrimitive  RefKind = "primitive"
	RefArray      RefKind = "array"
	RefDictionary RefKind = "dictionary"
	RefUnion      RefKind = "union"
	RefAny        RefKind = "any"
)

// TypeRef is a use site of a type: a named type, a mapped primitive, or a
// structural array/dictionary/union built from other references.
type TypeRef struct {
	Kind RefKind
	// Name is the type name for RefNamed and the mapped target name for RefPrimitive
	Name string
	// SchemaType and Format are the source primitive ("string", "date-time")
	SchemaType string
	Format     string
	// Items is the element type for arrays and the value type for dictionaries
	Items    *TypeRef
	Members  []*TypeRef
	Nullable bool
}

// Named references an emitted type.
func Named(name string) *TypeRef {
	return &TypeRef{Kind: RefNamed, Name: name}
}

// Primitive references a mapped primitive.
func Primitive(target, schemaType, format string) *TypeRef {
	return &TypeRef{Kind: RefPrimitive, Name: target, SchemaType: schemaType, Format: format}
}

// ArrayOf references an array of items.
func ArrayOf(items *TypeRef) *TypeRef {
	return &TypeRef{Kind: RefArray, Items: items}
}

// DictionaryOf references a string-keyed dictionary of values.
func DictionaryOf(values *TypeRef) *TypeRef {
	return &TypeRef{Kind: RefDictionary, Items: values}
}

// UnionOf references a union. A single member collapses to itself.
func UnionOf(members ...*TypeRef) *TypeRef {
	if len(members) == 1 {
		return members[0]
	}
	return &TypeRef{Kind: RefUnion, Members: members}
}

// Any references the free-form placeholder type.
func Any() *TypeRef {
	return &TypeRef{Kind: RefAny}
}

// WithNullable returns a copy with Nullable set.
func (r *TypeRef) WithNullable(nullable bool) *TypeRef {
	if r == nil || r.Nullable == nullable {
		return r
	}
	c := *r
	c.Nullable = nullable
	return &c
}

// IsBinary reports a raw binary payload (format: binary).
func (r *TypeRef) IsBinary() bool {
	return r != nil && r.Kind == RefPrimitive && r.SchemaType == "string" && r.Format == "binary"
}

// IsDate reports a date or date-time string.
func (r *TypeRef) IsDate() bool {
	return r != nil && r.Kind == RefPrimitive && r.SchemaType == "string" && (r.Format == "date" || r.Format == "date-time")
}

// IsArray reports an array reference.
func (r *TypeRef) IsArray() bool {
	return r != nil && r.Kind == RefArray
}

// String renders a language-neutral description used in diagnostics and fingerprints.
func (r *TypeRef) String() string {
	if r == nil {
		return "void"
	}
	var s string
	switch r.Kind {
	case RefNamed, RefPrimitive:
		s = r.Name
	case RefArray:
		s = r.Items.String() + "[]"
	case RefDictionary:
		s = "{[key]: " + r.Items.String() + "}"
	case RefUnion:
		parts := make([]string, len(r.Members))
		for i, m := range r.Members {
			parts[i] = m.String()
		}
		s = "(" + strings.Join(parts, " | ") + ")"
	default:
		s = "any"
	}
	if r.Nullable {
		s += "?"
	}
	return s
}

// Equal compares two references structurally.
func (r *TypeRef) Equal(o *TypeRef) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Kind != o.Kind || r.Name != o.Name || r.SchemaType != o.SchemaType || r.Format != o.Format || r.Nullable != o.Nullable {
		return false
	}
	if !r.Items.Equal(o.Items) || len(r.Members) != len(o.Members) {
		return false
	}
	for i := range r.Members {
		if !r.Members[i].Equal(o.Members[i]) {
			return false
		}
	}
	return true
}

// Walk visits r and every nested reference, depth first.
func (r *TypeRef) Walk(fn func(*TypeRef)) {
	if r == nil {
		return
	}
	fn(r)
	r.Items.Walk(fn)
	for _, m := range r.Members {
		m.Walk(fn)
	}
}
