package generator

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/diag"
	"github.com/blimu-dev/clientgen/pkg/ir"
	"github.com/blimu-dev/clientgen/pkg/openapi"
	"github.com/blimu-dev/clientgen/pkg/utils"
)

// Schema extensions understood by the resolver.
const (
	extAbstract           = "x-abstract"
	extDiscriminatorValue = "x-discriminator-value"
)

// nameRegistry maps schema identities (JSON pointers) to emitted names.
// It is created per resolution run and never shared.
type nameRegistry struct {
	byIdentity map[string]string
	byName     map[string]nameClaim
}

type nameClaim struct {
	identity    string
	fingerprint string
}

func newNameRegistry(reserved []string) *nameRegistry {
	r := &nameRegistry{byIdentity: map[string]string{}, byName: map[string]nameClaim{}}
	for _, n := range reserved {
		r.byName[n] = nameClaim{}
	}
	return r
}

// claim returns the name for identity, assigning base or base2, base3, ...
// on collision. A structurally identical schema already holding a candidate
// name shares it; shared reports that case.
func (r *nameRegistry) claim(identity, base, fingerprint string) (name string, shared bool) {
	if n, ok := r.byIdentity[identity]; ok {
		return n, false
	}
	if base == "" {
		base = "Anonymous"
	}
	for i := 1; ; i++ {
		candidate := base
		if i > 1 {
			candidate = base + strconv.Itoa(i)
		}
		c, taken := r.byName[candidate]
		if !taken {
			r.byName[candidate] = nameClaim{identity: identity, fingerprint: fingerprint}
			r.byIdentity[identity] = candidate
			return candidate, false
		}
		if c.identity != "" && fingerprint != "" && c.fingerprint == fingerprint {
			r.byIdentity[identity] = candidate
			return candidate, true
		}
	}
}

func fingerprint(s *openapi3.Schema) string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}

// schemaResolver walks the schema graph of one document and builds the Type Model.
type schemaResolver struct {
	doc      *openapi.Document
	opts     config.Generation
	names    *nameRegistry
	model    *ir.TypeModel
	warnings *diag.Warnings

	// building holds types whose node exists but is not complete yet
	building map[string]bool
	pending  []pendingDiscriminator
}

type pendingDiscriminator struct {
	node    *ir.TypeNode
	pointer string
	mapping map[string]string
	members []*ir.TypeRef
}

func newSchemaResolver(doc *openapi.Document, opts config.Generation, reserved []string, warnings *diag.Warnings) *schemaResolver {
	all := append(append([]string(nil), reserved...), opts.ReservedNames...)
	return &schemaResolver{
		doc:      doc,
		opts:     opts,
		names:    newNameRegistry(all),
		model:    ir.NewTypeModel(nil),
		warnings: warnings,
		building: map[string]bool{},
	}
}

// componentPointer is the JSON pointer of a component schema, without the leading "#".
func componentPointer(name string) string {
	return openapi.Pointer("components", "schemas", name)
}

func componentRef(name string) string {
	return "#" + componentPointer(name)
}

func isComponent(pointer string) bool {
	section, _, ok := openapi.ComponentName("#" + pointer)
	return ok && section == openapi.SectionSchemas
}

// resolveComponents claims every component name in definition order, then
// builds each component type.
func (r *schemaResolver) resolveComponents() error {
	names := r.doc.SchemaNames()
	if len(names) == 0 {
		return nil
	}
	schemas := r.doc.Spec.Components
	for _, name := range names {
		sr := schemas.Schemas[name]
		if sr == nil || sr.Ref != "" {
			continue
		}
		r.names.claim(componentPointer(name), utils.ToTypeName(name), fingerprint(sr.Value))
	}
	for _, name := range names {
		sr := schemas.Schemas[name]
		if sr == nil || sr.Ref != "" {
			continue
		}
		if _, err := r.component(name); err != nil {
			return err
		}
	}
	return nil
}

// component returns a reference to the component schema name, building its
// type on first use. Cycles see the partially built node.
func (r *schemaResolver) component(name string) (*ir.TypeRef, error) {
	pointer := componentPointer(name)
	var schema *openapi3.Schema
	if c := r.doc.Spec.Components; c != nil && c.Schemas[name] != nil {
		schema = c.Schemas[name].Value
	}
	if schema == nil {
		schema = &openapi3.Schema{}
	}
	emitted, shared := r.names.claim(pointer, utils.ToTypeName(name), fingerprint(schema))
	if _, ok := r.model.Lookup(emitted); ok || shared || r.building[emitted] {
		return ir.Named(emitted), nil
	}
	if err := r.define(emitted, schema, pointer); err != nil {
		return nil, err
	}
	return ir.Named(emitted), nil
}

// define builds the named type for schema.
func (r *schemaResolver) define(name string, s *openapi3.Schema, pointer string) error {
	node := &ir.TypeNode{
		Name:        name,
		SchemaPath:  "#" + pointer,
		Description: s.Description,
		Deprecated:  s.Deprecated,
	}
	if v, ok := s.Extensions[extAbstract].(bool); ok {
		node.Abstract = v
	}
	if v, ok := s.Extensions[extDiscriminatorValue].(string); ok {
		node.DiscriminatorValue = v
	}
	r.model.Add(node)
	r.building[name] = true
	defer delete(r.building, name)

	switch {
	case len(s.Enum) > 0:
		r.enum(node, s)
		return nil
	case len(s.OneOf) > 0 || len(s.AnyOf) > 0:
		return r.union(node, s, pointer)
	case len(s.AllOf) > 0 || len(s.Properties) > 0 || s.Discriminator != nil:
		return r.object(node, s, pointer)
	}

	types := schemaTypes(s)
	switch {
	case len(types) > 1:
		node.Kind = ir.KindUnion
		for _, t := range types {
			node.Members = append(node.Members, r.primitive(t, s.Format))
		}
	case len(types) == 0:
		node.Kind = ir.KindAny
	case types[0] == openapi3.TypeArray:
		node.Kind = ir.KindArray
		items, err := r.ref(s.Items, pointer+"/items", name+"Item")
		if err != nil {
			return err
		}
		node.Items = items
	case types[0] == openapi3.TypeObject:
		node.Kind = ir.KindDictionary
		values, err := r.additional(s, pointer, name)
		if err != nil {
			return err
		}
		node.Items = values
		if node.Items == nil {
			node.Items = ir.Any()
		}
	default:
		node.Kind = ir.KindPrimitive
		node.Alias = r.primitive(types[0], s.Format)
	}
	return nil
}

// ref resolves one use site of a schema. ctx is the name an inline type at
// this site receives.
func (r *schemaResolver) ref(sr *openapi3.SchemaRef, pointer, ctx string) (*ir.TypeRef, error) {
	if sr == nil {
		return ir.Any(), nil
	}
	if sr.Ref != "" {
		name, _, err := r.doc.ResolveSchema(sr)
		if err != nil {
			return nil, at(pointer, err)
		}
		return r.component(name)
	}
	s := sr.Value
	if s == nil {
		return ir.Any(), nil
	}
	ref, err := r.inline(s, pointer, ctx)
	if err != nil {
		return nil, err
	}
	return ref.WithNullable(ref.Nullable || nullable(s)), nil
}

// inline resolves an anonymous schema. Enums, objects and discriminated
// unions become named types; everything else stays structural.
func (r *schemaResolver) inline(s *openapi3.Schema, pointer, ctx string) (*ir.TypeRef, error) {
	if len(s.AllOf) == 1 && len(s.Properties) == 0 && s.Discriminator == nil && s.AllOf[0] != nil && s.AllOf[0].Ref != "" {
		// allOf: [$ref] wraps a reference to add nullable or a description
		return r.ref(s.AllOf[0], pointer+"/allOf/0", ctx)
	}
	types := schemaTypes(s)
	switch {
	case len(s.Enum) > 0,
		len(s.AllOf) > 0,
		len(s.Properties) > 0,
		s.Discriminator != nil:
		return r.named(s, pointer, ctx)
	case len(s.OneOf) > 0 || len(s.AnyOf) > 0:
		members, err := r.members(s, pointer, ctx)
		if err != nil {
			return nil, err
		}
		return ir.UnionOf(members...), nil
	case len(types) > 1:
		members := make([]*ir.TypeRef, 0, len(types))
		for _, t := range types {
			members = append(members, r.primitive(t, s.Format))
		}
		return ir.UnionOf(members...), nil
	case len(types) == 0:
		return ir.Any(), nil
	case types[0] == openapi3.TypeArray:
		items, err := r.ref(s.Items, pointer+"/items", ctx+"Item")
		if err != nil {
			return nil, err
		}
		return ir.ArrayOf(items), nil
	case types[0] == openapi3.TypeObject:
		values, err := r.additional(s, pointer, ctx)
		if err != nil {
			return nil, err
		}
		if values == nil {
			values = ir.Any()
		}
		return ir.DictionaryOf(values), nil
	}
	return r.primitive(types[0], s.Format), nil
}

// named gives an inline schema its own type named after its context.
func (r *schemaResolver) named(s *openapi3.Schema, pointer, ctx string) (*ir.TypeRef, error) {
	name, shared := r.names.claim(pointer, utils.ToTypeName(ctx), fingerprint(s))
	if _, ok := r.model.Lookup(name); ok || shared || r.building[name] {
		return ir.Named(name), nil
	}
	if err := r.define(name, s, pointer); err != nil {
		return nil, err
	}
	return ir.Named(name), nil
}

func (r *schemaResolver) enum(node *ir.TypeNode, s *openapi3.Schema) {
	node.Kind = ir.KindEnum
	node.EnumBase = enumBase(s)
	used := map[string]int{}
	for _, v := range s.Enum {
		if v == nil {
			continue
		}
		member := utils.ToTypeName(fmt.Sprint(v))
		if member == "" {
			member = "Empty"
		}
		used[member]++
		if n := used[member]; n > 1 {
			member += strconv.Itoa(n)
		}
		node.Enum = append(node.Enum, ir.EnumValue{Name: member, Value: v})
	}
}

// enumBase infers the primitive behind an enum
func enumBase(s *openapi3.Schema) string {
	// Prefer explicit type when present
	for _, t := range schemaTypes(s) {
		switch t {
		case openapi3.TypeString, openapi3.TypeInteger, openapi3.TypeNumber, openapi3.TypeBoolean:
			return t
		}
	}
	// Fallback: inspect first enum value
	for _, v := range s.Enum {
		switch v.(type) {
		case string:
			return openapi3.TypeString
		case int, int32, int64:
			return openapi3.TypeInteger
		case float32, float64:
			return openapi3.TypeNumber
		case bool:
			return openapi3.TypeBoolean
		}
	}
	return openapi3.TypeString
}

func (r *schemaResolver) union(node *ir.TypeNode, s *openapi3.Schema, pointer string) error {
	node.Kind = ir.KindUnion
	members, err := r.members(s, pointer, node.Name)
	if err != nil {
		return err
	}
	node.Members = members
	if s.Discriminator != nil {
		node.Discriminator = &ir.Discriminator{Property: s.Discriminator.PropertyName}
		r.pending = append(r.pending, pendingDiscriminator{node: node, pointer: pointer, mapping: s.Discriminator.Mapping, members: members})
	}
	return nil
}

func (r *schemaResolver) members(s *openapi3.Schema, pointer, ctx string) ([]*ir.TypeRef, error) {
	branches, key := s.OneOf, "oneOf"
	if len(branches) == 0 {
		branches, key = s.AnyOf, "anyOf"
	}
	var out []*ir.TypeRef
	for i, b := range branches {
		m, err := r.ref(b, pointer+"/"+key+"/"+strconv.Itoa(i), ctx+"Variant"+strconv.Itoa(i+1))
		if err != nil {
			return nil, err
		}
		dup := false
		for _, have := range out {
			dup = dup || have.Equal(m)
		}
		if !dup {
			out = append(out, m)
		}
	}
	return out, nil
}

// object builds an object type. allOf branches that are inline are flattened.
// Of the named branches the last declared one becomes the base, preferring
// discriminated ones; the remaining named branches are flattened in.
func (r *schemaResolver) object(node *ir.TypeNode, s *openapi3.Schema, pointer string) error {
	node.Kind = ir.KindObject

	base := -1
	for i, b := range s.AllOf {
		if b == nil || b.Ref == "" {
			continue
		}
		_, bs, err := r.doc.ResolveSchema(b)
		if err != nil {
			return at(fmt.Sprintf("%s/allOf/%d", pointer, i), err)
		}
		if base < 0 || bs.Discriminator != nil || !r.discriminated(s.AllOf[base]) {
			base = i
		}
	}

	var props []ir.Property
	required := map[string]bool{}
	for i, b := range s.AllOf {
		bp := fmt.Sprintf("%s/allOf/%d", pointer, i)
		if i == base {
			ref, err := r.ref(b, bp, node.Name)
			if err != nil {
				return err
			}
			if r.inheritable(ref, node.Name) {
				node.Base = ref.Name
				if isComponent(pointer) {
					r.registerSubtype(ref.Name, node.Name)
				}
				continue
			}
		}
		var err error
		if props, err = r.flatten(props, required, b, bp, node.Name, map[string]bool{}); err != nil {
			return err
		}
	}

	own, err := r.properties(s, pointer, node.Name, required)
	if err != nil {
		return err
	}
	props = mergeProperties(props, own)
	for i := range props {
		if required[props[i].Name] {
			props[i].Required = true
		}
	}
	node.Properties = props

	if node.AdditionalProperties, err = r.additional(s, pointer, node.Name); err != nil {
		return err
	}
	if s.Discriminator != nil {
		node.Discriminator = &ir.Discriminator{Property: s.Discriminator.PropertyName}
		r.pending = append(r.pending, pendingDiscriminator{node: node, pointer: pointer, mapping: s.Discriminator.Mapping})
	}
	return nil
}

// inheritable reports whether ref can be the base of an object type.
func (r *schemaResolver) inheritable(ref *ir.TypeRef, self string) bool {
	if ref.Kind != ir.RefNamed || ref.Name == self {
		return false
	}
	t, ok := r.model.Lookup(ref.Name)
	return ok && t.Kind == ir.KindObject
}

func (r *schemaResolver) discriminated(b *openapi3.SchemaRef) bool {
	_, s, err := r.doc.ResolveSchema(b)
	return err == nil && s.Discriminator != nil
}

// flatten copies the effective properties of an allOf branch, following
// its own allOf branches.
func (r *schemaResolver) flatten(props []ir.Property, required map[string]bool, b *openapi3.SchemaRef, pointer, owner string, seen map[string]bool) ([]ir.Property, error) {
	s := b.Value
	if b.Ref != "" {
		name, resolved, err := r.doc.ResolveSchema(b)
		if err != nil {
			return nil, at(pointer, err)
		}
		if seen[name] {
			return props, nil
		}
		seen[name] = true
		s, pointer = resolved, componentPointer(name)
	}
	if s == nil {
		return props, nil
	}
	for i, sub := range s.AllOf {
		var err error
		if props, err = r.flatten(props, required, sub, fmt.Sprintf("%s/allOf/%d", pointer, i), owner, seen); err != nil {
			return nil, err
		}
	}
	own, err := r.properties(s, pointer, owner, required)
	if err != nil {
		return nil, err
	}
	return mergeProperties(props, own), nil
}

// properties resolves the declared properties of s in declaration order.
func (r *schemaResolver) properties(s *openapi3.Schema, pointer, owner string, required map[string]bool) ([]ir.Property, error) {
	for _, n := range s.Required {
		required[n] = true
	}
	var out []ir.Property
	for _, n := range openapi.OrderedKeys(r.doc, pointer+"/properties", map[string]*openapi3.SchemaRef(s.Properties)) {
		ps := s.Properties[n]
		t, err := r.ref(ps, pointer+"/properties/"+openapi.EscapePointer(n), owner+utils.ToTypeName(n))
		if err != nil {
			return nil, err
		}
		p := ir.Property{Name: n, Type: t, Nullable: t.Nullable}
		if ps != nil && ps.Value != nil {
			p.Description = ps.Value.Description
			p.ReadOnly = ps.Value.ReadOnly
			p.Deprecated = ps.Value.Deprecated
			if ps.Value.Default != nil {
				p.Default, p.HasDefault = ps.Value.Default, true
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// mergeProperties appends add to props; a redeclared name replaces the earlier one in place.
func mergeProperties(props, add []ir.Property) []ir.Property {
	for _, p := range add {
		replaced := false
		for i := range props {
			if props[i].Name == p.Name {
				props[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			props = append(props, p)
		}
	}
	return props
}

// additional resolves additionalProperties; nil means closed.
func (r *schemaResolver) additional(s *openapi3.Schema, pointer, owner string) (*ir.TypeRef, error) {
	ap := s.AdditionalProperties
	if ap.Schema != nil {
		return r.ref(ap.Schema, pointer+"/additionalProperties", owner+"Value")
	}
	if ap.Has != nil && *ap.Has {
		return ir.Any(), nil
	}
	return nil, nil
}

func (r *schemaResolver) registerSubtype(base, sub string) {
	b, ok := r.model.Lookup(base)
	if !ok {
		return
	}
	for _, s := range b.Subtypes {
		if s == sub {
			return
		}
	}
	b.Subtypes = append(b.Subtypes, sub)
}

// primitive maps an OpenAPI type and format to a target primitive.
func (r *schemaResolver) primitive(typ, format string) *ir.TypeRef {
	if typ == openapi3.TypeString && format == "binary" && r.opts.BinaryType != "" {
		return ir.Primitive(r.opts.BinaryType, typ, format)
	}
	if target, ok := r.opts.TypeMappings[typ+":"+format]; ok && format != "" {
		return ir.Primitive(target, typ, format)
	}
	if target, ok := r.opts.TypeMappings[typ]; ok {
		return ir.Primitive(target, typ, format)
	}
	return ir.Any()
}

// finishDiscriminators fills discriminator cases once every type is known.
// Declared mapping entries come first in declaration order, followed by the
// remaining subtypes. A mapping target that does not exist falls back to the
// base type with a warning.
func (r *schemaResolver) finishDiscriminators() error {
	for _, p := range r.pending {
		d := p.node.Discriminator
		mapped := map[string]bool{}
		keys := openapi.OrderedKeys(r.doc, p.pointer+"/discriminator/mapping", p.mapping)
		for _, value := range keys {
			target := p.mapping[value]
			ref := target
			if _, _, ok := openapi.ComponentName(target); !ok {
				ref = componentRef(target)
			}
			name, _, err := r.doc.ResolveSchema(&openapi3.SchemaRef{Ref: ref})
			if err != nil {
				r.warnings.Add(diag.KindUnregisteredDiscriminator, p.pointer, "discriminator value %q maps to %s which is not defined; using %s", value, target, p.node.Name)
				d.Cases = append(d.Cases, ir.DiscriminatorCase{Value: value, Type: p.node.Name})
				continue
			}
			t, err := r.component(name)
			if err != nil {
				return err
			}
			d.Cases = append(d.Cases, ir.DiscriminatorCase{Value: value, Type: t.Name})
			mapped[t.Name] = true
		}

		var implied []string
		if p.node.Kind == ir.KindUnion {
			for _, m := range p.members {
				if m.Kind == ir.RefNamed {
					implied = append(implied, m.Name)
				}
			}
		} else {
			implied = r.descendants(p.node.Name)
		}
		for _, sub := range implied {
			if mapped[sub] {
				continue
			}
			d.Cases = append(d.Cases, ir.DiscriminatorCase{Value: r.discriminatorValue(sub), Type: sub})
		}
	}
	return nil
}

func (r *schemaResolver) descendants(name string) []string {
	var out []string
	t, ok := r.model.Lookup(name)
	if !ok {
		return nil
	}
	for _, s := range t.Subtypes {
		out = append(out, s)
		out = append(out, r.descendants(s)...)
	}
	return out
}

// discriminatorValue is x-discriminator-value, else the source schema name.
func (r *schemaResolver) discriminatorValue(name string) string {
	t, ok := r.model.Lookup(name)
	if !ok {
		return name
	}
	if t.DiscriminatorValue != "" {
		return t.DiscriminatorValue
	}
	if section, source, ok := openapi.ComponentName(t.SchemaPath); ok && section == openapi.SectionSchemas {
		return source
	}
	return name
}

// schemaTypes lists the declared types without "null".
func schemaTypes(s *openapi3.Schema) []string {
	var out []string
	for _, t := range s.Type.Slice() {
		if t != openapi3.TypeNull {
			out = append(out, t)
		}
	}
	if len(out) == 0 && (len(s.Properties) > 0 || s.AdditionalProperties.Schema != nil) {
		return []string{openapi3.TypeObject}
	}
	if len(out) == 0 && s.Items != nil {
		return []string{openapi3.TypeArray}
	}
	return out
}

func nullable(s *openapi3.Schema) bool {
	if s.Nullable || s.Type.Includes(openapi3.TypeNull) {
		return true
	}
	v, _ := s.Extensions["x-nullable"].(bool)
	return v
}

// at rebinds a reference error to the site that used the reference.
func at(pointer string, err error) error {
	if de, ok := err.(*diag.Error); ok {
		out := *de
		out.Message = fmt.Sprintf("%s: %s", de.Subject, de.Message)
		out.Subject = "#" + pointer
		return &out
	}
	return err
}
