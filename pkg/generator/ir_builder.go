package generator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/diag"
	"github.com/blimu-dev/clientgen/pkg/ir"
	"github.com/blimu-dev/clientgen/pkg/openapi"
	"github.com/blimu-dev/clientgen/pkg/utils"
)

// methods lists the HTTP methods of a path item in their conventional order.
var methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD", "TRACE"}

// BuildIR resolves doc into the IR for one client configuration. reserved
// names are never given to emitted types. The run is all or nothing: any
// error aborts it and no partial IR is returned.
func BuildIR(doc *openapi.Document, client config.Client, reserved []string) (*ir.IR, error) {
	opts := client.Generation
	warnings := &diag.Warnings{}

	filter, err := newOperationFilter(opts, client.IncludeTags, client.ExcludeTags)
	if err != nil {
		return nil, err
	}
	ops, err := collectOperations(doc)
	if err != nil {
		return nil, err
	}
	kept := ops[:0]
	for _, op := range ops {
		if reason, drop := filter.exclude(op); drop {
			warnings.Add(diag.KindOperationExcluded, op.ID(), "%s", reason)
			continue
		}
		kept = append(kept, op)
	}
	ops = kept

	if err := assignNames(ops, opts.Naming, warnings); err != nil {
		return nil, err
	}
	var units []ir.ClientUnit
	unitIndex := map[string]int{}
	unitNames := map[string]bool{}
	for _, n := range append(append([]string(nil), reserved...), opts.ReservedNames...) {
		unitNames[n] = true
	}
	for _, op := range ops {
		if _, ok := unitIndex[op.Client]; ok {
			continue
		}
		unitIndex[op.Client] = len(units)
		name := clientUnitName(opts, op.Client, unitNames)
		unitNames[name] = true
		units = append(units, ir.ClientUnit{Name: op.Client, UnitName: name})
	}

	// client units and emitted types share one namespace
	taken := append([]string(nil), reserved...)
	for _, u := range units {
		taken = append(taken, u.UnitName)
	}
	r := newSchemaResolver(doc, opts, taken, warnings)
	if err := r.resolveComponents(); err != nil {
		return nil, err
	}

	p := &planner{r: r}
	for _, op := range ops {
		plan, err := p.plan(op)
		if err != nil {
			return nil, err
		}
		u := &units[unitIndex[op.Client]]
		u.Plans = append(u.Plans, plan)
	}

	if err := r.finishDiscriminators(); err != nil {
		return nil, err
	}
	if opts.UseLeafType {
		flattenLeaves(r.model, units)
	}

	return &ir.IR{
		Title:           doc.Title(),
		BaseURL:         doc.BaseURL(),
		Types:           r.model,
		Clients:         units,
		SecuritySchemes: collectSecuritySchemes(doc),
		Warnings:        warnings.List(),
	}, nil
}

// plan builds the Call Plan of one named operation.
func (p *planner) plan(op *operation) (*ir.CallPlan, error) {
	params, req, err := p.planRequest(op)
	if err != nil {
		return nil, err
	}
	responses, accept, err := p.planResponses(op)
	if err != nil {
		return nil, err
	}
	req.Accept = accept
	tags := append([]string(nil), op.Op.Tags...)
	if len(tags) == 0 {
		tags = []string{untaggedClient}
	}
	return &ir.CallPlan{
		OperationID:   op.Op.OperationID,
		Method:        op.Method,
		Path:          op.Path,
		Tags:          tags,
		Summary:       op.Op.Summary,
		Description:   op.Op.Description,
		Deprecated:    op.Op.Deprecated,
		ClientName:    op.Client,
		OperationName: op.Name,
		Parameters:    params,
		Request:       req,
		Responses:     responses,
	}, nil
}

// collectOperations lists every operation in declaration order of paths and
// methods, with path-level parameters merged in.
func collectOperations(doc *openapi.Document) ([]*operation, error) {
	var out []*operation
	for _, path := range doc.PathNames() {
		item := doc.Spec.Paths.Value(path)
		if item == nil {
			continue
		}
		itemPointer := openapi.Pointer("paths", path)
		byMethod := map[string]*openapi3.Operation{}
		for _, m := range methods {
			if op := item.GetOperation(m); op != nil {
				byMethod[strings.ToLower(m)] = op
			}
		}
		shared, err := resolveParams(doc, item.Parameters, itemPointer+"/parameters")
		if err != nil {
			return nil, err
		}
		for _, m := range openapi.OrderedKeys(doc, itemPointer, byMethod) {
			o := &operation{
				Method:  strings.ToUpper(m),
				Path:    path,
				Pointer: itemPointer + "/" + m,
				Op:      byMethod[m],
			}
			own, err := resolveParams(doc, o.Op.Parameters, o.Pointer+"/parameters")
			if err != nil {
				return nil, err
			}
			o.Params = mergeParams(shared, own)
			out = append(out, o)
		}
	}
	return out, nil
}

func resolveParams(doc *openapi.Document, refs openapi3.Parameters, pointer string) ([]opParam, error) {
	var out []opParam
	for i, pr := range refs {
		if pr == nil {
			continue
		}
		pp := pointer + "/" + strconv.Itoa(i)
		v, err := doc.ResolveParameter(pr)
		if err != nil {
			return nil, at(pp, err)
		}
		if pr.Ref != "" {
			_, name, _ := openapi.ComponentName(pr.Ref)
			pp = openapi.Pointer("components", openapi.SectionParameters, name)
		}
		out = append(out, opParam{Parameter: v, Pointer: pp})
	}
	return out, nil
}

// mergeParams overlays operation parameters on path-level ones. A parameter
// redeclared with the same name and location replaces the shared one in place.
func mergeParams(shared, own []opParam) []opParam {
	out := append([]opParam(nil), shared...)
	for _, p := range own {
		replaced := false
		for i := range out {
			if out[i].Name == p.Name && out[i].In == p.In {
				out[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}

// clientUnitName applies the configured template and turns the result into a
// type identifier that is neither reserved nor taken by an earlier unit.
func clientUnitName(opts config.Generation, client string, taken map[string]bool) string {
	base := utils.ToTypeName(opts.ClientUnitName(client))
	name := base
	for i := 2; taken[name]; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	return name
}

// operationFilter holds the exclusion predicates of a client.
type operationFilter struct {
	deprecated bool
	paths      []*regexp.Regexp
	tagInclude []*regexp.Regexp
	tagExclude []*regexp.Regexp
}

func newOperationFilter(opts config.Generation, includeTags, excludeTags []string) (*operationFilter, error) {
	include, exclude, err := compileTagFilters(includeTags, excludeTags)
	if err != nil {
		return nil, &diag.Error{Kind: diag.KindInvalidConfiguration, Message: "tag filters", Cause: err}
	}
	f := &operationFilter{deprecated: opts.ExcludeDeprecated, tagInclude: include, tagExclude: exclude}
	for _, p := range opts.ExcludePaths {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &diag.Error{Kind: diag.KindInvalidConfiguration, Message: fmt.Sprintf("invalid excludePaths pattern %q", p), Cause: err}
		}
		f.paths = append(f.paths, re)
	}
	return f, nil
}

// exclude reports whether op is dropped, and why.
func (f *operationFilter) exclude(op *operation) (string, bool) {
	if f.deprecated && op.Op.Deprecated {
		return "deprecated", true
	}
	for _, re := range f.paths {
		if re.MatchString(op.Path) {
			return fmt.Sprintf("path matches %q", re.String()), true
		}
	}
	tags := op.Op.Tags
	if len(tags) == 0 {
		tags = []string{untaggedClient}
	}
	if !shouldIncludeOperation(tags, f.tagInclude, f.tagExclude) {
		return "filtered by tags", true
	}
	return "", false
}

// compileTagFilters compiles regex patterns for tag filtering
func compileTagFilters(include, exclude []string) ([]*regexp.Regexp, []*regexp.Regexp, error) {
	inc := make([]*regexp.Regexp, 0, len(include))
	for _, p := range include {
		r, err := regexp.Compile(p)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid includeTags pattern %q: %w", p, err)
		}
		inc = append(inc, r)
	}
	exc := make([]*regexp.Regexp, 0, len(exclude))
	for _, p := range exclude {
		r, err := regexp.Compile(p)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid excludeTags pattern %q: %w", p, err)
		}
		exc = append(exc, r)
	}
	return inc, exc, nil
}

// shouldIncludeOperation reports whether an operation passes the tag filters.
// It is included when any tag matches an include pattern (or none are set)
// and no tag matches an exclude pattern.
func shouldIncludeOperation(tags []string, include, exclude []*regexp.Regexp) bool {
	included := len(include) == 0
	for _, tag := range tags {
		for _, r := range include {
			if r.MatchString(tag) {
				included = true
			}
		}
	}
	if !included {
		return false
	}
	for _, tag := range tags {
		for _, r := range exclude {
			if r.MatchString(tag) {
				return false
			}
		}
	}
	return true
}

// collectSecuritySchemes extracts security scheme information in declaration order
func collectSecuritySchemes(doc *openapi.Document) []ir.SecurityScheme {
	if doc.Spec == nil || doc.Spec.Components == nil {
		return nil
	}
	schemes := doc.Spec.Components.SecuritySchemes
	var out []ir.SecurityScheme
	for _, name := range openapi.OrderedKeys(doc, openapi.Pointer("components", "securitySchemes"), schemes) {
		sr := schemes[name]
		if sr == nil || sr.Value == nil {
			continue
		}
		s := sr.Value
		sc := ir.SecurityScheme{Key: name, Type: s.Type}
		switch s.Type {
		case "http":
			sc.Scheme = strings.ToLower(s.Scheme)
			sc.BearerFormat = s.BearerFormat
		case "apiKey":
			sc.In = s.In
			sc.Name = s.Name
		}
		out = append(out, sc)
	}
	return out
}

// flattenLeaves replaces every reference to a polymorphic base type by the
// union of its leaf subtypes. References to a concrete subtype stay as they are.
func flattenLeaves(model *ir.TypeModel, units []ir.ClientUnit) {
	leaf := func(ref *ir.TypeRef) *ir.TypeRef { return leafRef(model, ref) }
	for _, t := range model.Types {
		t.Alias = leaf(t.Alias)
		t.Items = leaf(t.Items)
		t.AdditionalProperties = leaf(t.AdditionalProperties)
		for i := range t.Members {
			t.Members[i] = leaf(t.Members[i])
		}
		for i := range t.Properties {
			t.Properties[i].Type = leaf(t.Properties[i].Type)
		}
	}
	for _, u := range units {
		for _, plan := range u.Plans {
			for i := range plan.Parameters {
				plan.Parameters[i].Type = leaf(plan.Parameters[i].Type)
			}
			for i := range plan.Responses.Cases {
				plan.Responses.Cases[i].Type = leaf(plan.Responses.Cases[i].Type)
			}
			plan.Responses.Result = leaf(plan.Responses.Result)
		}
	}
}

func leafRef(model *ir.TypeModel, ref *ir.TypeRef) *ir.TypeRef {
	if ref == nil {
		return nil
	}
	switch ref.Kind {
	case ir.RefNamed:
		if !model.Polymorphic(ref.Name) {
			return ref
		}
		leaves := model.Leaves(ref.Name)
		if len(leaves) == 0 {
			return ref
		}
		members := make([]*ir.TypeRef, len(leaves))
		for i, l := range leaves {
			members[i] = ir.Named(l)
		}
		return ir.UnionOf(members...).WithNullable(ref.Nullable)
	case ir.RefArray:
		out := *ref
		out.Items = leafRef(model, ref.Items)
		return &out
	case ir.RefDictionary:
		out := *ref
		out.Items = leafRef(model, ref.Items)
		return &out
	case ir.RefUnion:
		out := *ref
		out.Members = nil
		for _, m := range ref.Members {
			flat := leafRef(model, m)
			if flat.Kind == ir.RefUnion && !flat.Nullable {
				for _, fm := range flat.Members {
					out.Members = appendDistinct(out.Members, fm)
				}
				continue
			}
			out.Members = appendDistinct(out.Members, flat)
		}
		return &out
	}
	return ref
}
