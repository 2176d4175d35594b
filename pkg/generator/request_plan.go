package generator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/blimu-dev/clientgen/pkg/diag"
	"github.com/blimu-dev/clientgen/pkg/ir"
	"github.com/blimu-dev/clientgen/pkg/openapi"
	"github.com/blimu-dev/clientgen/pkg/utils"
)

// Media types with a dedicated construction rule.
const (
	mediaJSON      = "application/json"
	mediaForm      = "application/x-www-form-urlencoded"
	mediaMultipart = "multipart/form-data"
)

// planner builds the request and response plans of operations against the
// types of one resolution run.
type planner struct {
	r *schemaResolver
}

func (p *planner) model() *ir.TypeModel { return p.r.model }

// typePrefix is the context name of inline types declared by op.
func typePrefix(op *operation) string {
	return utils.ToTypeName(op.Client) + utils.ToTypeName(op.Name)
}

// paramNames hands out unique call-site identifiers.
type paramNames map[string]bool

func (n paramNames) claim(wire string, loc ir.Location) string {
	base := utils.ToIdentifier(wire)
	if base == "" {
		base = "param"
	}
	name := base
	if n[name] {
		name = base + utils.ToPascalCase(string(loc))
	}
	for i := 2; n[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	n[name] = true
	return name
}

// ignoredHeaders are described by the request plan itself, never by parameters.
var ignoredHeaders = map[string]bool{"accept": true, "content-type": true, "authorization": true}

// planRequest resolves the parameters and request construction of op.
func (p *planner) planRequest(op *operation) ([]ir.Parameter, ir.RequestPlan, error) {
	opts := p.r.opts
	req := ir.RequestPlan{
		Method:        op.Method,
		NullValue:     opts.NullValue,
		DateFormatter: opts.DateFormatter,
		Cancellable:   opts.Cancellation,
		Body:          ir.Body{Encoding: ir.BodyNone},
	}
	names := paramNames{}
	var params []ir.Parameter
	pathParams := map[string]string{}

	for _, src := range op.Params {
		loc := ir.Location(src.In)
		switch loc {
		case ir.InPath, ir.InQuery:
		case ir.InHeader:
			if ignoredHeaders[strings.ToLower(src.Name)] {
				continue
			}
		default:
			p.r.warnings.Add(diag.KindIgnoredParameter, op.ID(), "%s parameter %q is not sent by generated clients", src.In, src.Name)
			continue
		}
		param, err := p.parameter(op, src, loc, names)
		if err != nil {
			return nil, req, err
		}
		field := p.field(param)
		switch loc {
		case ir.InPath:
			pathParams[src.Name] = param.Name
		case ir.InQuery:
			req.Query = append(req.Query, field)
		case ir.InHeader:
			req.Headers = append(req.Headers, field)
		}
		params = append(params, param)
	}

	parts, err := pathParts(op, pathParams)
	if err != nil {
		return nil, req, err
	}
	req.PathParts = parts

	bodyParams, err := p.planBody(op, &req, names)
	if err != nil {
		return nil, req, err
	}
	params = append(params, bodyParams...)
	if opts.ReorderParameters {
		params = reorderParameters(params)
	}
	return params, req, nil
}

func (p *planner) parameter(op *operation, src opParam, loc ir.Location, names paramNames) (ir.Parameter, error) {
	param := ir.Parameter{
		Name:        names.claim(src.Name, loc),
		WireName:    src.Name,
		Location:    loc,
		Required:    src.Required || loc == ir.InPath,
		Deprecated:  src.Deprecated,
		Description: src.Description,
	}
	schema, schemaPointer := src.Schema, src.Pointer+"/schema"
	if schema == nil {
		for _, media := range openapi.OrderedKeys(p.r.doc, src.Pointer+"/content", src.Content) {
			if mt := src.Content[media]; mt != nil && mt.Schema != nil {
				schema = mt.Schema
				schemaPointer = src.Pointer + "/content/" + openapi.EscapePointer(media) + "/schema"
				break
			}
		}
	}
	t, err := p.r.ref(schema, schemaPointer, typePrefix(op)+utils.ToTypeName(src.Name))
	if err != nil {
		return param, err
	}
	param.Type = t
	param.Nullable = t.Nullable
	if p.r.opts.ParameterDefaults && !param.Required {
		if _, s, err := p.r.doc.ResolveSchema(schema); err == nil && s.Default != nil {
			param.Default, param.HasDefault = s.Default, true
		}
	}
	return param, nil
}

// field describes how param is written into a query, header or form.
func (p *planner) field(param ir.Parameter) ir.Field {
	enc, item, dateOnly := p.encoding(param.Type)
	return ir.Field{
		Param:        param.Name,
		WireName:     param.WireName,
		Encoding:     enc,
		ItemEncoding: item,
		Required:     param.Required,
		DateOnly:     dateOnly,
	}
}

func (p *planner) encoding(ref *ir.TypeRef) (enc, item ir.FieldEncoding, dateOnly bool) {
	u := p.model().Underlying(ref)
	if u.IsArray() {
		item, _, dateOnly = p.encoding(u.Items)
		if item == ir.EncodeArray {
			item = ir.EncodeObject
		}
		return ir.EncodeArray, item, dateOnly
	}
	return p.scalarEncoding(u), "", u.IsDate() && u.Format == "date"
}

func (p *planner) scalarEncoding(u *ir.TypeRef) ir.FieldEncoding {
	switch {
	case u == nil:
		return ir.EncodeScalar
	case u.IsBinary():
		return ir.EncodeBinary
	case u.IsDate():
		return ir.EncodeDate
	}
	switch u.Kind {
	case ir.RefDictionary:
		return ir.EncodeObject
	case ir.RefNamed:
		if t, ok := p.model().Lookup(u.Name); ok && t.Kind == ir.KindEnum {
			return ir.EncodeScalar
		}
		return ir.EncodeObject
	case ir.RefUnion:
		for _, m := range u.Members {
			if p.scalarEncoding(p.model().Underlying(m)) == ir.EncodeObject {
				return ir.EncodeObject
			}
		}
	}
	return ir.EncodeScalar
}

// pathParts splits the path template into literals and placeholders. Every
// placeholder needs a path parameter and every path parameter a placeholder.
func pathParts(op *operation, params map[string]string) ([]ir.PathPart, error) {
	var parts []ir.PathPart
	used := map[string]bool{}
	rest := op.Path
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			parts = append(parts, ir.PathPart{Literal: rest})
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, diag.Errorf(diag.KindMissingPathParameter, op.ID(), "unterminated placeholder in path template")
		}
		if open > 0 {
			parts = append(parts, ir.PathPart{Literal: rest[:open]})
		}
		wire := rest[open+1 : open+end]
		name, ok := params[wire]
		if !ok {
			return nil, diag.Errorf(diag.KindMissingPathParameter, op.ID(), "placeholder {%s} has no path parameter", wire)
		}
		used[wire] = true
		parts = append(parts, ir.PathPart{Param: name})
		rest = rest[open+end+1:]
	}
	for _, src := range op.Params {
		if src.In == openapi3.ParameterInPath && !used[src.Name] {
			return nil, diag.Errorf(diag.KindMissingPathParameter, op.ID(), "path parameter %q does not appear in the path template", src.Name)
		}
	}
	return parts, nil
}

// planBody negotiates the request media type and derives the body parameters.
func (p *planner) planBody(op *operation, req *ir.RequestPlan, names paramNames) ([]ir.Parameter, error) {
	if op.Op.RequestBody == nil {
		return nil, nil
	}
	pointer := op.Pointer + "/requestBody"
	body, err := p.r.doc.ResolveRequestBody(op.Op.RequestBody)
	if err != nil {
		return nil, at(pointer, err)
	}
	if body == nil || len(body.Content) == 0 {
		return nil, nil
	}
	if ref := op.Op.RequestBody.Ref; ref != "" {
		_, name, _ := openapi.ComponentName(ref)
		pointer = openapi.Pointer("components", openapi.SectionRequestBodies, name)
	}

	declared := openapi.OrderedKeys(p.r.doc, pointer+"/content", body.Content)
	media, encoding, ok := p.negotiate(declared, p.r.opts.ContentTypes.Request, func(m string) (ir.BodyEncoding, bool) {
		return p.bodyRule(m, mediaSchema(body.Content, m))
	})
	if !ok {
		return nil, diag.Errorf(diag.KindUnsupportedContentType, op.ID(),
			"no construction rule for request media types %s", describeMedia(declared))
	}

	schema := mediaSchema(body.Content, media)
	schemaPointer := pointer + "/content/" + openapi.EscapePointer(media) + "/schema"
	req.Body = ir.Body{Encoding: encoding, MediaType: media}
	req.ContentType = media

	switch encoding {
	case ir.BodyBinary:
		param := ir.Parameter{
			Name:     names.claim("body", ir.InBody),
			WireName: "body",
			Location: ir.InBody,
			Type:     ir.Primitive(p.r.opts.BinaryType, openapi3.TypeString, "binary"),
			Required: body.Required,
		}
		req.Body.Param = param.Name
		return []ir.Parameter{param}, nil
	case ir.BodyJSON, ir.BodyText:
		t, err := p.r.ref(schema, schemaPointer, typePrefix(op)+"Body")
		if err != nil {
			return nil, err
		}
		if schema == nil && encoding == ir.BodyText {
			t = p.r.primitive(openapi3.TypeString, "")
		}
		param := ir.Parameter{
			Name:        names.claim("body", ir.InBody),
			WireName:    "body",
			Location:    ir.InBody,
			Type:        t,
			Required:    body.Required,
			Nullable:    t.Nullable,
			Description: body.Description,
		}
		req.Body.Param = param.Name
		return []ir.Parameter{param}, nil
	}

	// multipart and url-encoded bodies spread the object properties into fields
	if encoding == ir.BodyMultipart {
		req.ContentType = ""
	}
	t, err := p.r.ref(schema, schemaPointer, typePrefix(op)+"Body")
	if err != nil {
		return nil, err
	}
	u := p.model().Underlying(t)
	node, ok := p.model().Lookup(u.Name)
	if u.Kind != ir.RefNamed || !ok || node.Kind != ir.KindObject {
		return nil, diag.Errorf(diag.KindUnsupportedContentType, op.ID(), "%s bodies need an object schema, got %s", media, t)
	}
	var params []ir.Parameter
	for _, prop := range p.model().AllProperties(node.Name) {
		if prop.ReadOnly {
			continue
		}
		param := ir.Parameter{
			Name:        names.claim(prop.Name, ir.InForm),
			WireName:    prop.Name,
			Location:    ir.InForm,
			Type:        prop.Type,
			Required:    prop.Required,
			Nullable:    prop.Nullable,
			Deprecated:  prop.Deprecated,
			Description: prop.Description,
		}
		if p.r.opts.ParameterDefaults && !prop.Required && prop.HasDefault {
			param.Default, param.HasDefault = prop.Default, true
		}
		f := p.field(param)
		if encoding == ir.BodyForm && (f.Encoding == ir.EncodeBinary || f.ItemEncoding == ir.EncodeBinary) {
			return nil, diag.Errorf(diag.KindIncompatibleBodyEncoding, op.ID(),
				"field %q is binary and cannot be sent as %s", prop.Name, media)
		}
		req.Body.Fields = append(req.Body.Fields, f)
		params = append(params, param)
	}
	return params, nil
}

func mediaSchema(content openapi3.Content, media string) *openapi3.SchemaRef {
	if mt := content[media]; mt != nil {
		return mt.Schema
	}
	return nil
}

// bodyRule returns the construction rule for a request media type.
func (p *planner) bodyRule(media string, schema *openapi3.SchemaRef) (ir.BodyEncoding, bool) {
	binary := schema == nil || p.binarySchema(schema)
	base := mediaBase(media)
	switch {
	case base == mediaForm:
		if schema == nil {
			return "", false
		}
		return ir.BodyForm, true
	case strings.HasPrefix(base, "multipart/"):
		if schema == nil {
			return "", false
		}
		return ir.BodyMultipart, true
	case isJSONMedia(base):
		if schema != nil && p.binarySchema(schema) {
			return ir.BodyBinary, true
		}
		return ir.BodyJSON, true
	case strings.HasPrefix(base, "text/"):
		if schema != nil && p.binarySchema(schema) {
			return ir.BodyBinary, true
		}
		return ir.BodyText, true
	case binary:
		return ir.BodyBinary, true
	}
	return "", false
}

// binarySchema reports a schema of type string with format binary, through references.
func (p *planner) binarySchema(sr *openapi3.SchemaRef) bool {
	_, s, err := p.r.doc.ResolveSchema(sr)
	if err != nil {
		return false
	}
	types := schemaTypes(s)
	return len(types) == 1 && types[0] == openapi3.TypeString && s.Format == "binary"
}

// negotiate picks a media type: configured preferences first, then the
// declaration order. Only media types accepted by rule are eligible.
func (p *planner) negotiate(declared, prefs []string, rule func(string) (ir.BodyEncoding, bool)) (string, ir.BodyEncoding, bool) {
	for _, pref := range prefs {
		for _, m := range declared {
			if !mediaMatches(pref, m) {
				continue
			}
			if enc, ok := rule(m); ok {
				return m, enc, true
			}
		}
	}
	for _, m := range declared {
		if enc, ok := rule(m); ok {
			return m, enc, true
		}
	}
	return "", "", false
}

// mediaBase strips parameters and normalizes case.
func mediaBase(media string) string {
	base, _, _ := strings.Cut(media, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// mediaMatches matches a declared media type against a preference, which may
// use a "type/*" or "*/*" wildcard.
func mediaMatches(pref, media string) bool {
	pref, media = mediaBase(pref), mediaBase(media)
	switch {
	case pref == media, pref == "*/*":
		return true
	case strings.HasSuffix(pref, "/*"):
		return strings.HasPrefix(media, strings.TrimSuffix(pref, "*"))
	}
	return false
}

func isJSONMedia(base string) bool {
	return base == mediaJSON || base == "text/json" || strings.HasSuffix(base, "+json")
}

func describeMedia(declared []string) string {
	if len(declared) == 0 {
		return "none"
	}
	return fmt.Sprintf("[%s]", strings.Join(declared, ", "))
}
