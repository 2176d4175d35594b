package generator

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/blimu-dev/clientgen/pkg/diag"
	"github.com/blimu-dev/clientgen/pkg/ir"
	"github.com/blimu-dev/clientgen/pkg/openapi"
	"github.com/blimu-dev/clientgen/pkg/utils"
)

// planResponses compiles the declared responses of op into a dispatch table
// in declaration order. "default" always dispatches last. The returned media
// type is the Accept value of the call.
func (p *planner) planResponses(op *operation) (ir.ResponsePlan, string, error) {
	var plan ir.ResponsePlan
	if op.Op.Responses == nil {
		return plan, "", nil
	}
	pointer := op.Pointer + "/responses"
	codes := openapi.OrderedKeys(p.r.doc, pointer, op.Op.Responses.Map())
	var deflt string
	var ordered []string
	for _, code := range codes {
		if code == "default" {
			deflt = code
			continue
		}
		ordered = append(ordered, code)
	}
	if deflt != "" {
		ordered = append(ordered, deflt)
	}

	hasSuccess := false
	for _, code := range ordered {
		if m, err := ir.ParseStatus(code); err == nil && !m.Default && m.Success() {
			hasSuccess = true
		}
	}

	var accept []string
	var results []*ir.TypeRef
	voidSuccess := false
	for _, code := range ordered {
		rp := pointer + "/" + openapi.EscapePointer(code)
		matcher, err := ir.ParseStatus(code)
		if err != nil {
			return plan, "", &diag.Error{Kind: diag.KindInvalidRangeStatusCode, Subject: op.ID(), Message: "response " + code, Cause: err}
		}
		ref := op.Op.Responses.Value(code)
		resp, err := p.r.doc.ResolveResponse(ref)
		if err != nil {
			return plan, "", at(rp, err)
		}
		if ref != nil && ref.Ref != "" {
			_, name, _ := openapi.ComponentName(ref.Ref)
			rp = openapi.Pointer("components", openapi.SectionResponses, name)
		}

		c := ir.ResponseCase{Matcher: matcher, Decode: ir.DecodeNone}
		if resp.Description != nil {
			c.Description = *resp.Description
		}
		c.IsError = !matcher.Success()
		if matcher.Default {
			c.IsError = hasSuccess
		}

		if media, ok := p.responseMedia(rp, resp.Content); ok {
			c.MediaType = media
			if err := p.responsePayload(op, &c, rp, resp.Content[media], code); err != nil {
				return plan, "", err
			}
		}
		if !c.IsError {
			if c.MediaType != "" {
				accept = appendUnique(accept, c.MediaType)
			}
			if c.Type == nil {
				voidSuccess = true
			} else {
				results = appendDistinct(results, c.Type)
			}
		}
		plan.Cases = append(plan.Cases, c)
	}

	if len(results) > 0 {
		plan.Result = ir.UnionOf(results...)
		if voidSuccess {
			plan.Result = plan.Result.WithNullable(true)
		}
	}
	return plan, strings.Join(accept, ", "), nil
}

// responseMedia picks the media type of a response: configured preferences
// first, then declaration order.
func (p *planner) responseMedia(pointer string, content openapi3.Content) (string, bool) {
	if len(content) == 0 {
		return "", false
	}
	declared := openapi.OrderedKeys(p.r.doc, pointer+"/content", content)
	media, _, ok := p.negotiate(declared, p.r.opts.ContentTypes.Response, func(string) (ir.BodyEncoding, bool) {
		return "", true
	})
	return media, ok
}

// responsePayload resolves the payload type and decode rule of one case.
// Payloads that cannot be parsed (xml, html) are delivered as text.
func (p *planner) responsePayload(op *operation, c *ir.ResponseCase, pointer string, mt *openapi3.MediaType, code string) error {
	base := mediaBase(c.MediaType)
	var schema *openapi3.SchemaRef
	if mt != nil {
		schema = mt.Schema
	}
	switch {
	case schema != nil && p.binarySchema(schema),
		schema == nil && !isJSONMedia(base) && !isTextMedia(base):
		c.Decode = ir.DecodeBinary
		c.Type = ir.Primitive(p.r.opts.BinaryType, openapi3.TypeString, "binary")
		return nil
	case isJSONMedia(base):
		c.Decode = ir.DecodeJSON
	default:
		c.Decode = ir.DecodeText
		c.Type = p.r.primitive(openapi3.TypeString, "")
		if schema == nil || !strings.HasPrefix(base, "text/") {
			return nil
		}
	}
	if schema == nil {
		c.Type = ir.Any()
		return nil
	}
	ctx := typePrefix(op) + "Response"
	if c.IsError {
		ctx = typePrefix(op) + "Error" + strings.TrimPrefix(utils.ToTypeName(code), "_")
	}
	t, err := p.r.ref(schema, pointer+"/content/"+openapi.EscapePointer(c.MediaType)+"/schema", ctx)
	if err != nil {
		return err
	}
	c.Type = t
	return nil
}

// isTextMedia reports media types delivered as text when no parser exists for them.
func isTextMedia(base string) bool {
	return strings.HasPrefix(base, "text/") || base == "application/xml" || strings.HasSuffix(base, "+xml")
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}

func appendDistinct(list []*ir.TypeRef, t *ir.TypeRef) []*ir.TypeRef {
	for _, have := range list {
		if have.Equal(t) {
			return list
		}
	}
	return append(list, t)
}
