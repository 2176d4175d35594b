package typescript

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/ir"
	"github.com/blimu-dev/clientgen/pkg/utils"
)

// reservedWords cannot be used as parameter identifiers.
var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true, "continue": true,
	"debugger": true, "default": true, "delete": true, "do": true, "else": true, "enum": true,
	"export": true, "extends": true, "false": true, "finally": true, "for": true, "function": true,
	"if": true, "import": true, "in": true, "instanceof": true, "new": true, "null": true,
	"return": true, "super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true, "with": true,
	"yield": true, "let": true, "static": true, "implements": true, "interface": true,
	"package": true, "private": true, "protected": true, "public": true, "await": true,
	"arguments": true, "eval": true, "signal": true, "callback": true,
}

// builtinTypes are global names an emitted type must not shadow.
var builtinTypes = []string{
	"AbortController", "AbortSignal", "ApiError", "Array", "Blob", "Boolean", "Callback",
	"ClientOptions", "Date", "Error", "File", "FormData", "Function", "Headers", "JSON",
	"Map", "Math", "Number", "Object", "Observable", "Partial", "Promise", "Record",
	"Request", "RequestInit", "Response", "Set", "String", "Subscriber", "Symbol",
	"Transport", "URL",
}

// emitter holds everything one artifact is rendered from.
type emitter struct {
	client config.Client
	opts   config.Generation
	in     *ir.IR
	model  *ir.TypeModel
	flavor string
}

func newEmitter(client config.Client, flavor string, in *ir.IR) *emitter {
	model := in.Types
	if model == nil {
		model = ir.NewTypeModel(nil)
	}
	return &emitter{client: client, opts: client.Generation, in: in, model: model, flavor: flavor}
}

func (e *emitter) classStyle() bool {
	return e.opts.TypeStyle == config.StyleClass
}

// ident escapes reserved words in parameter identifiers
func ident(name string) string {
	if reservedWords[name] {
		return name + "_"
	}
	return name
}

// methodName is the class member name of plan's public method. Operation
// names never contain "_", so the suffix cannot collide with another operation
// or with the generated members (baseUrl_, transport_, send*_, process*_).
func methodName(plan *ir.CallPlan) string {
	if plan.OperationName == "constructor" {
		return plan.OperationName + "_"
	}
	return plan.OperationName
}

// quotePropName quotes TypeScript property names that contain special characters
func quotePropName(name string) string {
	needsQuoting := name == ""
	for _, char := range name {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_' || char == '$') {
			needsQuoting = true
			break
		}
	}
	if len(name) > 0 && name[0] >= '0' && name[0] <= '9' {
		needsQuoting = true
	}
	if needsQuoting {
		return strconv.Quote(name)
	}
	return name
}

// tsType renders a type reference as a TypeScript type expression.
func (e *emitter) tsType(ref *ir.TypeRef) string {
	if ref == nil {
		return "void"
	}
	var t string
	switch ref.Kind {
	case ir.RefNamed, ir.RefPrimitive:
		t = ref.Name
		if t == "" {
			t = e.opts.AnyType
		}
	case ir.RefArray:
		t = e.arrayType(e.tsType(ref.Items))
	case ir.RefDictionary:
		t = e.dictionaryType(e.tsType(ref.Items))
	case ir.RefUnion:
		if len(ref.Members) == 0 {
			t = e.opts.AnyType
			break
		}
		parts := make([]string, 0, len(ref.Members))
		for _, m := range ref.Members {
			parts = append(parts, e.tsType(m))
		}
		t = strings.Join(parts, " | ")
	default:
		t = e.opts.AnyType
	}
	if ref.Nullable && t != "null" {
		t += " | null"
	}
	return t
}

func (e *emitter) arrayType(item string) string {
	if e.opts.ArrayType != nil && *e.opts.ArrayType != "" {
		return *e.opts.ArrayType + "<" + item + ">"
	}
	if strings.Contains(item, " | ") {
		item = "(" + item + ")"
	}
	return item + "[]"
}

func (e *emitter) dictionaryType(value string) string {
	if e.opts.DictionaryType != nil && *e.opts.DictionaryType != "" {
		return *e.opts.DictionaryType + "<string, " + value + ">"
	}
	return "{ [key: string]: " + value + " }"
}

// exportKeyword is applied to every emitted type or to none.
func (e *emitter) exportKeyword() string {
	if e.opts.ExportTypesEnabled() {
		return "export "
	}
	return ""
}

func (e *emitter) readonlyKeyword() string {
	if e.opts.ReadOnlyProperties {
		return "readonly "
	}
	return ""
}

// propertyLine renders one property declaration of an interface or class.
func (e *emitter) propertyLine(p ir.Property) string {
	var b strings.Builder
	if e.classStyle() {
		b.WriteString("declare ")
	}
	b.WriteString(e.readonlyKeyword())
	b.WriteString(quotePropName(p.Name))
	if !p.Required {
		b.WriteString("?")
	}
	b.WriteString(": ")
	b.WriteString(e.tsType(p.Type))
	b.WriteString(";")
	return b.String()
}

// indexSignature types the extra keys of an open object.
func (e *emitter) indexSignature(t *ir.TypeNode) string {
	if t.AdditionalProperties == nil {
		return ""
	}
	value := e.tsType(t.AdditionalProperties)
	if len(e.model.AllProperties(t.Name)) > 0 {
		// declared properties must be assignable to the index signature
		value = e.opts.AnyType
	}
	return e.readonlyKeyword() + "[key: string]: " + value + ";"
}

// enumLiteral renders an enum member value.
func enumLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return strconv.Quote(fmt.Sprint(v))
	}
	return string(data)
}

// docLines renders a JSDoc block body; nil when there is nothing to say.
func docLines(description string, deprecated bool) []string {
	var out []string
	for _, l := range strings.Split(strings.TrimSpace(description), "\n") {
		if l = strings.TrimRight(l, " \t\r"); l != "" || len(out) > 0 {
			out = append(out, strings.ReplaceAll(l, "*/", "*\\/"))
		}
	}
	if deprecated {
		out = append(out, "@deprecated")
	}
	return out
}

// member renders a documented property line indented for a type body.
func (e *emitter) member(p ir.Property) string {
	return docBlock(docLines(p.Description, p.Deprecated), "    ") + "    " + e.propertyLine(p)
}

// typeDoc renders the JSDoc of a type, "" when it has none.
func typeDoc(t *ir.TypeNode) string {
	return docBlock(docLines(t.Description, t.Deprecated), "")
}

// methodDoc renders the JSDoc of a generated call.
func (e *emitter) methodDoc(plan *ir.CallPlan) string {
	text := plan.Summary
	if plan.Description != "" {
		if text != "" {
			text += "\n"
		}
		text += plan.Description
	}
	lines := docLines(text, false)
	for _, p := range plan.Parameters {
		if p.Description == "" && !p.Deprecated {
			continue
		}
		line := "@param " + ident(p.Name)
		if p.Description != "" {
			line += " " + strings.ReplaceAll(strings.TrimSpace(p.Description), "\n", " ")
		}
		if p.Deprecated {
			line += " (deprecated)"
		}
		lines = append(lines, strings.ReplaceAll(line, "*/", "*\\/"))
	}
	if plan.Deprecated {
		lines = append(lines, "@deprecated")
	}
	return docBlock(lines, "    ")
}

// docBlock wraps lines in a JSDoc comment ending with a newline.
func docBlock(lines []string, indent string) string {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(indent + "/**\n")
	for _, l := range lines {
		b.WriteString(strings.TrimRight(indent+" * "+l, " ") + "\n")
	}
	b.WriteString(indent + " */\n")
	return b.String()
}

// isClass reports whether name is emitted as a class.
func (e *emitter) isClass(name string) bool {
	t, ok := e.model.Lookup(name)
	return ok && e.classStyle() && t.Kind == ir.KindObject
}

// hasFactory reports whether name has a generated NameFromJS function.
func (e *emitter) hasFactory(name string) bool {
	t, ok := e.model.Lookup(name)
	return ok && e.classStyle() && t.Kind == ir.KindUnion && t.Discriminator != nil
}

// descendant reports whether sub inherits from base, directly or not.
func (e *emitter) descendant(sub, base string) bool {
	seen := map[string]bool{}
	for t, ok := e.model.Lookup(sub); ok && !seen[t.Name]; t, ok = e.model.Lookup(t.Base) {
		seen[t.Name] = true
		if t.Base == base {
			return true
		}
	}
	return false
}

// dispatch is the discriminator switch of a class factory.
type dispatch struct {
	Property string
	Cases    []ir.DiscriminatorCase
}

// dispatchCases returns the switch delegating to the strict descendants of
// the class, nil when there are none.
func (e *emitter) dispatchCases(t *ir.TypeNode) *dispatch {
	d := e.model.DiscriminatorOf(t.Name)
	if d == nil {
		return nil
	}
	out := &dispatch{Property: d.Property}
	for _, c := range d.Cases {
		if c.Type != t.Name && e.descendant(c.Type, t.Name) && e.isClass(c.Type) {
			out.Cases = append(out.Cases, c)
		}
	}
	if len(out.Cases) == 0 {
		return nil
	}
	return out
}

// unionCases are the discriminator cases of a discriminated union with a factory.
func (e *emitter) unionCases(t *ir.TypeNode) []ir.DiscriminatorCase {
	var out []ir.DiscriminatorCase
	for _, c := range t.Discriminator.Cases {
		if e.isClass(c.Type) || e.hasFactory(c.Type) {
			out = append(out, c)
		}
	}
	return out
}

// convert returns the expression turning the parsed JSON value expr into
// instances of ref, or expr when no conversion is needed.
func (e *emitter) convert(ref *ir.TypeRef, expr string) string {
	if !e.classStyle() || ref == nil {
		return expr
	}
	if ref.Kind == ir.RefNamed && e.isClass(ref.Name) {
		return "mapJS_(" + expr + ", " + ref.Name + ".fromJS)"
	}
	fn := e.factory(ref)
	if fn == "" {
		return expr
	}
	return "(" + fn + ")(" + expr + ")"
}

// factory returns a function expression converting one value of ref, "" for none.
func (e *emitter) factory(ref *ir.TypeRef) string {
	switch ref.Kind {
	case ir.RefNamed:
		t, ok := e.model.Lookup(ref.Name)
		if !ok {
			return ""
		}
		switch {
		case e.isClass(t.Name):
			return "(v: any) => mapJS_(v, " + t.Name + ".fromJS)"
		case e.hasFactory(t.Name):
			return "(v: any) => mapJS_(v, " + t.Name + "FromJS)"
		case t.Kind == ir.KindArray:
			return e.factory(ir.ArrayOf(t.Items))
		case t.Kind == ir.KindDictionary:
			return e.factory(ir.DictionaryOf(t.Items))
		}
	case ir.RefArray:
		if item := e.factory(ref.Items); item != "" {
			return "(v: any) => mapArray_(v, " + item + ")"
		}
	case ir.RefDictionary:
		if value := e.factory(ref.Items); value != "" {
			return "(v: any) => mapValues_(v, " + value + ")"
		}
	case ir.RefUnion:
		// a flattened leaf union converts through the class owning the discriminator
		if owner := e.commonBase(ref.Members); owner != "" {
			return "(v: any) => mapJS_(v, " + owner + ".fromJS)"
		}
	}
	return ""
}

// commonBase returns the class owning the discriminator shared by every member.
func (e *emitter) commonBase(members []*ir.TypeRef) string {
	owner := ""
	for _, m := range members {
		if m.Kind != ir.RefNamed || !e.isClass(m.Name) {
			return ""
		}
		o := e.discriminatorOwner(m.Name)
		if o == "" || (owner != "" && o != owner) {
			return ""
		}
		owner = o
	}
	return owner
}

func (e *emitter) discriminatorOwner(name string) string {
	seen := map[string]bool{}
	for t, ok := e.model.Lookup(name); ok && !seen[t.Name]; t, ok = e.model.Lookup(t.Base) {
		seen[t.Name] = true
		if t.Discriminator != nil {
			return t.Name
		}
	}
	return ""
}

// conversions lists the properties of t whose values need conversion.
func (e *emitter) conversions(t *ir.TypeNode) []ir.Property {
	var out []ir.Property
	for _, p := range t.Properties {
		if e.factory(p.Type) != "" {
			out = append(out, p)
		}
	}
	return out
}

// typeNames lists emitted types for import statements, sorted.
func (e *emitter) typeNames() []string {
	names := make([]string, 0, len(e.model.Types))
	for _, t := range e.model.Types {
		names = append(names, t.Name)
		if e.hasFactory(t.Name) {
			names = append(names, t.Name+"FromJS")
		}
	}
	sort.Strings(names)
	return names
}

// param is one declared argument of a generated method.
type param struct {
	Name string
	Decl string
}

// callParams renders the arguments of the public method of plan. Optional
// arguments followed by a required one are declared "x: T | undefined"
// because TypeScript forbids a required argument after an optional one.
func (e *emitter) callParams(plan *ir.CallPlan) []param {
	trailingRequired := e.flavor == FlavorCallback
	out := make([]param, len(plan.Parameters))
	for i := len(plan.Parameters) - 1; i >= 0; i-- {
		p := plan.Parameters[i]
		name := ident(p.Name)
		typ := e.tsType(p.Type)
		var decl string
		switch {
		case p.Required:
			decl = name + ": " + typ
			trailingRequired = true
		case trailingRequired:
			decl = name + ": " + typ + " | undefined"
		case p.HasDefault && e.defaultable(p.Type):
			decl = name + ": " + typ + " = " + enumLiteral(p.Default)
		default:
			decl = name + "?: " + typ + " | undefined"
		}
		out[i] = param{Name: name, Decl: decl}
	}
	return out
}

// defaultable reports whether a default literal type-checks against ref.
func (e *emitter) defaultable(ref *ir.TypeRef) bool {
	u := e.model.Underlying(ref)
	return u != nil && u.Kind == ir.RefPrimitive && !u.IsBinary()
}

// signature is the full parameter list of the public method.
func (e *emitter) signature(plan *ir.CallPlan) string {
	var parts []string
	for _, p := range e.callParams(plan) {
		parts = append(parts, p.Decl)
	}
	if e.flavor == FlavorCallback {
		parts = append(parts, "callback: Callback<"+e.resultType(plan)+">")
	}
	if plan.Request.Cancellable {
		parts = append(parts, "signal?: AbortSignal")
	}
	return strings.Join(parts, ", ")
}

// sendSignature is the parameter list of the private send method.
func (e *emitter) sendSignature(plan *ir.CallPlan) string {
	var parts []string
	for _, p := range plan.Parameters {
		decl := ident(p.Name) + ": " + e.tsType(p.Type)
		if !p.Required {
			decl += " | undefined"
		}
		parts = append(parts, decl)
	}
	parts = append(parts, "signal: AbortSignal | undefined")
	return strings.Join(parts, ", ")
}

// sendArgs forwards the public arguments to the send method.
func (e *emitter) sendArgs(plan *ir.CallPlan, signal string) string {
	var parts []string
	for _, p := range plan.Parameters {
		parts = append(parts, ident(p.Name))
	}
	if !plan.Request.Cancellable {
		signal = "undefined"
	}
	parts = append(parts, signal)
	return strings.Join(parts, ", ")
}

func (e *emitter) resultType(plan *ir.CallPlan) string {
	return e.tsType(plan.Responses.Result)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func fieldKind(f ir.Field) string {
	enc := f.Encoding
	if enc == ir.EncodeArray {
		enc = f.ItemEncoding
	}
	switch {
	case enc == ir.EncodeBinary:
		return "binary"
	case enc == ir.EncodeObject:
		return "object"
	case f.DateOnly:
		return "date-only"
	case enc == ir.EncodeDate:
		return "date"
	}
	return "scalar"
}

func (e *emitter) fieldStatement(target string, f ir.Field, call string) string {
	stmt := fmt.Sprintf("%s(%s, %s, %s, %t, %q);", call, target, strconv.Quote(f.WireName), ident(f.Param), f.Encoding == ir.EncodeArray, fieldKind(f))
	if !strings.HasPrefix(call, "this.transport_.appendPart") {
		stmt = target + " = " + stmt
	}
	if !f.Required {
		return "if (" + ident(f.Param) + " !== undefined) " + stmt
	}
	return stmt
}

// sendLines renders the statements that build and send the request of plan.
func (e *emitter) sendLines(plan *ir.CallPlan) []string {
	req := plan.Request
	var lines []string

	var url strings.Builder
	url.WriteString("let url_ = this.baseUrl_")
	for _, part := range req.PathParts {
		if part.Param == "" {
			url.WriteString(" + " + strconv.Quote(part.Literal))
			continue
		}
		url.WriteString(" + encodeURIComponent(this.transport_.encode(" + ident(part.Param) + ", \"scalar\"))")
	}
	lines = append(lines, url.String()+";")

	if len(req.Query) > 0 {
		lines = append(lines, `url_ += "?";`)
		for _, f := range req.Query {
			lines = append(lines, e.fieldStatement("url_", f, "this.transport_.appendField"))
		}
		lines = append(lines, `url_ = url_.replace(/[?&]$/, "");`)
	}

	lines = append(lines, "const headers_: Record<string, string> = {};")
	if req.ContentType != "" {
		lines = append(lines, `headers_["Content-Type"] = `+strconv.Quote(req.ContentType)+";")
	}
	if req.Accept != "" {
		lines = append(lines, `headers_["Accept"] = `+strconv.Quote(req.Accept)+";")
	}
	for _, f := range req.Headers {
		kind := "scalar"
		if f.DateOnly {
			kind = "date-only"
		}
		stmt := "headers_[" + strconv.Quote(f.WireName) + "] = encodeURIComponent(this.transport_.encode(" + ident(f.Param) + ", " + strconv.Quote(kind) + "));"
		if !f.Required {
			stmt = "if (" + ident(f.Param) + " !== undefined) " + stmt
		}
		lines = append(lines, stmt)
	}

	body := ""
	switch req.Body.Encoding {
	case ir.BodyJSON:
		lines = append(lines, "const content_ = JSON.stringify("+ident(req.Body.Param)+");")
		body = "content_"
	case ir.BodyText, ir.BodyBinary:
		lines = append(lines, "const content_ = "+ident(req.Body.Param)+";")
		body = "content_"
	case ir.BodyForm:
		lines = append(lines, `let content_ = "";`)
		for _, f := range req.Body.Fields {
			lines = append(lines, e.fieldStatement("content_", f, "this.transport_.appendField"))
		}
		lines = append(lines, `content_ = content_.replace(/&$/, "");`)
		body = "content_"
	case ir.BodyMultipart:
		lines = append(lines, "const content_ = new FormData();")
		for _, f := range req.Body.Fields {
			lines = append(lines, e.fieldStatement("content_", f, "this.transport_.appendPart"))
		}
		body = "content_"
	}

	opts := "const options_: RequestInit = { method: " + strconv.Quote(req.Method) + ", headers: headers_"
	if body != "" {
		opts += ", body: " + body
	}
	opts += ", signal };"
	lines = append(lines, opts)
	lines = append(lines, "return this.transport_.fetch(url_, options_).then((response_) => this.process"+capitalize(plan.OperationName)+"_(response_));")
	return lines
}

// statusTest renders the condition matching one declared status.
func statusTest(m ir.StatusMatcher) string {
	switch {
	case m.Default:
		return "true"
	case m.Pattern == "":
		return "status_ === " + strconv.Itoa(m.Exact)
	}
	var re strings.Builder
	re.WriteString("/^")
	for i := 0; i < len(m.Pattern); i++ {
		if m.Pattern[i] == 'x' {
			re.WriteString(`\d`)
		} else {
			re.WriteByte(m.Pattern[i])
		}
	}
	re.WriteString("$/.test(String(status_))")
	return re.String()
}

// processLines renders the first-match dispatch over the declared responses.
func (e *emitter) processLines(plan *ir.CallPlan) []string {
	lines := []string{"const status_ = response.status;"}
	for _, c := range plan.Responses.Cases {
		lines = append(lines, "if ("+statusTest(c.Matcher)+") {")
		for _, l := range e.caseLines(plan, c) {
			lines = append(lines, "  "+l)
		}
		lines = append(lines, "}")
	}
	lines = append(lines,
		"return response.text().then((text_) => {",
		`  throw new ApiError("An unexpected server error occurred.", status_, text_);`,
		"});")
	return lines
}

func (e *emitter) caseLines(plan *ir.CallPlan, c ir.ResponseCase) []string {
	read := ""
	switch c.Decode {
	case ir.DecodeJSON:
		read = "response.text().then((text_) => { const data_ = text_ === \"\" ? null : JSON.parse(text_); return " + e.convert(c.Type, "data_") + "; })"
	case ir.DecodeText:
		read = "response.text()"
	case ir.DecodeBinary:
		read = "response.blob()"
	}

	if c.IsError {
		message := c.Description
		if message == "" {
			message = "HTTP " + c.Matcher.Code
		}
		if read == "" || c.Type == nil {
			return []string{
				"return response.text().then((text_) => {",
				"  throw new ApiError(" + strconv.Quote(message) + ", status_, text_);",
				"});",
			}
		}
		if c.Decode == ir.DecodeJSON {
			return []string{
				"return response.text().then((text_) => {",
				"  const data_ = text_ === \"\" ? null : JSON.parse(text_);",
				"  throw new ApiError<" + e.tsType(c.Type) + ">(" + strconv.Quote(message) + ", status_, text_, " + e.convert(c.Type, "data_") + ");",
				"});",
			}
		}
		return []string{
			"return response.text().then((text_) => {",
			"  throw new ApiError(" + strconv.Quote(message) + ", status_, text_);",
			"});",
		}
	}

	switch {
	case read == "" && plan.Responses.Result == nil:
		return []string{"return Promise.resolve();"}
	case read == "":
		return []string{"return Promise.resolve(null);"}
	case plan.Responses.Result == nil:
		return []string{"return " + read + ".then(() => undefined);"}
	}
	return []string{"return " + read + " as Promise<any>;"}
}

// securityOptions lists the ClientOptions fields of the declared security schemes.
func (e *emitter) securityOptions() []securityOption {
	var out []securityOption
	for _, s := range e.in.SecuritySchemes {
		key := utils.ToIdentifier(s.Key)
		switch {
		case s.Type == "http" && s.Scheme == "bearer":
			out = append(out, securityOption{Field: key, Kind: "bearer", Doc: "Bearer token for " + s.Key})
		case s.Type == "http" && s.Scheme == "basic":
			out = append(out, securityOption{Field: key, Kind: "basic", Doc: "Basic credentials for " + s.Key})
		case s.Type == "apiKey" && (s.In == "header" || s.In == "query"):
			out = append(out, securityOption{Field: key, Kind: s.In, Name: s.Name, Doc: "API key for " + s.Key})
		}
	}
	return out
}

// securityOption is one authentication option of the generated client.
type securityOption struct {
	Field string
	Kind  string
	Name  string
	Doc   string
}

// dateFormatter splits the configured hook "module#name" into its import
// and identifier. A bare name must be in scope of the generated module.
func (e *emitter) dateFormatter() (module, name string) {
	hook := e.opts.DateFormatter
	if hook == "" {
		return "", ""
	}
	if m, n, ok := strings.Cut(hook, "#"); ok {
		return m, n
	}
	return "", hook
}
