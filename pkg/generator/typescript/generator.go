package typescript

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/ir"
)

//go:embed templates/*
var templatesFS embed.FS

// Flavors of the TypeScript renderer.
const (
	FlavorPromise    = "promise"
	FlavorObservable = "observable"
	FlavorCallback   = "callback"
	FlavorTypes      = "types"
)

// artifactPaths maps each flavor to its output file.
var artifactPaths = map[string]string{
	FlavorPromise:    "src/client.ts",
	FlavorObservable: "src/client.rx.ts",
	FlavorCallback:   "src/client.callback.ts",
	FlavorTypes:      "src/types.ts",
}

// TypeScriptGenerator implements the Generator interface for TypeScript
type TypeScriptGenerator struct{}

// NewTypeScriptGenerator creates a new TypeScript generator
func NewTypeScriptGenerator() *TypeScriptGenerator {
	return &TypeScriptGenerator{}
}

// GetType returns the generator type identifier
func (g *TypeScriptGenerator) GetType() string {
	return "typescript"
}

// Flavors returns the supported flavors, promise first.
func (g *TypeScriptGenerator) Flavors() []string {
	return []string{FlavorPromise, FlavorObservable, FlavorCallback, FlavorTypes}
}

// ReservedNames returns the globals and runtime names emitted types must avoid.
func (g *TypeScriptGenerator) ReservedNames() []string {
	return append([]string(nil), builtinTypes...)
}

// Render renders one flavor of client into a single artifact.
func (g *TypeScriptGenerator) Render(client config.Client, flavor string, in *ir.IR) ([]ir.Artifact, error) {
	path, ok := artifactPaths[flavor]
	if !ok {
		return nil, fmt.Errorf("typescript: unknown flavor %q", flavor)
	}
	e := newEmitter(client, flavor, in)
	name := "client.ts.gotmpl"
	if flavor == FlavorTypes {
		name = "types.ts.gotmpl"
	}
	content, err := renderTemplate(name, e.funcMap(), e.data())
	if err != nil {
		return nil, err
	}
	return []ir.Artifact{{Path: path, Content: content}}, nil
}

// Scaffold renders the package files shared by every flavor.
func (g *TypeScriptGenerator) Scaffold(client config.Client, in *ir.IR) ([]ir.Artifact, error) {
	e := newEmitter(client, "", in)
	files := []struct{ template, path string }{
		{"package.json.gotmpl", "package.json"},
		{"tsconfig.json.gotmpl", "tsconfig.json"},
		{"index.ts.gotmpl", "src/index.ts"},
		{"README.md.gotmpl", "README.md"},
	}
	funcMap := e.funcMap()
	data := e.data()
	out := make([]ir.Artifact, 0, len(files))
	for _, f := range files {
		content, err := renderTemplate(f.template, funcMap, data)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.Artifact{Path: f.path, Content: content})
	}
	return out, nil
}

// renderTemplate renders a template with the shared partials into memory
func renderTemplate(templateName string, funcMap template.FuncMap, data map[string]any) ([]byte, error) {
	tmpl, err := template.New(templateName).Funcs(funcMap).ParseFS(templatesFS, "templates/*.gotmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, templateName, data); err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.Bytes(), nil
}

func (e *emitter) has(flavor string) bool {
	for _, f := range e.client.Flavors {
		if f == flavor {
			return true
		}
	}
	return false
}

// importsTypes reports whether a client flavor imports its types from the
// types artifact instead of declaring them.
func (e *emitter) importsTypes() bool {
	return e.flavor != FlavorTypes && e.has(FlavorTypes) && e.opts.ExportTypesEnabled()
}

// entryFlavor is the client flavor re-exported by the package index.
func (e *emitter) entryFlavor() string {
	for _, f := range e.client.Flavors {
		if f != FlavorTypes {
			return f
		}
	}
	return ""
}

func (e *emitter) defaultBaseURL() string {
	if e.client.DefaultBaseURL != "" {
		return e.client.DefaultBaseURL
	}
	return e.in.BaseURL
}

func (e *emitter) data() map[string]any {
	module, formatter := e.dateFormatter()
	entry := ""
	if f := e.entryFlavor(); f != "" {
		entry = strings.TrimSuffix(strings.TrimPrefix(artifactPaths[f], "src/"), ".ts")
	}
	return map[string]any{
		"Client":         e.client,
		"IR":             e.in,
		"Flavor":         e.flavor,
		"Types":          e.orderedTypes(),
		"ClassStyle":     e.classStyle(),
		"ImportTypes":    e.importsTypes(),
		"HasTypes":       e.has(FlavorTypes) && e.opts.ExportTypesEnabled(),
		"Observable":     e.has(FlavorObservable),
		"Entry":          entry,
		"BaseURL":        e.defaultBaseURL(),
		"NullValue":      e.opts.NullValue,
		"DateModule":     module,
		"DateFormatter":  formatter,
		"Security":       e.securityOptions(),
		"Export":         e.exportKeyword(),
		"TypeNames":      e.typeNames(),
	}
}

// orderedTypes lists types in declaration order; classes need their base first.
func (e *emitter) orderedTypes() []*ir.TypeNode {
	if e.classStyle() {
		return e.model.BaseFirst()
	}
	return e.model.Types
}

func (e *emitter) funcMap() template.FuncMap {
	funcMap := template.FuncMap{
		"capitalize":      capitalize,
		"methodName":      methodName,
		"quotePropName":   quotePropName,
		"tsType":          e.tsType,
		"propertyLine":    e.propertyLine,
		"indexSignature":  e.indexSignature,
		"enumLiteral":     enumLiteral,
		"member":          e.member,
		"typeDoc":         typeDoc,
		"methodDoc":       e.methodDoc,
		"isClass":         e.isClass,
		"hasFactory":      e.hasFactory,
		"conversions":     e.conversions,
		"convert":         e.convert,
		"dispatchCases":   e.dispatchCases,
		"unionCases":      e.unionCases,
		"caseFactory":     e.caseFactory,
		"signature":       e.signature,
		"sendSignature":   e.sendSignature,
		"sendArgs":        e.sendArgs,
		"resultType":      e.resultType,
		"sendLines":       e.sendLines,
		"processLines":    e.processLines,
		"quote":           strconv.Quote,
		"anyType":         func() string { return e.opts.AnyType },
		"arrayRef":        func(t *ir.TypeNode) *ir.TypeRef { return ir.ArrayOf(t.Items) },
		"dictionaryRef":   func(t *ir.TypeNode) *ir.TypeRef { return ir.DictionaryOf(t.Items) },
		"enumAsUnion":     func(t *ir.TypeNode) bool { return t.EnumBase == "boolean" || len(t.Enum) == 0 },
		"enumLiteralList": e.enumLiteralList,
		"exampleCall":     e.exampleCall,
	}
	// Merge sprig functions without shadowing ours
	for k, v := range sprig.TxtFuncMap() {
		if _, exists := funcMap[k]; !exists {
			funcMap[k] = v
		}
	}
	return funcMap
}

// caseFactory names the converter of one discriminator case.
func (e *emitter) caseFactory(c ir.DiscriminatorCase) string {
	if e.hasFactory(c.Type) {
		return c.Type + "FromJS"
	}
	return c.Type + ".fromJS"
}

func (e *emitter) enumLiteralList(t *ir.TypeNode) string {
	parts := make([]string, 0, len(t.Enum))
	for _, v := range t.Enum {
		parts = append(parts, enumLiteral(v.Value))
	}
	if len(parts) == 0 {
		return e.opts.AnyType
	}
	return strings.Join(parts, " | ")
}

// exampleCall renders a usage line for the README.
func (e *emitter) exampleCall() string {
	for _, u := range e.in.Clients {
		for _, plan := range u.Plans {
			var args []string
			for _, p := range plan.Parameters {
				if p.Required {
					args = append(args, ident(p.Name))
				}
			}
			return fmt.Sprintf("const api = new %s({ baseUrl: %q });\nconst result = await api.%s(%s);",
				u.UnitName, e.defaultBaseURL(), methodName(plan), strings.Join(args, ", "))
		}
	}
	return ""
}
