package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Naming strategies for (client, operation) name assignment.
const (
	NamingOperationID  = "operation-id"
	NamingPathSegments = "path-segments"
	NamingTag          = "tag"
	NamingSingleClient = "single-client"
)

// Operation name sources used by the tag and single-client strategies.
const (
	SourceOperationID = "operation-id"
	SourcePath        = "path"
)

// FlavorTypes is the flavor emitting only the shared type declarations.
// Client flavors import from it, so its declarations must be exported.
const FlavorTypes = "types"

// Type emission styles.
const (
	StyleInterface = "interface"
	StyleClass     = "class"
)

// Config represents the complete configuration for client generation
type Config struct {
	Spec    string   `yaml:"spec"`
	Name    string   `yaml:"name"`
	Clients []Client `yaml:"clients"`
}

// Client represents configuration for one generated client package.
// One package may be emitted in several flavors; each flavor is one artifact.
type Client struct {
	Type        string   `yaml:"type"`
	OutDir      string   `yaml:"outDir"`
	PackageName string   `yaml:"packageName"`
	Name        string   `yaml:"name"`
	Flavors     []string `yaml:"flavors"`
	IncludeTags []string `yaml:"includeTags"`
	ExcludeTags []string `yaml:"excludeTags"`
	// PreCommand is an optional command to run in OutDir before generation starts.
	// Uses Docker Compose array format: ["npm", "ci"]
	PreCommand []string `yaml:"preCommand"`
	// PostCommand is an optional command to run in OutDir after the artifacts are written.
	PostCommand []string `yaml:"postCommand"`
	// DefaultBaseURL is used by generated clients constructed without a base URL
	DefaultBaseURL string `yaml:"defaultBaseURL"`
	// ExcludeFiles lists artifact paths (relative to OutDir) that must not be written
	ExcludeFiles []string `yaml:"exclude"`

	Generation Generation `yaml:",inline"`
}

// Generation holds every option the resolution and rendering core recognizes.
type Generation struct {
	Naming Naming `yaml:"naming"`
	// ClientNameTemplate builds the emitted client unit name; {name} is the resolved client name.
	ClientNameTemplate string `yaml:"clientNameTemplate"`
	// ReorderParameters moves optional parameters after required ones (stable partition).
	ReorderParameters bool `yaml:"reorderParameters"`
	// ParameterDefaults attaches schema defaults to optional parameters.
	ParameterDefaults bool `yaml:"parameterDefaults"`
	// UseLeafType replaces discriminated base types by the union of their leaf subtypes.
	UseLeafType bool `yaml:"useLeafType"`
	// ExportTypes emits the export keyword on every type.
	ExportTypes *bool `yaml:"exportTypes"`
	// TypeStyle is "interface" or "class".
	TypeStyle string `yaml:"typeStyle"`
	// ReadOnlyProperties marks every emitted property read-only.
	ReadOnlyProperties bool `yaml:"readOnlyProperties"`
	// ContentTypes overrides media type negotiation order.
	ContentTypes ContentTypes `yaml:"contentTypes"`
	// DateFormatter names the hook used to format date values on the wire.
	// Empty means the generated runtime helper is used.
	DateFormatter string `yaml:"dateFormatter"`
	// NullValue is written for null query, header and form values.
	NullValue string `yaml:"nullValue"`
	// Cancellation adds an optional cancellation handle to every call.
	Cancellation bool `yaml:"cancellation"`
	// ExcludeDeprecated drops deprecated operations.
	ExcludeDeprecated bool `yaml:"excludeDeprecated"`
	// ExcludePaths drops operations whose path matches any of these regular expressions.
	ExcludePaths []string `yaml:"excludePaths"`
	// TypeMappings maps "type" or "type:format" to a target type name.
	TypeMappings map[string]string `yaml:"typeMappings"`
	// ArrayType is the generic array type name; empty selects the T[] form.
	ArrayType *string `yaml:"arrayType"`
	// DictionaryType is the generic dictionary type name; empty selects an index signature.
	DictionaryType *string `yaml:"dictionaryType"`
	// AnyType is the placeholder for free-form schemas.
	AnyType string `yaml:"anyType"`
	// BinaryType is the placeholder for binary payloads.
	BinaryType string `yaml:"binaryType"`
	// ReservedNames can never be used for an emitted type.
	ReservedNames []string `yaml:"reservedNames"`
}

// Naming selects and tunes the operation naming strategy.
type Naming struct {
	Strategy string `yaml:"strategy"`
	// Separator splits the operation id into client and operation parts.
	Separator string `yaml:"separator"`
	// ClientSegment is the index of the non-parameter path segment used as client name.
	ClientSegment int `yaml:"clientSegment"`
	// MethodSuffix appends the HTTP method to path derived operation names.
	MethodSuffix *bool `yaml:"methodSuffix"`
	// OperationSource is "operation-id" or "path" for the tag and single-client strategies.
	OperationSource string `yaml:"operationSource"`
	// SingleClientName names the client in single-client mode.
	SingleClientName string `yaml:"singleClientName"`
}

// ContentTypes lists preferred media types, most preferred first.
type ContentTypes struct {
	Request  []string `yaml:"request"`
	Response []string `yaml:"response"`
}

// DefaultRequestContentTypes is the negotiation order used when none is configured.
var DefaultRequestContentTypes = []string{
	"application/json",
	"multipart/form-data",
	"application/x-www-form-urlencoded",
}

// DefaultResponseContentTypes is the response negotiation order used when none is configured.
var DefaultResponseContentTypes = []string{
	"application/json",
}

// DefaultTypeMappings maps OpenAPI type/format pairs to TypeScript type names.
func DefaultTypeMappings() map[string]string {
	return map[string]string{
		"integer":          "number",
		"number":           "number",
		"boolean":          "boolean",
		"string":           "string",
		"string:date":      "string",
		"string:date-time": "string",
		"string:uuid":      "string",
		"string:byte":      "string",
		"string:binary":    "Blob",
	}
}

// ApplyDefaults fills every unset option with its default.
func (c *Client) ApplyDefaults() {
	g := &c.Generation
	if g.Naming.Strategy == "" {
		g.Naming.Strategy = NamingTag
	}
	if g.Naming.Separator == "" {
		g.Naming.Separator = "_"
	}
	if g.Naming.MethodSuffix == nil {
		g.Naming.MethodSuffix = boolPtr(true)
	}
	if g.Naming.OperationSource == "" {
		g.Naming.OperationSource = SourceOperationID
	}
	if g.Naming.SingleClientName == "" {
		g.Naming.SingleClientName = c.Name
	}
	if g.ClientNameTemplate == "" {
		g.ClientNameTemplate = "{name}Client"
	}
	if g.ExportTypes == nil {
		g.ExportTypes = boolPtr(true)
	}
	if g.TypeStyle == "" {
		g.TypeStyle = StyleInterface
	}
	if len(g.ContentTypes.Request) == 0 {
		g.ContentTypes.Request = append([]string(nil), DefaultRequestContentTypes...)
	}
	if len(g.ContentTypes.Response) == 0 {
		g.ContentTypes.Response = append([]string(nil), DefaultResponseContentTypes...)
	}
	mappings := DefaultTypeMappings()
	for k, v := range g.TypeMappings {
		mappings[k] = v
	}
	g.TypeMappings = mappings
	if g.ArrayType == nil {
		g.ArrayType = strPtr("Array")
	}
	if g.DictionaryType == nil {
		g.DictionaryType = strPtr("")
	}
	if g.AnyType == "" {
		g.AnyType = "any"
	}
	if g.BinaryType == "" {
		g.BinaryType = g.TypeMappings["string:binary"]
	}
}

// Validate rejects option values the core cannot apply.
func (c *Client) Validate() error {
	g := c.Generation
	switch g.Naming.Strategy {
	case NamingOperationID, NamingPathSegments, NamingTag, NamingSingleClient:
	default:
		return fmt.Errorf("unknown naming strategy %q", g.Naming.Strategy)
	}
	switch g.Naming.OperationSource {
	case SourceOperationID, SourcePath:
	default:
		return fmt.Errorf("unknown naming operationSource %q", g.Naming.OperationSource)
	}
	switch g.TypeStyle {
	case StyleInterface, StyleClass:
	default:
		return fmt.Errorf("unknown typeStyle %q", g.TypeStyle)
	}
	if g.Naming.ClientSegment < 0 {
		return fmt.Errorf("naming.clientSegment must not be negative")
	}
	if !strings.Contains(g.ClientNameTemplate, "{name}") {
		return fmt.Errorf("clientNameTemplate %q must contain {name}", g.ClientNameTemplate)
	}
	if !g.ExportTypesEnabled() {
		for _, f := range c.Flavors {
			if f == FlavorTypes {
				return fmt.Errorf("the %q flavor requires exportTypes", FlavorTypes)
			}
		}
	}
	for _, p := range g.ExcludePaths {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid excludePaths pattern %q: %w", p, err)
		}
	}
	return nil
}

// ExportTypesEnabled reports the effective export switch.
func (g Generation) ExportTypesEnabled() bool {
	return g.ExportTypes == nil || *g.ExportTypes
}

// MethodSuffixEnabled reports the effective method-suffix switch.
func (n Naming) MethodSuffixEnabled() bool {
	return n.MethodSuffix == nil || *n.MethodSuffix
}

// ClientUnitName applies ClientNameTemplate to a resolved client name.
func (g Generation) ClientUnitName(name string) string {
	tmpl := g.ClientNameTemplate
	if tmpl == "" {
		tmpl = "{name}Client"
	}
	return strings.ReplaceAll(tmpl, "{name}", name)
}

// ShouldExcludeFile checks if a file path should be excluded based on the ExcludeFiles list.
// targetPath should be an absolute path, and the comparison is done relative to OutDir.
func (c *Client) ShouldExcludeFile(targetPath string) bool {
	if len(c.ExcludeFiles) == 0 {
		return false
	}

	relPath, err := filepath.Rel(c.OutDir, targetPath)
	if err != nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)
	if relPath == "." {
		relPath = ""
	}

	for _, excludePattern := range c.ExcludeFiles {
		normalizedExclude := filepath.ToSlash(excludePattern)
		if relPath == normalizedExclude {
			return true
		}
		// "src/" excludes everything below src
		if normalizedExclude != "" && strings.HasPrefix(relPath, strings.TrimSuffix(normalizedExclude, "/")+"/") {
			return true
		}
	}
	return false
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Spec == "" {
		return nil, errors.New("config.spec is required")
	}
	for i := range cfg.Clients {
		c := &cfg.Clients[i]
		if c.Type == "" || c.OutDir == "" || c.PackageName == "" || c.Name == "" {
			return nil, fmt.Errorf("clients[%d] missing required fields (type, outDir, packageName, name)", i)
		}
		c.ApplyDefaults()
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("clients[%d]: %w", i, err)
		}
		if !filepath.IsAbs(c.OutDir) {
			abs, _ := filepath.Abs(c.OutDir)
			c.OutDir = abs
		}
	}
	// Do not absolutize when spec is an HTTP(S) URL
	if u, err := url.Parse(cfg.Spec); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return &cfg, nil
	}
	if !filepath.IsAbs(cfg.Spec) {
		abs, _ := filepath.Abs(cfg.Spec)
		cfg.Spec = abs
	}
	return &cfg, nil
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }
