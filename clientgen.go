// Package clientgen generates TypeScript API clients from OpenAPI specifications.
//
// This package offers a simple API for common use cases. For full control
// over rendering (custom registries, in-memory rendering, warnings) use the
// generator package.
//
// Quick Start:
//
//	import "github.com/blimu-dev/clientgen"
//
//	// Generate a promise based TypeScript client
//	err := clientgen.GenerateTypeScriptClient(
//		"https://petstore3.swagger.io/api/v3/openapi.json",
//		"./generated-client",
//		"petstore-client",
//		"PetStore",
//	)
package clientgen

import (
	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/generator"
	"github.com/blimu-dev/clientgen/pkg/openapi"
)

// Generate renders client for an already loaded document and returns the
// artifacts keyed by path relative to the output directory. Nothing is
// written to disk.
//
// Example:
//
//	doc, err := openapi.LoadDocument("./openapi.yaml")
//	files, err := clientgen.Generate(doc, config.Client{
//		Type:        "typescript",
//		OutDir:      "./my-client",
//		PackageName: "my-api-client",
//		Name:        "MyApi",
//		Flavors:     []string{"promise", "callback"},
//	})
func Generate(doc *openapi.Document, client config.Client) (map[string]string, error) {
	return generator.Generate(doc, client)
}

// GenerateTypeScriptClient generates a TypeScript client with minimal
// configuration. Flavors default to "promise".
//
// Example:
//
//	err := clientgen.GenerateTypeScriptClient(
//		"./openapi.yaml",
//		"./my-client",
//		"my-api-client",
//		"MyApi",
//		"promise", "types",
//	)
func GenerateTypeScriptClient(spec, outDir, packageName, clientName string, flavors ...string) error {
	return generator.GenerateTypeScriptClient(spec, outDir, packageName, clientName, flavors...)
}

// GenerateClient generates a client with full configuration options.
//
// Example:
//
//	err := clientgen.GenerateClient(clientgen.GenerateClientOptions{
//		Spec:        "./openapi.yaml",
//		Type:        "typescript",
//		OutDir:      "./my-client",
//		PackageName: "my-api-client",
//		Name:        "MyApi",
//		Flavors:     []string{"observable"},
//		IncludeTags: []string{"users", "orders"},
//		ExcludeTags: []string{"internal"},
//	})
func GenerateClient(opts GenerateClientOptions) error {
	return generator.GenerateClient(generator.GenerateClientOptions(opts))
}

// GenerateFromConfig generates clients from a YAML configuration file.
// Optionally, you can specify a single client name to generate only that client.
//
// Example:
//
//	err := clientgen.GenerateFromConfig("./clientgen.yaml")
//	err = clientgen.GenerateFromConfig("./clientgen.yaml", "Petstore")
func GenerateFromConfig(configPath string, singleClient ...string) error {
	return generator.GenerateFromConfig(configPath, singleClient...)
}

// ValidateSpec validates an OpenAPI specification file or URL.
func ValidateSpec(specPath string) error {
	return generator.ValidateSpec(specPath)
}

// GenerateClientOptions contains options for client generation
type GenerateClientOptions struct {
	// ConfigPath is the path to the configuration file (optional)
	ConfigPath string

	// SingleClient generates only the named client from config (optional)
	SingleClient string

	// Fallback options when no config file is provided
	Spec        string   // OpenAPI spec file or URL
	Type        string   // Generator type (e.g., "typescript")
	OutDir      string   // Output directory
	PackageName string   // Package name for the generated client
	Name        string   // Client name
	Flavors     []string // Flavors to render; empty selects "promise"
	IncludeTags []string // Regex patterns for tags to include
	ExcludeTags []string // Regex patterns for tags to exclude
}
