package generator

import (
	"context"
	"path/filepath"

	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/openapi"
)

// Generate renders client from an already loaded document and returns the
// artifacts by path. It never touches the filesystem.
func Generate(doc *openapi.Document, client config.Client) (map[string]string, error) {
	client.ApplyDefaults()
	if err := client.Validate(); err != nil {
		return nil, err
	}
	res, err := NewService().Render(context.Background(), doc, client)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(res.Artifacts))
	for _, a := range res.Artifacts {
		out[a.Path] = string(a.Content)
	}
	return out, nil
}

// GenerateClient is a convenience function for generating clients with minimal configuration
func GenerateClient(opts GenerateClientOptions) error {
	service := NewService()

	genOpts := GenerateOptions{
		ConfigPath:   opts.ConfigPath,
		SingleClient: opts.SingleClient,
		Fallback: FallbackOptions{
			Spec:        opts.Spec,
			Type:        opts.Type,
			OutDir:      opts.OutDir,
			PackageName: opts.PackageName,
			Name:        opts.Name,
			Flavors:     opts.Flavors,
			IncludeTags: opts.IncludeTags,
			ExcludeTags: opts.ExcludeTags,
		},
	}

	return service.Generate(genOpts)
}

// GenerateClientOptions contains options for the convenience GenerateClient function
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
	Flavors     []string // Flavors to render; empty selects the generator default
	IncludeTags []string // Regex patterns for tags to include
	ExcludeTags []string // Regex patterns for tags to exclude
}

// GenerateTypeScriptClient is a convenience function specifically for TypeScript client generation
func GenerateTypeScriptClient(spec, outDir, packageName, clientName string, flavors ...string) error {
	// Ensure absolute path for outDir
	absOutDir, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}

	return GenerateClient(GenerateClientOptions{
		Spec:        spec,
		Type:        "typescript",
		OutDir:      absOutDir,
		PackageName: packageName,
		Name:        clientName,
		Flavors:     flavors,
	})
}

// GenerateFromConfig is a convenience function for generating from a config file
func GenerateFromConfig(configPath string, singleClient ...string) error {
	service := NewService()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	onlyClient := ""
	if len(singleClient) > 0 {
		onlyClient = singleClient[0]
	}

	return service.GenerateFromConfig(context.Background(), cfg, onlyClient)
}

// ValidateSpec validates an OpenAPI specification
func ValidateSpec(specPath string) error {
	return openapi.ValidateDocument(specPath)
}
