package generator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/diag"
	"github.com/blimu-dev/clientgen/pkg/generator/typescript"
	"github.com/blimu-dev/clientgen/pkg/ir"
	"github.com/blimu-dev/clientgen/pkg/openapi"
)

// Artifact is one rendered output file.
type Artifact = ir.Artifact

// Generator defines the interface for client renderers
type Generator interface {
	// GetType returns the type identifier for this generator (e.g., "typescript")
	GetType() string
	// Flavors lists the supported flavors; the first one is the default
	Flavors() []string
	// ReservedNames are identifiers an emitted type must never take
	ReservedNames() []string
	// Render renders one flavor of the client. It must be free of side effects.
	Render(client config.Client, flavor string, in *ir.IR) ([]Artifact, error)
}

// Scaffolder is implemented by generators that emit flavor independent
// package files (manifest, compiler settings, readme) once per client.
type Scaffolder interface {
	Scaffold(client config.Client, in *ir.IR) ([]Artifact, error)
}

// Registry manages available generators
type Registry struct {
	generators map[string]Generator
}

// NewRegistry creates a new generator registry
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]Generator),
	}
}

// Register adds a generator to the registry
func (r *Registry) Register(gen Generator) {
	r.generators[gen.GetType()] = gen
}

// Get retrieves a generator by type
func (r *Registry) Get(genType string) (Generator, bool) {
	gen, exists := r.generators[genType]
	return gen, exists
}

// GetAvailableTypes returns all registered generator types, sorted
func (r *Registry) GetAvailableTypes() []string {
	types := make([]string, 0, len(r.generators))
	for t := range r.generators {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// GenerateOptions contains options for client generation
type GenerateOptions struct {
	ConfigPath   string
	SingleClient string
	Fallback     FallbackOptions
}

// FallbackOptions contains fallback options when no config file is provided
type FallbackOptions struct {
	Spec        string
	Type        string
	OutDir      string
	PackageName string
	Name        string
	Flavors     []string
	IncludeTags []string
	ExcludeTags []string
}

// Result is the outcome of rendering one client.
type Result struct {
	Client    string
	Artifacts []Artifact
	Warnings  []diag.Warning
	IR        *ir.IR
}

// Service provides high-level client generation functionality
type Service struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewService creates a new generator service with default generators
func NewService() *Service {
	registry := NewRegistry()
	registry.Register(typescript.NewTypeScriptGenerator())
	return NewServiceWithRegistry(registry)
}

// NewServiceWithRegistry creates a new generator service with a custom registry
func NewServiceWithRegistry(registry *Registry) *Service {
	return &Service{
		registry: registry,
		logger:   log.Logger,
	}
}

// WithLogger returns a copy of the service logging to logger.
func (s *Service) WithLogger(logger zerolog.Logger) *Service {
	c := *s
	c.logger = logger
	return &c
}

// GetRegistry returns the generator registry
func (s *Service) GetRegistry() *Registry {
	return s.registry
}

// Render resolves doc for client and renders every configured flavor.
// Nothing is written; flavors render concurrently over the shared,
// read-only IR.
func (s *Service) Render(ctx context.Context, doc *openapi.Document, client config.Client) (*Result, error) {
	gen, ok := s.registry.Get(client.Type)
	if !ok {
		return nil, fmt.Errorf("unsupported client type: %s", client.Type)
	}
	flavors, err := selectFlavors(gen, client.Flavors)
	if err != nil {
		return nil, err
	}
	client.Flavors = flavors

	in, err := BuildIR(doc, client, gen.ReservedNames())
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", client.Name, err)
	}
	for _, w := range in.Warnings {
		s.logger.Warn().
			Str("client", client.Name).
			Str("kind", string(w.Kind)).
			Str("subject", w.Subject).
			Msg(w.Message)
	}

	rendered := make([][]Artifact, len(flavors))
	g, _ := errgroup.WithContext(ctx)
	for i, flavor := range flavors {
		i, flavor := i, flavor
		g.Go(func() error {
			artifacts, err := gen.Render(client, flavor, in)
			if err != nil {
				return fmt.Errorf("client %s flavor %s: %w", client.Name, flavor, err)
			}
			rendered[i] = artifacts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Client: client.Name, Warnings: in.Warnings, IR: in}
	if sc, ok := gen.(Scaffolder); ok {
		extra, err := sc.Scaffold(client, in)
		if err != nil {
			return nil, fmt.Errorf("client %s: %w", client.Name, err)
		}
		res.Artifacts = append(res.Artifacts, extra...)
	}
	for _, artifacts := range rendered {
		res.Artifacts = append(res.Artifacts, artifacts...)
	}
	seen := map[string]bool{}
	for _, a := range res.Artifacts {
		if seen[a.Path] {
			return nil, fmt.Errorf("client %s: artifact %s rendered twice", client.Name, a.Path)
		}
		seen[a.Path] = true
	}
	s.logger.Debug().
		Str("client", client.Name).
		Strs("flavors", flavors).
		Int("artifacts", len(res.Artifacts)).
		Int("types", len(in.Types.Types)).
		Msg("rendered client")
	return res, nil
}

func selectFlavors(gen Generator, requested []string) ([]string, error) {
	supported := gen.Flavors()
	if len(requested) == 0 {
		if len(supported) == 0 {
			return nil, fmt.Errorf("generator %s has no flavors", gen.GetType())
		}
		return supported[:1], nil
	}
	var out []string
	for _, f := range requested {
		found := false
		for _, s := range supported {
			found = found || s == f
		}
		if !found {
			return nil, &diag.Error{
				Kind:    diag.KindInvalidConfiguration,
				Subject: gen.GetType(),
				Message: fmt.Sprintf("unknown flavor %q (supported: %s)", f, strings.Join(supported, ", ")),
			}
		}
		out = appendUnique(out, f)
	}
	return out, nil
}

// Generate generates clients based on the provided options
func (s *Service) Generate(opts GenerateOptions) error {
	var cfg *config.Config
	var err error

	if opts.ConfigPath == "" {
		// Use fallback options to create a config
		if opts.Fallback.Spec == "" || opts.Fallback.Type == "" ||
			opts.Fallback.OutDir == "" || opts.Fallback.PackageName == "" ||
			opts.Fallback.Name == "" {
			return fmt.Errorf("either config path or all fallback options must be provided")
		}
		client := config.Client{
			Type:        opts.Fallback.Type,
			OutDir:      opts.Fallback.OutDir,
			PackageName: opts.Fallback.PackageName,
			Name:        opts.Fallback.Name,
			Flavors:     opts.Fallback.Flavors,
			IncludeTags: opts.Fallback.IncludeTags,
			ExcludeTags: opts.Fallback.ExcludeTags,
		}
		client.ApplyDefaults()
		if err := client.Validate(); err != nil {
			return err
		}
		cfg = &config.Config{Spec: opts.Fallback.Spec, Clients: []config.Client{client}}
	} else {
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return err
		}
	}

	return s.GenerateFromConfig(context.Background(), cfg, opts.SingleClient)
}

// GenerateFromConfig generates clients from a configuration. Every selected
// client renders before anything is written, so a failing client leaves all
// output directories untouched.
func (s *Service) GenerateFromConfig(ctx context.Context, cfg *config.Config, onlyClient string) error {
	doc, err := openapi.LoadDocument(cfg.Spec)
	if err != nil {
		return err
	}

	var clients []config.Client
	for _, client := range cfg.Clients {
		if onlyClient != "" && client.Name != onlyClient {
			continue
		}
		clients = append(clients, client)
	}
	if onlyClient != "" && len(clients) == 0 {
		return fmt.Errorf("client %q not found in config", onlyClient)
	}

	results := make([]*Result, len(clients))
	g, gctx := errgroup.WithContext(ctx)
	for i, client := range clients {
		i, client := i, client
		g.Go(func() error {
			res, err := s.Render(gctx, doc, client)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, client := range clients {
		// Ensure output directory exists before pre-commands
		if err := os.MkdirAll(client.OutDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory for client %s: %w", client.Name, err)
		}
		if err := s.executePreCommands(client); err != nil {
			return fmt.Errorf("pre-generation commands failed for client %s: %w", client.Name, err)
		}
		written, err := writeArtifacts(client, results[i].Artifacts)
		if err != nil {
			return fmt.Errorf("failed to write client %s: %w", client.Name, err)
		}
		s.logger.Info().
			Str("client", client.Name).
			Str("outDir", client.OutDir).
			Int("files", written).
			Msg("generated client")
		if err := s.executePostGenCommands(client); err != nil {
			return fmt.Errorf("post-generation commands failed for client %s: %w", client.Name, err)
		}
	}
	return nil
}

// executePreCommands executes the pre-generation command for a client
func (s *Service) executePreCommands(client config.Client) error {
	return s.executeCommand(client.PreCommand, client.OutDir, "pre-command")
}

// executePostGenCommands executes the post-generation command for a client
func (s *Service) executePostGenCommands(client config.Client) error {
	return s.executeCommand(client.PostCommand, client.OutDir, "post-command")
}

// executeCommand executes a single command in Docker Compose array format
func (s *Service) executeCommand(command []string, workDir, commandLabel string) error {
	if len(command) == 0 {
		return nil // Skip empty commands
	}

	// Create command with first element as executable and rest as arguments
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = workDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	cmdDescription := strings.Join(command, " ")
	s.logger.Debug().Str("dir", workDir).Str("command", cmdDescription).Msg("running " + commandLabel)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s (%s) failed: %w", commandLabel, cmdDescription, err)
	}
	return nil
}
