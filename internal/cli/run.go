// Package cli holds the command handlers behind the clientgen binary.
package cli

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/blimu-dev/clientgen/internal/watch"
	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/generator"
	"github.com/blimu-dev/clientgen/pkg/openapi"
)

type FallbackParams struct {
	Spec        string
	Type        string
	OutDir      string
	PackageName string
	Name        string
	Flavors     []string
	IncludeTags []string
	ExcludeTags []string
}

type RunGenerateParams struct {
	ConfigPath   string
	SingleClient string
	Fallback     FallbackParams
	// Watch keeps regenerating whenever the OpenAPI document or config file changes.
	Watch bool
}

func RunValidate(input string) error {
	return openapi.ValidateDocument(input)
}

func RunGenerate(ctx context.Context, logger zerolog.Logger, p RunGenerateParams) error {
	opts, err := generateOptions(p)
	if err != nil {
		return err
	}
	service := generator.NewService().WithLogger(logger)

	if err := service.Generate(opts); err != nil {
		if !p.Watch {
			return err
		}
		logger.Error().Err(err).Msg("generation failed")
	}
	if !p.Watch {
		return nil
	}

	files, err := watchedFiles(opts)
	if err != nil {
		return err
	}
	fw, err := watch.NewFileWatcher(files, watch.DefaultDebounce, func(context.Context) error {
		return service.Generate(opts)
	})
	if err != nil {
		return err
	}
	defer fw.Close()
	fw.WithLogger(logger)

	logger.Info().Strs("files", files).Msg("watching for changes")
	if err := fw.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func generateOptions(p RunGenerateParams) (generator.GenerateOptions, error) {
	opts := generator.GenerateOptions{ConfigPath: p.ConfigPath, SingleClient: p.SingleClient}
	if p.ConfigPath != "" {
		return opts, nil
	}
	f := p.Fallback
	if f.Spec == "" || f.Type == "" || f.OutDir == "" || f.PackageName == "" || f.Name == "" {
		return opts, errors.New("either --config or all of --input, --type, --out, --package-name, --client-name must be provided")
	}
	opts.Fallback = generator.FallbackOptions{
		Spec:        f.Spec,
		Type:        f.Type,
		OutDir:      absPath(f.OutDir),
		PackageName: f.PackageName,
		Name:        f.Name,
		Flavors:     f.Flavors,
		IncludeTags: f.IncludeTags,
		ExcludeTags: f.ExcludeTags,
	}
	return opts, nil
}

// watchedFiles lists the inputs a regeneration depends on.
func watchedFiles(opts generator.GenerateOptions) ([]string, error) {
	if opts.ConfigPath == "" {
		return []string{opts.Fallback.Spec}, nil
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return []string{opts.ConfigPath, cfg.Spec}, nil
}

func absPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	abs, _ := filepath.Abs(p)
	return abs
}
