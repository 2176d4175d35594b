package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/blimu-dev/clientgen/internal/cli"
)

func main() {
	var logLevel string

	root := &cobra.Command{
		Use:           "clientgen",
		Short:         "Generate TypeScript API clients from OpenAPI specs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newValidateCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("clientgen failed")
		stop()
		os.Exit(1)
	}
}

func newGenerateCmd() *cobra.Command {
	var configPath string
	var singleClient string
	var input string
	var typ string
	var outDir string
	var packageName string
	var name string
	var flavors []string
	var includeTags []string
	var excludeTags []string
	var watchInputs bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate API clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunGenerate(cmd.Context(), log.Logger, cli.RunGenerateParams{
				ConfigPath:   configPath,
				SingleClient: singleClient,
				Fallback: cli.FallbackParams{
					Spec:        input,
					Type:        typ,
					OutDir:      outDir,
					PackageName: packageName,
					Name:        name,
					Flavors:     flavors,
					IncludeTags: includeTags,
					ExcludeTags: excludeTags,
				},
				Watch: watchInputs,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to clientgen.yaml config")
	cmd.Flags().StringVar(&singleClient, "client", "", "Generate only the named client from config")
	// Fallback single-client flags
	cmd.Flags().StringVar(&input, "input", "", "OpenAPI spec file or URL (yaml/json)")
	cmd.Flags().StringVar(&typ, "type", "typescript", "Client type")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory")
	cmd.Flags().StringVar(&packageName, "package-name", "", "Package name")
	cmd.Flags().StringVar(&name, "client-name", "", "Client name")
	cmd.Flags().StringArrayVar(&flavors, "flavor", nil, "Flavors to render (promise, observable, callback, types)")
	cmd.Flags().StringArrayVar(&includeTags, "include-tags", nil, "Regex patterns for tags to include")
	cmd.Flags().StringArrayVar(&excludeTags, "exclude-tags", nil, "Regex patterns for tags to exclude")
	cmd.Flags().BoolVarP(&watchInputs, "watch", "w", false, "Regenerate when the OpenAPI document or config changes")

	return cmd
}

func newValidateCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an OpenAPI spec",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.RunValidate(input); err != nil {
				return err
			}
			log.Info().Str("input", input).Msg("spec is valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "OpenAPI spec file or URL (yaml/json)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
