package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skiff-dev/skiff/internal/bundler"
	"github.com/skiff-dev/skiff/internal/config"
	"github.com/skiff-dev/skiff/internal/report"
)

func bundleCmd(verbose *bool) *cobra.Command {
	var (
		platforms    []string
		entry        string
		dev          bool
		minify       bool
		sourceMapURL string
		quiet        bool
	)

	cmd := &cobra.Command{
		Use:   "bundle [project-dir]",
		Short: "Build bundles for one or more platforms",
		Long: `Build bundles for one or more platforms.

Platforms build in parallel. For platforms configured to use the
alternate JavaScript runtime, the bundle is additionally compiled to
bytecode after an engine-consistency check against app.json.

Examples:
  skiff bundle
  skiff bundle --platform ios --platform android --dev
  skiff bundle --platform android --minify=false`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			var minifyFlag *bool
			if cmd.Flags().Changed("minify") {
				minifyFlag = &minify
			}
			_, err := runBundle(cmd.Context(), dir, platforms, entry, dev, minifyFlag, sourceMapURL, quiet, *verbose)
			return err
		},
	}

	cmd.Flags().StringArrayVarP(&platforms, "platform", "p", []string{"ios"}, "Target platform (repeatable)")
	cmd.Flags().StringVar(&entry, "entry", "", "Entry point (default from skiff.json)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Development-mode bundle")
	cmd.Flags().BoolVar(&minify, "minify", false, "Minify output (default: minify unless --dev)")
	cmd.Flags().StringVar(&sourceMapURL, "sourcemap-url", "", "Source map URL embedded in the bundle")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress transform progress output")

	return cmd
}

func runBundle(ctx context.Context, dir string, platforms []string, entry string, dev bool, minify *bool, sourceMapURL string, quiet, verbose bool) ([]*bundler.Output, error) {
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		return nil, err
	}
	logger := newLogger(verbose)

	app, err := loadAppIfPresent(root)
	if err != nil {
		return nil, err
	}

	reqs := make([]bundler.Request, 0, len(platforms))
	for _, platform := range platforms {
		reqs = append(reqs, bundler.Request{
			Entry:        entry,
			Platform:     bundler.Platform(platform),
			Dev:          dev,
			Minify:       minify,
			SourceMapURL: sourceMapURL,
		})
	}

	outputs, err := bundler.Bundle(ctx, root, app, bundler.Options{
		Logger:   logger,
		Reporter: report.New(quiet, report.LogSink(logger)),
	}, reqs)
	if err != nil {
		return nil, err
	}

	for _, out := range outputs {
		if out.HasBytecode() {
			success("%s: %d bytes (%d bytes bytecode), %d assets",
				out.Platform, len(out.Code), len(out.Bytecode), len(out.Assets))
			continue
		}
		success("%s: %d bytes, %d assets", out.Platform, len(out.Code), len(out.Assets))
	}
	return outputs, nil
}

// loadAppIfPresent reads app.json when the project has one. Projects
// without an app manifest can still bundle; bytecode platforms will
// fail the engine-consistency check downstream.
func loadAppIfPresent(root string) (*config.AppConfig, error) {
	if _, err := os.Stat(filepath.Join(root, config.AppFileName)); os.IsNotExist(err) {
		return nil, nil
	}
	return config.LoadApp(root)
}
