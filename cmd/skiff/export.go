package main

import (
	"github.com/spf13/cobra"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/skiff-dev/skiff/internal/config"
	"github.com/skiff-dev/skiff/internal/publish"
)

func exportCmd(verbose *bool) *cobra.Command {
	var (
		platforms []string
		dev       bool
		output    string
		bucket    string
		prefix    string
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "export [project-dir]",
		Short: "Bundle and export artifacts",
		Long: `Bundle the project and export the artifacts.

Bundles, source maps, bytecode, and hashed assets are written to the
dist directory together with a manifest. When a bucket is configured
(--bucket or export.bucket in skiff.json) the dist directory is also
uploaded to S3.

Examples:
  skiff export
  skiff export --platform ios --platform android
  skiff export --bucket my-artifacts --prefix builds/42`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runExport(cmd, dir, platforms, dev, output, bucket, prefix, quiet, *verbose)
		},
	}

	cmd.Flags().StringArrayVarP(&platforms, "platform", "p", []string{"ios", "android"}, "Target platform (repeatable)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Development-mode bundles")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from skiff.json)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket to upload to (default from skiff.json)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "S3 key prefix (default from skiff.json)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress transform progress output")

	return cmd
}

func runExport(cmd *cobra.Command, dir string, platforms []string, dev bool, output, bucket, prefix string, quiet, verbose bool) error {
	ctx := cmd.Context()

	root, err := config.FindProjectRoot(dir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	outputs, err := runBundle(ctx, root, platforms, "", dev, nil, "", quiet, verbose)
	if err != nil {
		return err
	}

	dist := output
	if dist == "" {
		dist = cfg.ExportPath()
	}
	if _, err := publish.WriteDist(dist, root, cfg.Name, outputs); err != nil {
		return err
	}
	success("Exported %d platform(s) to %s", len(outputs), dist)

	if bucket == "" {
		bucket = cfg.Export.Bucket
	}
	if prefix == "" {
		prefix = cfg.Export.Prefix
	}
	if bucket == "" {
		return nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Export.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Export.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return err
	}

	uploader := publish.NewUploader(s3.NewFromConfig(awsCfg), bucket, prefix, newLogger(verbose))
	if err := uploader.Upload(ctx, dist); err != nil {
		return err
	}
	success("Uploaded to s3://%s/%s", bucket, prefix)

	return nil
}
