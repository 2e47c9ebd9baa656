package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skiff-dev/skiff/internal/simulator"
)

func iosCmd(verbose *bool) *cobra.Command {
	var (
		offline        bool
		nonInteractive bool
	)

	cmd := &cobra.Command{
		Use:   "ios [project-dir]",
		Short: "Open the project in the iOS simulator",
		Long: `Open the project in the iOS simulator.

The project directory is handed to the simulator tooling as-is and the
command waits for it to finish. A tooling failure fails the command.

Examples:
  skiff ios
  skiff ios ./apps/demo --offline`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			return runIOS(cmd.Context(), dir, offline, nonInteractive, *verbose)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip network access in the simulator tooling")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Disable interactive prompts")

	return cmd
}

func runIOS(ctx context.Context, dir string, offline, nonInteractive, verbose bool) error {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	launcher := simulator.New(newLogger(verbose))
	if err := launcher.Open(ctx, dir, simulator.OpenOptions{
		Offline:        offline,
		NonInteractive: nonInteractive,
	}); err != nil {
		return err
	}

	success("Opened %s in the simulator", dir)
	return nil
}
