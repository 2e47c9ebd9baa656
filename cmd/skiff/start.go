package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skiff-dev/skiff/internal/config"
	"github.com/skiff-dev/skiff/internal/devserver"
	"github.com/skiff-dev/skiff/internal/inspector"
)

func startCmd(verbose *bool) *cobra.Command {
	var (
		quiet      bool
		noDebugger bool
	)

	cmd := &cobra.Command{
		Use:   "start [project-dir]",
		Short: "Start the development server",
		Long: `Start the development server.

The server hosts the project's bundler, pushes live-reload messages
and bundle progress over WebSocket, and exposes the JavaScript
debugging proxy on the same port.

Examples:
  skiff start
  skiff start ./apps/demo --quiet`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runStart(dir, quiet, noDebugger, *verbose)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress transform progress events")
	cmd.Flags().BoolVar(&noDebugger, "no-debugger", false, "Skip attaching the debugging proxy")

	return cmd
}

func runStart(dir string, quiet, noDebugger, verbose bool) error {
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		return err
	}
	logger := newLogger(verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := devserver.Run(ctx, root, devserver.Options{
		Logger: logger,
		Quiet:  quiet,
	})
	if err != nil {
		return err
	}

	printBanner()
	success("Dev server running at %s", handle.URL)

	if !noDebugger {
		proxy, err := inspector.Attach(root, handle.Server, handle.Middleware, logger)
		if err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			handle.Close(shutdownCtx)
			return err
		}
		info("Debugger targets at %s/json/list (%s binding)", handle.URL, proxy.Binding())
	}
	info("Press Ctrl+C to stop")
	fmt.Println()

	select {
	case <-ctx.Done():
	case err := <-serveDone(handle):
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := handle.Close(shutdownCtx); err != nil {
		warn("Shutdown incomplete: %s", err)
		return err
	}

	success("Dev server stopped")
	return nil
}

// serveDone adapts Handle.Wait to a select-able channel.
func serveDone(handle *devserver.Handle) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- handle.Wait() }()
	return ch
}
