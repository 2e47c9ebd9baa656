package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔═╗╦╔═╦╔═╗╔═╗
  ╚═╗╠╩╗║╠╣ ╠╣
  ╚═╝╩ ╩╩╚  ╚
`

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "skiff",
		Short: "The development workflow for JavaScript mobile apps",
		Long: `Skiff wraps your project's JavaScript toolchain into one workflow.

It drives an external bundler, an optional bytecode compiler, and the
platform simulator so you don't have to:

  • Development server with live-reload and progress sockets
  • Multi-platform bundling with deterministic module ids
  • Bytecode compilation for alternate JavaScript runtimes
  • Browser debugging through an inspector proxy
  • Artifact export to a dist directory or an S3 bucket`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	// Add commands
	rootCmd.AddCommand(
		iosCmd(&verbose),
		startCmd(&verbose),
		bundleCmd(&verbose),
		exportCmd(&verbose),
		versionCmd(),
	)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// newLogger builds the structured logger shared by all commands.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}).Level(level).With().Timestamp().Logger()
}

// printBanner prints the Skiff ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
