// Package simulator opens a project in the platform device simulator
// by delegating to the external simulator-control tool.
package simulator

import (
	"context"
	"os"
	"os/exec"

	"github.com/rs/zerolog"
)

// DefaultCommand is the external simulator-control binary.
const DefaultCommand = "skiff-simctl"

// Launcher opens projects in the device simulator.
type Launcher struct {
	command string
	logger  zerolog.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithCommand overrides the simulator-control binary.
func WithCommand(command string) Option {
	return func(l *Launcher) { l.command = command }
}

// New creates a simulator launcher.
func New(logger zerolog.Logger, opts ...Option) *Launcher {
	l := &Launcher{
		command: DefaultCommand,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OpenOptions control one launch.
type OpenOptions struct {
	// Offline skips network access in the external tool.
	Offline bool

	// NonInteractive disables the external tool's prompts.
	NonInteractive bool
}

// Open forwards the project directory to the external tool and waits
// for it to finish. The tool's failure is returned as-is; there are no
// retries and no timeout beyond what ctx imposes.
func (l *Launcher) Open(ctx context.Context, projectDir string, opts OpenOptions) error {
	args := []string{"open", projectDir}
	if opts.Offline {
		args = append(args, "--offline")
	}
	if opts.NonInteractive {
		args = append(args, "--non-interactive")
	}

	l.logger.Debug().Str("dir", projectDir).Str("command", l.command).Msg("opening simulator")

	cmd := exec.CommandContext(ctx, l.command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
