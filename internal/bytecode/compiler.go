// Package bytecode wraps the external alternate-runtime compiler.
//
// The compiler binary (hermesc by default) converts a bundled
// JavaScript source and its source map into engine bytecode for
// faster startup. The binary rejects concurrent invocations, so
// Compile serializes callers process-wide.
package bytecode

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/skiff-dev/skiff/internal/errors"
)

// compileMu serializes compiler invocations. The external compiler
// does not tolerate concurrent runs.
var compileMu sync.Mutex

// Compiler invokes the external bytecode compiler.
type Compiler struct {
	command string
}

// New creates a Compiler for the given binary.
func New(command string) *Compiler {
	return &Compiler{command: command}
}

// Compile converts bundled code and its source map into bytecode.
// It returns the bytecode and the bytecode source map.
func (c *Compiler) Compile(ctx context.Context, code, sourceMap string, minify bool) ([]byte, string, error) {
	compileMu.Lock()
	defer compileMu.Unlock()

	dir, err := os.MkdirTemp("", "skiff-bytecode-")
	if err != nil {
		return nil, "", errors.New("E203").Wrap(err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "bundle.js")
	outPath := filepath.Join(dir, "bundle.hbc")

	if err := os.WriteFile(inPath, []byte(code), 0644); err != nil {
		return nil, "", errors.New("E203").Wrap(err)
	}
	if sourceMap != "" {
		if err := os.WriteFile(inPath+".map", []byte(sourceMap), 0644); err != nil {
			return nil, "", errors.New("E203").Wrap(err)
		}
	}

	args := []string{"-emit-binary", "-out", outPath, inPath, "-output-source-map"}
	if minify {
		args = append(args, "-O")
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, "", errors.New("E203").
			WithDetail(stderr.String()).
			Wrap(err)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, "", errors.New("E203").Wrap(err)
	}

	// The compiler writes the map next to the binary; absent when the
	// input had no map.
	outMap, err := os.ReadFile(outPath + ".map")
	if err != nil && !os.IsNotExist(err) {
		return nil, "", errors.New("E203").Wrap(err)
	}

	return out, string(outMap), nil
}
