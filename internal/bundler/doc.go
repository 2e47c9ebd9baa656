// Package bundler orchestrates the external JavaScript bundler.
//
// skiff owns no module resolution or transformation logic; the bundler
// binary named in skiff.json does all of that. This package implements:
//
//   - Server: a managed bundler subprocess, either watching (dev
//     server) or one-shot (batch bundling), with an HTTP handler that
//     proxies to the bundler's own server
//   - Build: a single per-target build invocation with streamed
//     transform progress
//   - Bundle: the batch orchestrator — parallel target builds, a
//     shared build identifier for progress correlation, sequential
//     bytecode compilation, and guaranteed server shutdown
//
// # Bundler contract
//
// The bundler binary is invoked as:
//
//	<command> serve --root <dir> --port <n> [--no-watch]
//	<command> build --entry-file <f> --platform <p> --dev=<b> --minify=<b> ...
//
// A build prints one JSON document on stdout:
//
//	{"code": "...", "map": "...", "assets": [{"path": "...", "hash": "..."}]}
//
// and, with --progress, JSON lines on stderr:
//
//	{"transformed": 12, "total": 40}
package bundler
