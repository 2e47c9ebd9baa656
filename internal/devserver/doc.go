// Package devserver stands up the development HTTP server.
//
// The server hosts the external bundler behind a composable middleware
// chain and adds two WebSocket endpoints:
//
//   - /_skiff/message: named broadcast messages to connected clients
//   - /_skiff/events: live bundle progress events
//
// Request flow: an optional bundler-supplied middleware enhancer runs
// first, then the base stack (request logging, static files,
// watch-folder status), then the bundler's own HTTP handler.
//
// Startup is all-or-nothing: a config, bundler, or bind failure leaves
// no partial server listening.
package devserver
