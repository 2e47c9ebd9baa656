// Package inspector attaches a JavaScript debugging proxy to a running
// dev server.
//
// The proxy pairs on-device JavaScript runtimes with browser debugger
// frontends over WebSocket and answers Chrome DevTools discovery
// requests (/json/list). It creates no listener of its own: its
// handlers are prepended to the dev server's middleware chain so they
// intercept inspector traffic ahead of the bundler proxy.
//
// The external proxy surface has changed across versions, so a target
// may expose one of two mutually exclusive binding capabilities. The
// capability is resolved once, at attach time, never per request.
package inspector
