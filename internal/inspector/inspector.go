package inspector

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/skiff-dev/skiff/internal/devserver"
	"github.com/skiff-dev/skiff/internal/errors"
)

// DebugTarget is the debugging proxy object scoped to one project. It
// serves debugger discovery requests over plain HTTP and exposes
// exactly one of the two WebSocket binding capabilities below.
type DebugTarget interface {
	// Handler serves the proxy's HTTP endpoints (discovery, version).
	Handler() http.Handler
}

// WebSocketBinder is the current binding capability: the target
// registers its own upgrade handlers through the provided registrar.
type WebSocketBinder interface {
	BindWebSocket(register func(path string, handler http.Handler))
}

// EndpointLister is the older binding capability: the target only
// lists its upgrade handlers and the caller wires them in.
type EndpointLister interface {
	WebSocketEndpoints() map[string]http.Handler
}

// Binding identifies which capability the target was bound through.
type Binding string

const (
	// BindingWebSocket means the target registered its own handlers.
	BindingWebSocket Binding = "websocket"

	// BindingEndpoints means the handlers came from an endpoint list.
	BindingEndpoints Binding = "endpoints"
)

// newDebugTarget constructs the debugging proxy for a project. Tests
// swap it out to exercise both binding capabilities.
var newDebugTarget = func(projectRoot, serverAddr string, logger zerolog.Logger) DebugTarget {
	return newProxyTarget(projectRoot, serverAddr, logger)
}

// Proxy is an attached debugging proxy.
type Proxy struct {
	target  DebugTarget
	binding Binding
	mux     *http.ServeMux
	logger  zerolog.Logger
}

// Target returns the underlying debug target.
func (p *Proxy) Target() DebugTarget { return p.target }

// Binding returns the capability the target was bound through.
func (p *Proxy) Binding() Binding { return p.binding }

// Attach builds the debugging proxy for the project and inserts it
// into the dev server: WebSocket upgrade handlers are bound onto the
// existing server (no new listener) and the proxy's request handler is
// prepended to the middleware chain so it runs ahead of the bundler.
//
// The target's binding capability is resolved here, once. A target
// exposing neither capability is an error.
func Attach(projectRoot string, server *http.Server, middleware *devserver.Stack, logger zerolog.Logger) (*Proxy, error) {
	addr := ""
	if server != nil {
		addr = server.Addr
	}
	target := newDebugTarget(projectRoot, addr, logger)

	p := &Proxy{
		target: target,
		mux:    http.NewServeMux(),
		logger: logger,
	}

	switch t := target.(type) {
	case WebSocketBinder:
		p.binding = BindingWebSocket
		t.BindWebSocket(func(path string, handler http.Handler) {
			p.mux.Handle(path, handler)
		})
	case EndpointLister:
		p.binding = BindingEndpoints
		for path, handler := range t.WebSocketEndpoints() {
			p.mux.Handle(path, handler)
		}
	default:
		return nil, errors.New("E301").
			WithDetail("debug target exposes neither a WebSocket binder nor an endpoint list").
			WithSuggestion("Update the debugging proxy to a supported version")
	}

	middleware.Prepend(p.middleware())
	logger.Debug().Str("binding", string(p.binding)).Msg("inspector proxy attached")

	return p, nil
}

// middleware routes inspector traffic to the proxy and passes
// everything else down the chain.
func (p *Proxy) middleware() devserver.Middleware {
	httpHandler := p.target.Handler()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasPrefix(r.URL.Path, "/inspector/"):
				p.mux.ServeHTTP(w, r)
			case r.URL.Path == "/json" || strings.HasPrefix(r.URL.Path, "/json/"):
				httpHandler.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
