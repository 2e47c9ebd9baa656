package devserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/skiff-dev/skiff/internal/bundler"
	"github.com/skiff-dev/skiff/internal/config"
	"github.com/skiff-dev/skiff/internal/errors"
	"github.com/skiff-dev/skiff/internal/report"
)

const (
	messagePath = "/_skiff/message"
	eventsPath  = "/_skiff/events"
	metricsPath = "/metrics"
)

// Options configures a dev server run.
type Options struct {
	// Logger is the structured logger for the server and its bundler.
	Logger zerolog.Logger

	// Quiet suppresses transform progress events.
	Quiet bool

	// Reporter receives bundle progress events. When nil a reporter is
	// created that logs through Logger.
	Reporter *report.Reporter

	// Enhance, when set, wraps the whole middleware chain. It runs
	// before the base stack and the bundler handler.
	Enhance Middleware
}

// bundlerServer is the part of the managed bundler the dev server uses.
type bundlerServer interface {
	Handler() http.Handler
	Close() error
}

// startBundler launches the bundler subprocess. Tests swap it out.
var startBundler = func(ctx context.Context, cfg bundler.ServerConfig) (bundlerServer, error) {
	return bundler.StartServer(ctx, cfg)
}

// Handle is a running dev server.
type Handle struct {
	// Server is the HTTP server accepting requests.
	Server *http.Server

	// Middleware is the base stack the requests flow through. More
	// middleware can be prepended while the server runs; the chain is
	// recomposed per request.
	Middleware *Stack

	// MessageSocket broadcasts named messages to connected clients.
	MessageSocket *MessageSocket

	// Reporter forwards bundle progress to connected event clients.
	Reporter *report.Reporter

	// URL is the address clients connect to.
	URL string

	logger   zerolog.Logger
	bundler  bundlerServer
	events   *eventSocket
	listener net.Listener
	serveErr chan error
}

// Run loads the project configuration, starts the bundler, composes
// the middleware chain, and begins serving. Any failure during startup
// tears down what was already started and returns the error.
func Run(ctx context.Context, projectRoot string, opts Options) (*Handle, error) {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return nil, err
	}

	reporter := opts.Reporter
	if reporter == nil {
		reporter = report.New(opts.Quiet, report.LogSink(opts.Logger))
	}

	bsrv, err := startBundler(ctx, bundler.ConfigFromProject(cfg, true, opts.Logger))
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := newMetrics(reg)

	stack := NewStack(
		countRequests(m),
		RequestLogger(opts.Logger),
		StaticFiles(cfg.StaticPath()),
		WatchFolders(cfg.Dir(), cfg.WatchFolderPaths()),
	)

	msg := &MessageSocket{hub: newHub("message", opts.Logger, m)}
	events := &eventSocket{hub: newHub("events", opts.Logger, m)}

	h := &Handle{
		Middleware:    stack,
		MessageSocket: msg,
		Reporter:      reporter,
		URL:           cfg.DevURL(),
		logger:        opts.Logger,
		bundler:       bsrv,
		events:        events,
		serveErr:      make(chan error, 1),
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.Recoverer)
	router.Handle(messagePath, msg.handler())
	router.Handle(eventsPath, events.handler())
	router.Handle(metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	// The chain is recomposed per request so middleware prepended
	// after startup takes effect.
	router.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chain := stack.Handler(bsrv.Handler())
		if opts.Enhance != nil {
			chain = opts.Enhance(chain)
		}
		chain.ServeHTTP(w, r)
	}))

	ln, err := net.Listen("tcp", cfg.DevAddress())
	if err != nil {
		bsrv.Close()
		return nil, errors.New("E300").
			WithDetail("cannot listen on " + cfg.DevAddress() + ": " + err.Error()).
			WithSuggestion("Is another dev server already running? Set dev.port in skiff.json").
			Wrap(err)
	}
	h.listener = ln

	h.Server = &http.Server{
		Addr:              cfg.DevAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := h.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.serveErr <- err
		}
		close(h.serveErr)
	}()

	// Attach only after the listener is up so events never race a
	// failed startup.
	reporter.Bind(events)

	opts.Logger.Info().
		Str("url", h.URL).
		Str("bundler", cfg.Bundler.Command).
		Msg("dev server running")

	return h, nil
}

// Wait blocks until the server stops serving and returns the serve
// error, if any.
func (h *Handle) Wait() error {
	return <-h.serveErr
}

// Close shuts the server down: HTTP listener first so no new requests
// reach a dead bundler, then the sockets, then the bundler process.
func (h *Handle) Close(ctx context.Context) error {
	var first error

	if h.Server != nil {
		if err := h.Server.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	h.MessageSocket.hub.close()
	h.events.hub.close()
	if err := h.bundler.Close(); err != nil && first == nil {
		first = err
	}

	h.logger.Info().Msg("dev server stopped")
	return first
}
