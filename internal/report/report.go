// Package report carries structured progress events from bundling
// orchestration to local loggers and connected dev-server clients.
//
// A Reporter is constructed with its initial sinks and gains the
// dev-server event socket later through Bind, once the socket exists.
// Emission after Bind reaches every sink.
package report

import (
	"sync"

	"github.com/rs/zerolog"
)

// Type discriminates progress events.
type Type string

const (
	// TypeBuildStarted is emitted once before each target build.
	TypeBuildStarted Type = "bundle_build_started"

	// TypeTransformProgressed carries transformed/total file counts
	// while a build is running.
	TypeTransformProgressed Type = "bundle_transform_progressed"

	// TypeBuildDone is emitted once after each target build.
	TypeBuildDone Type = "bundle_build_done"
)

// Event is a single progress report, tagged with the build it belongs to.
type Event struct {
	Type Type `json:"type"`

	// BuildID correlates events from one bundling invocation.
	BuildID string `json:"buildID"`

	// Platform is the bundle target the event refers to.
	Platform string `json:"platform,omitempty"`

	// TransformedFileCount and TotalFileCount are set on
	// bundle_transform_progressed events.
	TransformedFileCount int `json:"transformedFileCount,omitempty"`
	TotalFileCount       int `json:"totalFileCount,omitempty"`
}

// Sink receives emitted events.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit implements Sink.
func (f SinkFunc) Emit(ev Event) { f(ev) }

// Reporter fans events out to its sinks.
type Reporter struct {
	mu    sync.RWMutex
	sinks []Sink
	quiet bool
}

// New creates a Reporter with the given initial sinks.
// When quiet is set, bundle_transform_progressed events are dropped;
// started/done events always pass through.
func New(quiet bool, sinks ...Sink) *Reporter {
	return &Reporter{sinks: sinks, quiet: quiet}
}

// Bind attaches an additional sink. Used by the dev server to route
// events to the events socket once it is listening.
func (r *Reporter) Bind(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Quiet reports whether transform-progress events are suppressed.
func (r *Reporter) Quiet() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.quiet
}

// Emit delivers the event to every bound sink.
func (r *Reporter) Emit(ev Event) {
	r.mu.RLock()
	quiet := r.quiet
	sinks := make([]Sink, len(r.sinks))
	copy(sinks, r.sinks)
	r.mu.RUnlock()

	if quiet && ev.Type == TypeTransformProgressed {
		return
	}

	for _, s := range sinks {
		s.Emit(ev)
	}
}

// LogSink writes events to a structured logger.
func LogSink(logger zerolog.Logger) Sink {
	return SinkFunc(func(ev Event) {
		e := logger.Info().
			Str("type", string(ev.Type)).
			Str("buildID", ev.BuildID)
		if ev.Platform != "" {
			e = e.Str("platform", ev.Platform)
		}
		if ev.Type == TypeTransformProgressed {
			e = e.Int("transformed", ev.TransformedFileCount).
				Int("total", ev.TotalFileCount)
		}
		e.Msg("bundle progress")
	})
}
