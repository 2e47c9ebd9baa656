package devserver

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// Stack is an ordered middleware chain. The first middleware in the
// stack is the outermost: it sees each request first.
type Stack struct {
	mu  sync.Mutex
	mws []Middleware
}

// NewStack creates a stack with the given middleware, outermost first.
func NewStack(mws ...Middleware) *Stack {
	return &Stack{mws: mws}
}

// Use appends middleware to the chain, innermost so far.
func (s *Stack) Use(mw Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mws = append(s.mws, mw)
}

// Prepend inserts middleware at the front of the chain so it runs
// before everything already registered.
func (s *Stack) Prepend(mw Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mws = append([]Middleware{mw}, s.mws...)
}

// Len returns the number of registered middleware.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mws)
}

// Handler composes the chain around a final handler.
func (s *Stack) Handler(final http.Handler) http.Handler {
	s.mu.Lock()
	mws := make([]Middleware, len(s.mws))
	copy(mws, s.mws)
	s.mu.Unlock()

	h := final
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RequestLogger logs each request through the structured logger.
func RequestLogger(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// StaticFiles serves files from dir when they exist, otherwise passes
// the request through.
func StaticFiles(dir string) Middleware {
	fs := http.FileServer(http.Dir(dir))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				next.ServeHTTP(w, r)
				return
			}
			fs.ServeHTTP(w, r)
		})
	}
}

// statusPath answers watch-folder queries from dev clients.
const statusPath = "/_skiff/status"

// WatchFolders exposes the project root and watched folders on the
// status endpoint and tags every response with the project root.
func WatchFolders(root string, folders []string) Middleware {
	body, _ := json.Marshal(map[string]any{
		"root":         root,
		"watchFolders": folders,
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Skiff-Project", root)
			if r.URL.Path == statusPath {
				w.Header().Set("Content-Type", "application/json")
				w.Write(body)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
