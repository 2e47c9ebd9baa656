package inspector

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/skiff-dev/skiff/internal/devserver"
	"github.com/skiff-dev/skiff/internal/errors"
)

// binderTarget exposes the current binding capability.
type binderTarget struct {
	bound []string
}

func (t *binderTarget) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "discovery")
	})
}

func (t *binderTarget) BindWebSocket(register func(path string, handler http.Handler)) {
	t.bound = append(t.bound, devicePath, debugPath)
	register(devicePath, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "device-ws")
	}))
	register(debugPath, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "debug-ws")
	}))
}

// listerTarget exposes only the older endpoint-list capability.
type listerTarget struct{}

func (t *listerTarget) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
}

func (t *listerTarget) WebSocketEndpoints() map[string]http.Handler {
	return map[string]http.Handler{
		devicePath: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "legacy-device")
		}),
	}
}

// bareTarget exposes neither capability.
type bareTarget struct{}

func (t *bareTarget) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
}

// withTarget swaps the debug target factory for the test's duration.
func withTarget(t *testing.T, target DebugTarget) {
	t.Helper()
	orig := newDebugTarget
	newDebugTarget = func(projectRoot, serverAddr string, logger zerolog.Logger) DebugTarget {
		return target
	}
	t.Cleanup(func() { newDebugTarget = orig })
}

func TestAttach_WebSocketBinder(t *testing.T) {
	target := &binderTarget{}
	withTarget(t, target)
	stack := devserver.NewStack()

	p, err := Attach("/proj", nil, stack, zerolog.Nop())
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if p.Binding() != BindingWebSocket {
		t.Errorf("Binding = %q, want %q", p.Binding(), BindingWebSocket)
	}
	if len(target.bound) == 0 {
		t.Error("target should have been asked to bind its handlers")
	}
	if stack.Len() != 1 {
		t.Errorf("stack length = %d, want the proxy middleware prepended", stack.Len())
	}
}

func TestAttach_EndpointLister(t *testing.T) {
	withTarget(t, &listerTarget{})
	stack := devserver.NewStack()

	p, err := Attach("/proj", nil, stack, zerolog.Nop())
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if p.Binding() != BindingEndpoints {
		t.Errorf("Binding = %q, want %q", p.Binding(), BindingEndpoints)
	}

	rec := httptest.NewRecorder()
	stack.Handler(http.NotFoundHandler()).
		ServeHTTP(rec, httptest.NewRequest("GET", devicePath, nil))
	if rec.Body.String() != "legacy-device" {
		t.Errorf("device endpoint body = %q", rec.Body.String())
	}
}

func TestAttach_UnsupportedTarget(t *testing.T) {
	withTarget(t, &bareTarget{})

	_, err := Attach("/proj", nil, devserver.NewStack(), zerolog.Nop())
	if err == nil {
		t.Fatal("Attach() should fail for a target with no binding capability")
	}
	se, ok := err.(*errors.SkiffError)
	if !ok || se.Code != "E301" {
		t.Errorf("error = %v, want E301", err)
	}
}

func TestMiddleware_Routing(t *testing.T) {
	withTarget(t, &binderTarget{})
	stack := devserver.NewStack()
	if _, err := Attach("/proj", nil, stack, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "bundler")
	})
	chain := stack.Handler(next)

	tests := []struct {
		path string
		want string
	}{
		{devicePath, "device-ws"},
		{debugPath, "debug-ws"},
		{"/json/list", "discovery"},
		{"/json", "discovery"},
		{"/index.bundle", "bundler"},
		{"/jsonish", "bundler"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
		if rec.Body.String() != tt.want {
			t.Errorf("GET %s = %q, want %q", tt.path, rec.Body.String(), tt.want)
		}
	}
}

func TestAttach_PrependsAheadOfExistingMiddleware(t *testing.T) {
	withTarget(t, &binderTarget{})

	var order []string
	stack := devserver.NewStack(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "base")
			next.ServeHTTP(w, r)
		})
	})
	if _, err := Attach("/proj", nil, stack, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	stack.Handler(http.NotFoundHandler()).
		ServeHTTP(rec, httptest.NewRequest("GET", devicePath, nil))

	if rec.Body.String() != "device-ws" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if len(order) != 0 {
		t.Error("inspector traffic should never reach the base middleware")
	}
}
