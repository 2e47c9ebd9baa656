package bundler

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/skiff-dev/skiff/internal/config"
	"github.com/skiff-dev/skiff/internal/errors"
)

// ProgressFunc receives transform progress while a build runs.
type ProgressFunc func(transformed, total int)

// ServerConfig configures a managed bundler subprocess.
type ServerConfig struct {
	// ProjectRoot is the project directory.
	ProjectRoot string

	// Command is the bundler binary to invoke.
	Command string

	// Entry is the default application entry point.
	Entry string

	// Port is the port the bundler's HTTP server listens on.
	Port int

	// Watch enables the bundler's file watcher. The dev server wants
	// it; batch bundling does not.
	Watch bool

	// ModuleIDSeed seeds the bundler's deterministic module-id factory.
	ModuleIDSeed uint32

	// Args are extra arguments appended to every invocation.
	Args []string

	// Env are additional environment variables.
	Env []string

	// Logger receives the bundler's own output.
	Logger zerolog.Logger
}

// ConfigFromProject derives a ServerConfig from project configuration.
func ConfigFromProject(cfg *config.Config, watch bool, logger zerolog.Logger) ServerConfig {
	return ServerConfig{
		ProjectRoot:  cfg.Dir(),
		Command:      cfg.Bundler.Command,
		Entry:        cfg.Bundler.Entry,
		Port:         cfg.Bundler.Port,
		Watch:        watch,
		ModuleIDSeed: cfg.Bundler.ModuleIDSeed,
		Args:         cfg.Bundler.Args,
		Logger:       logger,
	}
}

// Server is a managed bundler subprocess.
type Server struct {
	cfg ServerConfig

	mu        sync.Mutex
	cmd       *exec.Cmd
	waitCh    chan struct{}
	closeOnce sync.Once
}

// StartServer starts the bundler's HTTP server process.
func StartServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	args := []string{"serve", "--root", cfg.ProjectRoot, "--port", strconv.Itoa(cfg.Port)}
	if !cfg.Watch {
		args = append(args, "--no-watch")
	}
	args = append(args, cfg.Args...)

	cmd := exec.CommandContext(ctx, cfg.Command, args...)
	cmd.Dir = cfg.ProjectRoot
	cmd.Env = append(os.Environ(), cfg.Env...)
	out := &logWriter{logger: cfg.Logger}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return nil, errors.New("E201").
			WithDetail(cfg.Command + ": " + err.Error()).
			WithSuggestion("Check that the bundler named in skiff.json is installed").
			Wrap(err)
	}

	s := &Server{
		cfg:    cfg,
		cmd:    cmd,
		waitCh: make(chan struct{}),
	}
	go func() {
		cmd.Wait()
		close(s.waitCh)
	}()

	return s, nil
}

// Close terminates the bundler process. It is safe to call more than
// once; only the first call does anything.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.cmd == nil || s.cmd.Process == nil {
			return
		}

		s.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-s.waitCh:
		case <-time.After(5 * time.Second):
			s.cmd.Process.Kill()
			<-s.waitCh
		}
		s.cmd = nil
	})
	return nil
}

// Handler proxies requests to the bundler's HTTP server. This is the
// final request handler at the bottom of the dev-server middleware
// chain.
func (s *Server) Handler() http.Handler {
	target := &url.URL{
		Scheme: "http",
		Host:   "127.0.0.1:" + strconv.Itoa(s.cfg.Port),
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		http.Error(w, "bundler not responding: "+err.Error(), http.StatusBadGateway)
	}
	return proxy
}

// Build runs one per-target bundler build and returns the artifact.
// Progress callbacks fire as the bundler reports transform counts.
func (s *Server) Build(ctx context.Context, req Request, progress ProgressFunc) (*Output, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, s.cfg.Command, s.buildArgs(req)...)
	cmd.Dir = s.cfg.ProjectRoot
	cmd.Env = append(os.Environ(), s.cfg.Env...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.New("E200").Wrap(err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.New("E200").
			WithDetail(s.cfg.Command + ": " + err.Error()).
			Wrap(err)
	}

	// Progress arrives as JSON lines on stderr; anything else is
	// diagnostic output kept for the failure detail.
	var diag []string
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if transformed, total, ok := parseProgressLine(line); ok {
			if progress != nil {
				progress(transformed, total)
			}
			continue
		}
		diag = append(diag, line)
	}

	if err := cmd.Wait(); err != nil {
		return nil, errors.New("E200").
			WithDetail(strings.Join(diag, "\n")).
			Wrap(err)
	}

	out, err := parseBuildResult(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	out.Platform = req.Platform
	s.attachFileHashes(out)

	return out, nil
}

// buildArgs assembles the argument list for one build invocation.
func (s *Server) buildArgs(req Request) []string {
	entry := req.Entry
	if entry == "" {
		entry = s.cfg.Entry
	}

	args := []string{
		"build",
		"--entry-file", entry,
		"--platform", string(req.Platform),
		"--dev=" + strconv.FormatBool(req.Dev),
		"--minify=" + strconv.FormatBool(req.MinifyEnabled()),
		"--progress",
	}
	if req.SourceMapURL != "" {
		args = append(args, "--sourcemap-url", req.SourceMapURL)
	}
	if s.cfg.ModuleIDSeed != 0 {
		args = append(args, "--module-id-seed", strconv.FormatUint(uint64(s.cfg.ModuleIDSeed), 10))
	}
	return append(args, s.cfg.Args...)
}

// buildResult is the JSON document the bundler prints on stdout.
type buildResult struct {
	Code   string  `json:"code"`
	Map    string  `json:"map"`
	Assets []Asset `json:"assets"`
}

// parseBuildResult decodes the bundler's stdout document.
func parseBuildResult(data []byte) (*Output, error) {
	var res buildResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.New("E200").
			WithDetail("failed to decode bundler output: " + err.Error()).
			Wrap(err)
	}
	return &Output{
		Code:      res.Code,
		SourceMap: res.Map,
		Assets:    res.Assets,
	}, nil
}

// progressLine is one JSON progress line on the bundler's stderr.
type progressLine struct {
	Transformed *int `json:"transformed"`
	Total       *int `json:"total"`
}

// parseProgressLine decodes a stderr line as transform progress.
func parseProgressLine(line string) (transformed, total int, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return 0, 0, false
	}
	var p progressLine
	if err := json.Unmarshal([]byte(line), &p); err != nil || p.Transformed == nil || p.Total == nil {
		return 0, 0, false
	}
	return *p.Transformed, *p.Total, true
}

// attachFileHashes extends each asset with content hashes of its files
// on disk. Missing files are skipped; the bundler's own hash remains.
func (s *Server) attachFileHashes(out *Output) {
	for i := range out.Assets {
		path := out.Assets[i].Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.cfg.ProjectRoot, path)
		}
		hash, err := hashFile(path)
		if err != nil {
			continue
		}
		out.Assets[i].FileHashes = append(out.Assets[i].FileHashes, hash)
	}
}

// hashFile returns the SHA256 hash of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// logWriter forwards subprocess output to the structured logger.
type logWriter struct {
	logger zerolog.Logger
}

func (w *logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.logger.Debug().Str("source", "bundler").Msg(line)
		}
	}
	return len(p), nil
}
