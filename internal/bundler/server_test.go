package bundler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildArgs(t *testing.T) {
	s := &Server{cfg: ServerConfig{Entry: "index.js", ModuleIDSeed: 42}}

	args := s.buildArgs(Request{
		Platform:     PlatformIOS,
		Dev:          true,
		SourceMapURL: "http://localhost:8081/index.map",
	})
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"build",
		"--entry-file index.js",
		"--platform ios",
		"--dev=true",
		"--minify=false",
		"--sourcemap-url http://localhost:8081/index.map",
		"--module-id-seed 42",
		"--progress",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestBuildArgs_EntryOverride(t *testing.T) {
	s := &Server{cfg: ServerConfig{Entry: "index.js"}}

	args := s.buildArgs(Request{Entry: "other.js", Platform: PlatformWeb})
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "--entry-file other.js") {
		t.Errorf("args %q should use the request entry", joined)
	}
	if !strings.Contains(joined, "--minify=true") {
		t.Errorf("args %q should default to minify outside dev mode", joined)
	}
}

func TestParseBuildResult(t *testing.T) {
	out, err := parseBuildResult([]byte(`{
		"code": "var x=1;",
		"map": "{\"version\":3}",
		"assets": [{"path": "img/logo.png", "hash": "abc"}]
	}`))
	if err != nil {
		t.Fatalf("parseBuildResult() error = %v", err)
	}

	if out.Code != "var x=1;" {
		t.Errorf("Code = %q", out.Code)
	}
	if len(out.Assets) != 1 || out.Assets[0].Path != "img/logo.png" {
		t.Errorf("Assets = %v", out.Assets)
	}
}

func TestParseBuildResult_Malformed(t *testing.T) {
	if _, err := parseBuildResult([]byte("not json")); err == nil {
		t.Error("parseBuildResult() should fail on malformed output")
	}
}

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		line        string
		transformed int
		total       int
		ok          bool
	}{
		{`{"transformed": 5, "total": 20}`, 5, 20, true},
		{`  {"transformed": 0, "total": 0}`, 0, 0, true},
		{`warning: slow transformer`, 0, 0, false},
		{`{"somethingElse": 1}`, 0, 0, false},
		{`{broken`, 0, 0, false},
	}

	for _, tt := range tests {
		transformed, total, ok := parseProgressLine(tt.line)
		if ok != tt.ok || transformed != tt.transformed || total != tt.total {
			t.Errorf("parseProgressLine(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tt.line, transformed, total, ok, tt.transformed, tt.total, tt.ok)
		}
	}
}

func TestAttachFileHashes(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "img"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "img", "logo.png"), []byte("png-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	s := &Server{cfg: ServerConfig{ProjectRoot: root}}
	out := &Output{Assets: []Asset{
		{Path: "img/logo.png", Hash: "bundler-hash"},
		{Path: "img/missing.png"},
	}}

	s.attachFileHashes(out)

	if len(out.Assets[0].FileHashes) != 1 {
		t.Errorf("FileHashes = %v, want one hash", out.Assets[0].FileHashes)
	}
	if len(out.Assets[1].FileHashes) != 0 {
		t.Errorf("missing file should get no hashes, got %v", out.Assets[1].FileHashes)
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	h1, err := hashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := hashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("hash should be deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
}
