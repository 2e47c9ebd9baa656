package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/skiff-dev/skiff/internal/errors"
)

func writeApp(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, AppFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadApp(t *testing.T) {
	dir := t.TempDir()
	writeApp(t, dir, `{"name": "Demo", "slug": "demo", "jsEngine": "hermes"}`)

	app, err := LoadApp(dir)
	if err != nil {
		t.Fatalf("LoadApp() error = %v", err)
	}

	if app.Name != "Demo" {
		t.Errorf("Name = %q, want %q", app.Name, "Demo")
	}
	if app.JSEngine != "hermes" {
		t.Errorf("JSEngine = %q, want %q", app.JSEngine, "hermes")
	}
	if app.Path() != filepath.Join(dir, AppFileName) {
		t.Errorf("Path() = %q", app.Path())
	}
}

func TestLoadApp_Missing(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadApp(dir)
	if err == nil {
		t.Fatal("LoadApp() should fail when app.json is absent")
	}
	if se, ok := err.(*errors.SkiffError); !ok || se.Code != "E123" {
		t.Errorf("error = %v, want E123", err)
	}
}

func TestAppConfig_EngineFor(t *testing.T) {
	tests := []struct {
		name     string
		app      AppConfig
		platform string
		want     string
	}{
		{"default", AppConfig{}, "ios", EngineDefault},
		{"top-level", AppConfig{JSEngine: "hermes"}, "android", "hermes"},
		{"ios override", AppConfig{JSEngine: "jsc", IOS: AppPlatformConfig{JSEngine: "hermes"}}, "ios", "hermes"},
		{"android override", AppConfig{JSEngine: "hermes", Android: AppPlatformConfig{JSEngine: "jsc"}}, "android", "jsc"},
		{"web ignores overrides", AppConfig{JSEngine: "hermes", IOS: AppPlatformConfig{JSEngine: "jsc"}}, "web", "hermes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.app.EngineFor(tt.platform); got != tt.want {
				t.Errorf("EngineFor(%q) = %q, want %q", tt.platform, got, tt.want)
			}
		})
	}
}
