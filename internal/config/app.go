package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/skiff-dev/skiff/internal/errors"
)

const (
	// AppFileName is the name of the application manifest.
	AppFileName = "app.json"

	// EngineDefault is the JavaScript engine assumed when app.json
	// declares nothing.
	EngineDefault = "jsc"

	// EngineBytecode is the engine that runs the alternate bytecode
	// format.
	EngineBytecode = "hermes"
)

// AppConfig is the subset of the app.json manifest skiff reads.
type AppConfig struct {
	// Name is the application display name.
	Name string `json:"name,omitempty"`

	// Slug is the URL-safe application identifier.
	Slug string `json:"slug,omitempty"`

	// Version is the application version.
	Version string `json:"version,omitempty"`

	// JSEngine is the declared JavaScript engine ("jsc" or "hermes").
	JSEngine string `json:"jsEngine,omitempty"`

	// IOS contains iOS-specific overrides.
	IOS AppPlatformConfig `json:"ios,omitempty"`

	// Android contains Android-specific overrides.
	Android AppPlatformConfig `json:"android,omitempty"`

	// appPath stores the path the manifest was loaded from.
	appPath string
}

// AppPlatformConfig contains per-platform manifest overrides.
type AppPlatformConfig struct {
	// JSEngine overrides the declared engine for this platform.
	JSEngine string `json:"jsEngine,omitempty"`
}

// LoadApp reads the application manifest from the project directory.
func LoadApp(dir string) (*AppConfig, error) {
	path := filepath.Join(dir, AppFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E123").
				WithDetail("No app.json found in " + dir).
				Wrap(err)
		}
		return nil, errors.New("E123").Wrap(err)
	}

	app := &AppConfig{}
	if err := json.Unmarshal(data, app); err != nil {
		return nil, errors.New("E123").
			WithDetail("Failed to parse app.json: " + err.Error()).
			WithSuggestion("Check that app.json is valid JSON").
			Wrap(err)
	}

	app.appPath = path
	return app, nil
}

// Path returns the path the manifest was loaded from.
func (a *AppConfig) Path() string {
	return a.appPath
}

// EngineFor returns the effective JavaScript engine for a platform,
// preferring the platform override over the top-level declaration.
func (a *AppConfig) EngineFor(platform string) string {
	var override string
	switch platform {
	case "ios":
		override = a.IOS.JSEngine
	case "android":
		override = a.Android.JSEngine
	}
	if override != "" {
		return override
	}
	if a.JSEngine != "" {
		return a.JSEngine
	}
	return EngineDefault
}
