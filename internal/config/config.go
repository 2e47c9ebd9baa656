package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/skiff-dev/skiff/internal/errors"
)

const (
	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "skiff.json"

	// DefaultPort is the default development server port.
	DefaultPort = 8081

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultBundlerCommand is the external bundler binary.
	DefaultBundlerCommand = "metro"

	// DefaultBytecodeCommand is the external bytecode compiler binary.
	DefaultBytecodeCommand = "hermesc"

	// DefaultExportOutput is the default export output directory.
	DefaultExportOutput = "dist"
)

// Config represents the complete skiff.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Dev contains development server configuration.
	Dev DevConfig `json:"dev,omitempty"`

	// Bundler contains external bundler configuration.
	Bundler BundlerConfig `json:"bundler,omitempty"`

	// Bytecode contains alternate-runtime compilation configuration.
	Bytecode BytecodeConfig `json:"bytecode,omitempty"`

	// Export contains artifact export configuration.
	Export ExportConfig `json:"export,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Port is the port to run the dev server on.
	Port int `json:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Static is the directory of static files served by the base
	// middleware stack, relative to the project root.
	Static string `json:"static,omitempty"`

	// WatchFolders are extra folders the bundler watches, relative to
	// the project root.
	WatchFolders []string `json:"watchFolders,omitempty"`
}

// BundlerConfig contains external bundler settings.
type BundlerConfig struct {
	// Command is the bundler binary to invoke.
	Command string `json:"command,omitempty"`

	// Entry is the default application entry point.
	Entry string `json:"entry,omitempty"`

	// Port is the port the bundler's own HTTP server listens on.
	// The dev server proxies to it; defaults to dev port + 1.
	Port int `json:"port,omitempty"`

	// ModuleIDSeed seeds the bundler's deterministic module-id factory
	// so repeated builds of the same graph assign the same ids.
	ModuleIDSeed uint32 `json:"moduleIdSeed,omitempty"`

	// Args are extra arguments appended to every bundler invocation.
	Args []string `json:"args,omitempty"`
}

// BytecodeConfig contains alternate-runtime settings.
type BytecodeConfig struct {
	// Command is the bytecode compiler binary to invoke.
	Command string `json:"command,omitempty"`

	// Platforms maps a platform name to whether its bundles are
	// compiled to the alternate bytecode format.
	Platforms map[string]bool `json:"platforms,omitempty"`
}

// ExportConfig contains artifact export settings.
type ExportConfig struct {
	// Output is the output directory for exported artifacts.
	Output string `json:"output,omitempty"`

	// Bucket is an optional S3 bucket for publishing artifacts.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the S3 key prefix for published artifacts.
	Prefix string `json:"prefix,omitempty"`

	// Region is the S3 bucket region.
	Region string `json:"region,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Dev: DevConfig{
			Port:   DefaultPort,
			Host:   DefaultHost,
			Static: "public",
		},
		Bundler: BundlerConfig{
			Command: DefaultBundlerCommand,
			Entry:   "index.js",
		},
		Bytecode: BytecodeConfig{
			Command: DefaultBytecodeCommand,
		},
		Export: ExportConfig{
			Output: DefaultExportOutput,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for skiff.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E121").
				WithDetail("No skiff.json found in " + filepath.Dir(path)).
				WithSuggestion("Create a skiff.json in the project root").
				Wrap(err)
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse skiff.json: " + err.Error()).
			WithSuggestion("Check that skiff.json is valid JSON").
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Dev.Static == "" {
		c.Dev.Static = "public"
	}
	if c.Bundler.Command == "" {
		c.Bundler.Command = DefaultBundlerCommand
	}
	if c.Bundler.Entry == "" {
		c.Bundler.Entry = "index.js"
	}
	if c.Bundler.Port == 0 {
		c.Bundler.Port = c.Dev.Port + 1
	}
	if c.Bytecode.Command == "" {
		c.Bytecode.Command = DefaultBytecodeCommand
	}
	if c.Export.Output == "" {
		c.Export.Output = DefaultExportOutput
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return errors.New("E122").
			WithDetail("dev.port must be between 0 and 65535, got " + strconv.Itoa(c.Dev.Port))
	}
	if c.Bundler.Port < 0 || c.Bundler.Port > 65535 {
		return errors.New("E122").
			WithDetail("bundler.port must be between 0 and 65535, got " + strconv.Itoa(c.Bundler.Port))
	}
	return nil
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DevURL returns the full URL for the dev server.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// BundlerURL returns the URL of the bundler's own HTTP server.
func (c *Config) BundlerURL() string {
	return "http://" + c.Dev.Host + ":" + strconv.Itoa(c.Bundler.Port)
}

// StaticPath returns the absolute path to the static files directory.
func (c *Config) StaticPath() string {
	if filepath.IsAbs(c.Dev.Static) {
		return c.Dev.Static
	}
	return filepath.Join(c.Dir(), c.Dev.Static)
}

// WatchFolderPaths returns the absolute paths of all watched folders.
func (c *Config) WatchFolderPaths() []string {
	paths := make([]string, 0, len(c.Dev.WatchFolders)+1)
	paths = append(paths, c.Dir())
	for _, f := range c.Dev.WatchFolders {
		if filepath.IsAbs(f) {
			paths = append(paths, f)
			continue
		}
		paths = append(paths, filepath.Join(c.Dir(), f))
	}
	return paths
}

// ExportPath returns the absolute path to the export output directory.
func (c *Config) ExportPath() string {
	if filepath.IsAbs(c.Export.Output) {
		return c.Export.Output
	}
	return filepath.Join(c.Dir(), c.Export.Output)
}

// BytecodeFor reports whether bundles for the platform are compiled to
// the alternate bytecode format.
func (c *Config) BytecodeFor(platform string) bool {
	return c.Bytecode.Platforms[platform]
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing skiff.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E121").
				WithDetail("No skiff.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
