package bundler

import "github.com/skiff-dev/skiff/internal/errors"

// Platform is a bundle target platform.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return true
	}
	return false
}

// Request describes one requested bundle artifact.
// A Request is immutable once constructed.
type Request struct {
	// Entry is the application entry point. Empty means the entry
	// from skiff.json.
	Entry string

	// Platform is the target platform.
	Platform Platform

	// Dev enables development mode.
	Dev bool

	// Minify overrides minification. Nil means the default:
	// minify when not in dev mode.
	Minify *bool

	// SourceMapURL is the sourceMappingURL embedded in the bundle.
	SourceMapURL string
}

// MinifyEnabled resolves the effective minify flag.
func (r Request) MinifyEnabled() bool {
	if r.Minify != nil {
		return *r.Minify
	}
	return !r.Dev
}

// Validate checks the request for a known platform.
func (r Request) Validate() error {
	if !r.Platform.Valid() {
		return errors.New("E204").
			WithDetail("unknown platform " + string(r.Platform))
	}
	return nil
}

// Asset describes one asset referenced by a bundle.
type Asset struct {
	// Path is the asset path relative to the project root.
	Path string `json:"path"`

	// Hash is the content hash reported by the bundler.
	Hash string `json:"hash,omitempty"`

	// FileHashes are content hashes of the asset's files on disk,
	// attached after the bundler returns.
	FileHashes []string `json:"fileHashes,omitempty"`
}

// Output is one finished bundle artifact.
//
// Bytecode and BytecodeSourceMap are set if and only if the target's
// platform is configured for the alternate runtime in skiff.json.
type Output struct {
	// Platform is the target platform this output was built for.
	Platform Platform `json:"platform"`

	// Code is the bundled JavaScript.
	Code string `json:"-"`

	// SourceMap is the bundle's source map.
	SourceMap string `json:"-"`

	// Assets lists the assets referenced by the bundle.
	Assets []Asset `json:"assets,omitempty"`

	// Bytecode is the compiled alternate-runtime bytecode.
	Bytecode []byte `json:"-"`

	// BytecodeSourceMap is the bytecode's source map.
	BytecodeSourceMap string `json:"-"`
}

// HasBytecode reports whether the output carries compiled bytecode.
func (o *Output) HasBytecode() bool {
	return len(o.Bytecode) > 0
}
