package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid skiff.json",
		Detail:   "The skiff.json configuration file is malformed.",
		DocURL:   "https://skiff.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Not a skiff project",
		Detail:   "The directory does not contain a skiff.json file.",
		DocURL:   "https://skiff.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		Detail:   "The configured port number is invalid.",
		DocURL:   "https://skiff.dev/docs/errors/E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid app.json",
		Detail:   "The app.json manifest is missing or malformed.",
		DocURL:   "https://skiff.dev/docs/errors/E123",
	},

	// ============================================
	// Bundler Errors (E200-E219)
	// ============================================

	"E200": {
		Category: CategoryBundler,
		Message:  "Bundler build failed",
		Detail:   "The external bundler exited with an error. Check the output for details.",
		DocURL:   "https://skiff.dev/docs/errors/E200",
	},
	"E201": {
		Category: CategoryBundler,
		Message:  "Bundler server failed to start",
		Detail:   "The external bundler process could not be started.",
		DocURL:   "https://skiff.dev/docs/errors/E201",
	},
	"E202": {
		Category: CategoryBytecode,
		Message:  "JavaScript engine mismatch",
		Detail:   "The engine declared in app.json conflicts with the per-platform bytecode setting.",
		DocURL:   "https://skiff.dev/docs/errors/E202",
	},
	"E203": {
		Category: CategoryBytecode,
		Message:  "Bytecode compilation failed",
		Detail:   "The bytecode compiler exited with an error.",
		DocURL:   "https://skiff.dev/docs/errors/E203",
	},
	"E204": {
		Category: CategoryBundler,
		Message:  "Invalid bundle platform",
		Detail:   "The requested platform is not one of ios, android, web.",
		DocURL:   "https://skiff.dev/docs/errors/E204",
	},

	// ============================================
	// Dev Server Errors (E300-E319)
	// ============================================

	"E300": {
		Category: CategoryServer,
		Message:  "Dev server failed to start",
		Detail:   "The development server could not bind to the configured address.",
		DocURL:   "https://skiff.dev/docs/errors/E300",
	},
	"E301": {
		Category: CategoryServer,
		Message:  "Inspector proxy binding unsupported",
		Detail:   "The debugging proxy exposes neither a modern nor a legacy WebSocket binding.",
		DocURL:   "https://skiff.dev/docs/errors/E301",
	},

	// ============================================
	// CLI Errors (E400-E419)
	// ============================================

	"E400": {
		Category: CategoryCLI,
		Message:  "Export failed",
		Detail:   "Bundle artifacts could not be written or uploaded.",
		DocURL:   "https://skiff.dev/docs/errors/E400",
	},
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
