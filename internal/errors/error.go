package errors

import "fmt"

// Category represents the type of error.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryBundler  Category = "bundler"
	CategoryBytecode Category = "bytecode"
	CategoryServer   Category = "server"
	CategoryCLI      Category = "cli"
)

// SkiffError is a structured error with a stable code, detail text,
// and a fix suggestion.
type SkiffError struct {
	// Code is a unique error identifier (e.g., "E120").
	Code string

	// Category is the error type (config, bundler, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *SkiffError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *SkiffError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *SkiffError) WithDetail(d string) *SkiffError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *SkiffError) WithSuggestion(s string) *SkiffError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *SkiffError) Wrap(err error) *SkiffError {
	e.Wrapped = err
	return e
}

// Format returns the full multi-line rendering used by the CLI.
func (e *SkiffError) Format() string {
	out := e.Error()
	if e.Detail != "" {
		out += "\n  " + e.Detail
	}
	if e.Suggestion != "" {
		out += "\n  hint: " + e.Suggestion
	}
	return out
}

// New creates a SkiffError from a registered error code.
func New(code string) *SkiffError {
	template, ok := registry[code]
	if !ok {
		return &SkiffError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &SkiffError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new SkiffError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *SkiffError {
	return &SkiffError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a SkiffError.
func FromError(err error, code string) *SkiffError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*SkiffError); ok {
		return se
	}
	return New(code).Wrap(err)
}
