// Package errors provides coded, user-facing errors for the skiff CLI.
//
// Every error surfaced to a developer carries a stable code (e.g. "E202")
// that maps to a registered template with a short message, an optional
// longer detail, and a fix suggestion. Errors wrap their underlying cause
// so errors.Is/As keep working across the orchestration layers.
//
//	return errors.New("E120").
//	    WithDetail("failed to parse skiff.json: " + err.Error()).
//	    WithSuggestion("Check that skiff.json is valid JSON").
//	    Wrap(err)
package errors
