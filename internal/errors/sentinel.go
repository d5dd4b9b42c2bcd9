package errors

import "errors"

// Sentinel errors for known conditions.
var (
	// ErrValidation indicates a config or document validation failure.
	ErrValidation = errors.New("validation error")

	// ErrConnectivity indicates a network connectivity issue.
	ErrConnectivity = errors.New("connectivity error")

	// ErrNotFound indicates a release, template, or file was not found.
	ErrNotFound = errors.New("not found")

	// ErrResolution indicates a release could not be resolved. Always recovered
	// by the asset store fallback chain, never fatal on its own.
	ErrResolution = errors.New("release resolution failed")

	// ErrIncompatible indicates a template record is not selectable.
	ErrIncompatible = errors.New("incompatible template")

	// ErrDependencyBlocked indicates a required dashboard dependency is missing
	// and no bypass was given.
	ErrDependencyBlocked = errors.New("dependency blocked")

	// ErrRenderParse indicates a view failed to render or violated the
	// single-view output shape.
	ErrRenderParse = errors.New("render parse failure")

	// ErrDrift indicates the vendored tree differs from the canonical tree.
	ErrDrift = errors.New("drift detected")

	// ErrBaselineCorrupt indicates the vendored baseline bundle itself is
	// missing or invalid. This is a packaging defect and is fatal.
	ErrBaselineCorrupt = errors.New("vendored baseline corrupt")
)
