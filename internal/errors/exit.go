package errors

import "errors"

// Process exit codes.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitValidationError indicates invalid input: config, manifest or template.
	ExitValidationError = 2

	// ExitConnectivityError indicates the release registry could not be reached.
	ExitConnectivityError = 3

	// ExitNotFound indicates a release, template or file was not found.
	ExitNotFound = 5

	// ExitDriftDetected indicates the vendored asset tree differs from the canonical one.
	ExitDriftDetected = 7

	// ExitDependencyBlocked indicates a template is missing required dependencies.
	ExitDependencyBlocked = 8
)

// ExitCodeName returns the name of the exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitSuccess:
		return "Success"
	case ExitGeneralError:
		return "General Error"
	case ExitValidationError:
		return "Validation Error"
	case ExitConnectivityError:
		return "Connectivity Error"
	case ExitNotFound:
		return "Not Found"
	case ExitDriftDetected:
		return "Drift Detected"
	case ExitDependencyBlocked:
		return "Dependency Blocked"
	default:
		return "Unknown"
	}
}

// ExitCodeFromError determines the exit code for an error.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, ErrDependencyBlocked):
		return ExitDependencyBlocked
	case errors.Is(err, ErrDrift):
		return ExitDriftDetected
	case errors.Is(err, ErrValidation), errors.Is(err, ErrRenderParse),
		errors.Is(err, ErrIncompatible), errors.Is(err, ErrBaselineCorrupt):
		return ExitValidationError
	case errors.Is(err, ErrConnectivity):
		return ExitConnectivityError
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	default:
		return ExitGeneralError
	}
}

// WithExitCode wraps err in an ExitError carrying its derived exit code.
func WithExitCode(err error, printed bool) error {
	if err == nil {
		return nil
	}
	return &ExitError{Err: err, Code: ExitCodeFromError(err), Printed: printed}
}
