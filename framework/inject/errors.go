package inject

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the registry, container and router.
var (
	// ErrSymbolNotFound is returned when a name resolves to nothing.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrInvalidRecipe is returned when a binding's concrete cannot be built.
	ErrInvalidRecipe = errors.New("invalid recipe")

	// ErrMethodNotFound is returned when a handler names a missing member.
	ErrMethodNotFound = errors.New("method not found")

	// ErrBuildFailure is matched by every *BuildError.
	ErrBuildFailure = errors.New("build failure")

	// ErrArgumentShape is returned by constructors that reject the shape of
	// the arguments they were given. It triggers argument degradation.
	ErrArgumentShape = errors.New("argument shape mismatch")

	// ErrCircularDependency is returned when a key is resolved while it is
	// already being built further up the same resolution.
	ErrCircularDependency = errors.New("circular dependency")
)

// BuildError reports that a constructor could not produce an instance.
type BuildError struct {
	Type     string
	Attempts int
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s failed after %d attempt(s): %v", e.Type, e.Attempts, e.Err)
}

// Unwrap exposes both ErrBuildFailure and the original cause.
func (e *BuildError) Unwrap() []error { return []error{ErrBuildFailure, e.Err} }

// ShapeError wraps msg as an ErrArgumentShape for use inside constructors.
//
//	if !args.Keyed() {
//	    return nil, inject.ShapeError("Home wants keyed args")
//	}
func ShapeError(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrArgumentShape, fmt.Sprintf(format, a...))
}
