package factory

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrConstructionFailed is the condition of every construction error.
	ErrConstructionFailed = errors.New("construction failed")

	// ErrNoConstructor is the cause when neither an extension constructor
	// nor a fallback is registered.
	ErrNoConstructor = errors.New("no constructor registered")

	// ErrNilObject is the cause when a constructor returns neither an object
	// nor an error.
	ErrNilObject = errors.New("constructor returned no object")

	// ErrRegistrySealed is returned by Register once Construct was called.
	ErrRegistrySealed = errors.New("constructor registry sealed")
)

// ConstructionError reports a failed construction with the path, extension
// and constructor involved.
type ConstructionError struct {
	Path string
	Ext  string
	Name string
	Err  error
}

func (e *ConstructionError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s for %s (ext %q): %v", ErrConstructionFailed, e.Path, e.Ext, e.Err)
	}
	return fmt.Sprintf("%s for %s (ext %q, constructor %s): %v", ErrConstructionFailed, e.Path, e.Ext, e.Name, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

func (e *ConstructionError) Is(target error) bool {
	return target == ErrConstructionFailed
}
