package archive

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrFormatNotRecognized is returned by Open when no registered driver
	// recognizes the container signature.
	ErrFormatNotRecognized = errors.New("format not recognized")

	// ErrEntryNotFound is returned when a logical path is not in the index.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrCorruptEntry is returned when an entry payload cannot be decoded.
	ErrCorruptEntry = errors.New("corrupt entry")

	// ErrCorruptArchive is returned by Open when the index itself is invalid.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrRegistrySealed is returned when registering a driver after the
	// registry has been used.
	ErrRegistrySealed = errors.New("driver registry sealed")

	// ErrClosed is returned when reading from a closed archive.
	ErrClosed = errors.New("archive closed")
)

// FormatError reports an archive no driver could open.
type FormatError struct {
	Name string
	// Hint names a generic format recognized for the stream, if any.
	Hint string
}

func (e *FormatError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (detected %s, no game archive driver)", e.Name, ErrFormatNotRecognized, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Name, ErrFormatNotRecognized)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormatNotRecognized
}

// NotFoundError reports a missing logical path.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, ErrEntryNotFound)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrEntryNotFound
}

// CorruptEntryError reports an entry whose payload failed to decode.
type CorruptEntryError struct {
	Path   string
	Driver string
	Err    error
}

func (e *CorruptEntryError) Error() string {
	return fmt.Sprintf("%s (%s): %s: %v", e.Path, e.Driver, ErrCorruptEntry, e.Err)
}

func (e *CorruptEntryError) Unwrap() error {
	return e.Err
}

func (e *CorruptEntryError) Is(target error) bool {
	return target == ErrCorruptEntry
}

// IsNotFound reports whether err means a missing entry. Callers use it to
// treat optional assets as absent rather than failing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound)
}
