package transform

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedTransform is returned when no stage converts the source
	// object to the target.
	ErrUnsupportedTransform = errors.New("unsupported transform")

	// ErrPipelineSealed is returned by Register once Transform was called.
	ErrPipelineSealed = errors.New("transform pipeline sealed")
)

// UnsupportedTransformError reports a source and target no stage handles.
type UnsupportedTransformError struct {
	Path   string
	Source string
	Target Target
}

func (e *UnsupportedTransformError) Error() string {
	return fmt.Sprintf("%s: %s from %s to %s", e.Path, ErrUnsupportedTransform, e.Source, e.Target)
}

func (e *UnsupportedTransformError) Is(target error) bool {
	return target == ErrUnsupportedTransform
}

// TransformError wraps a stage failure, including failures of nested
// loads, keeping the cause chain.
type TransformError struct {
	Stage  string
	Target Target
	Path   string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s to %s (stage %s): %v", e.Path, e.Target, e.Stage, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}
