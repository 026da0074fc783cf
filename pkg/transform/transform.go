// Package transform converts constructed objects into engine neutral
// models.
package transform

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/crazy-max/unpak/pkg/factory"
	"github.com/crazy-max/unpak/pkg/resolve"
	"github.com/pkg/errors"
)

// Target is a destination representation.
type Target string

const (
	TargetTexturedMesh     Target = "textured-mesh"
	TargetUnknownFileModel Target = "unknown-file-model"
	TargetTable            Target = "table"
)

// Targets lists the known targets.
var Targets = []Target{TargetTexturedMesh, TargetUnknownFileModel, TargetTable}

// Env materializes nested assets during a transform. Implementations must
// be reentrant: stages call it while other reads run on the same archive.
type Env interface {
	Materialize(ctx context.Context, path string, kind resolve.Kind, want factory.Capability) (factory.Object, error)
}

// Stage converts some objects to some targets. CanTransform must not have
// side effects.
type Stage interface {
	Name() string
	CanTransform(src factory.Object, target Target) bool
	Transform(ctx context.Context, env Env, src factory.Object, target Target) (factory.Object, error)
}

// Pipeline selects the first registered stage able to handle a source and
// target. Register is for the setup phase; the first Transform seals it.
type Pipeline struct {
	mu     sync.Mutex
	stages []Stage
	sealed atomic.Bool
}

// New returns a pipeline with stages in order.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Defaults returns a pipeline with the built-in stages.
func Defaults() *Pipeline {
	return New(SceneStage{}, MeshStage{}, RecordStage{}, UnknownStage{})
}

// Register appends a stage.
func (p *Pipeline) Register(s Stage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sealed.Load() {
		return errors.Wrapf(ErrPipelineSealed, "cannot register stage %s", s.Name())
	}
	p.stages = append(p.stages, s)
	return nil
}

// CanTransform reports whether a stage converts src to target.
func (p *Pipeline) CanTransform(src factory.Object, target Target) bool {
	return p.stage(src, target) != nil
}

// Transform converts src to target. Calling it when CanTransform is false
// fails with *UnsupportedTransformError.
func (p *Pipeline) Transform(ctx context.Context, env Env, src factory.Object, target Target) (factory.Object, error) {
	if !p.sealed.Load() {
		p.mu.Lock()
		p.sealed.Store(true)
		p.mu.Unlock()
	}
	s := p.stage(src, target)
	if s == nil {
		return nil, &UnsupportedTransformError{Path: objectPath(src), Source: fmt.Sprintf("%T", src), Target: target}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := s.Transform(ctx, env, src, target)
	if err != nil {
		return nil, &TransformError{Stage: s.Name(), Target: target, Path: src.Path(), Err: err}
	}
	return out, nil
}

func (p *Pipeline) stage(src factory.Object, target Target) Stage {
	if src == nil {
		return nil
	}
	stages := p.stages
	if !p.sealed.Load() {
		p.mu.Lock()
		stages = append([]Stage(nil), p.stages...)
		p.mu.Unlock()
	}
	for _, s := range stages {
		if s.CanTransform(src, target) {
			return s
		}
	}
	return nil
}

func objectPath(o factory.Object) string {
	if o == nil {
		return ""
	}
	return o.Path()
}
