// Package loader ties an archive to the resolver, the constructor registry
// and the transform pipeline.
package loader

import (
	"context"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/crazy-max/unpak/pkg/factory"
	"github.com/crazy-max/unpak/pkg/resolve"
	"github.com/crazy-max/unpak/pkg/transform"
	"github.com/rs/zerolog"
)

// Loader loads assets from one archive. It holds no locks and caches
// nothing, so it is safe for concurrent use and reentrant from transforms.
type Loader struct {
	archive  *archive.Archive
	resolver *resolve.Resolver
	factory  *factory.Registry
	pipeline *transform.Pipeline
	logger   zerolog.Logger
}

// Options holds loader options
type Options struct {
	Rules    map[resolve.Kind]resolve.Rule
	Factory  *factory.Registry
	Pipeline *transform.Pipeline
	Logger   zerolog.Logger
}

// Option configures a Loader.
type Option func(*Options)

// WithRules overrides resolver rules.
func WithRules(rules map[resolve.Kind]resolve.Rule) Option {
	return func(o *Options) {
		o.Rules = rules
	}
}

// WithFactory uses r instead of factory.Default.
func WithFactory(r *factory.Registry) Option {
	return func(o *Options) {
		o.Factory = r
	}
}

// WithPipeline uses p instead of the built-in stages.
func WithPipeline(p *transform.Pipeline) Option {
	return func(o *Options) {
		o.Pipeline = p
	}
}

// WithLogger sets the loader logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Asset is a loaded entry and its constructed object.
type Asset struct {
	Path   string
	Entry  archive.Entry
	Option factory.FileOption
	Object factory.Object
}

// New returns a loader over a.
func New(a *archive.Archive, opts ...Option) *Loader {
	o := Options{
		Factory: factory.Default,
		Logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Pipeline == nil {
		o.Pipeline = transform.Defaults()
	}
	return &Loader{
		archive:  a,
		resolver: resolve.New(a, resolve.WithRules(o.Rules), resolve.WithLogger(o.Logger)),
		factory:  o.Factory,
		pipeline: o.Pipeline,
		logger:   o.Logger,
	}
}

// Archive returns the archive the loader reads from.
func (l *Loader) Archive() *archive.Archive {
	return l.archive
}

// Resolve resolves base against the archive.
func (l *Loader) Resolve(base string, kind resolve.Kind) (resolve.Result, bool) {
	return l.resolver.Resolve(base, kind)
}

// Candidates returns the candidate paths tried for base.
func (l *Loader) Candidates(base string, kind resolve.Kind) []string {
	return l.resolver.Candidates(base, kind)
}

// Load resolves base, reads the entry and constructs its object. A
// resolution miss is reported as a *resolve.NotFoundError.
func (l *Loader) Load(ctx context.Context, base string, kind resolve.Kind, want factory.Capability) (*Asset, error) {
	res, ok := l.resolver.Resolve(base, kind)
	if !ok {
		return nil, res.Err()
	}
	entry, err := l.archive.Stat(res.Path)
	if err != nil {
		return nil, err
	}
	data, err := l.archive.ReadFile(ctx, res.Path)
	if err != nil {
		return nil, err
	}
	opt, obj, err := l.factory.Construct(ctx, res.Path, data, want)
	if err != nil {
		return nil, err
	}
	l.logger.Debug().
		Str("base", base).
		Str("path", res.Path).
		Str("constructor", opt.Name).
		Bool("fallback", opt.Fallback).
		Msg("Asset loaded")
	return &Asset{
		Path:   res.Path,
		Entry:  entry,
		Option: opt,
		Object: obj,
	}, nil
}

// Materialize loads base and returns its object. It makes the loader a
// transform.Env for nested loads.
func (l *Loader) Materialize(ctx context.Context, base string, kind resolve.Kind, want factory.Capability) (factory.Object, error) {
	a, err := l.Load(ctx, base, kind, want)
	if err != nil {
		return nil, err
	}
	return a.Object, nil
}

// CanTransform reports whether obj converts to target.
func (l *Loader) CanTransform(obj factory.Object, target transform.Target) bool {
	return l.pipeline.CanTransform(obj, target)
}

// Transform converts obj to target, loading nested assets from the
// archive.
func (l *Loader) Transform(ctx context.Context, obj factory.Object, target transform.Target) (factory.Object, error) {
	return l.pipeline.Transform(ctx, l, obj, target)
}

var _ transform.Env = (*Loader)(nil)
