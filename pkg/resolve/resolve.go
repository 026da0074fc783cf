// Package resolve rewrites partially specified asset paths into logical
// paths present in an archive.
package resolve

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Kind is the asset kind hint used to pick candidate rewrites.
type Kind string

const (
	KindAny     Kind = "any"
	KindTexture Kind = "texture"
	KindMesh    Kind = "mesh"
	KindScene   Kind = "scene"
	KindRecord  Kind = "record"
	KindSound   Kind = "sound"
)

// Kinds lists the known kinds.
var Kinds = []Kind{KindAny, KindTexture, KindMesh, KindScene, KindRecord, KindSound}

// ParseKind parses a kind name. An empty name is KindAny.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindAny, nil
	}
	k := Kind(strings.ToLower(s))
	if !slices.Contains(Kinds, k) {
		return "", errors.Errorf("unknown asset kind %q", s)
	}
	return k, nil
}

// DirToken in a location stands for the directory of the base path.
const DirToken = "$dir"

// ErrPathNotFound is reported when no candidate exists in the archive.
var ErrPathNotFound = errors.New("path not found")

// Rule is the candidate precedence for one kind: every extension is tried
// in every location before moving to the next extension.
type Rule struct {
	Extensions []string `yaml:"extensions"`
	Locations  []string `yaml:"locations"`
}

// DefaultRules returns a fresh copy of the built-in rules.
func DefaultRules() map[Kind]Rule {
	return map[Kind]Rule{
		KindTexture: {
			Extensions: []string{"dds", "tga", "png"},
			Locations:  []string{"textures", DirToken},
		},
		KindMesh: {
			Extensions: []string{"obj"},
			Locations:  []string{DirToken, "meshes", "models"},
		},
		KindScene: {
			Extensions: []string{"scene", "yaml", "yml"},
			Locations:  []string{DirToken, "scenes"},
		},
		KindRecord: {
			Extensions: []string{"rec"},
			Locations:  []string{DirToken, "data"},
		},
		KindSound: {
			Extensions: []string{"wav", "ogg"},
			Locations:  []string{"sounds", DirToken},
		},
	}
}

// Container is the part of an archive the resolver queries.
type Container interface {
	Contains(p string) bool
}

// Resolver tries candidate paths against a container. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	c      Container
	rules  map[Kind]Rule
	logger zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRule replaces the rule of kind.
func WithRule(kind Kind, rule Rule) Option {
	return func(r *Resolver) {
		r.rules[kind] = normalizeRule(rule)
	}
}

// WithRules replaces the rules of every kind present in rules.
func WithRules(rules map[Kind]Rule) Option {
	return func(r *Resolver) {
		for kind, rule := range rules {
			r.rules[kind] = normalizeRule(rule)
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New returns a resolver over c.
func New(c Container, opts ...Option) *Resolver {
	r := &Resolver{
		c:      c,
		rules:  DefaultRules(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rule returns the rule used for kind.
func (r *Resolver) Rule(kind Kind) (Rule, bool) {
	rule, ok := r.rules[kind]
	return rule, ok
}

// Result is the outcome of one resolution.
type Result struct {
	Base  string
	Kind  Kind
	Path  string
	Found bool
	Tried []string
}

// Err returns nil for a hit and a *NotFoundError otherwise.
func (res Result) Err() error {
	if res.Found {
		return nil
	}
	return &NotFoundError{Base: res.Base, Kind: res.Kind, Tried: res.Tried}
}

// NotFoundError reports a resolution miss with the candidates tried.
type NotFoundError struct {
	Base  string
	Kind  Kind
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s (%s): %s, tried %d candidates", e.Base, e.Kind, ErrPathNotFound, len(e.Tried))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrPathNotFound || target == archive.ErrEntryNotFound
}

// Resolve returns the first candidate present in the container. A miss is
// an ordinary result, not an error.
func (r *Resolver) Resolve(base string, kind Kind) (Result, bool) {
	res := Result{Base: base, Kind: kind}
	for _, p := range r.Candidates(base, kind) {
		res.Tried = append(res.Tried, p)
		if r.c.Contains(p) {
			res.Path, res.Found = p, true
			r.logger.Trace().Str("base", base).Str("kind", string(kind)).Str("path", p).Msg("Resolved")
			return res, true
		}
	}
	r.logger.Debug().Str("base", base).Str("kind", string(kind)).Strs("tried", res.Tried).Msg("Path not resolved")
	return res, false
}

// Candidates returns the ordered, de-duplicated candidate paths for base.
// Candidates escaping the archive root are dropped.
func (r *Resolver) Candidates(base string, kind Kind) []string {
	p, ok := archive.CleanPath(base)
	if !ok {
		return nil
	}
	rule, known := r.rules[kind]
	ext := archive.Ext(p)

	var candidates []string
	seen := make(map[string]struct{})
	add := func(c string) {
		c, ok := archive.CleanPath(c)
		if !ok {
			return
		}
		if _, dup := seen[c]; dup {
			return
		}
		seen[c] = struct{}{}
		candidates = append(candidates, c)
	}

	if !known || slices.Contains(rule.Extensions, ext) {
		add(p)
	}
	if !known {
		return candidates
	}

	dir := path.Dir(p)
	if dir == "." {
		dir = ""
	}
	stem := path.Base(p)
	if ext != "" {
		stem = strings.TrimSuffix(stem, path.Ext(stem))
	}
	for _, e := range rule.Extensions {
		for _, loc := range rule.Locations {
			loc = strings.ReplaceAll(loc, DirToken, dir)
			add(path.Join(loc, stem+"."+e))
		}
	}
	return candidates
}

func normalizeRule(rule Rule) Rule {
	out := Rule{
		Extensions: make([]string, 0, len(rule.Extensions)),
		Locations:  make([]string, 0, len(rule.Locations)),
	}
	for _, e := range rule.Extensions {
		if e = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), "."); e != "" {
			out.Extensions = append(out.Extensions, e)
		}
	}
	for _, l := range rule.Locations {
		out.Locations = append(out.Locations, strings.Trim(strings.ToLower(strings.ReplaceAll(l, "\\", "/")), "/ "))
	}
	return out
}
