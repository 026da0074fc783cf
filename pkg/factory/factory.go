// Package factory maps file extensions to constructors turning entry bytes
// into typed objects.
//
// Constructors are registered during setup under a discriminator: a file
// extension without the dot, or Fallback. Lookup for a path tries, in order,
// the constructors registered for its extension with the wanted capability,
// then those registered for its extension without capability, then the
// fallback ones. Within a list the highest priority wins and, on equal
// priority, the first registered wins. Only the selected constructor runs.
package factory

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/pkg/errors"
)

// Fallback is the discriminator of constructors used for extensions with
// no registered constructor.
const Fallback = "*"

// Object is a constructed in-memory asset.
type Object interface {
	Path() string
}

// Encoder is implemented by objects that can serialize back to bytes.
type Encoder interface {
	Bytes() []byte
}

// Capability names a representation a caller specifically wants.
type Capability string

// Constructor builds an object from the bytes of the entry at path. It must
// not retain shared mutable state between calls.
type Constructor func(ctx context.Context, path string, data []byte) (Object, error)

// FileOption describes the constructor chosen for one path.
type FileOption struct {
	Discriminator string
	Capability    Capability
	Name          string
	Priority      int
	Fallback      bool
}

type key struct {
	disc string
	cap  Capability
}

type registration struct {
	name     string
	fn       Constructor
	priority int
	cap      Capability
}

// RegisterOption configures one registration.
type RegisterOption func(*registration)

// WithCapability registers the constructor as an override used only when
// the caller wants c.
func WithCapability(c Capability) RegisterOption {
	return func(r *registration) {
		r.cap = c
	}
}

// Registry holds constructors. Register is for the setup phase; the first
// Construct seals the registry and lookups run without locking afterwards.
type Registry struct {
	mu     sync.Mutex
	byKey  map[key][]registration
	sealed atomic.Bool
}

// Default is the process-wide registry.
var Default = New()

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byKey: make(map[key][]registration),
	}
}

// Register adds a constructor for disc.
func (r *Registry) Register(disc, name string, fn Constructor, priority int, opts ...RegisterOption) error {
	if fn == nil {
		return errors.Errorf("constructor %s is nil", name)
	}
	disc = normalize(disc)
	if disc == "" {
		return errors.Errorf("constructor %s has an empty discriminator", name)
	}
	reg := registration{
		name:     name,
		fn:       fn,
		priority: priority,
	}
	for _, opt := range opts {
		opt(&reg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return errors.Wrapf(ErrRegistrySealed, "cannot register %s for %q", name, disc)
	}
	k := key{disc: disc, cap: reg.cap}
	list := append(r.byKey[k], reg)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].priority > list[j].priority
	})
	r.byKey[k] = list
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(disc, name string, fn Constructor, priority int, opts ...RegisterOption) {
	if err := r.Register(disc, name, fn, priority, opts...); err != nil {
		panic(err)
	}
}

// Seal ends the setup phase.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed.Store(true)
	r.mu.Unlock()
}

// Sealed reports whether the registry is sealed.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Lookup returns the constructor Construct would use for path and want.
func (r *Registry) Lookup(path string, want Capability) (FileOption, bool) {
	if !r.sealed.Load() {
		r.Seal()
	}
	opt, _, ok := r.lookup(archive.Ext(path), want)
	return opt, ok
}

// Construct selects a constructor for path and runs it. Any failure is a
// *ConstructionError; a constructor never yields a silent placeholder.
func (r *Registry) Construct(ctx context.Context, path string, data []byte, want Capability) (FileOption, Object, error) {
	if !r.sealed.Load() {
		r.Seal()
	}
	ext := archive.Ext(path)
	opt, fn, ok := r.lookup(ext, want)
	if !ok {
		return FileOption{}, nil, &ConstructionError{Path: path, Ext: ext, Err: ErrNoConstructor}
	}
	if err := ctx.Err(); err != nil {
		return opt, nil, &ConstructionError{Path: path, Ext: ext, Name: opt.Name, Err: err}
	}
	obj, err := fn(ctx, path, data)
	if err != nil {
		return opt, nil, &ConstructionError{Path: path, Ext: ext, Name: opt.Name, Err: err}
	}
	if isNil(obj) {
		return opt, nil, &ConstructionError{Path: path, Ext: ext, Name: opt.Name, Err: ErrNilObject}
	}
	return opt, obj, nil
}

// isNil also catches typed nil pointers wrapped in a non-nil Object.
func isNil(obj Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func (r *Registry) lookup(ext string, want Capability) (FileOption, Constructor, bool) {
	var keys []key
	if want != "" {
		keys = append(keys, key{disc: ext, cap: want})
	}
	keys = append(keys, key{disc: ext})
	if want != "" {
		keys = append(keys, key{disc: Fallback, cap: want})
	}
	keys = append(keys, key{disc: Fallback})

	for _, k := range keys {
		if k.disc == "" {
			continue
		}
		list := r.byKey[k]
		if len(list) == 0 {
			continue
		}
		reg := list[0]
		return FileOption{
			Discriminator: k.disc,
			Capability:    k.cap,
			Name:          reg.name,
			Priority:      reg.priority,
			Fallback:      k.disc == Fallback,
		}, reg.fn, true
	}
	return FileOption{}, nil, false
}

func normalize(disc string) string {
	disc = strings.ToLower(strings.TrimSpace(disc))
	if disc == Fallback {
		return disc
	}
	return strings.TrimPrefix(disc, ".")
}
