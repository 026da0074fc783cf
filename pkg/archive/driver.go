package archive

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mholt/archives"
	"github.com/pkg/errors"
)

// MaxSignatureLength is the number of leading bytes handed to Driver.Match.
const MaxSignatureLength = 16

// Driver decodes one archive family.
type Driver interface {
	// Name returns the driver name, e.g. "hpak".
	Name() string
	// Extensions lists file extensions (without dot) used as a fallback
	// signature when no driver matches the magic bytes.
	Extensions() []string
	// Match reports whether the leading bytes of a container belong to
	// this family.
	Match(header []byte) bool
	// Index parses the table of contents without decoding payloads.
	Index(ctx context.Context, r io.ReaderAt, size int64) ([]Entry, error)
	// Open returns the decoded payload of e. Reads are addressed by the
	// entry offset only, so Open is safe for concurrent use.
	Open(r io.ReaderAt, e Entry) (io.ReadCloser, error)
}

// Registry holds drivers keyed by signature. Drivers are registered during
// setup; the first Detect seals the registry.
type Registry struct {
	mu      sync.Mutex
	drivers []Driver
	sealed  atomic.Bool
}

// DefaultRegistry is the process-wide driver registry. Driver packages add
// themselves to it from init.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a driver to the default registry.
func Register(d Driver) error {
	return DefaultRegistry.Register(d)
}

// MustRegister is like Register but panics on error. Meant for init.
func MustRegister(d Driver) {
	if err := DefaultRegistry.Register(d); err != nil {
		panic(err)
	}
}

// Register adds a driver. Registering the same name twice or after the
// registry was sealed is an error.
func (r *Registry) Register(d Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return errors.Wrapf(ErrRegistrySealed, "cannot register driver %s", d.Name())
	}
	for _, existing := range r.drivers {
		if existing.Name() == d.Name() {
			return errors.Errorf("driver %s already registered", d.Name())
		}
	}
	r.drivers = append(r.drivers, d)
	return nil
}

// Seal ends the setup phase.
func (r *Registry) Seal() {
	if r.sealed.Load() {
		return
	}
	r.mu.Lock()
	r.sealed.Store(true)
	r.mu.Unlock()
}

// Sealed reports whether the registry accepts new drivers.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Lookup returns the driver registered under name.
func (r *Registry) Lookup(name string) (Driver, bool) {
	r.Seal()
	for _, d := range r.list() {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// Names returns registered driver names in registration order.
func (r *Registry) Names() []string {
	drivers := r.list()
	names := make([]string, 0, len(drivers))
	for _, d := range drivers {
		names = append(names, d.Name())
	}
	return names
}

// Detect selects a driver from the container header, falling back to the
// file extension of filename.
func (r *Registry) Detect(header []byte, filename string) (Driver, bool) {
	r.Seal()
	drivers := r.list()
	for _, d := range drivers {
		if d.Match(header) {
			return d, true
		}
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return nil, false
	}
	for _, d := range drivers {
		for _, e := range d.Extensions() {
			if e == ext {
				return d, true
			}
		}
	}
	return nil, false
}

func (r *Registry) list() []Driver {
	if r.sealed.Load() {
		return r.drivers
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Driver(nil), r.drivers...)
}

// formatHint names a generic archive or compression format for the stream,
// used to make ErrFormatNotRecognized more helpful.
func formatHint(ctx context.Context, filename string, header []byte) string {
	format, _, err := archives.Identify(ctx, filepath.Base(filename), bytes.NewReader(header))
	if err != nil {
		return ""
	}
	return format.Extension()
}
