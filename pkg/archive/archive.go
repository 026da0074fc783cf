package archive

import (
	"context"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Archive is an opened archive bound to one driver. Its index is immutable
// after Open, so all read methods are safe for concurrent use.
type Archive struct {
	name    string
	profile string
	driver  Driver
	r       io.ReaderAt
	closer  io.Closer
	size    int64
	logger  zerolog.Logger

	entries []Entry
	index   map[string]int
	closed  atomic.Bool
}

// Options holds archive open options
type Options struct {
	Registry *Registry
	Driver   string
	Profile  string
	Logger   zerolog.Logger
}

// Option configures Open.
type Option func(*Options)

// WithRegistry uses r instead of DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(o *Options) {
		o.Registry = r
	}
}

// WithDriver forces the named driver and skips signature detection.
func WithDriver(name string) Option {
	return func(o *Options) {
		o.Driver = name
	}
}

// WithProfile records the game profile owning the archive.
func WithProfile(name string) Option {
	return func(o *Options) {
		o.Profile = name
	}
}

// WithLogger sets the archive logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Open opens the archive file at filename.
func Open(ctx context.Context, filename string, opts ...Option) (*Archive, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open archive %q", filename)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "cannot stat archive %q", filename)
	}
	a, err := OpenReader(ctx, filename, f, fi.Size(), opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// OpenReader opens an archive from r. name is used for extension based
// detection and error messages. If r implements io.Closer it is closed by
// Archive.Close.
func OpenReader(ctx context.Context, name string, r io.ReaderAt, size int64, opts ...Option) (*Archive, error) {
	o := Options{
		Registry: DefaultRegistry,
		Logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	header := make([]byte, MaxSignatureLength)
	n, err := r.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "cannot read header of %q", name)
	}
	header = header[:n]

	var driver Driver
	var ok bool
	if o.Driver != "" {
		if driver, ok = o.Registry.Lookup(o.Driver); !ok {
			return nil, errors.Wrapf(ErrFormatNotRecognized, "%s: unknown driver %q", name, o.Driver)
		}
	} else if driver, ok = o.Registry.Detect(header, name); !ok {
		return nil, &FormatError{Name: name, Hint: formatHint(ctx, name, header)}
	}
	logger := o.Logger.With().Str("archive", filepath.Base(name)).Str("driver", driver.Name()).Logger()
	logger.Debug().Msg("Archive format detected")

	entries, err := driver.Index(ctx, r, size)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot index %q", name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := &Archive{
		name:    name,
		profile: o.Profile,
		driver:  driver,
		r:       r,
		size:    size,
		logger:  logger,
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		p, ok := CleanPath(e.Path)
		if !ok {
			logger.Warn().Str("path", e.Path).Msg("Skipping entry outside archive root")
			continue
		}
		e.Path = p
		if _, dup := a.index[p]; dup {
			return nil, errors.Wrapf(ErrCorruptArchive, "%s: duplicate entry %q", name, p)
		}
		a.index[p] = 0
		a.entries = append(a.entries, e)
	}
	sort.Slice(a.entries, func(i, j int) bool {
		return a.entries[i].Path < a.entries[j].Path
	})
	for i, e := range a.entries {
		a.index[e.Path] = i
	}
	if c, ok := r.(io.Closer); ok {
		a.closer = c
	}

	logger.Debug().Int("entries", len(a.entries)).Msg("Archive indexed")
	return a, nil
}

// Name returns the name the archive was opened with.
func (a *Archive) Name() string {
	return a.name
}

// Driver returns the name of the bound driver.
func (a *Archive) Driver() string {
	return a.driver.Name()
}

// Profile returns the owning game profile, if any.
func (a *Archive) Profile() string {
	return a.profile
}

// Size returns the archive size in bytes.
func (a *Archive) Size() int64 {
	return a.size
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Contains reports whether the logical path p is in the index.
func (a *Archive) Contains(p string) bool {
	_, ok := a.lookup(p)
	return ok
}

// Stat returns the entry for p.
func (a *Archive) Stat(p string) (Entry, error) {
	e, ok := a.lookup(p)
	if !ok {
		return Entry{}, &NotFoundError{Path: p}
	}
	return e, nil
}

// Open returns a reader over the decoded payload of p. Decoding failures
// surface from Read as *CorruptEntryError.
func (a *Archive) Open(p string) (io.ReadCloser, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	e, ok := a.lookup(p)
	if !ok {
		return nil, &NotFoundError{Path: p}
	}
	a.logger.Trace().Str("path", e.Path).Msg("Opening entry")
	rc, err := a.driver.Open(a.r, e)
	if err != nil {
		return nil, &CorruptEntryError{Path: e.Path, Driver: a.driver.Name(), Err: err}
	}
	return newEntryReader(rc, e, a.driver.Name(), &a.closed), nil
}

// ReadFile reads the whole decoded payload of p.
func (a *Archive) ReadFile(ctx context.Context, p string) ([]byte, error) {
	rc, err := a.Open(p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(readerContext(ctx, rc))
}

// Paths yields every logical path in sorted order. The sequence reads the
// immutable index and can be iterated any number of times.
func (a *Archive) Paths() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, e := range a.entries {
			if !yield(e.Path) {
				return
			}
		}
	}
}

// Entries yields every entry in path order.
func (a *Archive) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range a.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Close releases the underlying file. Entry readers still open fail with
// ErrClosed afterwards.
func (a *Archive) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *Archive) lookup(p string) (Entry, bool) {
	clean, ok := CleanPath(p)
	if !ok {
		return Entry{}, false
	}
	i, ok := a.index[clean]
	if !ok {
		return Entry{}, false
	}
	return a.entries[i], true
}
