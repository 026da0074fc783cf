package archive

import (
	"context"
	_ "crypto/sha256"
	"io"
	"sync/atomic"

	digest "github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// entryReader checks a decoded payload against its entry: the exact size
// and, when present, the digest. Any driver read error is reported as a
// corrupt entry. Reads after the archive is closed fail with ErrClosed.
type entryReader struct {
	rc       io.ReadCloser
	entry    Entry
	driver   string
	n        int64
	verifier digest.Verifier
	closed   *atomic.Bool
	err      error
}

func newEntryReader(rc io.ReadCloser, e Entry, driver string, closed *atomic.Bool) *entryReader {
	er := &entryReader{rc: rc, entry: e, driver: driver, closed: closed}
	if e.Digest != "" && e.Digest.Validate() == nil {
		er.verifier = e.Digest.Verifier()
	}
	return er
}

func (r *entryReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.closed != nil && r.closed.Load() {
		return 0, ErrClosed
	}
	n, err := r.rc.Read(p)
	r.n += int64(n)
	if r.verifier != nil && n > 0 {
		_, _ = r.verifier.Write(p[:n])
	}
	if r.n > r.entry.Size {
		return n, r.fail(errors.Errorf("payload exceeds %d bytes", r.entry.Size))
	}
	switch {
	case err == io.EOF:
		if r.n != r.entry.Size {
			return n, r.fail(errors.Errorf("short payload (%d of %d bytes)", r.n, r.entry.Size))
		}
		if r.verifier != nil && !r.verifier.Verified() {
			return n, r.fail(errors.Errorf("digest mismatch, expected %s", r.entry.Digest))
		}
		r.err = io.EOF
		return n, io.EOF
	case err != nil:
		return n, r.fail(err)
	}
	return n, nil
}

func (r *entryReader) fail(err error) error {
	if err == io.ErrUnexpectedEOF {
		err = errors.New("unexpected EOF")
	}
	r.err = &CorruptEntryError{Path: r.entry.Path, Driver: r.driver, Err: err}
	return r.err
}

func (r *entryReader) Close() error {
	return r.rc.Close()
}

type reader struct {
	ctx context.Context
	r   io.Reader
}

func readerContext(ctx context.Context, r io.Reader) io.Reader {
	return reader{ctx, r}
}

func (r reader) Read(p []byte) (int, error) {
	err := r.ctx.Err()
	if err != nil {
		return 0, err
	}
	n, err := r.r.Read(p)
	if err != nil {
		return n, err
	}
	return n, r.ctx.Err()
}
