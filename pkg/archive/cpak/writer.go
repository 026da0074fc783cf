package cpak

import (
	"bytes"
	_ "crypto/sha256"
	"encoding/binary"
	"io"
	"math"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/fxamacker/cbor/v2"
	digest "github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// Writer builds a cpak archive.
type Writer struct {
	w         io.Writer
	out       io.Writer
	buf       *bytes.Buffer
	off       int64
	tag       ChunkTag
	chunkSize int
	toc       []tocEntry
	names     map[string]struct{}
	closed    bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCodec sets the chunk codec (default zstd).
func WithCodec(tag ChunkTag) WriterOption {
	return func(w *Writer) {
		w.tag = tag
	}
}

// WithChunkSize sets the uncompressed chunk size.
func WithChunkSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 && n <= maxChunkSize {
			w.chunkSize = n
		}
	}
}

// NewWriter returns a Writer. As for hpak, the header is patched through
// io.WriterAt or the archive is buffered until Close.
func NewWriter(w io.Writer, opts ...WriterOption) (*Writer, error) {
	cw := &Writer{
		w:         w,
		out:       w,
		tag:       ChunkZstd,
		chunkSize: DefaultChunkSize,
		names:     make(map[string]struct{}),
	}
	if _, ok := w.(io.WriterAt); !ok {
		cw.buf = &bytes.Buffer{}
		cw.w = cw.buf
	}
	for _, opt := range opts {
		opt(cw)
	}
	if _, err := cw.w.Write(make([]byte, headerSize)); err != nil {
		return nil, err
	}
	cw.off = headerSize
	return cw, nil
}

// Add appends one file split in chunks.
func (w *Writer) Add(name string, data []byte) error {
	if w.closed {
		return errors.New("writer closed")
	}
	p, ok := archive.CleanPath(name)
	if !ok {
		return errors.Errorf("invalid path %q", name)
	}
	if _, dup := w.names[p]; dup {
		return errors.Errorf("duplicate path %q", p)
	}

	te := tocEntry{
		Path:   p,
		Offset: w.off,
		Size:   int64(len(data)),
		Digest: digest.FromBytes(data).String(),
	}
	for rest := data; len(rest) > 0; {
		n := min(len(rest), w.chunkSize)
		written, err := writeChunk(w.w, rest[:n], w.tag)
		if err != nil {
			return errors.Wrapf(err, "writing %s", p)
		}
		te.Stored += written
		rest = rest[n:]
	}
	w.off += te.Stored
	w.names[p] = struct{}{}
	w.toc = append(w.toc, te)
	return nil
}

// Close writes the table of contents and patches the header.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	raw, err := cbor.Marshal(w.toc)
	if err != nil {
		return errors.Wrap(err, "encoding toc")
	}
	if len(raw) > math.MaxUint32 {
		return errors.New("toc too large")
	}
	stored := zstdEncoder.EncodeAll(raw, nil)
	if _, err := w.w.Write(stored); err != nil {
		return errors.Wrap(err, "writing toc")
	}

	hdr := header{
		Version:   Version,
		TOCOffset: uint64(w.off),
		TOCStored: uint32(len(stored)),
		TOCSize:   uint32(len(raw)),
		ChunkSize: uint32(w.chunkSize),
	}
	copy(hdr.Magic[:], Magic)
	var hb bytes.Buffer
	if err := binary.Write(&hb, binary.LittleEndian, hdr); err != nil {
		return err
	}
	if w.buf != nil {
		b := w.buf.Bytes()
		copy(b, hb.Bytes())
		_, err := w.out.Write(b)
		return err
	}
	_, err = w.out.(io.WriterAt).WriteAt(hb.Bytes(), 0)
	return err
}
