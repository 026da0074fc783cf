package hpak

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"sort"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// Writer builds an hpak archive. Payloads are written as they are added;
// the table and names are written by Close.
type Writer struct {
	w        io.Writer
	out      io.Writer
	buf      *bytes.Buffer
	off      uint64
	compress bool
	records  []record
	names    map[string]struct{}
	paths    []string
	closed   bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompression stores payloads zlib compressed when it makes them
// smaller.
func WithCompression(enabled bool) WriterOption {
	return func(w *Writer) {
		w.compress = enabled
	}
}

// NewWriter writes the header placeholder and returns a Writer. The header
// is patched by Close through io.WriterAt; when w is not one, the archive
// is buffered in memory and written out by Close.
func NewWriter(w io.Writer, opts ...WriterOption) (*Writer, error) {
	hw := &Writer{
		w:     w,
		out:   w,
		names: make(map[string]struct{}),
	}
	if _, ok := w.(io.WriterAt); !ok {
		hw.buf = &bytes.Buffer{}
		hw.w = hw.buf
	}
	for _, opt := range opts {
		opt(hw)
	}
	if _, err := hw.w.Write(make([]byte, headerSize)); err != nil {
		return nil, err
	}
	hw.off = headerSize
	return hw, nil
}

// Add appends one file.
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
	if len(data) > math.MaxUint32 {
		return errors.Errorf("%s: file too large", p)
	}

	rec := record{
		Hash:       Hash(p),
		Offset:     w.off,
		Size:       uint32(len(data)),
		StoredSize: uint32(len(data)),
	}
	payload := data
	if w.compress && len(data) > 0 {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		if buf.Len() < len(data) {
			payload = buf.Bytes()
			rec.StoredSize = uint32(buf.Len())
			rec.Flags |= flagZlib
		}
	}
	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	w.off += uint64(len(payload))
	w.names[p] = struct{}{}
	w.paths = append(w.paths, p)
	w.records = append(w.records, rec)
	return nil
}

// Close writes the table and names and patches the header.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var names bytes.Buffer
	for i, p := range w.paths {
		w.records[i].NameOffset = uint32(names.Len())
		names.WriteString(p)
		names.WriteByte(0)
	}
	sort.SliceStable(w.records, func(i, j int) bool {
		return w.records[i].Hash < w.records[j].Hash
	})

	hdr := header{
		Version:     Version,
		Count:       uint32(len(w.records)),
		TableOffset: w.off,
		NamesOffset: w.off + uint64(len(w.records))*recordSize,
	}
	copy(hdr.Magic[:], Magic)

	if err := binary.Write(w.w, binary.LittleEndian, w.records); err != nil {
		return errors.Wrap(err, "writing table")
	}
	if _, err := w.w.Write(names.Bytes()); err != nil {
		return errors.Wrap(err, "writing names")
	}

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
	_, err := w.out.(io.WriterAt).WriteAt(hb.Bytes(), 0)
	return err
}
