// Package pk3 implements the driver for zip based game archives such as
// Quake .pk3 files.
package pk3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
)

// Name of the driver.
const Name = "pk3"

// zip compression methods
const (
	methodStore   = 0
	methodDeflate = 8
	methodZstd    = 93
)

func init() {
	archive.MustRegister(Driver{})
}

// Driver reads zip based archives.
type Driver struct{}

// Name returns the driver name.
func (Driver) Name() string { return Name }

// Extensions returns the fallback file extensions.
func (Driver) Extensions() []string { return []string{"pk3", "pk4", "zip"} }

// Match checks the zip local file or end of directory signature.
func (Driver) Match(header []byte) bool {
	mr, err := archives.Zip{}.Match(context.Background(), "", bytes.NewReader(header))
	return err == nil && mr.ByStream
}

// Index reads the central directory. Directory entries are skipped.
func (Driver) Index(ctx context.Context, r io.ReaderAt, size int64) ([]archive.Entry, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrapf(archive.ErrCorruptArchive, "reading central directory: %v", err)
	}
	entries := make([]archive.Entry, 0, len(zr.File))
	for i, f := range zr.File {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if f.FileInfo().IsDir() {
			continue
		}
		off, err := f.DataOffset()
		if err != nil {
			return nil, errors.Wrapf(archive.ErrCorruptArchive, "%s: %v", f.Name, err)
		}
		e := archive.Entry{
			Path:       f.Name,
			Offset:     off,
			StoredSize: int64(f.CompressedSize64),
			Size:       int64(f.UncompressedSize64),
		}
		switch f.Method {
		case methodStore:
			e.Compression = archive.CompressionNone
		case methodDeflate:
			e.Compression = archive.CompressionDeflate
		case methodZstd:
			e.Compression = archive.CompressionZstd
		default:
			e.Compression = archive.Compression(fmt.Sprintf("method-%d", f.Method))
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Open reads the entry data directly from its offset.
func (Driver) Open(r io.ReaderAt, e archive.Entry) (io.ReadCloser, error) {
	section := io.NewSectionReader(r, e.Offset, e.StoredSize)
	switch e.Compression {
	case archive.CompressionNone:
		return io.NopCloser(section), nil
	case archive.CompressionDeflate:
		return flate.NewReader(section), nil
	case archive.CompressionZstd:
		zr, err := zstd.NewReader(section, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, errors.Wrap(err, "zstd")
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, errors.Errorf("unsupported zip method %s", e.Compression)
	}
}
