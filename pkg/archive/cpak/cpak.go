// Package cpak implements the compressed-chunk archive driver.
//
// A cpak archive starts with a 32 byte little-endian header:
//
//	"CPAK" | version u32 | toc offset u64 | toc stored u32 | toc size u32
//	| chunk size u32 | reserved u32
//
// Every entry payload is a sequence of independently compressed chunks,
// each prefixed by a codec tag, its stored length and its raw length. The
// table of contents is a zstd compressed CBOR array describing each entry
// with its payload range and the sha256 digest of its content.
package cpak

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/fxamacker/cbor/v2"
	digest "github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

const (
	// Name of the driver.
	Name = "cpak"

	// Version is the only supported format version.
	Version = 1

	headerSize = 32

	maxTOCSize = 64 << 20
)

// Magic identifies cpak archives.
var Magic = []byte("CPAK")

func init() {
	archive.MustRegister(Driver{})
}

type header struct {
	Magic     [4]byte
	Version   uint32
	TOCOffset uint64
	TOCStored uint32
	TOCSize   uint32
	ChunkSize uint32
	Reserved  uint32
}

type tocEntry struct {
	Path   string `cbor:"1,keyasint"`
	Offset int64  `cbor:"2,keyasint"`
	Stored int64  `cbor:"3,keyasint"`
	Size   int64  `cbor:"4,keyasint"`
	Digest string `cbor:"5,keyasint,omitempty"`
}

var tocDecMode cbor.DecMode

func init() {
	var err error
	tocDecMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 22,
	}.DecMode()
	if err != nil {
		panic("cpak: cbor decode mode: " + err.Error())
	}
}

// Driver reads cpak archives.
type Driver struct{}

// Name returns the driver name.
func (Driver) Name() string { return Name }

// Extensions returns the fallback file extensions.
func (Driver) Extensions() []string { return []string{"cpak", "forge"} }

// Match checks the magic bytes.
func (Driver) Match(header []byte) bool {
	return bytes.HasPrefix(header, Magic)
}

// Index decodes the table of contents.
func (Driver) Index(ctx context.Context, r io.ReaderAt, size int64) ([]archive.Entry, error) {
	var hdr header
	if err := binary.Read(io.NewSectionReader(r, 0, headerSize), binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrapf(archive.ErrCorruptArchive, "reading header: %v", err)
	}
	if !bytes.Equal(hdr.Magic[:], Magic) {
		return nil, errors.Wrap(archive.ErrCorruptArchive, "bad magic")
	}
	if hdr.Version != Version {
		return nil, errors.Errorf("unsupported cpak version %d", hdr.Version)
	}
	if hdr.TOCOffset+uint64(hdr.TOCStored) > uint64(size) || hdr.TOCSize > maxTOCSize {
		return nil, errors.Wrap(archive.ErrCorruptArchive, "toc out of bounds")
	}

	stored := make([]byte, hdr.TOCStored)
	if _, err := r.ReadAt(stored, int64(hdr.TOCOffset)); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "reading toc")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, hdr.TOCSize))
	if err != nil {
		return nil, errors.Wrapf(archive.ErrCorruptArchive, "decompressing toc: %v", err)
	}
	if len(raw) != int(hdr.TOCSize) {
		return nil, errors.Wrapf(archive.ErrCorruptArchive, "toc size %d does not match %d", len(raw), hdr.TOCSize)
	}

	var toc []tocEntry
	if err := tocDecMode.Unmarshal(raw, &toc); err != nil {
		return nil, errors.Wrapf(archive.ErrCorruptArchive, "decoding toc: %v", err)
	}

	entries := make([]archive.Entry, 0, len(toc))
	for i, te := range toc {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if te.Offset < headerSize || te.Stored < 0 || te.Size < 0 || te.Offset+te.Stored > int64(hdr.TOCOffset) {
			return nil, errors.Wrapf(archive.ErrCorruptArchive, "entry %q out of bounds", te.Path)
		}
		e := archive.Entry{
			Path:        te.Path,
			Offset:      te.Offset,
			StoredSize:  te.Stored,
			Size:        te.Size,
			Compression: archive.CompressionChunked,
		}
		if te.Digest != "" {
			d, err := digest.Parse(te.Digest)
			if err != nil {
				return nil, errors.Wrapf(archive.ErrCorruptArchive, "entry %q: %v", te.Path, err)
			}
			e.Digest = d
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Open decodes the chunks of e.
func (Driver) Open(r io.ReaderAt, e archive.Entry) (io.ReadCloser, error) {
	return io.NopCloser(&chunkReader{r: io.NewSectionReader(r, e.Offset, e.StoredSize)}), nil
}
